// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/mailer"
	"github.com/taibuivan/atheneo/internal/platform/sec"
)

// # Test Doubles

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (repo *fakeUserRepo) FindByID(_ context.Context, id string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepo) Create(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *user
	repo.users[user.ID] = &copied
	return nil
}

func (repo *fakeUserRepo) Update(_ context.Context, user *User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[user.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	return nil
}

func (repo *fakeUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = newHash
	return nil
}

func (repo *fakeUserRepo) UpdateRole(_ context.Context, userID string, role sec.Role, changedBy string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	stored, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	now := time.Now()
	stored.Role = role
	stored.RoleVerified = true
	stored.LastRoleChange = &now
	stored.RoleChangeBy = &changedBy
	return nil
}

func (repo *fakeUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var users []*User
	for _, user := range repo.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, len(repo.users), nil
}

func (repo *fakeUserRepo) SoftDelete(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.users, id)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*Session)}
}

func (repo *fakeSessionRepo) Create(_ context.Context, session *Session) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *session
	repo.sessions[session.ID] = &copied
	return nil
}

func (repo *fakeSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, session := range repo.sessions {
		if session.TokenHash == tokenHash && !session.IsRevoked && session.ExpiresAt.After(time.Now()) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (repo *fakeSessionRepo) Revoke(_ context.Context, sessionID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if session, ok := repo.sessions[sessionID]; ok {
		session.IsRevoked = true
	}
	return nil
}

func (repo *fakeSessionRepo) RevokeAll(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, session := range repo.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (repo *fakeSessionRepo) RevokeOthers(_ context.Context, userID, currentSessionID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, session := range repo.sessions {
		if session.UserID == userID && session.ID != currentSessionID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (repo *fakeSessionRepo) DeleteExpired(_ context.Context) error { return nil }

func (repo *fakeSessionRepo) activeCount(userID string) int {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	count := 0
	for _, session := range repo.sessions {
		if session.UserID == userID && !session.IsRevoked {
			count++
		}
	}
	return count
}

type fakeResetRepo struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]string)}
}

func (repo *fakeResetRepo) Set(_ context.Context, token, userID string, _ time.Duration) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.tokens[token] = userID
	return nil
}

func (repo *fakeResetRepo) Get(_ context.Context, token string) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if userID, ok := repo.tokens[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Reset token")
}

func (repo *fakeResetRepo) Delete(_ context.Context, token string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.tokens, token)
	return nil
}

type stubTokenProvider struct{}

func (stubTokenProvider) GenerateAccessToken(userID, _, _ string, _ time.Duration) (string, error) {
	return "access-token-" + userID, nil
}

// # Harness

type serviceHarness struct {
	service  *Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	resets   *fakeResetRepo
	notifier *Notifier
	events   *[]SessionEvent
	eventsMu *sync.Mutex
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	resets := newFakeResetRepo()
	notifier := NewNotifier()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var mu sync.Mutex
	events := []SessionEvent{}
	notifier.Subscribe(func(event SessionEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})

	service := NewService(
		users,
		sessions,
		resets,
		stubTokenProvider{},
		mailer.NewLogMailer(logger),
		notifier,
		"https://app.atheneo.test",
		logger,
	)

	return &serviceHarness{
		service:  service,
		users:    users,
		sessions: sessions,
		resets:   resets,
		notifier: notifier,
		events:   &events,
		eventsMu: &mu,
	}
}

func (h *serviceHarness) recordedEvents() []SessionEvent {
	h.eventsMu.Lock()
	defer h.eventsMu.Unlock()
	return append([]SessionEvent(nil), (*h.events)...)
}

// # Tests

func TestSignUp_AssignsDefaultRole(t *testing.T) {
	h := newServiceHarness(t)

	// 1. Enroll a new member through self-service sign-up
	user, err := h.service.SignUp(context.Background(), SignUpInput{
		Email:     "ada@atheneo.test",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	// 2. The profile carries the default role, unverified
	assert.Equal(t, sec.RoleStudent, user.Role)
	assert.False(t, user.RoleVerified)
	assert.Nil(t, user.LastRoleChange)

	// 3. The password is never stored in plain text
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("correct-horse", user.PasswordHash))

	// 4. A duplicate email is rejected with a Conflict
	_, err = h.service.SignUp(context.Background(), SignUpInput{
		Email:    "ada@atheneo.test",
		Password: "another-pass",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestSignIn_EstablishesSession(t *testing.T) {
	h := newServiceHarness(t)

	user, err := h.service.SignUp(context.Background(), SignUpInput{
		Email:     "ada@atheneo.test",
		Password:  "correct-horse",
		FirstName: "Ada",
	})
	require.NoError(t, err)

	// 1. Valid credentials yield a full session
	session, err := h.service.SignIn(context.Background(), SignInInput{
		Email:    "ada@atheneo.test",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-token-"+user.ID, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, 1, h.sessions.activeCount(user.ID))

	// 2. The monitor was notified that a session exists
	events := h.recordedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, SessionEstablished, events[0].Type)
	assert.Equal(t, user.ID, events[0].UserID)

	// 3. Wrong password and unknown email both yield the same generic 401
	_, err = h.service.SignIn(context.Background(), SignInInput{Email: "ada@atheneo.test", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))

	_, err = h.service.SignIn(context.Background(), SignInInput{Email: "ghost@atheneo.test", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))
}

func TestSignOut_IsIdempotent(t *testing.T) {
	h := newServiceHarness(t)

	user, err := h.service.SignUp(context.Background(), SignUpInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)

	session, err := h.service.SignIn(context.Background(), SignInInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)

	// 1. First sign-out revokes the session and announces the clear
	require.NoError(t, h.service.SignOut(context.Background(), session.RefreshToken))
	assert.Equal(t, 0, h.sessions.activeCount(user.ID))

	events := h.recordedEvents()
	require.Len(t, events, 2)
	assert.Equal(t, SessionCleared, events[1].Type)

	// 2. A second sign-out with the same token still succeeds silently
	require.NoError(t, h.service.SignOut(context.Background(), session.RefreshToken))

	// 3. A garbage token is equally harmless
	require.NoError(t, h.service.SignOut(context.Background(), "never-issued"))
}

func TestRefreshSession_RotatesTokens(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.service.SignUp(context.Background(), SignUpInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)

	session, err := h.service.SignIn(context.Background(), SignInInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)

	// 1. Refresh succeeds and issues a different refresh token
	rotated, err := h.service.RefreshSession(context.Background(), session.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// 2. Replay of the consumed token is rejected
	_, err = h.service.RefreshSession(context.Background(), session.RefreshToken, "", "")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))

	// 3. The rotated token remains valid
	_, err = h.service.RefreshSession(context.Background(), rotated.RefreshToken, "", "")
	require.NoError(t, err)
}

func TestPasswordReset_RevokesAllSessions(t *testing.T) {
	h := newServiceHarness(t)

	user, err := h.service.SignUp(context.Background(), SignUpInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = h.service.SignIn(context.Background(), SignInInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = h.service.SignIn(context.Background(), SignInInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, 2, h.sessions.activeCount(user.ID))

	// 1. Requesting a reset for an unknown email is silent (no enumeration)
	require.NoError(t, h.service.RequestPasswordReset(context.Background(), "ghost@atheneo.test"))

	// 2. A real request stores exactly one token
	require.NoError(t, h.service.RequestPasswordReset(context.Background(), "ada@atheneo.test"))
	require.Len(t, h.resets.tokens, 1)

	var token string
	for stored := range h.resets.tokens {
		token = stored
	}

	// 3. Completing the reset updates the hash and clears every session
	require.NoError(t, h.service.ResetPassword(context.Background(), token, "new-password-123"))
	assert.Equal(t, 0, h.sessions.activeCount(user.ID))

	updated, err := h.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("new-password-123", updated.PasswordHash))

	// 4. The used token is gone
	err = h.service.ResetPassword(context.Background(), token, "yet-another-pass")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))
}

func TestCreateInvitedUser_SingleVerifiedInsert(t *testing.T) {
	h := newServiceHarness(t)

	user, err := h.service.CreateInvitedUser(context.Background(), CreateInvitedUserInput{
		Email:     "grace@atheneo.test",
		Password:  "temp-pass-123",
		FirstName: "Grace",
		LastName:  "Hopper",
		Role:      sec.RoleInstructor,
		InvitedBy: "admin-1",
	})
	require.NoError(t, err)

	// The invited role lands verified and stamped in the same insert
	assert.Equal(t, sec.RoleInstructor, user.Role)
	assert.True(t, user.RoleVerified)
	require.NotNil(t, user.RoleChangeBy)
	assert.Equal(t, "admin-1", *user.RoleChangeBy)
	assert.NotNil(t, user.LastRoleChange)

	// Conflicts with an existing account are surfaced
	_, err = h.service.CreateInvitedUser(context.Background(), CreateInvitedUserInput{
		Email: "grace@atheneo.test", Password: "x", Role: sec.RoleInstructor, InvitedBy: "admin-1",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestChangeRole_InvalidatesSessionMirror(t *testing.T) {
	h := newServiceHarness(t)

	user, err := h.service.SignUp(context.Background(), SignUpInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = h.service.SignIn(context.Background(), SignInInput{Email: "ada@atheneo.test", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, 1, h.sessions.activeCount(user.ID))

	// 1. An unknown role is rejected before touching storage
	err = h.service.ChangeRole(context.Background(), user.ID, sec.Role("superuser"), "admin-1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))

	// 2. A valid transition updates the authoritative store
	require.NoError(t, h.service.ChangeRole(context.Background(), user.ID, sec.RoleInstructor, "admin-1"))

	updated, err := h.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleInstructor, updated.Role)
	assert.True(t, updated.RoleVerified)

	// 3. Outstanding sessions are revoked so the stale claim mirror dies early
	assert.Equal(t, 0, h.sessions.activeCount(user.ID))

	events := h.recordedEvents()
	assert.Equal(t, SessionCleared, events[len(events)-1].Type)
}
