// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package invite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/atheneo/internal/identity"
	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/mailer"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/pkg/uuid"
)

// # Test Doubles

type fakeInvitationRepo struct {
	mu          sync.Mutex
	invitations map[string]*Invitation
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invitations: make(map[string]*Invitation)}
}

func (repo *fakeInvitationRepo) Create(_ context.Context, invitation *Invitation) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *invitation
	repo.invitations[invitation.ID] = &copied
	return nil
}

func (repo *fakeInvitationRepo) FindByID(_ context.Context, id string) (*Invitation, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if invitation, ok := repo.invitations[id]; ok {
		copied := *invitation
		return &copied, nil
	}
	return nil, apperr.NotFound("Invitation")
}

func (repo *fakeInvitationRepo) FindByTokenHash(_ context.Context, tokenHash string) (*Invitation, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, invitation := range repo.invitations {
		if invitation.TokenHash == tokenHash {
			copied := *invitation
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Invitation")
}

func (repo *fakeInvitationRepo) FindPendingByEmail(_ context.Context, email string) (*Invitation, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, invitation := range repo.invitations {
		if invitation.Email == email && invitation.Status == InvitationPending {
			copied := *invitation
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Invitation")
}

func (repo *fakeInvitationRepo) List(_ context.Context, limit, offset int) ([]*Invitation, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var invitations []*Invitation
	for _, invitation := range repo.invitations {
		copied := *invitation
		invitations = append(invitations, &copied)
	}
	return invitations, len(repo.invitations), nil
}

func (repo *fakeInvitationRepo) MarkExpired(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if invitation, ok := repo.invitations[id]; ok && invitation.Status == InvitationPending {
		invitation.Status = InvitationExpired
	}
	return nil
}

func (repo *fakeInvitationRepo) Consume(_ context.Context, id string, acceptedAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	invitation, ok := repo.invitations[id]
	if !ok || invitation.Status != InvitationPending {
		return apperr.Conflict("Invitation has already been processed")
	}
	invitation.Status = InvitationAccepted
	invitation.AcceptedAt = &acceptedAt
	return nil
}

func (repo *fakeInvitationRepo) Reopen(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if invitation, ok := repo.invitations[id]; ok {
		invitation.Status = InvitationPending
		invitation.AcceptedAt = nil
	}
	return nil
}

func (repo *fakeInvitationRepo) Rotate(_ context.Context, id string, tokenHash, tempPasswordHash string, expiresAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	invitation, ok := repo.invitations[id]
	if !ok || invitation.Status != InvitationPending {
		return apperr.Conflict("Invitation is no longer pending")
	}
	invitation.TokenHash = tokenHash
	invitation.TempPasswordHash = tempPasswordHash
	invitation.ExpiresAt = expiresAt
	return nil
}

func (repo *fakeInvitationRepo) Cancel(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	invitation, ok := repo.invitations[id]
	if !ok || invitation.Status != InvitationPending {
		return apperr.Conflict("Invitation is no longer pending")
	}
	invitation.Status = InvitationCancelled
	return nil
}

func (repo *fakeInvitationRepo) get(id string) *Invitation {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if invitation, ok := repo.invitations[id]; ok {
		copied := *invitation
		return &copied
	}
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*RoleChangeRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*RoleChangeRequest)}
}

func (repo *fakeRequestRepo) Create(_ context.Context, request *RoleChangeRequest) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *request
	repo.requests[request.ID] = &copied
	return nil
}

func (repo *fakeRequestRepo) FindByID(_ context.Context, id string) (*RoleChangeRequest, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if request, ok := repo.requests[id]; ok {
		copied := *request
		return &copied, nil
	}
	return nil, apperr.NotFound("Role change request")
}

func (repo *fakeRequestRepo) FindPendingByUser(_ context.Context, userID string) (*RoleChangeRequest, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, request := range repo.requests {
		if request.UserID == userID && request.Status == RequestPending {
			copied := *request
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Role change request")
}

func (repo *fakeRequestRepo) List(_ context.Context, limit, offset int) ([]*RoleChangeRequest, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var requests []*RoleChangeRequest
	for _, request := range repo.requests {
		copied := *request
		requests = append(requests, &copied)
	}
	return requests, len(repo.requests), nil
}

func (repo *fakeRequestRepo) Process(_ context.Context, id string, status RequestStatus, processedBy string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	request, ok := repo.requests[id]
	if !ok || request.Status != RequestPending {
		return apperr.Conflict("Request has already been processed")
	}
	now := time.Now()
	request.Status = status
	request.ProcessedBy = &processedBy
	request.ProcessedAt = &now
	return nil
}

func (repo *fakeRequestRepo) Reopen(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if request, ok := repo.requests[id]; ok {
		request.Status = RequestPending
		request.ProcessedBy = nil
		request.ProcessedAt = nil
	}
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*AuditEntry
}

func (repo *fakeAuditRepo) Append(_ context.Context, entry *AuditEntry) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	copied := *entry
	repo.entries = append(repo.entries, &copied)
	return nil
}

func (repo *fakeAuditRepo) List(_ context.Context, limit, offset int) ([]*AuditEntry, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return append([]*AuditEntry(nil), repo.entries...), len(repo.entries), nil
}

func (repo *fakeAuditRepo) ListForUser(_ context.Context, userID string, limit, offset int) ([]*AuditEntry, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var entries []*AuditEntry
	for _, entry := range repo.entries {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	return entries, len(entries), nil
}

func (repo *fakeAuditRepo) all() []*AuditEntry {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return append([]*AuditEntry(nil), repo.entries...)
}

// fakeDirectory implements ProfileDirectory over an in-memory user map.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]*identity.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]*identity.User)}
}

func (directory *fakeDirectory) FindByID(_ context.Context, id string) (*identity.User, error) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	if user, ok := directory.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (directory *fakeDirectory) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	for _, user := range directory.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (directory *fakeDirectory) add(user *identity.User) {
	directory.mu.Lock()
	defer directory.mu.Unlock()
	copied := *user
	directory.users[user.ID] = &copied
}

// fakeAccounts implements AccountWriter, recording every call and optionally
// failing on demand to exercise the compensation paths.
type fakeAccounts struct {
	mu          sync.Mutex
	directory   *fakeDirectory
	created     []identity.CreateInvitedUserInput
	roleChanges []string
	createErr   error
	changeErr   error
}

func (accounts *fakeAccounts) CreateInvitedUser(_ context.Context, input identity.CreateInvitedUserInput) (*identity.User, error) {
	accounts.mu.Lock()
	defer accounts.mu.Unlock()
	if accounts.createErr != nil {
		return nil, accounts.createErr
	}
	accounts.created = append(accounts.created, input)

	user := &identity.User{
		ID:           uuid.New(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		RoleVerified: true,
	}
	accounts.directory.add(user)
	return user, nil
}

func (accounts *fakeAccounts) ChangeRole(_ context.Context, userID string, role sec.Role, changedBy string) error {
	accounts.mu.Lock()
	defer accounts.mu.Unlock()
	if accounts.changeErr != nil {
		return accounts.changeErr
	}
	accounts.roleChanges = append(accounts.roleChanges, userID+":"+string(role))

	accounts.directory.mu.Lock()
	defer accounts.directory.mu.Unlock()
	if user, ok := accounts.directory.users[userID]; ok {
		user.Role = role
	}
	return nil
}

// failingMailer simulates a provider outage.
type failingMailer struct{}

func (failingMailer) SendInvitation(context.Context, mailer.InvitationEmail) error {
	return errors.New("provider timeout")
}

func (failingMailer) SendPasswordReset(context.Context, mailer.PasswordResetEmail) error {
	return errors.New("provider timeout")
}

// # Harness

type workflowHarness struct {
	service     *Service
	invitations *fakeInvitationRepo
	requests    *fakeRequestRepo
	audit       *fakeAuditRepo
	directory   *fakeDirectory
	accounts    *fakeAccounts
	clock       time.Time
}

func newWorkflowHarness(t *testing.T) *workflowHarness {
	t.Helper()

	invitations := newFakeInvitationRepo()
	requests := newFakeRequestRepo()
	audit := &fakeAuditRepo{}
	directory := newFakeDirectory()
	accounts := &fakeAccounts{directory: directory}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewService(
		invitations,
		requests,
		audit,
		directory,
		accounts,
		mailer.NewLogMailer(logger),
		"https://app.atheneo.test",
		logger,
	)

	h := &workflowHarness{
		service:     service,
		invitations: invitations,
		requests:    requests,
		audit:       audit,
		directory:   directory,
		accounts:    accounts,
		clock:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	service.now = func() time.Time { return h.clock }
	return h
}

// issuePending seeds one pending invitation and returns it with its plain token.
func (h *workflowHarness) issuePending(t *testing.T, email string, role sec.Role) (*Invitation, string) {
	t.Helper()

	token, err := sec.GenerateSecureToken(InvitationTokenLength)
	require.NoError(t, err)

	invitation := &Invitation{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "Grace",
		LastName:  "Hopper",
		Role:      role,
		InvitedBy: "admin-1",
		TokenHash: sec.HashToken(token),
		ExpiresAt: h.clock.Add(InvitationTTL),
		Status:    InvitationPending,
	}
	require.NoError(t, h.invitations.Create(context.Background(), invitation))
	return invitation, token
}

// # Invitation Tests

func TestIssue_CreatesPendingInvitation(t *testing.T) {
	h := newWorkflowHarness(t)

	// 1. Issuing with no role defaults to instructor
	invitation, err := h.service.Issue(context.Background(), IssueInput{
		Email:     "grace@atheneo.test",
		FirstName: "Grace",
		LastName:  "Hopper",
		InvitedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultInvitedRole, invitation.Role)
	assert.Equal(t, InvitationPending, invitation.Status)

	// 2. The window is exactly seven days from issuance
	assert.Equal(t, h.clock.Add(InvitationTTL), invitation.ExpiresAt)

	// 3. Elevated invitations carry a hashed one-time credential
	assert.NotEmpty(t, invitation.TempPasswordHash)

	// 4. A second invitation for the same email is rejected
	_, err = h.service.Issue(context.Background(), IssueInput{
		Email:     "grace@atheneo.test",
		FirstName: "Grace",
		InvitedBy: "admin-1",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestIssue_RejectsExistingAccount(t *testing.T) {
	h := newWorkflowHarness(t)

	h.directory.add(&identity.User{
		ID:    "user-1",
		Email: "ada@atheneo.test",
		Role:  sec.RoleStudent,
	})

	_, err := h.service.Issue(context.Background(), IssueInput{
		Email:     "ada@atheneo.test",
		FirstName: "Ada",
		InvitedBy: "admin-1",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestIssue_DispatchFailureKeepsRow(t *testing.T) {
	h := newWorkflowHarness(t)
	h.service.mailer = failingMailer{}

	// The email never leaves, but the row survives for a later resend
	invitation, err := h.service.Issue(context.Background(), IssueInput{
		Email:     "grace@atheneo.test",
		FirstName: "Grace",
		InvitedBy: "admin-1",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "SERVICE_UNAVAILABLE"))

	require.NotNil(t, invitation)
	stored := h.invitations.get(invitation.ID)
	require.NotNil(t, stored)
	assert.Equal(t, InvitationPending, stored.Status)
}

func TestValidate_LazyExpiry(t *testing.T) {
	h := newWorkflowHarness(t)
	invitation, token := h.issuePending(t, "grace@atheneo.test", sec.RoleInstructor)

	// 1. Inside the window the invitation resolves normally
	resolved, err := h.service.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, invitation.ID, resolved.ID)

	// 2. Past the window the first observation flips the row to expired
	h.clock = h.clock.Add(InvitationTTL + time.Minute)
	_, err = h.service.Validate(context.Background(), token)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "EXPIRED"))
	assert.Equal(t, InvitationExpired, h.invitations.get(invitation.ID).Status)

	// 3. A retry observes the terminal state, still EXPIRED
	_, err = h.service.Validate(context.Background(), token)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "EXPIRED"))
}

func TestValidate_UnknownToken(t *testing.T) {
	h := newWorkflowHarness(t)

	_, err := h.service.Validate(context.Background(), "never-issued")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))
}

func TestAccept_CreatesAccountWithInvitedRole(t *testing.T) {
	h := newWorkflowHarness(t)
	invitation, token := h.issuePending(t, "grace@atheneo.test", sec.RoleInstructor)

	user, err := h.service.Accept(context.Background(), AcceptInput{
		Token:    token,
		Password: "chosen-password",
	})
	require.NoError(t, err)

	// 1. The account is born with the invited role, no intermediate state
	assert.Equal(t, sec.RoleInstructor, user.Role)
	require.Len(t, h.accounts.created, 1)
	assert.Equal(t, sec.RoleInstructor, h.accounts.created[0].Role)
	assert.Equal(t, "admin-1", h.accounts.created[0].InvitedBy)

	// 2. The invitation is consumed
	stored := h.invitations.get(invitation.ID)
	assert.Equal(t, InvitationAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedAt)

	// 3. The grant is audited
	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, user.ID, entries[0].UserID)
	assert.Equal(t, sec.RoleInstructor, entries[0].NewRole)
	assert.Equal(t, sec.Role(""), entries[0].PreviousRole)

	// 4. A token replay is rejected
	_, err = h.service.Accept(context.Background(), AcceptInput{Token: token, Password: "x"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestAccept_FailureReopensInvitation(t *testing.T) {
	h := newWorkflowHarness(t)
	invitation, token := h.issuePending(t, "grace@atheneo.test", sec.RoleInstructor)
	h.accounts.createErr = errors.New("profile store down")

	_, err := h.service.Accept(context.Background(), AcceptInput{
		Token:    token,
		Password: "chosen-password",
	})
	require.Error(t, err)

	// The consumed row was reopened: the invitee can retry with the same link
	stored := h.invitations.get(invitation.ID)
	assert.Equal(t, InvitationPending, stored.Status)
	assert.Nil(t, stored.AcceptedAt)

	h.accounts.createErr = nil
	_, err = h.service.Accept(context.Background(), AcceptInput{Token: token, Password: "chosen-password"})
	require.NoError(t, err)
}

func TestCancel_IsTerminal(t *testing.T) {
	h := newWorkflowHarness(t)
	invitation, token := h.issuePending(t, "grace@atheneo.test", sec.RoleInstructor)

	require.NoError(t, h.service.Cancel(context.Background(), invitation.ID))

	// 1. The cancelled token can never create an account
	_, err := h.service.Accept(context.Background(), AcceptInput{Token: token, Password: "x"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
	assert.Empty(t, h.accounts.created)

	// 2. Re-cancelling a terminal row conflicts
	err = h.service.Cancel(context.Background(), invitation.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestResend_RotatesTokenMaterial(t *testing.T) {
	h := newWorkflowHarness(t)
	invitation, oldToken := h.issuePending(t, "grace@atheneo.test", sec.RoleInstructor)

	h.clock = h.clock.Add(48 * time.Hour)
	rotated, err := h.service.Resend(context.Background(), invitation.ID)
	require.NoError(t, err)

	// 1. The expiry window restarts from the resend
	assert.Equal(t, h.clock.Add(InvitationTTL), rotated.ExpiresAt)

	// 2. The old emailed link is dead
	_, err = h.service.Validate(context.Background(), oldToken)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))

	// 3. Only pending invitations can be resent
	require.NoError(t, h.service.Cancel(context.Background(), invitation.ID))
	_, err = h.service.Resend(context.Background(), invitation.ID)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

// # Role-Change Tests

func TestRequestRoleChange_SnapshotsCurrentRole(t *testing.T) {
	h := newWorkflowHarness(t)
	h.directory.add(&identity.User{ID: "user-1", Email: "ada@atheneo.test", Role: sec.RoleStudent})

	// 1. A valid petition snapshots the role held at filing time
	request, err := h.service.RequestRoleChange(context.Background(), RoleChangeInput{
		UserID:        "user-1",
		RequestedRole: sec.RoleInstructor,
		Reason:        "teaching next term",
		RequestedBy:   "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, sec.RoleStudent, request.CurrentRole)
	assert.Equal(t, RequestPending, request.Status)

	// 2. One open petition per user
	_, err = h.service.RequestRoleChange(context.Background(), RoleChangeInput{
		UserID:        "user-1",
		RequestedRole: sec.RoleAdmin,
		Reason:        "changed my mind",
		RequestedBy:   "user-1",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))

	// 3. Petitioning for the role already held is a validation error
	h.directory.add(&identity.User{ID: "user-2", Email: "bob@atheneo.test", Role: sec.RoleInstructor})
	_, err = h.service.RequestRoleChange(context.Background(), RoleChangeInput{
		UserID:        "user-2",
		RequestedRole: sec.RoleInstructor,
		Reason:        "already am",
		RequestedBy:   "user-2",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))
}

func TestProcessRoleChange_ApprovalFlipsRole(t *testing.T) {
	h := newWorkflowHarness(t)
	h.directory.add(&identity.User{ID: "user-1", Email: "ada@atheneo.test", Role: sec.RoleStudent})

	request, err := h.service.RequestRoleChange(context.Background(), RoleChangeInput{
		UserID:        "user-1",
		RequestedRole: sec.RoleInstructor,
		Reason:        "teaching next term",
		RequestedBy:   "user-1",
	})
	require.NoError(t, err)

	processed, err := h.service.ProcessRoleChange(context.Background(), ProcessInput{
		RequestID:   request.ID,
		Approve:     true,
		ProcessedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, processed.Status)

	// 1. The authoritative role changed
	require.Len(t, h.accounts.roleChanges, 1)
	assert.Equal(t, "user-1:instructor", h.accounts.roleChanges[0])

	// 2. The audit entry records the reviewed transition and links the request
	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, sec.RoleStudent, entries[0].PreviousRole)
	assert.Equal(t, sec.RoleInstructor, entries[0].NewRole)
	require.NotNil(t, entries[0].RequestID)
	assert.Equal(t, request.ID, *entries[0].RequestID)

	// 3. A second processor observes the conflict
	_, err = h.service.ProcessRoleChange(context.Background(), ProcessInput{
		RequestID:   request.ID,
		Approve:     false,
		ProcessedBy: "admin-2",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestProcessRoleChange_RejectionLeavesRole(t *testing.T) {
	h := newWorkflowHarness(t)
	h.directory.add(&identity.User{ID: "user-1", Email: "ada@atheneo.test", Role: sec.RoleStudent})

	request, err := h.service.RequestRoleChange(context.Background(), RoleChangeInput{
		UserID:        "user-1",
		RequestedRole: sec.RoleAdmin,
		Reason:        "ambition",
		RequestedBy:   "user-1",
	})
	require.NoError(t, err)

	processed, err := h.service.ProcessRoleChange(context.Background(), ProcessInput{
		RequestID:   request.ID,
		Approve:     false,
		ProcessedBy: "admin-1",
		Note:        "needs department sign-off",
	})
	require.NoError(t, err)
	assert.Equal(t, RequestRejected, processed.Status)

	// 1. No role was written
	assert.Empty(t, h.accounts.roleChanges)

	// 2. The rejection still leaves a no-change trace
	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, entries[0].PreviousRole, entries[0].NewRole)
	assert.Equal(t, "needs department sign-off", entries[0].Reason)
}

func TestProcessRoleChange_ApplicationFailureReopens(t *testing.T) {
	h := newWorkflowHarness(t)
	h.directory.add(&identity.User{ID: "user-1", Email: "ada@atheneo.test", Role: sec.RoleStudent})

	request, err := h.service.RequestRoleChange(context.Background(), RoleChangeInput{
		UserID:        "user-1",
		RequestedRole: sec.RoleInstructor,
		Reason:        "teaching next term",
		RequestedBy:   "user-1",
	})
	require.NoError(t, err)

	h.accounts.changeErr = errors.New("profile store down")
	_, err = h.service.ProcessRoleChange(context.Background(), ProcessInput{
		RequestID:   request.ID,
		Approve:     true,
		ProcessedBy: "admin-1",
	})
	require.Error(t, err)

	// The petition went back in the queue for a retry
	reloaded, err := h.requests.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestPending, reloaded.Status)

	h.accounts.changeErr = nil
	processed, err := h.service.ProcessRoleChange(context.Background(), ProcessInput{
		RequestID:   request.ID,
		Approve:     true,
		ProcessedBy: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, processed.Status)
}

func TestDirectRoleChange_AuditsImmediateEdit(t *testing.T) {
	h := newWorkflowHarness(t)
	h.directory.add(&identity.User{ID: "user-1", Email: "ada@atheneo.test", Role: sec.RoleInstructor})

	// 1. A no-op edit is rejected before touching anything
	err := h.service.DirectRoleChange(context.Background(), "user-1", sec.RoleInstructor, "admin-1", "")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))

	// 2. A real edit applies and audits without a petition
	require.NoError(t, h.service.DirectRoleChange(context.Background(), "user-1", sec.RoleStudent, "admin-1", "left the faculty"))

	require.Len(t, h.accounts.roleChanges, 1)
	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, sec.RoleInstructor, entries[0].PreviousRole)
	assert.Equal(t, sec.RoleStudent, entries[0].NewRole)
	assert.Equal(t, "left the faculty", entries[0].Reason)
	assert.Nil(t, entries[0].RequestID)
}
