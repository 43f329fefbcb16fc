// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Identity service layer: registration, sign-in, session rotation, and recovery.

Architecture:

  - Service: Orchestrates business logic (SignUp, SignIn, password recovery).
  - Repository: Abstracted interfaces for Postgres (Users, Sessions) and Redis (Reset tokens).
  - Security: Leverages Bcrypt hashing and RSA-signed JWTs.
  - Notifier: Announces session transitions to the session monitor.

The package ensures that identity data remains consistent and secure throughout
the platform's lifecycle.
*/
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/mailer"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the profile.
	//   - email: The email of the profile.
	//   - role: The current role, mirrored into the claim set.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, email, role string, timeToLive time.Duration) (string, error)
}

// Service implements identity and session use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or sign-in logic must be reviewed by the security team.
type Service struct {
	userRepository       UserRepository
	sessionRepository    SessionRepository
	resetTokenRepository ResetTokenRepository
	tokenProvider        TokenProvider
	mailer               mailer.Mailer
	notifier             *Notifier
	appBaseURL           string
	logger               *slog.Logger
}

// NewService constructs a new identity [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo ResetTokenRepository,
	tokenProv TokenProvider,
	mail mailer.Mailer,
	notifier *Notifier,
	appBaseURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:       userRepo,
		sessionRepository:    sessionRepo,
		resetTokenRepository: resetRepo,
		tokenProvider:        tokenProv,
		mailer:               mail,
		notifier:             notifier,
		appBaseURL:           appBaseURL,
		logger:               logger,
	}
}

// Users exposes the underlying user repository for sibling domains
// (role resolution, invitation workflows) that read profile state.
func (service *Service) Users() UserRepository {
	return service.userRepository
}

// # Registration Flow

// SignUpInput holds the data required to enroll a new member.
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

/*
SignUp validates, hashes, and persists a brand new user profile.

Description: Deep-enrollment of a new member. Every self-service sign-up
receives the default role; elevated roles are only reachable through the
invitation and role-change workflows.

Parameters:
  - context: context.Context
  - input: SignUpInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) SignUp(context context.Context, input SignUpInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         sec.DefaultRole,
		RoleVerified: false,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("identity_service_signup_failed: %w", err)
	}

	return user, nil
}

// # Authentication Flow

// SignInInput defines credentials for an authentication attempt.
type SignInInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// AuthSession represents a successfully established user session.
type AuthSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
SignIn validates user credentials and issues security tokens.

Description: Verifies identity, performs constant-time password comparison,
initializes a new session with rotated security tokens, and announces the
session to the monitor so idle tracking begins.

Parameters:
  - context: context.Context
  - input: SignInInput

Returns:
  - *AuthSession: Transport-ready session identifiers
  - err: Unauthorized or internal failures
*/
func (service *Service) SignIn(context context.Context, input SignInInput) (*AuthSession, error) {

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	user, err := service.userRepository.FindByEmail(context, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Generate short-lived Access Token. The role claim mirrors the profile
	// role at this instant; the resolver treats the profile as authoritative.
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(user.Role), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("identity_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("identity_service_refresh_token_failed: %w", err)
	}

	// Create and persist the tracking session
	expiresAt := time.Now().Add(RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: input.UserAgent,
		IPAddress: input.IPAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("identity_service_session_creation_failed: %w", err)
	}

	// Announce the new session so the idle monitor starts tracking
	service.notifier.Publish(SessionEvent{Type: SessionEstablished, UserID: user.ID})

	return &AuthSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

/*
SignOut permanently revokes the user's active session.

Description: Ensures that a tracked refresh token can never be used again, and
clears the idle-monitor watch for the identity.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures
*/
func (service *Service) SignOut(context context.Context, refreshToken string) error {

	// Hash the refresh token
	tokenHash := sec.HashToken(refreshToken)

	// Find the session by token hash
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) session is already gone or invalid, we consider sign-out successful (idempotent operation).
	if err != nil {
		return nil
	}

	// If (err == nil) Revoke the session
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("identity_service_signout_failed: %w", err)
	}

	service.notifier.Publish(SessionEvent{Type: SessionCleared, UserID: session.UserID})

	return nil
}

// # Session Management

/*
RefreshSession implements the Refresh Token Rotation mechanism.

Description: Verifies the existing refresh token, revokes it to prevent reuse
(replay attack mitigation), and issues a fresh pair of rotated tokens. The
user is re-read so the new access token carries the current profile role —
a refresh is the natural point where a stale role mirror self-heals.

Parameters:
  - context: context.Context
  - refreshToken: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *AuthSession: New session credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*AuthSession, error) {

	// Hash the incoming refresh token to look it up
	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) the token is either expired, already revoked, or completely invalid.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotation: Revoke the old session to prevent replay attacks
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, fmt.Errorf("identity_service_refresh_revoke_failed: %w", err)
	}

	// Fetch the user associated with this session
	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	// Generate a fresh Access Token with the current (possibly changed) role
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(user.Role), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("identity_service_refresh_access_token_failed: %w", err)
	}

	// Generate a fresh Refresh Token for the rotation
	newRefreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("identity_service_refresh_secure_token_failed: %w", err)
	}

	// Persist the new session
	expiresAt := time.Now().Add(RefreshTokenTTL)
	newSession := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(newRefreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, newSession); err != nil {
		return nil, fmt.Errorf("identity_service_refresh_session_creation_failed: %w", err)
	}

	service.notifier.Publish(SessionEvent{Type: SessionEstablished, UserID: user.ID})

	return &AuthSession{
		AccessToken:           accessToken,
		RefreshToken:          newRefreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

/*
ClearSessions revokes every active session for an identity.

Description: Single entry point for bulk invalidation — idle-timeout expiry,
password reset, and role-change mirror invalidation all land here so the
monitor notification is never forgotten.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Batch revocation failures
*/
func (service *Service) ClearSessions(context context.Context, userID string) error {
	if err := service.sessionRepository.RevokeAll(context, userID); err != nil {
		return fmt.Errorf("identity_service_clear_sessions_failed: %w", err)
	}

	service.notifier.Publish(SessionEvent{Type: SessionCleared, UserID: userID})
	return nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates a secure token, saves it to Redis, and dispatches the
reset email. The response is identical whether or not the email exists to
prevent user enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - err: Generation errors
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	// Look up user.
	// NOTE: We don't return NOT_FOUND if the email doesn't exist to prevent user enumeration.
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return nil
	}

	// Generate reset token
	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return fmt.Errorf("identity_service_generate_reset_token_failed: %w", err)
	}

	// Save to Redis
	if err := service.resetTokenRepository.Set(context, token, user.ID, ResetTokenTTL); err != nil {
		return fmt.Errorf("identity_service_save_reset_token_failed: %w", err)
	}

	// Dispatch the email. A provider outage must not distinguish this response
	// from the unknown-email path, so the failure is logged and swallowed.
	err = service.mailer.SendPasswordReset(context, mailer.PasswordResetEmail{
		To:        user.Email,
		FirstName: user.FirstName,
		ResetURL:  service.appBaseURL + "/reset-password?token=" + token,
	})
	if err != nil {
		service.logger.Error("reset_email_dispatch_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the token, hashes the new password, updates the DB,
and revokes all active sessions for security cleanup.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: Validation or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// Retrieve the userID associated with the reset token from Redis
	userID, err := service.resetTokenRepository.Get(context, token)
	if err != nil {
		return err
	}

	// Hash the new password securely
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("identity_service_reset_password_hash_failed: %w", err)
	}

	// Update the user's password in persistent storage
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("identity_service_reset_password_update_failed: %w", err)
	}

	// Security Cleanup: Revoke EVERY active session for this user
	_ = service.ClearSessions(context, userID)

	// Delete the used token from Redis
	_ = service.resetTokenRepository.Delete(context, token)

	return nil
}

/*
ChangePassword allows an authenticated user to update their credentials.

Description: Verifies the current password and then rotates all OTHER refresh
sessions to ensure high security across devices.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string
  - currentRefreshToken: string

Returns:
  - err: Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword, currentRefreshToken string) error {

	// Fetch user by ID
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	// Verify the current password before allowing change
	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	// Hash the brand new password
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("identity_service_change_password_hash_failed: %w", err)
	}

	// Update the database with the new hash
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("identity_service_change_password_update_failed: %w", err)
	}

	// Security Side Effect: Revoke all other sessions to force re-login on other devices
	tokenHash := sec.HashToken(currentRefreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)
	if err == nil {
		_ = service.sessionRepository.RevokeOthers(context, userID, session.ID)
	}

	return nil
}

// # Governed Account Creation

// CreateInvitedUserInput holds the data for an invitation-driven enrollment.
type CreateInvitedUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      sec.Role
	InvitedBy string
}

/*
CreateInvitedUser persists a profile born from an accepted invitation.

Description: Unlike self-service sign-up, the profile is created in a single
insert carrying the invited role, already verified and stamped with the
inviter. There is no window where an account exists without its role.

Parameters:
  - context: context.Context
  - input: CreateInvitedUserInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) CreateInvitedUser(context context.Context, input CreateInvitedUserInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity_service_invited_hash_failed: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:             uuid.New(),
		Email:          input.Email,
		PasswordHash:   hashedPassword,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Role:           input.Role,
		RoleVerified:   true,
		LastRoleChange: &now,
		RoleChangeBy:   &input.InvitedBy,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("identity_service_create_invited_failed: %w", err)
	}

	return user, nil
}

/*
ChangeRole transitions the authoritative role of a profile.

Description: Applies the new role to the profile store, then performs the
best-effort mirror invalidation: active sessions are revoked so the stale
role claim inside outstanding JWTs cannot outlive the access-token TTL by
much. A failed revocation is logged, not surfaced — the authoritative store
has already changed and the resolver reads from it.

Parameters:
  - context: context.Context
  - userID: string
  - role: sec.Role
  - changedBy: string

Returns:
  - err: NotFound or storage failures
*/
func (service *Service) ChangeRole(context context.Context, userID string, role sec.Role, changedBy string) error {
	if !role.IsValid() {
		return apperr.ValidationError("Unknown role: " + string(role))
	}

	if err := service.userRepository.UpdateRole(context, userID, role, changedBy); err != nil {
		return err
	}

	// Best-effort mirror invalidation
	if err := service.ClearSessions(context, userID); err != nil {
		service.logger.Warn("role_change_session_revocation_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	return nil
}

// # Profile Self-Service

/*
GetProfile returns the profile for an authenticated identity.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated entity
  - err: NotFound or retrieval failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

// UpdateProfileInput holds the mutable self-service profile fields.
type UpdateProfileInput struct {
	FirstName string
	LastName  string
}

/*
UpdateProfile persists changes to the caller's own name fields.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *User: Updated entity
  - err: NotFound or persistence failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName

	if err := service.userRepository.Update(context, user); err != nil {
		return nil, fmt.Errorf("identity_service_update_profile_failed: %w", err)
	}

	return user, nil
}

/*
ListUsers returns a page of profiles for administrative tooling.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*User: Page of entities
  - int: Total row count
  - err: Retrieval failures
*/
func (service *Service) ListUsers(context context.Context, limit, offset int) ([]*User, int, error) {
	return service.userRepository.List(context, limit, offset)
}
