// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Invitation and role-change workflow orchestration.
//
// # Review Process
//
// This service is the only writer of elevated roles. Any change to the
// acceptance or approval paths must be reviewed by the security team.
package invite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/atheneo/internal/identity"
	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/mailer"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/pkg/uuid"
)

// # Contracts & Types

// ProfileDirectory is the read slice of the identity store the workflow needs.
type ProfileDirectory interface {
	FindByID(context context.Context, id string) (*identity.User, error)
	FindByEmail(context context.Context, email string) (*identity.User, error)
}

// AccountWriter is the slice of the identity service that applies workflow
// outcomes: governed account creation and authoritative role transitions.
type AccountWriter interface {
	CreateInvitedUser(context context.Context, input identity.CreateInvitedUserInput) (*identity.User, error)
	ChangeRole(context context.Context, userID string, role sec.Role, changedBy string) error
}

// Service implements the invitation and role-change use cases.
type Service struct {
	invitations InvitationRepository
	requests    RequestRepository
	audit       AuditRepository
	profiles    ProfileDirectory
	accounts    AccountWriter
	mailer      mailer.Mailer
	appBaseURL  string
	logger      *slog.Logger

	// Injectable clock for deterministic expiry tests.
	now func() time.Time
}

// NewService constructs a new workflow [Service] with necessary dependencies.
func NewService(
	invitations InvitationRepository,
	requests RequestRepository,
	audit AuditRepository,
	profiles ProfileDirectory,
	accounts AccountWriter,
	mail mailer.Mailer,
	appBaseURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		invitations: invitations,
		requests:    requests,
		audit:       audit,
		profiles:    profiles,
		accounts:    accounts,
		mailer:      mail,
		appBaseURL:  appBaseURL,
		logger:      logger,
		now:         time.Now,
	}
}

// # Invitation Lifecycle

// IssueInput holds the data required to issue an invitation.
type IssueInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      sec.Role // Defaults to [DefaultInvitedRole] when empty
	InvitedBy string
}

/*
Issue creates a pending invitation and dispatches the acceptance email.

Description: The opaque token is generated server-side, stored only as a
SHA-256 digest, and embedded in the emailed acceptance link. Elevated-role
invitations additionally carry a one-time temporary credential (bcrypt-hashed
at rest). A dispatch failure does NOT roll the row back — the invitation
stays pending and can be re-sent.

Parameters:
  - context: context.Context
  - input: IssueInput

Returns:
  - *Invitation: Persisted entity (pending)
  - err: Conflict (account or open invitation exists), validation, or storage errors
*/
func (service *Service) Issue(context context.Context, input IssueInput) (*Invitation, error) {

	// Default and validate the granted role
	role := input.Role
	if role == "" {
		role = DefaultInvitedRole
	}
	if !role.IsValid() {
		return nil, apperr.ValidationError("Unknown role: " + string(input.Role))
	}

	// An existing account cannot be invited
	if _, err := service.profiles.FindByEmail(context, input.Email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// One open invitation per email
	if _, err := service.invitations.FindPendingByEmail(context, input.Email); err == nil {
		return nil, apperr.Conflict("An invitation is already pending for this email")
	}

	// Generate the acceptance token; only its digest is persisted
	token, err := sec.GenerateSecureToken(InvitationTokenLength)
	if err != nil {
		return nil, fmt.Errorf("invite_service_token_generation_failed: %w", err)
	}

	// Elevated-role invitations carry a one-time temporary credential
	tempPassword, tempPasswordHash, err := service.mintTempCredential(role)
	if err != nil {
		return nil, err
	}

	invitation := &Invitation{
		ID:               uuid.New(),
		Email:            input.Email,
		FirstName:        input.FirstName,
		LastName:         input.LastName,
		Role:             role,
		InvitedBy:        input.InvitedBy,
		TokenHash:        sec.HashToken(token),
		TempPasswordHash: tempPasswordHash,
		ExpiresAt:        service.now().Add(InvitationTTL),
		Status:           InvitationPending,
	}

	if err := service.invitations.Create(context, invitation); err != nil {
		return nil, fmt.Errorf("invite_service_create_failed: %w", err)
	}

	// Dispatch. The pending row survives a failure; Resend re-dispatches.
	if err := service.dispatch(context, invitation, token, tempPassword); err != nil {
		service.logger.Error("invitation_dispatch_failed",
			slog.String("invitation_id", invitation.ID),
			slog.Any("error", err),
		)
		appError := apperr.ServiceUnavailable("Invitation was created but the email could not be delivered")
		appError.Cause = err
		return invitation, appError
	}

	return invitation, nil
}

/*
Validate resolves an acceptance token to its pending invitation.

Description: Lazy expiry lives here: a pending invitation whose window has
passed is transitioned to expired on first observation and reported as
EXPIRED (410). The re-mark is idempotent, so two concurrent validations of
the same stale token both see EXPIRED.

Parameters:
  - context: context.Context
  - token: string (opaque token from the emailed link)

Returns:
  - *Invitation: Pending, still-valid entity
  - err: NotFound (unknown token), Expired, or Conflict (terminal status)
*/
func (service *Service) Validate(context context.Context, token string) (*Invitation, error) {
	invitation, err := service.invitations.FindByTokenHash(context, sec.HashToken(token))
	if err != nil {
		return nil, err
	}

	switch invitation.Status {
	case InvitationPending:
		// Fall through to the expiry check below.
	case InvitationExpired:
		return nil, apperr.Expired("Invitation")
	default:
		// accepted or cancelled: terminal, a token replay changes nothing.
		return nil, apperr.Conflict("Invitation has already been processed")
	}

	if invitation.Expired(service.now()) {
		if err := service.invitations.MarkExpired(context, invitation.ID); err != nil {
			service.logger.Warn("invitation_lazy_expire_failed",
				slog.String("invitation_id", invitation.ID),
				slog.Any("error", err),
			)
		}
		return nil, apperr.Expired("Invitation")
	}

	return invitation, nil
}

// AcceptInput holds the data required to redeem an invitation.
type AcceptInput struct {
	Token    string
	Password string
}

/*
Accept redeems a valid invitation into a live account.

Description: The ordering is deliberate. The invitation is consumed first via
the conditional update (the race arbiter), then the account is created as a
single insert already carrying the invited role — there is no window where an
identity exists without its role. If account creation fails after the row was
consumed, the invitation is reopened so the invitee can retry.

Parameters:
  - context: context.Context
  - input: AcceptInput

Returns:
  - *identity.User: Created account with the invited role
  - err: NotFound/Expired/Conflict from validation, or creation failures
*/
func (service *Service) Accept(context context.Context, input AcceptInput) (*identity.User, error) {
	invitation, err := service.Validate(context, input.Token)
	if err != nil {
		return nil, err
	}

	// Consume first: of two racing acceptances only one passes this gate
	if err := service.invitations.Consume(context, invitation.ID, service.now()); err != nil {
		return nil, err
	}

	user, err := service.accounts.CreateInvitedUser(context, identity.CreateInvitedUserInput{
		Email:     invitation.Email,
		Password:  input.Password,
		FirstName: invitation.FirstName,
		LastName:  invitation.LastName,
		Role:      invitation.Role,
		InvitedBy: invitation.InvitedBy,
	})
	if err != nil {
		// Compensate: the invitee keeps a redeemable invitation
		if reopenErr := service.invitations.Reopen(context, invitation.ID); reopenErr != nil {
			service.logger.Error("invitation_reopen_failed",
				slog.String("invitation_id", invitation.ID),
				slog.Any("error", reopenErr),
			)
		}
		return nil, fmt.Errorf("invite_service_accept_account_failed: %w", err)
	}

	service.appendAudit(context, &AuditEntry{
		UserID:       user.ID,
		ChangedBy:    invitation.InvitedBy,
		PreviousRole: "",
		NewRole:      invitation.Role,
		Reason:       "invitation accepted",
	})

	return user, nil
}

/*
Resend rotates the token material of a pending invitation and re-dispatches.

Description: The previous token is invalidated by the rotation — an old email
link stops working the moment a new one is sent.

Parameters:
  - context: context.Context
  - invitationID: string

Returns:
  - *Invitation: Updated entity
  - err: NotFound, Conflict (not pending), or dispatch failures
*/
func (service *Service) Resend(context context.Context, invitationID string) (*Invitation, error) {
	invitation, err := service.invitations.FindByID(context, invitationID)
	if err != nil {
		return nil, err
	}

	if invitation.Status != InvitationPending {
		return nil, apperr.Conflict("Invitation is no longer pending")
	}

	token, err := sec.GenerateSecureToken(InvitationTokenLength)
	if err != nil {
		return nil, fmt.Errorf("invite_service_resend_token_failed: %w", err)
	}

	tempPassword, tempPasswordHash, err := service.mintTempCredential(invitation.Role)
	if err != nil {
		return nil, err
	}

	expiresAt := service.now().Add(InvitationTTL)
	if err := service.invitations.Rotate(context, invitation.ID, sec.HashToken(token), tempPasswordHash, expiresAt); err != nil {
		return nil, err
	}

	invitation.TokenHash = sec.HashToken(token)
	invitation.TempPasswordHash = tempPasswordHash
	invitation.ExpiresAt = expiresAt

	if err := service.dispatch(context, invitation, token, tempPassword); err != nil {
		service.logger.Error("invitation_redispatch_failed",
			slog.String("invitation_id", invitation.ID),
			slog.Any("error", err),
		)
		appError := apperr.ServiceUnavailable("Invitation was rotated but the email could not be delivered")
		appError.Cause = err
		return invitation, appError
	}

	return invitation, nil
}

/*
Cancel terminates a pending invitation.

Description: Cancellation is terminal. A cancelled token can never create an
account: Validate reports Conflict and Accept never reaches the consume gate.

Parameters:
  - context: context.Context
  - invitationID: string

Returns:
  - err: NotFound or Conflict (already terminal)
*/
func (service *Service) Cancel(context context.Context, invitationID string) error {
	if _, err := service.invitations.FindByID(context, invitationID); err != nil {
		return err
	}
	return service.invitations.Cancel(context, invitationID)
}

/*
ListInvitations returns a page of invitations for the admin console.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*Invitation: Page of entities
  - int: Total row count
  - err: Retrieval failures
*/
func (service *Service) ListInvitations(context context.Context, limit, offset int) ([]*Invitation, int, error) {
	return service.invitations.List(context, limit, offset)
}

// # Role-Change Workflow

// RoleChangeInput holds the data required to file a role-change request.
type RoleChangeInput struct {
	UserID        string
	RequestedRole sec.Role
	Reason        string
	RequestedBy   string
}

/*
RequestRoleChange files a pending petition for a different role.

Description: The current role is snapshotted at filing time so the eventual
audit entry reflects the transition the approver actually reviewed.

Parameters:
  - context: context.Context
  - input: RoleChangeInput

Returns:
  - *RoleChangeRequest: Persisted pending request
  - err: Validation, NotFound (unknown user), or Conflict (open request exists)
*/
func (service *Service) RequestRoleChange(context context.Context, input RoleChangeInput) (*RoleChangeRequest, error) {
	if !input.RequestedRole.IsValid() {
		return nil, apperr.ValidationError("Unknown role: " + string(input.RequestedRole))
	}

	user, err := service.profiles.FindByID(context, input.UserID)
	if err != nil {
		return nil, err
	}

	if user.Role == input.RequestedRole {
		return nil, apperr.ValidationError("User already holds the requested role")
	}

	// One open petition per user
	if _, err := service.requests.FindPendingByUser(context, input.UserID); err == nil {
		return nil, apperr.Conflict("A role change request is already pending for this user")
	}

	request := &RoleChangeRequest{
		ID:            uuid.New(),
		UserID:        input.UserID,
		RequestedBy:   input.RequestedBy,
		CurrentRole:   user.Role,
		RequestedRole: input.RequestedRole,
		Reason:        input.Reason,
		Status:        RequestPending,
	}

	if err := service.requests.Create(context, request); err != nil {
		return nil, fmt.Errorf("invite_service_request_create_failed: %w", err)
	}

	return request, nil
}

// ProcessInput holds the data required to decide a role-change request.
type ProcessInput struct {
	RequestID   string
	Approve     bool
	ProcessedBy string
	Note        string
}

/*
ProcessRoleChange approves or rejects a pending role-change request.

Description: The conditional status transition runs first and is the
concurrency arbiter — of two racing processors exactly one proceeds, the
other observes CONFLICT. On approval the authoritative profile role is
updated (which also performs the best-effort session-mirror invalidation)
and an audit entry records the transition. A rejection writes a no-change
audit entry. If the role application fails after the transition, the
request is reopened for a retry.

Parameters:
  - context: context.Context
  - input: ProcessInput

Returns:
  - *RoleChangeRequest: Updated request
  - err: NotFound, Conflict (already processed), or role application failures
*/
func (service *Service) ProcessRoleChange(context context.Context, input ProcessInput) (*RoleChangeRequest, error) {
	request, err := service.requests.FindByID(context, input.RequestID)
	if err != nil {
		return nil, err
	}

	status := RequestRejected
	if input.Approve {
		status = RequestApproved
	}

	// Concurrency gate: only one processor wins the pending row
	if err := service.requests.Process(context, input.RequestID, status, input.ProcessedBy); err != nil {
		return nil, err
	}

	if input.Approve {
		if err := service.accounts.ChangeRole(context, request.UserID, request.RequestedRole, input.ProcessedBy); err != nil {
			// Compensate: the petition goes back in the queue
			if reopenErr := service.requests.Reopen(context, input.RequestID); reopenErr != nil {
				service.logger.Error("role_request_reopen_failed",
					slog.String("request_id", input.RequestID),
					slog.Any("error", reopenErr),
				)
			}
			return nil, fmt.Errorf("invite_service_role_application_failed: %w", err)
		}

		service.appendAudit(context, &AuditEntry{
			UserID:       request.UserID,
			ChangedBy:    input.ProcessedBy,
			PreviousRole: request.CurrentRole,
			NewRole:      request.RequestedRole,
			Reason:       reasonOrDefault(input.Note, "role change approved"),
			RequestID:    &request.ID,
		})
	} else {
		// Rejections leave the role untouched but still leave a trace
		service.appendAudit(context, &AuditEntry{
			UserID:       request.UserID,
			ChangedBy:    input.ProcessedBy,
			PreviousRole: request.CurrentRole,
			NewRole:      request.CurrentRole,
			Reason:       reasonOrDefault(input.Note, "role change rejected"),
			RequestID:    &request.ID,
		})
	}

	return service.requests.FindByID(context, input.RequestID)
}

/*
DirectRoleChange applies an admin's immediate role edit.

Description: Same application path as an approved request (profile update,
mirror invalidation, audit entry) without a petition.

Parameters:
  - context: context.Context
  - userID: string
  - role: sec.Role
  - adminID: string
  - reason: string

Returns:
  - err: Validation, NotFound, or storage failures
*/
func (service *Service) DirectRoleChange(context context.Context, userID string, role sec.Role, adminID, reason string) error {
	user, err := service.profiles.FindByID(context, userID)
	if err != nil {
		return err
	}

	if user.Role == role {
		return apperr.ValidationError("User already holds this role")
	}

	if err := service.accounts.ChangeRole(context, userID, role, adminID); err != nil {
		return err
	}

	service.appendAudit(context, &AuditEntry{
		UserID:       userID,
		ChangedBy:    adminID,
		PreviousRole: user.Role,
		NewRole:      role,
		Reason:       reasonOrDefault(reason, "direct admin role edit"),
	})

	return nil
}

/*
ListRequests returns a page of role-change requests for the admin console.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*RoleChangeRequest: Page of entities
  - int: Total row count
  - err: Retrieval failures
*/
func (service *Service) ListRequests(context context.Context, limit, offset int) ([]*RoleChangeRequest, int, error) {
	return service.requests.List(context, limit, offset)
}

/*
ListAudit returns a page of audit entries for the admin console.

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*AuditEntry: Page of entries
  - int: Total row count
  - err: Retrieval failures
*/
func (service *Service) ListAudit(context context.Context, limit, offset int) ([]*AuditEntry, int, error) {
	return service.audit.List(context, limit, offset)
}

// # Internals

// mintTempCredential generates the one-time credential for elevated-role
// invitations. Student invitations carry none.
func (service *Service) mintTempCredential(role sec.Role) (plain, hash string, err error) {
	if !role.AtLeast(sec.RoleInstructor) {
		return "", "", nil
	}

	plain, err = sec.GenerateTempPassword()
	if err != nil {
		return "", "", fmt.Errorf("invite_service_temp_password_failed: %w", err)
	}

	hash, err = sec.HashPassword(plain)
	if err != nil {
		return "", "", fmt.Errorf("invite_service_temp_hash_failed: %w", err)
	}

	return plain, hash, nil
}

// dispatch sends the invitation email with the acceptance link.
func (service *Service) dispatch(context context.Context, invitation *Invitation, token, tempPassword string) error {
	return service.mailer.SendInvitation(context, mailer.InvitationEmail{
		To:           invitation.Email,
		FirstName:    invitation.FirstName,
		Role:         string(invitation.Role),
		AcceptURL:    service.appBaseURL + "/invitations/accept?token=" + token,
		TempPassword: tempPassword,
	})
}

// appendAudit writes one audit entry; a failure is logged, never fatal —
// the role transition itself has already committed.
func (service *Service) appendAudit(context context.Context, entry *AuditEntry) {
	entry.ID = uuid.New()
	if err := service.audit.Append(context, entry); err != nil {
		service.logger.Error("audit_append_failed",
			slog.String("user_id", entry.UserID),
			slog.Any("error", err),
		)
	}
}

// reasonOrDefault falls back to a canned reason for empty operator notes.
func reasonOrDefault(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
