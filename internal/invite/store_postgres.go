// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementations of the invitation workflow data access contracts.
//
// # Conditional Updates
//
// Transition methods rely on `WHERE status = 'pending'` guards and inspect
// RowsAffected to detect a lost race, mapping it to apperr.Conflict. A row
// re-read is never needed: the guard and the report are one statement.
package invite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
)

// # Invitation Repository

// PostgresInvitationRepository implements InvitationRepository using pgx.
type PostgresInvitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository creates a new PostgreSQL InvitationRepository.
func NewInvitationRepository(pool *pgxpool.Pool) *PostgresInvitationRepository {
	return &PostgresInvitationRepository{pool: pool}
}

const invitationColumns = `
	id, email, firstname, lastname, role, invitedby, tokenhash,
	temppasswordhash, expiresat, status, acceptedat, createdat, updatedat`

// scanInvitation hydrates an Invitation entity from a pgx row.
func scanInvitation(row pgx.Row) (*Invitation, error) {
	invitation := &Invitation{}
	err := row.Scan(
		&invitation.ID,
		&invitation.Email,
		&invitation.FirstName,
		&invitation.LastName,
		&invitation.Role,
		&invitation.InvitedBy,
		&invitation.TokenHash,
		&invitation.TempPasswordHash,
		&invitation.ExpiresAt,
		&invitation.Status,
		&invitation.AcceptedAt,
		&invitation.CreatedAt,
		&invitation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

/*
Create persists a new invitation into the invite.invitation table.

Parameters:
  - context: context.Context
  - invitation: *Invitation

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresInvitationRepository) Create(context context.Context, invitation *Invitation) error {
	const query = `
		INSERT INTO invite.invitation (
			id, email, firstname, lastname, role, invitedby, tokenhash,
			temppasswordhash, expiresat, status, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	now := time.Now()
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = now
	}
	invitation.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		invitation.ID,
		invitation.Email,
		invitation.FirstName,
		invitation.LastName,
		invitation.Role,
		invitation.InvitedBy,
		invitation.TokenHash,
		invitation.TempPasswordHash,
		invitation.ExpiresAt,
		invitation.Status,
		invitation.CreatedAt,
		invitation.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_invitation_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves an invitation by its unique ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Invitation: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresInvitationRepository) FindByID(context context.Context, id string) (*Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invite.invitation
		WHERE id = $1`

	invitation, err := scanInvitation(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Invitation")
		}
		return nil, fmt.Errorf("postgres_invitation_repo_find_by_id_failed: %w", err)
	}

	return invitation, nil
}

/*
FindByTokenHash retrieves an invitation by its hashed acceptance token.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Invitation: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresInvitationRepository) FindByTokenHash(context context.Context, tokenHash string) (*Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invite.invitation
		WHERE tokenhash = $1`

	invitation, err := scanInvitation(repository.pool.QueryRow(context, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Invitation")
		}
		return nil, fmt.Errorf("postgres_invitation_repo_find_by_token_failed: %w", err)
	}

	return invitation, nil
}

/*
FindPendingByEmail retrieves the open invitation for an email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Invitation: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresInvitationRepository) FindPendingByEmail(context context.Context, email string) (*Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM invite.invitation
		WHERE email = $1 AND status = 'pending'`

	invitation, err := scanInvitation(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Invitation")
		}
		return nil, fmt.Errorf("postgres_invitation_repo_find_pending_failed: %w", err)
	}

	return invitation, nil
}

/*
List returns a page of invitations ordered by creation time (newest first).

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*Invitation: Page of entities
  - int: Total row count
  - error: Retrieval failures
*/
func (repository *PostgresInvitationRepository) List(context context.Context, limit, offset int) ([]*Invitation, int, error) {
	const query = `
		SELECT ` + invitationColumns + `, COUNT(*) OVER() AS totalcount
		FROM invite.invitation
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_invitation_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	var total int
	for rows.Next() {
		invitation := &Invitation{}
		err := rows.Scan(
			&invitation.ID,
			&invitation.Email,
			&invitation.FirstName,
			&invitation.LastName,
			&invitation.Role,
			&invitation.InvitedBy,
			&invitation.TokenHash,
			&invitation.TempPasswordHash,
			&invitation.ExpiresAt,
			&invitation.Status,
			&invitation.AcceptedAt,
			&invitation.CreatedAt,
			&invitation.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_invitation_repo_list_scan_failed: %w", err)
		}
		invitations = append(invitations, invitation)
	}

	return invitations, total, rows.Err()
}

/*
MarkExpired lazily transitions a pending invitation to expired.

Description: Idempotent — re-marking an already-expired row matches zero rows
and succeeds silently.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresInvitationRepository) MarkExpired(context context.Context, id string) error {
	const query = `
		UPDATE invite.invitation
		SET status = 'expired', updatedat = $2
		WHERE id = $1 AND status = 'pending'`

	_, err := repository.pool.Exec(context, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_invitation_repo_mark_expired_failed: %w", err)
	}
	return nil
}

/*
Consume transitions a pending invitation to accepted.

Description: The RowsAffected check is the race arbiter — of two concurrent
acceptances only one statement matches the pending row.

Parameters:
  - context: context.Context
  - id: string
  - acceptedAt: time.Time

Returns:
  - error: apperr.Conflict if the invitation is no longer pending
*/
func (repository *PostgresInvitationRepository) Consume(context context.Context, id string, acceptedAt time.Time) error {
	const query = `
		UPDATE invite.invitation
		SET status = 'accepted', acceptedat = $2, updatedat = $2
		WHERE id = $1 AND status = 'pending'`

	tag, err := repository.pool.Exec(context, query, id, acceptedAt)
	if err != nil {
		return fmt.Errorf("postgres_invitation_repo_consume_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.Conflict("Invitation has already been processed")
	}

	return nil
}

/*
Reopen reverts an accepted invitation back to pending.

Description: Compensation path for an acceptance whose account creation
failed after the row was consumed.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresInvitationRepository) Reopen(context context.Context, id string) error {
	const query = `
		UPDATE invite.invitation
		SET status = 'pending', acceptedat = NULL, updatedat = $2
		WHERE id = $1 AND status = 'accepted'`

	_, err := repository.pool.Exec(context, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_invitation_repo_reopen_failed: %w", err)
	}
	return nil
}

/*
Rotate replaces the token material and pushes the expiry forward.

Parameters:
  - context: context.Context
  - id: string
  - tokenHash: string
  - tempPasswordHash: string
  - expiresAt: time.Time

Returns:
  - error: apperr.Conflict if the invitation is no longer pending
*/
func (repository *PostgresInvitationRepository) Rotate(context context.Context, id string, tokenHash, tempPasswordHash string, expiresAt time.Time) error {
	const query = `
		UPDATE invite.invitation
		SET tokenhash = $2, temppasswordhash = $3, expiresat = $4, updatedat = $5
		WHERE id = $1 AND status = 'pending'`

	tag, err := repository.pool.Exec(context, query, id, tokenHash, tempPasswordHash, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_invitation_repo_rotate_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.Conflict("Invitation is no longer pending")
	}

	return nil
}

/*
Cancel transitions a pending invitation to cancelled (terminal).

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: apperr.Conflict if the invitation is no longer pending
*/
func (repository *PostgresInvitationRepository) Cancel(context context.Context, id string) error {
	const query = `
		UPDATE invite.invitation
		SET status = 'cancelled', updatedat = $2
		WHERE id = $1 AND status = 'pending'`

	tag, err := repository.pool.Exec(context, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_invitation_repo_cancel_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.Conflict("Invitation is no longer pending")
	}

	return nil
}

// # Role-Change Request Repository

// PostgresRequestRepository implements RequestRepository using pgx.
type PostgresRequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository creates a new PostgreSQL RequestRepository.
func NewRequestRepository(pool *pgxpool.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{pool: pool}
}

const requestColumns = `
	id, userid, requestedby, currentrole, requestedrole, reason,
	status, processedby, processedat, createdat`

// scanRequest hydrates a RoleChangeRequest entity from a pgx row.
func scanRequest(row pgx.Row) (*RoleChangeRequest, error) {
	request := &RoleChangeRequest{}
	err := row.Scan(
		&request.ID,
		&request.UserID,
		&request.RequestedBy,
		&request.CurrentRole,
		&request.RequestedRole,
		&request.Reason,
		&request.Status,
		&request.ProcessedBy,
		&request.ProcessedAt,
		&request.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return request, nil
}

/*
Create persists a new role-change request.

Parameters:
  - context: context.Context
  - request: *RoleChangeRequest

Returns:
  - error: Persistence failures
*/
func (repository *PostgresRequestRepository) Create(context context.Context, request *RoleChangeRequest) error {
	const query = `
		INSERT INTO invite.rolechangerequest (
			id, userid, requestedby, currentrole, requestedrole, reason, status, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		request.ID,
		request.UserID,
		request.RequestedBy,
		request.CurrentRole,
		request.RequestedRole,
		request.Reason,
		request.Status,
		request.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_request_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a role-change request by its unique ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *RoleChangeRequest: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresRequestRepository) FindByID(context context.Context, id string) (*RoleChangeRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM invite.rolechangerequest
		WHERE id = $1`

	request, err := scanRequest(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role change request")
		}
		return nil, fmt.Errorf("postgres_request_repo_find_by_id_failed: %w", err)
	}

	return request, nil
}

/*
FindPendingByUser retrieves the open request for one identity.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *RoleChangeRequest: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresRequestRepository) FindPendingByUser(context context.Context, userID string) (*RoleChangeRequest, error) {
	const query = `
		SELECT ` + requestColumns + `
		FROM invite.rolechangerequest
		WHERE userid = $1 AND status = 'pending'`

	request, err := scanRequest(repository.pool.QueryRow(context, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role change request")
		}
		return nil, fmt.Errorf("postgres_request_repo_find_pending_failed: %w", err)
	}

	return request, nil
}

/*
List returns a page of role-change requests (newest first).

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*RoleChangeRequest: Page of entities
  - int: Total row count
  - error: Retrieval failures
*/
func (repository *PostgresRequestRepository) List(context context.Context, limit, offset int) ([]*RoleChangeRequest, int, error) {
	const query = `
		SELECT ` + requestColumns + `, COUNT(*) OVER() AS totalcount
		FROM invite.rolechangerequest
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(context, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_request_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var requests []*RoleChangeRequest
	var total int
	for rows.Next() {
		request := &RoleChangeRequest{}
		err := rows.Scan(
			&request.ID,
			&request.UserID,
			&request.RequestedBy,
			&request.CurrentRole,
			&request.RequestedRole,
			&request.Reason,
			&request.Status,
			&request.ProcessedBy,
			&request.ProcessedAt,
			&request.CreatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_request_repo_list_scan_failed: %w", err)
		}
		requests = append(requests, request)
	}

	return requests, total, rows.Err()
}

/*
Process transitions a pending request to approved or rejected.

Parameters:
  - context: context.Context
  - id: string
  - status: RequestStatus
  - processedBy: string

Returns:
  - error: apperr.Conflict if the request is no longer pending
*/
func (repository *PostgresRequestRepository) Process(context context.Context, id string, status RequestStatus, processedBy string) error {
	const query = `
		UPDATE invite.rolechangerequest
		SET status = $2, processedby = $3, processedat = $4
		WHERE id = $1 AND status = 'pending'`

	tag, err := repository.pool.Exec(context, query, id, status, processedBy, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_request_repo_process_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.Conflict("Role change request has already been processed")
	}

	return nil
}

/*
Reopen reverts a processed request back to pending.

Description: Compensation path for an approval whose role application failed
after the status transition.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresRequestRepository) Reopen(context context.Context, id string) error {
	const query = `
		UPDATE invite.rolechangerequest
		SET status = 'pending', processedby = NULL, processedat = NULL
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres_request_repo_reopen_failed: %w", err)
	}
	return nil
}

// # Audit Repository

// PostgresAuditRepository implements AuditRepository using pgx.
type PostgresAuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new PostgreSQL AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{pool: pool}
}

/*
Append persists one immutable audit entry.

Parameters:
  - context: context.Context
  - entry: *AuditEntry

Returns:
  - error: Persistence failures
*/
func (repository *PostgresAuditRepository) Append(context context.Context, entry *AuditEntry) error {
	const query = `
		INSERT INTO invite.auditlog (
			id, userid, changedby, previousrole, newrole, reason, requestid, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		entry.ID,
		entry.UserID,
		entry.ChangedBy,
		entry.PreviousRole,
		entry.NewRole,
		entry.Reason,
		entry.RequestID,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_audit_repo_append_failed: %w", err)
	}

	return nil
}

/*
List returns a page of audit entries (newest first).

Parameters:
  - context: context.Context
  - limit: int
  - offset: int

Returns:
  - []*AuditEntry: Page of entries
  - int: Total row count
  - error: Retrieval failures
*/
func (repository *PostgresAuditRepository) List(context context.Context, limit, offset int) ([]*AuditEntry, int, error) {
	const query = `
		SELECT id, userid, changedby, previousrole, newrole, reason, requestid, createdat,
		       COUNT(*) OVER() AS totalcount
		FROM invite.auditlog
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	return repository.listRows(context, query, limit, offset)
}

/*
ListForUser returns a page of audit entries for one identity (newest first).

Parameters:
  - context: context.Context
  - userID: string
  - limit: int
  - offset: int

Returns:
  - []*AuditEntry: Page of entries
  - int: Total row count
  - error: Retrieval failures
*/
func (repository *PostgresAuditRepository) ListForUser(context context.Context, userID string, limit, offset int) ([]*AuditEntry, int, error) {
	const query = `
		SELECT id, userid, changedby, previousrole, newrole, reason, requestid, createdat,
		       COUNT(*) OVER() AS totalcount
		FROM invite.auditlog
		WHERE userid = $3
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	return repository.listRows(context, query, limit, offset, userID)
}

// listRows executes an audit page query and hydrates the result set.
func (repository *PostgresAuditRepository) listRows(context context.Context, query string, limit, offset int, extraArgs ...any) ([]*AuditEntry, int, error) {
	args := append([]any{limit, offset}, extraArgs...)

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	var total int
	for rows.Next() {
		entry := &AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ChangedBy,
			&entry.PreviousRole,
			&entry.NewRole,
			&entry.Reason,
			&entry.RequestID,
			&entry.CreatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_audit_repo_list_scan_failed: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, total, rows.Err()
}
