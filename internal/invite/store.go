// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package invite

import (
	"context"
	"time"
)

// # Invitation Data Access

// InvitationRepository defines the data access contract for invitations.
//
// # Conditional Transitions
//
// Every status-changing method carries an implicit `WHERE status='pending'`
// guard and reports apperr.Conflict when the guard fails. This is the
// optimistic-concurrency backbone of the whole workflow.
type InvitationRepository interface {

	/*
		Create persists a brand-new pending invitation.

		Parameters:
		  - context: context.Context
		  - invitation: *Invitation

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, invitation *Invitation) error

	/*
		FindByID returns the invitation with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Invitation: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*Invitation, error)

	/*
		FindByTokenHash returns the invitation matching the hashed token.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Invitation: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Invitation, error)

	/*
		FindPendingByEmail returns the pending invitation for an email, if any.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Invitation: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindPendingByEmail(context context.Context, email string) (*Invitation, error)

	/*
		List returns a page of invitations ordered by creation time.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int

		Returns:
		  - []*Invitation: Page of entities
		  - int: Total row count
		  - error: Retrieval failures
	*/
	List(context context.Context, limit, offset int) ([]*Invitation, int, error)

	/*
		MarkExpired lazily transitions pending→expired. Re-marking an
		already-expired invitation is a silent no-op (idempotent).

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	MarkExpired(context context.Context, id string) error

	/*
		Consume transitions pending→accepted, stamping the acceptance time.

		Parameters:
		  - context: context.Context
		  - id: string
		  - acceptedAt: time.Time

		Returns:
		  - error: apperr.Conflict if the row is no longer pending
	*/
	Consume(context context.Context, id string, acceptedAt time.Time) error

	/*
		Reopen compensates a failed acceptance: accepted→pending with the
		acceptance stamp cleared.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	Reopen(context context.Context, id string) error

	/*
		Rotate replaces the token material and pushes the expiry window
		forward. Pending rows only.

		Parameters:
		  - context: context.Context
		  - id: string
		  - tokenHash: string
		  - tempPasswordHash: string
		  - expiresAt: time.Time

		Returns:
		  - error: apperr.Conflict if the row is no longer pending
	*/
	Rotate(context context.Context, id string, tokenHash, tempPasswordHash string, expiresAt time.Time) error

	/*
		Cancel transitions pending→cancelled (terminal).

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: apperr.Conflict if the row is no longer pending
	*/
	Cancel(context context.Context, id string) error
}

// # Role-Change Request Data Access

// RequestRepository defines the data access contract for role-change requests.
type RequestRepository interface {

	/*
		Create persists a brand-new pending role-change request.

		Parameters:
		  - context: context.Context
		  - request: *RoleChangeRequest

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, request *RoleChangeRequest) error

	/*
		FindByID returns the request with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *RoleChangeRequest: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id string) (*RoleChangeRequest, error)

	/*
		FindPendingByUser returns the user's open request, if any.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - *RoleChangeRequest: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindPendingByUser(context context.Context, userID string) (*RoleChangeRequest, error)

	/*
		List returns a page of requests ordered by creation time.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int

		Returns:
		  - []*RoleChangeRequest: Page of entities
		  - int: Total row count
		  - error: Retrieval failures
	*/
	List(context context.Context, limit, offset int) ([]*RoleChangeRequest, int, error)

	/*
		Process transitions pending→approved|rejected, stamping the processor.

		Parameters:
		  - context: context.Context
		  - id: string
		  - status: RequestStatus
		  - processedBy: string

		Returns:
		  - error: apperr.Conflict if the row is no longer pending
	*/
	Process(context context.Context, id string, status RequestStatus, processedBy string) error

	/*
		Reopen compensates a failed approval: terminal→pending with the
		processing stamps cleared.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	Reopen(context context.Context, id string) error
}

// # Audit Data Access

// AuditRepository defines the append-only contract for the role audit log.
type AuditRepository interface {

	/*
		Append persists one immutable audit entry.

		Parameters:
		  - context: context.Context
		  - entry: *AuditEntry

		Returns:
		  - error: Persistence failures
	*/
	Append(context context.Context, entry *AuditEntry) error

	/*
		List returns a page of audit entries, newest first.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int

		Returns:
		  - []*AuditEntry: Page of entries
		  - int: Total row count
		  - error: Retrieval failures
	*/
	List(context context.Context, limit, offset int) ([]*AuditEntry, int, error)

	/*
		ListForUser returns a page of audit entries for one identity.

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
	ListForUser(context context.Context, userID string, limit, offset int) ([]*AuditEntry, int, error)
}
