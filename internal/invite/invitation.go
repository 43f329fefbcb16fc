// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package invite implements governed role acquisition: invitations, role-change
requests, and the append-only role audit log.

Elevated roles are never self-assigned. They arrive through exactly two doors:
an invitation issued by an admin (for new members) or an approved role-change
request (for existing members). Both doors stamp the audit log.

# Architecture

  - Entities: Invitation, RoleChangeRequest, AuditEntry (no external deps).
  - Workflow: Service orchestrates token issuance, lazy expiry, conditional
    status transitions, and delegation to the identity layer for account
    creation and role application.
  - Concurrency: Status transitions use optimistic `WHERE status='pending'`
    updates — the second of two racing processors observes a Conflict.
*/
package invite

import (
	"time"

	"github.com/taibuivan/atheneo/internal/platform/sec"
)

// # Workflow Constraints

const (
	// InvitationTTL is how long an invitation token stays redeemable.
	InvitationTTL = 7 * 24 * time.Hour

	// InvitationTokenLength is the byte length of the random invitation token.
	InvitationTokenLength = 32

	// DefaultInvitedRole is assigned when an invitation names no role.
	// Invitations exist to grant elevated roles; students self-register.
	DefaultInvitedRole = sec.RoleInstructor
)

// # Invitation Entity

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
// Expired is terminal for acceptance but a pending row may still be
// lazily re-marked expired without conflict.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationCancelled || s == InvitationExpired
}

// Invitation represents a pending offer of membership with a specific role.
type Invitation struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      sec.Role `json:"role"`
	InvitedBy string   `json:"invited_by"`

	// TokenHash is the SHA-256 of the opaque acceptance token. The plain
	// token exists only inside the dispatched email.
	TokenHash string `json:"-"`

	// TempPasswordHash holds the bcrypt hash of the one-time credential
	// included in elevated-role invitations. Empty otherwise.
	TempPasswordHash string `json:"-"`

	ExpiresAt  time.Time        `json:"expires_at"`
	Status     InvitationStatus `json:"status"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Expired reports whether the invitation's redemption window has passed,
// regardless of whether the lazy status transition has happened yet.
func (invitation *Invitation) Expired(now time.Time) bool {
	return now.After(invitation.ExpiresAt)
}

// # Role-Change Request Entity

// RequestStatus is the lifecycle state of a role-change request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// RoleChangeRequest is a member's petition to hold a different role.
type RoleChangeRequest struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// RequestedBy is normally the user themself; an admin filing on behalf
	// of a user records their own ID here.
	RequestedBy string `json:"requested_by"`

	// CurrentRole is a snapshot taken at filing time, preserved for the
	// audit trail even if the live role changes before processing.
	CurrentRole   sec.Role `json:"current_role"`
	RequestedRole sec.Role `json:"requested_role"`
	Reason        string   `json:"reason"`

	Status      RequestStatus `json:"status"`
	ProcessedBy *string       `json:"processed_by,omitempty"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// # Audit Entity

// AuditEntry is one immutable record of a role transition (or a rejected
// attempt, recorded as a no-change entry).
type AuditEntry struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	ChangedBy    string   `json:"changed_by"`
	PreviousRole sec.Role `json:"previous_role"`
	NewRole      sec.Role `json:"new_role"`
	Reason       string   `json:"reason"`

	// RequestID links the entry to the role-change request that produced
	// it. Nil for invitation grants and direct admin edits.
	RequestID *string `json:"request_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

const (
	FieldEmail         = "email"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldRole          = "role"
	FieldToken         = "token"
	FieldPassword      = "password"
	FieldRequestedRole = "requested_role"
	FieldReason        = "reason"
	FieldMessage       = "message"
)
