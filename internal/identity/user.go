// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity implements the user identity and session management layer.

It defines the core domain entities (User, Session) and logic for authentication,
credential recovery, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity. The
role stored on [User] is the authoritative role for authorization decisions;
the copy inside JWT claims is a best-effort mirror captured at issue time.
*/
package identity

import (
	"time"

	"github.com/taibuivan/atheneo/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Atheneo platform.
type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"` // Explicitly omitted from JSON for security.
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Role         sec.Role `json:"role"`

	// RoleVerified marks roles granted through a governed workflow
	// (invitation acceptance, role-change approval, admin edit) rather
	// than the sign-up default.
	RoleVerified bool `json:"role_verified"`

	// LastRoleChange and RoleChangeBy record the most recent role
	// transition for support tooling. The full history lives in the
	// invite audit log.
	LastRoleChange *time.Time `json:"last_role_change,omitempty"`
	RoleChangeBy   *string    `json:"role_change_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns the display name used in transactional emails.
func (user *User) FullName() string {
	if user.LastName == "" {
		return user.FirstName
	}
	return user.FirstName + " " + user.LastName
}

// Session represents an active refresh-token session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the identity domain.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
	FieldMessage         = "message"
)
