// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// Role represents the authorization level granted to an account.
//
// The set is closed and ordered: student < instructor < admin. Every account
// has exactly one current role; higher roles satisfy lower requirements.
type Role string

const (
	// Unrestricted platform access, user management, role governance
	RoleAdmin Role = "admin"

	// Can create and manage courses and their enrolled students
	RoleInstructor Role = "instructor"

	// Default role for standard registered users
	RoleStudent Role = "student"
)

// DefaultRole is assigned at profile creation unless a workflow
// (instructor invitation acceptance) explicitly assigns another.
const DefaultRole = RoleStudent

// IsValid reports whether the role belongs to the closed role set.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
//
// The hierarchy is cumulative: admin satisfies any requirement, instructor
// satisfies instructor and student requirements. An unrecognized role on
// either side maps to level 0 and satisfies nothing.
func (r Role) AtLeast(target Role) bool {
	if !target.IsValid() {
		// Unknown requirement fails closed rather than silently granting.
		return false
	}
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {

	// Linear scale (10-30) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 30
	case RoleInstructor:
		return 20
	case RoleStudent:
		return 10
	default:
		return 0
	}
}
