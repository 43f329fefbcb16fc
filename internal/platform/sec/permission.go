// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Derived Permissions

// PermissionSet is the fixed capability mapping derived from a [Role].
//
// # Never Persisted
//
// Permissions are recomputed from the role on every resolution and never
// stored, so the stored role and the derived rights cannot drift apart.
type PermissionSet struct {
	CanManageCourses       bool `json:"can_manage_courses"`
	CanInviteUsers         bool `json:"can_invite_users"`
	CanProcessRoleRequests bool `json:"can_process_role_requests"`
	CanEnrollInCourses     bool `json:"can_enroll_in_courses"`
	CanRemoveStudents      bool `json:"can_remove_students"`
}

// Permissions derives the capability set for the role.
//
// Pure function, no I/O. Roles outside the closed set derive the zero
// (all-false) set — an unknown role must never gain elevated permissions.
func (r Role) Permissions() PermissionSet {
	switch r {
	case RoleAdmin:
		return PermissionSet{
			CanManageCourses:       true,
			CanInviteUsers:         true,
			CanProcessRoleRequests: true,
			CanEnrollInCourses:     true,
			CanRemoveStudents:      true,
		}
	case RoleInstructor:
		return PermissionSet{
			CanManageCourses:   true,
			CanEnrollInCourses: true,
			CanRemoveStudents:  true,
		}
	case RoleStudent:
		return PermissionSet{
			CanEnrollInCourses: true,
		}
	default:
		return PermissionSet{}
	}
}
