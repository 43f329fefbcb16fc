// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleAdmin.IsValid())
	assert.True(t, RoleInstructor.IsValid())
	assert.True(t, RoleStudent.IsValid())

	assert.False(t, Role("").IsValid())
	assert.False(t, Role("superuser").IsValid())
	assert.False(t, Role("Admin").IsValid()) // case-sensitive by design of the closed set
}

func TestRole_AtLeast(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		target Role
		want   bool
	}{
		{"admin meets admin", RoleAdmin, RoleAdmin, true},
		{"admin meets instructor", RoleAdmin, RoleInstructor, true},
		{"admin meets student", RoleAdmin, RoleStudent, true},
		{"instructor meets instructor", RoleInstructor, RoleInstructor, true},
		{"instructor meets student", RoleInstructor, RoleStudent, true},
		{"instructor fails admin", RoleInstructor, RoleAdmin, false},
		{"student meets student", RoleStudent, RoleStudent, true},
		{"student fails instructor", RoleStudent, RoleInstructor, false},
		{"student fails admin", RoleStudent, RoleAdmin, false},

		// Unknown roles fail closed in both positions
		{"unknown role satisfies nothing", Role("superuser"), RoleStudent, false},
		{"unknown target is never satisfied", RoleAdmin, Role("root"), false},
		{"empty role satisfies nothing", Role(""), RoleStudent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.AtLeast(tt.target))
		})
	}
}

func TestRole_Permissions_ExactTable(t *testing.T) {

	// 1. Admin: everything
	assert.Equal(t, PermissionSet{
		CanManageCourses:       true,
		CanInviteUsers:         true,
		CanProcessRoleRequests: true,
		CanEnrollInCourses:     true,
		CanRemoveStudents:      true,
	}, RoleAdmin.Permissions())

	// 2. Instructor: course management without user governance
	assert.Equal(t, PermissionSet{
		CanManageCourses:   true,
		CanEnrollInCourses: true,
		CanRemoveStudents:  true,
	}, RoleInstructor.Permissions())

	// 3. Student: enrollment only
	assert.Equal(t, PermissionSet{
		CanEnrollInCourses: true,
	}, RoleStudent.Permissions())

	// 4. Anything outside the closed set derives zero rights
	assert.Equal(t, PermissionSet{}, Role("superuser").Permissions())
	assert.Equal(t, PermissionSet{}, Role("").Permissions())
}

func TestDefaultRole(t *testing.T) {
	assert.Equal(t, RoleStudent, DefaultRole)
}
