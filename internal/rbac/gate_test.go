// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/atheneo/internal/identity"
	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/sec"
)

func TestHasAccess_Matrix(t *testing.T) {
	tests := []struct {
		name     string
		required sec.Role
		actual   sec.Role
		want     bool
	}{
		// Exact matches
		{"student meets student", sec.RoleStudent, sec.RoleStudent, true},
		{"instructor meets instructor", sec.RoleInstructor, sec.RoleInstructor, true},
		{"admin meets admin", sec.RoleAdmin, sec.RoleAdmin, true},

		// Cumulative hierarchy upward
		{"instructor meets student requirement", sec.RoleStudent, sec.RoleInstructor, true},
		{"admin meets student requirement", sec.RoleStudent, sec.RoleAdmin, true},
		{"admin meets instructor requirement", sec.RoleInstructor, sec.RoleAdmin, true},

		// Insufficient rank
		{"student fails instructor requirement", sec.RoleInstructor, sec.RoleStudent, false},
		{"student fails admin requirement", sec.RoleAdmin, sec.RoleStudent, false},
		{"instructor fails admin requirement", sec.RoleAdmin, sec.RoleInstructor, false},

		// Bogus roles fail closed on either side
		{"bogus actual fails", sec.RoleStudent, sec.Role("superuser"), false},
		{"empty actual fails", sec.RoleStudent, sec.Role(""), false},
		{"bogus required fails even for admin", sec.Role("root"), sec.RoleAdmin, false},
		{"bogus on both sides fails", sec.Role("root"), sec.Role("superuser"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAccess(tt.required, tt.actual))
		})
	}
}

func TestEvaluate_StateMachine(t *testing.T) {
	// 1. Anonymous callers are denied before any role comparison
	decision := Evaluate(State{Authenticated: false}, sec.RoleStudent)
	assert.Equal(t, PhaseDeniedUnauthenticated, decision.Phase)
	assert.False(t, decision.Granted())

	// 2. A sufficient role is granted
	decision = Evaluate(State{Authenticated: true, Role: sec.RoleAdmin}, sec.RoleInstructor)
	assert.Equal(t, PhaseGranted, decision.Phase)
	assert.True(t, decision.Granted())
	assert.Empty(t, decision.RedirectRole)

	// 3. An insufficient role is redirected to its own home area
	decision = Evaluate(State{Authenticated: true, Role: sec.RoleStudent}, sec.RoleAdmin)
	assert.Equal(t, PhaseDeniedWrongRole, decision.Phase)
	assert.Equal(t, sec.RoleStudent, decision.RedirectRole)

	// 4. A corrupt actual role redirects to the default home, never grants
	decision = Evaluate(State{Authenticated: true, Role: sec.Role("superuser")}, sec.RoleStudent)
	assert.Equal(t, PhaseDeniedWrongRole, decision.Phase)
	assert.Equal(t, sec.RoleStudent, decision.RedirectRole)
}

func TestGate_AuthorizeResolvesFreshRole(t *testing.T) {
	profiles := &fakeProfiles{users: map[string]*identity.User{
		"user-1": {ID: "user-1", Role: sec.RoleInstructor},
	}}
	gate := NewGate(NewResolver(profiles))

	// The token mirror still says student, but the profile store was updated:
	// the gate must grant instructor routes immediately.
	claims := &sec.AuthClaims{UserID: "user-1", Role: string(sec.RoleStudent)}

	decision, err := gate.Authorize(context.Background(), claims, sec.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, PhaseGranted, decision.Phase)
}

func TestGate_AuthorizeAnonymous(t *testing.T) {
	gate := NewGate(NewResolver(&fakeProfiles{users: map[string]*identity.User{}}))

	// An idled-out session presents no claims; the gate denies before
	// touching the profile store.
	decision, err := gate.Authorize(context.Background(), nil, sec.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, PhaseDeniedUnauthenticated, decision.Phase)
}

func TestGate_AuthorizeDuringOutage(t *testing.T) {
	gate := NewGate(NewResolver(&fakeProfiles{err: errors.New("connection refused")}))

	claims := &sec.AuthClaims{UserID: "user-1", Role: string(sec.RoleAdmin)}

	decision, err := gate.Authorize(context.Background(), claims, sec.RoleStudent)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "RESOLUTION_FAILED"))
	assert.Equal(t, PhaseChecking, decision.Phase)
	assert.False(t, decision.Granted())
}
