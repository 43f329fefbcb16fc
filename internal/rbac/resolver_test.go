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

// fakeProfiles serves canned profile rows or failures.
type fakeProfiles struct {
	users map[string]*identity.User
	err   error
}

func (f *fakeProfiles) FindByID(_ context.Context, id string) (*identity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func TestResolver_ProfileStoreIsAuthoritative(t *testing.T) {
	resolver := NewResolver(&fakeProfiles{users: map[string]*identity.User{
		"user-1": {ID: "user-1", Role: sec.RoleInstructor},
	}})

	// The stored role wins even when the token mirror disagrees.
	role, err := resolver.Resolve(context.Background(), "user-1", sec.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, sec.RoleInstructor, role)
}

func TestResolver_MissingProfileFallsBack(t *testing.T) {
	resolver := NewResolver(&fakeProfiles{users: map[string]*identity.User{}})

	tests := []struct {
		name     string
		fallback sec.Role
		want     sec.Role
	}{
		{"token mirror role is used", sec.RoleAdmin, sec.RoleAdmin},
		{"empty fallback yields default", sec.Role(""), sec.RoleStudent},
		{"unknown fallback yields default", sec.Role("superuser"), sec.RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := resolver.Resolve(context.Background(), "ghost", tt.fallback)
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestResolver_TransportFailureFailsClosed(t *testing.T) {
	resolver := NewResolver(&fakeProfiles{err: errors.New("connection refused")})

	role, err := resolver.Resolve(context.Background(), "user-1", sec.RoleAdmin)

	// No role guess is ever made during an outage, not even the fallback.
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "RESOLUTION_FAILED"))
	assert.Equal(t, sec.Role(""), role)
}
