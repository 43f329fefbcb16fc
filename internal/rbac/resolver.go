// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rbac implements role resolution and access gating.

It decides, per request, which role an identity actually holds and whether
that role clears the bar a route demands.

# Architecture

  - Resolver: Reads the authoritative role from the profile store, with a
    deterministic fallback chain for missing rows.
  - Gate: A small state machine (checking / denied / granted) shared by the
    HTTP middleware and the accessor endpoints.
  - Truth: The profile store wins. The role inside JWT claims is a mirror
    captured at token-issue time and is only used when no profile row exists.
*/
package rbac

import (
	"context"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/internal/identity"
)

// ProfileReader is the slice of the identity repository the resolver needs.
type ProfileReader interface {
	FindByID(context context.Context, id string) (*identity.User, error)
}

// Resolver resolves the authoritative role for an identity.
type Resolver struct {
	profiles ProfileReader
}

// NewResolver constructs a [Resolver] over the profile store.
func NewResolver(profiles ProfileReader) *Resolver {
	return &Resolver{profiles: profiles}
}

/*
Resolve returns the effective role for an identity.

Description: The profile-store row is authoritative. A missing row is NOT an
error — the resolver falls back to the caller-supplied role (normally the JWT
claim mirror) and, if that is absent or unrecognized, to the default role.
Only a transport failure aborts resolution, and it fails closed with
RESOLUTION_FAILED so callers never guess at privileges during an outage.

Parameters:
  - context: context.Context
  - identityID: string
  - fallback: sec.Role (token metadata mirror, may be empty)

Returns:
  - sec.Role: Effective role
  - error: apperr.ResolutionFailed on transport failures only
*/
func (resolver *Resolver) Resolve(context context.Context, identityID string, fallback sec.Role) (sec.Role, error) {
	user, err := resolver.profiles.FindByID(context, identityID)
	if err != nil {
		// Missing profile: fall back, never error.
		if apperr.HasCode(err, "NOT_FOUND") {
			if fallback.IsValid() {
				return fallback, nil
			}
			return sec.DefaultRole, nil
		}

		// Transport failure: refuse to guess.
		return "", apperr.ResolutionFailed(err)
	}

	return user.Role, nil
}
