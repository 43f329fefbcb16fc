// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"context"
	"net/http"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/middleware"
	"github.com/taibuivan/atheneo/internal/platform/respond"
	"github.com/taibuivan/atheneo/internal/platform/sec"
)

// # Access Decisions

// Phase is the outcome class of an access evaluation.
type Phase string

const (
	// PhaseChecking means the role could not be resolved (store outage);
	// the caller must treat access as undecided, never as granted.
	PhaseChecking Phase = "CHECKING"

	// PhaseDeniedUnauthenticated means no authenticated identity is present.
	PhaseDeniedUnauthenticated Phase = "DENIED_UNAUTHENTICATED"

	// PhaseDeniedWrongRole means the identity is known but under-privileged.
	PhaseDeniedWrongRole Phase = "DENIED_WRONG_ROLE"

	// PhaseGranted means the identity clears the required role.
	PhaseGranted Phase = "GRANTED"
)

// State is the authentication context an evaluation runs against.
type State struct {
	Authenticated bool
	Role          sec.Role
}

// Decision is the result of evaluating a required role against a state.
type Decision struct {
	Phase Phase `json:"phase"`

	// RedirectRole names the home area the client should land on after a
	// wrong-role denial: the actual role's own dashboard, not the one it
	// tried to reach. Empty for every other phase.
	RedirectRole sec.Role `json:"redirect_role,omitempty"`
}

// Granted is a convenience check for the only phase that allows access.
func (d Decision) Granted() bool { return d.Phase == PhaseGranted }

/*
HasAccess reports whether the actual role satisfies the required role.

Description: Thin alias over the cumulative hierarchy in [sec.Role.AtLeast].
An unrecognized role on either side fails closed.

Parameters:
  - required: sec.Role
  - actual: sec.Role

Returns:
  - bool: true only if actual meets or exceeds required
*/
func HasAccess(required, actual sec.Role) bool {
	return actual.AtLeast(required)
}

/*
Evaluate runs the access state machine for one route requirement.

Parameters:
  - state: State (authentication context with the resolved role)
  - required: sec.Role

Returns:
  - Decision: DENIED_UNAUTHENTICATED, DENIED_WRONG_ROLE (+redirect), or GRANTED
*/
func Evaluate(state State, required sec.Role) Decision {
	if !state.Authenticated {
		return Decision{Phase: PhaseDeniedUnauthenticated}
	}

	if HasAccess(required, state.Role) {
		return Decision{Phase: PhaseGranted}
	}

	redirect := state.Role
	if !redirect.IsValid() {
		redirect = sec.DefaultRole
	}
	return Decision{Phase: PhaseDeniedWrongRole, RedirectRole: redirect}
}

// # Gate

// Gate couples the state machine to live role resolution.
//
// # Freshness
//
// Unlike [middleware.RequireRole], which trusts the role mirror inside the
// token claims, the gate re-resolves the role from the profile store on every
// evaluation. Routes guarded by the gate observe an approved role change
// immediately, without waiting for a token refresh.
type Gate struct {
	resolver *Resolver
}

// NewGate constructs a [Gate] over the resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

/*
Authorize resolves the caller's fresh role and evaluates it.

Parameters:
  - context: context.Context
  - claims: *sec.AuthClaims (nil for anonymous requests)
  - required: sec.Role

Returns:
  - Decision: Evaluation outcome; Phase CHECKING when resolution failed
  - error: apperr.ResolutionFailed alongside the CHECKING phase
*/
func (gate *Gate) Authorize(context context.Context, claims *sec.AuthClaims, required sec.Role) (Decision, error) {
	if claims == nil {
		return Decision{Phase: PhaseDeniedUnauthenticated}, nil
	}

	role, err := gate.resolver.Resolve(context, claims.UserID, sec.Role(claims.Role))
	if err != nil {
		return Decision{Phase: PhaseChecking}, err
	}

	return Evaluate(State{Authenticated: true, Role: role}, required), nil
}

/*
Require returns route middleware enforcing the required role with fresh
resolution.

Description: The HTTP mapping of the decision phases:
  - DENIED_UNAUTHENTICATED → 401
  - DENIED_WRONG_ROLE → 403 (response body carries the redirect role)
  - CHECKING (resolution outage) → 503
  - GRANTED → next handler

Parameters:
  - required: sec.Role

Returns:
  - func(http.Handler) http.Handler: chi-compatible middleware
*/
func (gate *Gate) Require(required sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := middleware.GetUser(request.Context())

			decision, err := gate.Authorize(request.Context(), claims, required)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			switch decision.Phase {
			case PhaseGranted:
				next.ServeHTTP(writer, request)
			case PhaseDeniedUnauthenticated:
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			default:
				respond.JSON(writer, http.StatusForbidden, map[string]any{
					"error":         "Insufficient role for this area",
					"code":          "FORBIDDEN",
					"redirect_role": decision.RedirectRole,
				})
			}
		})
	}
}
