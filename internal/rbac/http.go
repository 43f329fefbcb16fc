// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/atheneo/internal/platform/middleware"
	requestutil "github.com/taibuivan/atheneo/internal/platform/request"
	"github.com/taibuivan/atheneo/internal/platform/respond"
	"github.com/taibuivan/atheneo/internal/platform/sec"
	"github.com/taibuivan/atheneo/internal/session"
)

// # Definitions & Constructors

// Handler implements the role/session accessor HTTP endpoints.
//
// # Scope
//
// The SPA bootstraps from these endpoints: who am I, what may I do, and how
// long until my session goes idle.
type Handler struct {
	resolver *Resolver
	monitor  *session.Monitor
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(resolver *Resolver, monitor *session.Monitor) *Handler {
	return &Handler{resolver: resolver, monitor: monitor}
}

// Routes returns a [chi.Router] configured with accessor routes.
//
// # Endpoints
//   - GET  /me             : Effective role and derived permissions.
//   - GET  /session        : Identity plus idle-expiry countdown.
//   - POST /session/extend : Manual keep-alive (bypasses the touch throttle).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
		r.Get("/session", handler.currentSession)
		r.Post("/session/extend", handler.extendSession)
	})

	return router
}

// # Response Payloads

type mePayload struct {
	UserID      string            `json:"user_id"`
	Email       string            `json:"email"`
	Role        sec.Role          `json:"role"`
	Permissions sec.PermissionSet `json:"permissions"`
}

type sessionPayload struct {
	UserID           string     `json:"user_id"`
	Active           bool       `json:"active"`
	IdleExpiresAt    *time.Time `json:"idle_expires_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
}

/*
Me returns the caller's effective role and the permissions it derives.

GET /api/v1/access/me

Description: The role is freshly resolved from the profile store — this is
the endpoint the SPA polls after a role-change approval, so it must never
serve the stale token mirror.

Response:
  - 200: mePayload: Role and permission set
  - 401: ErrUnauthorized: Authentication required
  - 503: RESOLUTION_FAILED: Profile store unreachable
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.resolver.Resolve(request.Context(), claims.UserID, sec.Role(claims.Role))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, mePayload{
		UserID:      claims.UserID,
		Email:       claims.Email,
		Role:        role,
		Permissions: role.Permissions(),
	})
}

/*
CurrentSession reports the idle countdown for the caller's session.

GET /api/v1/access/session

Description: Active=false with zero remaining means the monitor holds no
watch — the session was idled out or cleared, and the next token refresh
will be rejected.

Response:
  - 200: sessionPayload: Countdown state
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) currentSession(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := sessionPayload{UserID: claims.UserID}

	if remaining, tracked := handler.monitor.Remaining(claims.UserID); tracked {
		payload.Active = true
		payload.RemainingSeconds = int64(remaining / time.Second)
		if deadline, ok := handler.monitor.Deadline(claims.UserID); ok {
			payload.IdleExpiresAt = &deadline
		}
	}

	respond.OK(writer, payload)
}

/*
ExtendSession restarts the caller's idle countdown.

POST /api/v1/access/session/extend

Description: The explicit keep-alive. Unlike ordinary request activity this
is never throttled — the full idle window is granted unconditionally.

Response:
  - 200: sessionPayload: Fresh countdown state
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) extendSession(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.monitor.Reset(claims.UserID)

	payload := sessionPayload{UserID: claims.UserID, Active: true}
	if remaining, tracked := handler.monitor.Remaining(claims.UserID); tracked {
		payload.RemainingSeconds = int64(remaining / time.Second)
	}
	if deadline, ok := handler.monitor.Deadline(claims.UserID); ok {
		payload.IdleExpiresAt = &deadline
	}

	respond.OK(writer, payload)
}
