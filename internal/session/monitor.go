// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements server-side idle-timeout tracking for signed-in users.

A signed-in identity is watched by the [Monitor]: every authenticated request
counts as activity, and an identity that stays idle past the timeout has all
of its refresh sessions revoked, producing a silent logout on the next refresh.

# Architecture

  - Monitor: In-memory watch table with one expiry timer per identity.
  - ActivityStore: Redis-backed persistence of last-activity timestamps, so
    observability tooling can inspect liveness across instances.
  - Wiring: The identity notifier drives Track/Untrack; the HTTP activity
    middleware drives Touch; the identity service performs the revocation.

Expiry side effects are best-effort. A failed revocation is logged and the
watch is dropped anyway — the refresh token's own expiry is the backstop.
*/
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// # Tuning

const (
	// DefaultIdleTimeout is how long an identity may stay inactive before its
	// sessions are revoked.
	DefaultIdleTimeout = 2 * time.Hour

	// DefaultActivityThrottle bounds how often a burst of requests actually
	// moves the idle deadline. Within the window only the first touch counts.
	DefaultActivityThrottle = 30 * time.Second
)

// Config carries the monitor tuning knobs. Zero values fall back to defaults.
type Config struct {
	IdleTimeout      time.Duration
	ActivityThrottle time.Duration
}

// ExpireFunc revokes all sessions for an identity whose idle deadline passed.
type ExpireFunc func(context context.Context, userID string) error

// watch is the per-identity tracking state.
type watch struct {
	lastActivity time.Time
	timer        *time.Timer
}

// Monitor tracks idle deadlines for signed-in identities.
//
// All methods are safe for concurrent use. The monitor holds one timer per
// watched identity; timers fire on their own goroutines and re-enter the
// monitor only after releasing the lock.
type Monitor struct {
	mu      sync.Mutex
	watches map[string]*watch

	idleTimeout time.Duration
	throttle    time.Duration

	expire ExpireFunc
	store  ActivityStore
	logger *slog.Logger

	// Injectable clock for deterministic tests.
	now func() time.Time
}

// NewMonitor constructs a [Monitor] with the given expiry side effect.
func NewMonitor(config Config, store ActivityStore, expire ExpireFunc, logger *slog.Logger) *Monitor {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.ActivityThrottle <= 0 {
		config.ActivityThrottle = DefaultActivityThrottle
	}

	return &Monitor{
		watches:     make(map[string]*watch),
		idleTimeout: config.IdleTimeout,
		throttle:    config.ActivityThrottle,
		expire:      expire,
		store:       store,
		logger:      logger,
		now:         time.Now,
	}
}

// # Watch Lifecycle

/*
Track begins (or restarts) idle tracking for an identity.

Description: Called when a session is established. An existing watch is fully
reset — sign-in and refresh both count as definitive activity.

Parameters:
  - userID: string
*/
func (monitor *Monitor) Track(userID string) {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	monitor.resetLocked(userID)
}

/*
Untrack stops idle tracking for an identity.

Description: Called when all sessions are cleared (sign-out, password reset,
role change). Untracking an unknown identity is a no-op, which keeps the
expiry path re-entrant: revocation publishes a cleared event that lands here.

Parameters:
  - userID: string
*/
func (monitor *Monitor) Untrack(userID string) {
	monitor.mu.Lock()
	current, ok := monitor.watches[userID]
	if ok {
		current.timer.Stop()
		delete(monitor.watches, userID)
	}
	monitor.mu.Unlock()

	if ok {
		monitor.persistDelete(userID)
	}
}

/*
Touch records request activity for an identity, subject to throttling.

Description: Only the first touch inside the throttle window moves the idle
deadline; the rest are dropped to keep hot identities from hammering the
timer and Redis. An untracked identity starts a fresh watch — this heals
watches lost to a process restart.

Parameters:
  - userID: string
*/
func (monitor *Monitor) Touch(userID string) {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	current, ok := monitor.watches[userID]
	if ok && monitor.now().Sub(current.lastActivity) < monitor.throttle {
		// Inside the throttle window: deadline stays where it is.
		return
	}

	monitor.resetLocked(userID)
}

/*
Reset unconditionally extends the idle deadline for an identity.

Description: Backing for the explicit keep-alive endpoint. Unlike [Touch],
the throttle never applies — a user who asked to stay signed in gets the
full window even if they asked twice in a row.

Parameters:
  - userID: string
*/
func (monitor *Monitor) Reset(userID string) {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	monitor.resetLocked(userID)
}

/*
Remaining reports the time left before the identity's idle deadline.

Parameters:
  - userID: string

Returns:
  - time.Duration: Time until expiry (clamped at zero)
  - bool: Whether the identity is currently tracked
*/
func (monitor *Monitor) Remaining(userID string) (time.Duration, bool) {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	current, ok := monitor.watches[userID]
	if !ok {
		return 0, false
	}

	remaining := current.lastActivity.Add(monitor.idleTimeout).Sub(monitor.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Deadline returns the instant the identity's sessions will be revoked.
func (monitor *Monitor) Deadline(userID string) (time.Time, bool) {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	current, ok := monitor.watches[userID]
	if !ok {
		return time.Time{}, false
	}
	return current.lastActivity.Add(monitor.idleTimeout), true
}

// Stop cancels every timer. Used during graceful shutdown.
func (monitor *Monitor) Stop() {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	for userID, current := range monitor.watches {
		current.timer.Stop()
		delete(monitor.watches, userID)
	}
}

// # Internals

// resetLocked stamps fresh activity and (re)arms the expiry timer.
// Caller must hold monitor.mu.
func (monitor *Monitor) resetLocked(userID string) {
	now := monitor.now()

	if current, ok := monitor.watches[userID]; ok {
		current.lastActivity = now
		current.timer.Reset(monitor.idleTimeout)
	} else {
		monitor.watches[userID] = &watch{
			lastActivity: now,
			timer: time.AfterFunc(monitor.idleTimeout, func() {
				monitor.expireWatch(userID)
			}),
		}
	}

	monitor.persistActivity(userID, now)
}

// expireWatch runs on the timer goroutine when an idle deadline passes.
func (monitor *Monitor) expireWatch(userID string) {
	monitor.mu.Lock()
	current, ok := monitor.watches[userID]
	if !ok {
		monitor.mu.Unlock()
		return
	}

	// Guard against a timer that fired while a reset was in flight.
	if monitor.now().Sub(current.lastActivity) < monitor.idleTimeout {
		current.timer.Reset(monitor.idleTimeout)
		monitor.mu.Unlock()
		return
	}

	delete(monitor.watches, userID)
	monitor.mu.Unlock()

	monitor.logger.Info("idle_session_expired", slog.String("user_id", userID))

	// The revocation is best-effort: the refresh token TTL is the backstop.
	if err := monitor.expire(context.Background(), userID); err != nil {
		monitor.logger.Error("idle_session_revocation_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	monitor.persistDelete(userID)
}

// persistActivity mirrors the last-activity timestamp to the activity store.
func (monitor *Monitor) persistActivity(userID string, at time.Time) {
	if monitor.store == nil {
		return
	}
	if err := monitor.store.SetLastActivity(context.Background(), userID, at, monitor.idleTimeout); err != nil {
		monitor.logger.Warn("last_activity_persist_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// persistDelete clears the mirrored last-activity timestamp.
func (monitor *Monitor) persistDelete(userID string) {
	if monitor.store == nil {
		return
	}
	if err := monitor.store.Delete(context.Background(), userID); err != nil {
		monitor.logger.Warn("last_activity_delete_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}
