// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
)

// # Test Doubles

type fakeClock struct {
	mu sync.Mutex
	at time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.at
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.at = clock.at.Add(d)
}

type fakeActivityStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{entries: make(map[string]time.Time)}
}

func (store *fakeActivityStore) SetLastActivity(_ context.Context, userID string, at time.Time, _ time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.entries[userID] = at
	return nil
}

func (store *fakeActivityStore) GetLastActivity(_ context.Context, userID string) (time.Time, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if at, ok := store.entries[userID]; ok {
		return at, nil
	}
	return time.Time{}, apperr.NotFound("Activity record")
}

func (store *fakeActivityStore) Delete(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.entries, userID)
	return nil
}

func (store *fakeActivityStore) has(userID string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	_, ok := store.entries[userID]
	return ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # Deadline Semantics

func TestMonitor_TouchIsThrottled(t *testing.T) {
	clock := newFakeClock()
	store := newFakeActivityStore()

	monitor := NewMonitor(
		Config{IdleTimeout: 2 * time.Hour, ActivityThrottle: 30 * time.Second},
		store,
		func(context.Context, string) error { return nil },
		discardLogger(),
	)
	monitor.now = clock.Now

	// 1. Tracking establishes the initial deadline
	monitor.Track("user-1")
	initial, ok := monitor.Deadline("user-1")
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(2*time.Hour), initial)
	assert.True(t, store.has("user-1"))

	// 2. A touch inside the throttle window does not move the deadline
	clock.Advance(10 * time.Second)
	monitor.Touch("user-1")
	after, ok := monitor.Deadline("user-1")
	require.True(t, ok)
	assert.Equal(t, initial, after)

	// 3. A touch past the throttle window extends the deadline
	clock.Advance(25 * time.Second) // 35s since last counted activity
	monitor.Touch("user-1")
	extended, ok := monitor.Deadline("user-1")
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(2*time.Hour), extended)
	assert.True(t, extended.After(initial))
}

func TestMonitor_ResetBypassesThrottle(t *testing.T) {
	clock := newFakeClock()

	monitor := NewMonitor(
		Config{IdleTimeout: 2 * time.Hour, ActivityThrottle: 30 * time.Second},
		nil,
		func(context.Context, string) error { return nil },
		discardLogger(),
	)
	monitor.now = clock.Now

	monitor.Track("user-1")
	initial, _ := monitor.Deadline("user-1")

	// One second later: Touch would be throttled, Reset is not.
	clock.Advance(1 * time.Second)
	monitor.Reset("user-1")

	extended, ok := monitor.Deadline("user-1")
	require.True(t, ok)
	assert.True(t, extended.After(initial))
	assert.Equal(t, clock.Now().Add(2*time.Hour), extended)
}

func TestMonitor_TouchHealsUntrackedIdentity(t *testing.T) {
	clock := newFakeClock()

	monitor := NewMonitor(
		Config{IdleTimeout: 2 * time.Hour, ActivityThrottle: 30 * time.Second},
		nil,
		func(context.Context, string) error { return nil },
		discardLogger(),
	)
	monitor.now = clock.Now

	// An identity unknown to the monitor (e.g. after restart) gets a watch
	// from its first authenticated request.
	_, tracked := monitor.Remaining("user-1")
	require.False(t, tracked)

	monitor.Touch("user-1")
	remaining, tracked := monitor.Remaining("user-1")
	require.True(t, tracked)
	assert.Equal(t, 2*time.Hour, remaining)
}

func TestMonitor_RemainingClampsAtZero(t *testing.T) {
	clock := newFakeClock()

	monitor := NewMonitor(
		Config{IdleTimeout: time.Hour, ActivityThrottle: time.Second},
		nil,
		func(context.Context, string) error { return nil },
		discardLogger(),
	)
	monitor.now = clock.Now

	monitor.Track("user-1")
	clock.Advance(90 * time.Minute)

	remaining, tracked := monitor.Remaining("user-1")
	require.True(t, tracked)
	assert.Equal(t, time.Duration(0), remaining)
}

// # Expiry Side Effects

func TestMonitor_ExpiryRevokesAndUntracks(t *testing.T) {
	store := newFakeActivityStore()
	expired := make(chan string, 1)

	monitor := NewMonitor(
		Config{IdleTimeout: 30 * time.Millisecond, ActivityThrottle: time.Millisecond},
		store,
		func(_ context.Context, userID string) error {
			expired <- userID
			return nil
		},
		discardLogger(),
	)

	monitor.Track("user-1")

	select {
	case userID := <-expired:
		assert.Equal(t, "user-1", userID)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry callback never fired")
	}

	// The watch and the mirrored activity record are gone.
	assert.Eventually(t, func() bool {
		_, tracked := monitor.Remaining("user-1")
		return !tracked && !store.has("user-1")
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_ExpiryFailureIsSwallowed(t *testing.T) {
	called := make(chan struct{}, 1)

	monitor := NewMonitor(
		Config{IdleTimeout: 30 * time.Millisecond, ActivityThrottle: time.Millisecond},
		nil,
		func(context.Context, string) error {
			called <- struct{}{}
			return errors.New("store unreachable")
		},
		discardLogger(),
	)

	monitor.Track("user-1")

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry callback never fired")
	}

	// A failed revocation still drops the watch — the refresh TTL backstops.
	assert.Eventually(t, func() bool {
		_, tracked := monitor.Remaining("user-1")
		return !tracked
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_UntrackPreventsExpiry(t *testing.T) {
	expired := make(chan string, 1)

	monitor := NewMonitor(
		Config{IdleTimeout: 40 * time.Millisecond, ActivityThrottle: time.Millisecond},
		nil,
		func(_ context.Context, userID string) error {
			expired <- userID
			return nil
		},
		discardLogger(),
	)

	monitor.Track("user-1")
	monitor.Untrack("user-1")

	select {
	case <-expired:
		t.Fatal("expiry fired for an untracked identity")
	case <-time.After(150 * time.Millisecond):
		// No expiry, as expected.
	}
}

func TestMonitor_ActivityDefersExpiry(t *testing.T) {
	expired := make(chan string, 1)

	monitor := NewMonitor(
		Config{IdleTimeout: 80 * time.Millisecond, ActivityThrottle: time.Millisecond},
		nil,
		func(_ context.Context, userID string) error {
			expired <- userID
			return nil
		},
		discardLogger(),
	)

	monitor.Track("user-1")

	// Keep the identity alive past two full idle windows.
	for i := 0; i < 8; i++ {
		time.Sleep(25 * time.Millisecond)
		monitor.Reset("user-1")
		select {
		case <-expired:
			t.Fatal("expiry fired despite continuous activity")
		default:
		}
	}

	// Then go quiet and observe the revocation.
	select {
	case userID := <-expired:
		assert.Equal(t, "user-1", userID)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry never fired after activity stopped")
	}
}
