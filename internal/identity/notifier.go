// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import "sync"

// # Session Change Events

// SessionEventType identifies the kind of session transition being announced.
type SessionEventType string

const (
	// SessionEstablished fires on sign-in and on refresh-token rotation.
	SessionEstablished SessionEventType = "established"

	// SessionCleared fires on sign-out, password reset, and bulk revocation.
	SessionCleared SessionEventType = "cleared"
)

// SessionEvent describes a single session transition for one identity.
type SessionEvent struct {
	Type   SessionEventType
	UserID string
}

// Notifier is an in-process fan-out bus for session change events.
//
// # Architecture
//
// The identity service publishes events as sessions are established and torn
// down; the session monitor subscribes so idle tracking starts and stops in
// lockstep with the authentication lifecycle. Publication is synchronous —
// subscribers must not block.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[int]func(SessionEvent)
	nextID      int
}

// NewNotifier constructs an empty [Notifier].
func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[int]func(SessionEvent))}
}

/*
Subscribe registers a callback for all future session events.

Parameters:
  - handler: func(SessionEvent)

Returns:
  - func(): Unsubscribe closure that removes the registration
*/
func (notifier *Notifier) Subscribe(handler func(SessionEvent)) func() {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()

	id := notifier.nextID
	notifier.nextID++
	notifier.subscribers[id] = handler

	return func() {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		delete(notifier.subscribers, id)
	}
}

/*
Publish delivers the event to every current subscriber.

Description: Delivery is best-effort and synchronous. A missing subscriber set
makes this a no-op, so the service layer never needs a nil check.

Parameters:
  - event: SessionEvent
*/
func (notifier *Notifier) Publish(event SessionEvent) {
	notifier.mu.RLock()
	defer notifier.mu.RUnlock()

	for _, handler := range notifier.subscribers {
		handler(event)
	}
}
