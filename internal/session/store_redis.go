// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/atheneo/internal/platform/apperr"
	"github.com/taibuivan/atheneo/internal/platform/constants"
)

// # Activity Persistence

// ActivityStore defines the contract for mirroring last-activity timestamps.
type ActivityStore interface {

	/*
		SetLastActivity records when an identity was last seen.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - at: time.Time
		  - ttl: time.Duration (entry self-expires alongside the idle deadline)

		Returns:
		  - error: Persistence failures
	*/
	SetLastActivity(context context.Context, userID string, at time.Time, ttl time.Duration) error

	/*
		GetLastActivity returns when an identity was last seen.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - time.Time: Last recorded activity
		  - error: apperr.NotFound or retrieval failures
	*/
	GetLastActivity(context context.Context, userID string) (time.Time, error)

	/*
		Delete removes the activity record for an identity.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Deletion failures
	*/
	Delete(context context.Context, userID string) error
}

// RedisActivityStore implements [ActivityStore] using Redis.
type RedisActivityStore struct {
	client *redis.Client
}

// NewActivityStore creates a new Redis-backed ActivityStore.
func NewActivityStore(client *redis.Client) *RedisActivityStore {
	return &RedisActivityStore{client: client}
}

/*
SetLastActivity records the last-seen timestamp with a TTL.

Parameters:
  - context: context.Context
  - userID: string
  - at: time.Time
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (store *RedisActivityStore) SetLastActivity(context context.Context, userID string, at time.Time, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixLastActivity + userID

	// Store as RFC3339Nano for lossless round-tripping
	if err := store.client.Set(context, key, at.Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("redis_last_activity_set_failed: %w", err)
	}

	return nil
}

/*
GetLastActivity returns the last-seen timestamp for an identity.

Description: Returns apperr.NotFound if the identity has no recorded activity
(or the entry has self-expired).

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - time.Time: Last recorded activity
  - error: apperr.NotFound or connectivity errors
*/
func (store *RedisActivityStore) GetLastActivity(context context.Context, userID string) (time.Time, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixLastActivity + userID

	raw, err := store.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, apperr.NotFound("Activity record")
		}
		return time.Time{}, fmt.Errorf("redis_last_activity_get_failed: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis_last_activity_parse_failed: %w", err)
	}

	return at, nil
}

/*
Delete removes the activity record from Redis.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Deletion failures
*/
func (store *RedisActivityStore) Delete(context context.Context, userID string) error {

	// Use constants for key prefix
	key := constants.RedisPrefixLastActivity + userID

	if err := store.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_last_activity_delete_failed: %w", err)
	}

	return nil
}
