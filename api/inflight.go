package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const inFlightKeyPrefix = "submit"

// RedisInFlight marks a session's submission as running so every instance
// rejects a second one until it finishes. Markers expire after ttl in case
// the owning request dies.
type RedisInFlight struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisInFlight creates a guard using the provided Redis client and TTL.
func NewRedisInFlight(client *redis.Client, ttl time.Duration) *RedisInFlight {
	return &RedisInFlight{client: client, ttl: ttl}
}

func (r *RedisInFlight) key(sessionID string) string {
	return inFlightKeyPrefix + ":" + sessionID
}

// Begin records the marker if it does not already exist. It returns true when
// the caller now owns the submission.
func (r *RedisInFlight) Begin(ctx context.Context, sessionID string) (bool, error) {
	return r.client.SetNX(ctx, r.key(sessionID), 1, r.ttl).Result()
}

// End releases the marker.
func (r *RedisInFlight) End(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Active reports whether a submission is running for the session.
func (r *RedisInFlight) Active(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
