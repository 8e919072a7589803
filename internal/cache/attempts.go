// Package cache holds Redis-backed state shared between service instances.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptPrefix = "gophauth:login:failed:"

// AttemptTracker counts failed logins per email and locks the email once the
// count reaches the limit. The counter expires one window after the first
// failure.
type AttemptTracker struct {
	client      redis.UniversalClient
	maxAttempts int64
	window      time.Duration
}

// NewAttemptTracker constructs a Redis-backed tracker.
func NewAttemptTracker(client redis.UniversalClient, maxAttempts int, window time.Duration) *AttemptTracker {
	return &AttemptTracker{client: client, maxAttempts: int64(maxAttempts), window: window}
}

func attemptKey(email string) string {
	return attemptPrefix + email
}

// Locked reports whether email has used up its attempts.
func (t *AttemptTracker) Locked(ctx context.Context, email string) (bool, error) {
	n, err := t.client.Get(ctx, attemptKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("load attempts: %w", err)
	}
	return n >= t.maxAttempts, nil
}

// Fail records a failed attempt and returns the running count.
func (t *AttemptTracker) Fail(ctx context.Context, email string) (int64, error) {
	key := attemptKey(email)
	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return n, fmt.Errorf("expire attempts: %w", err)
		}
	}
	return n, nil
}

// Reset clears the counter after a successful login.
func (t *AttemptTracker) Reset(ctx context.Context, email string) error {
	if err := t.client.Del(ctx, attemptKey(email)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}
