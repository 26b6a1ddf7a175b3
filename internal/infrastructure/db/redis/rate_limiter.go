package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

// RateLimiter is a fixed-window attempt counter backed by Redis.
// Key format: ratelimit:<key>
type RateLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewRateLimiter allows maxAttempts per window for each key. Non-positive
// values fall back to 5 attempts per 15 minutes.
func NewRateLimiter(client *redis.Client, maxAttempts int, window time.Duration) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &RateLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow counts one attempt. The window starts with the first attempt.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return n <= l.maxAttempts, nil
}

// Reset clears the counter for key, typically after a successful attempt.
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}

func (l *RateLimiter) key(key string) string {
	return "ratelimit:" + key
}
