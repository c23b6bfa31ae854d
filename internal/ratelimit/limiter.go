// Package ratelimit provides the Redis-backed sliding-window rate limiter
// applied to incoming API requests.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rl:client:"

// SlidingWindowLimiter counts requests per client in a sliding window kept
// in a Redis sorted set, so the limit holds across server replicas.
type SlidingWindowLimiter struct {
	redis    redis.Cmdable
	requests int
	window   time.Duration
}

// Config holds limiter configuration.
type Config struct {
	// Redis is required; the limiter cannot coordinate without it.
	Redis redis.Cmdable

	// Requests allowed per Window. Defaults: 60 per minute.
	Requests int
	Window   time.Duration
}

// NewSlidingWindowLimiter creates a limiter, applying defaults for zero
// fields.
func NewSlidingWindowLimiter(cfg *Config) (*SlidingWindowLimiter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	requests := cfg.Requests
	if requests <= 0 {
		requests = 60
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindowLimiter{redis: cfg.Redis, requests: requests, window: window}, nil
}

// Allow records one request for the client and reports whether it fits in
// the window. On Redis failure the request is allowed: rate limiting is
// protection, not a correctness gate.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	key := keyPrefix + clientID
	now := time.Now()
	windowStart := now.Add(-l.window)

	pipe := l.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d:%s", now.UnixNano(), uuid.NewString()),
	})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return count.Val() <= int64(l.requests), nil
}

// RetryAfter is the window length, reported to throttled clients.
func (l *SlidingWindowLimiter) RetryAfter() time.Duration {
	return l.window
}
