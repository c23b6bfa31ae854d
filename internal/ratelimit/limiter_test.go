package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, requests int, window time.Duration) (*SlidingWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewSlidingWindowLimiter(&Config{Redis: client, Requests: requests, Window: window})
	require.NoError(t, err)
	return limiter, mr
}

func TestNewSlidingWindowLimiter_RequiresRedis(t *testing.T) {
	_, err := NewSlidingWindowLimiter(&Config{})
	require.Error(t, err)

	_, err = NewSlidingWindowLimiter(nil)
	require.Error(t, err)
}

func TestNewSlidingWindowLimiter_AppliesDefaults(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewSlidingWindowLimiter(&Config{Redis: client})
	require.NoError(t, err)
	assert.Equal(t, 60, limiter.requests)
	assert.Equal(t, time.Minute, limiter.window)
}

func TestAllow_UnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 5, time.Minute)

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(context.Background(), "client-1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}
}

func TestAllow_OverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(context.Background(), "client-1")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := limiter.Allow(context.Background(), "client-1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)

	allowed, err := limiter.Allow(context.Background(), "client-1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(context.Background(), "client-2")
	require.NoError(t, err)
	assert.True(t, allowed, "a saturated client must not throttle others")
}

func TestAllow_FailsOpenOnRedisError(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "client-1")
	require.Error(t, err)
	assert.True(t, allowed, "Redis failure must not block requests")
}

func TestRetryAfter(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, 30*time.Second)
	assert.Equal(t, 30*time.Second, limiter.RetryAfter())
}
