package http

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRateLimiterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewLoginRateLimiter(client, 2, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:login:10.0.0.1"))

	allowed, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)

	allowed, _, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "addresses are counted separately")
}

func TestLoginRateLimiterRestoresMissingExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewLoginRateLimiter(client, 2, time.Minute, nil)
	ctx := context.Background()

	// A counter left over the limit without a TTL.
	require.NoError(t, mr.Set("ratelimit:login:10.0.0.1", "9"))

	allowed, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:login:10.0.0.1"))

	mr.FastForward(time.Minute + time.Second)
	allowed, _, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
