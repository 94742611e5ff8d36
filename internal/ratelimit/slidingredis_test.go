package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := Limiter{Client: client, Prefix: "test:"}

	ctx := context.Background()
	window := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		d, err := limiter.Allow(ctx, "key", window, max)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should be allowed", i)
		require.Equal(t, max-(i+1), d.Remaining)
	}

	d, err := limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)

	mr.FastForward(window)

	d, err = limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestLimiterNilClientAllows(t *testing.T) {
	limiter := Limiter{}
	d, err := limiter.Allow(context.Background(), "key", time.Second, 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}
