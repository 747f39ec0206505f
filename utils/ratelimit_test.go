package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := NewRedisClient(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer rdb.Close()

	limiter := NewRedisRateLimiter(rdb, "test:", 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "claim:u1")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "claim:u1")
	require.NoError(t, err)
	require.False(t, ok)

	// other keys have their own window
	ok, err = limiter.Allow(ctx, "claim:u2")
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, time.Minute, mr.TTL("test:claim:u1"))
	mr.FastForward(time.Minute)

	ok, err = limiter.Allow(ctx, "claim:u1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	require.Error(t, err)
}
