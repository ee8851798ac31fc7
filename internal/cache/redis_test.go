package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetOrSetWithoutServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newRedisCache(client, "")
	defer c.Close()

	require.Equal(t, "cookieboy:cache:leaderboard", c.key("leaderboard"))

	calls := 0
	value, err := c.GetOrSet(context.Background(), "leaderboard", time.Second, func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), value)
	require.Equal(t, 1, calls)

	_, err = c.Get(context.Background(), "leaderboard")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCacheMiss)
}

// Set COOKIEBOY_TEST_REDIS_ADDR to run against a live server.
func TestRedisCache_Live(t *testing.T) {
	addr := os.Getenv("COOKIEBOY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("COOKIEBOY_TEST_REDIS_ADDR not set")
	}

	c, err := NewRedisCache(RedisConfig{Addr: addr, KeyPrefix: "cookieboy:test:" + time.Now().Format("150405.000")})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()
	defer c.Clear(ctx)

	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	ok, err := c.Exists(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	value, err := c.GetOrSet(ctx, "a", time.Minute, func() ([]byte, error) {
		t.Fatal("should hit cache")
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)

	require.NoError(t, c.Clear(ctx))
	ok, err = c.Exists(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}
