package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedLimiter_BurstThenRefill(t *testing.T) {
	l := New(Config{PerMinute: 60, Burst: 3})
	t.Cleanup(l.Close)

	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("u1"), "event %d", i)
	}
	require.False(t, l.Allow("u1"))
	require.True(t, l.Allow("u2"), "keys have separate buckets")

	now = now.Add(time.Second)
	require.True(t, l.Allow("u1"))
	require.False(t, l.Allow("u1"))
}

func TestKeyedLimiter_SweepsIdleKeys(t *testing.T) {
	l := New(Config{PerMinute: 60, Burst: 1, IdleTTL: time.Hour})
	t.Cleanup(l.Close)

	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(30 * time.Minute)
	l.Allow("recent")
	now = now.Add(45 * time.Minute)

	l.sweep()
	require.Equal(t, 1, l.Len())
	require.True(t, l.Allow("old"), "swept key starts with a full bucket")
}
