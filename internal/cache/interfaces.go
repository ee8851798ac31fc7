package cache

import (
	"context"
	"time"
)

// Cache is the read-through cache used for leaderboard snapshots.
// MemoryCache serves single-instance deployments; RedisCache lets several
// bot processes share one snapshot.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet returns the cached value or computes, stores and returns it.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error)

	// Clear drops every entry owned by this cache.
	Clear(ctx context.Context) error

	Close() error
}

type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
