package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cookieboy:cache"

// RedisConfig holds connection settings for RedisCache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisCache stores entries as plain string keys under a shared prefix.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache connects and pings Redis before returning.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	c := newRedisCache(client, cfg.KeyPrefix)
	log.Printf("[RedisCache] Connected - DB:%d, prefix:%s", cfg.DB, c.keyPrefix)
	return c, nil
}

func newRedisCache(client redis.UniversalClient, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisCache) key(k string) string {
	return c.keyPrefix + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetOrSet falls back to fn when Redis is unreachable so the leaderboard
// stays available without the cache.
func (c *RedisCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	value, err := c.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Printf("[RedisCache] Get %s failed, computing directly: %v", key, err)
	}

	value, err = fn()
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		log.Printf("[RedisCache] Set %s failed: %v", key, err)
	}
	return value, nil
}

// Clear removes every key under the prefix using SCAN, never KEYS.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+":*", 100).Iterator()

	pipe := c.client.Pipeline()
	queued := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		queued++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if queued == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	log.Printf("[RedisCache] Cleared %d keys", queued)
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
