package cache

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *cacheEntry) expiredAt(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryCache is an in-process Cache with lazy expiry and a periodic sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	now     func() time.Time

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a memory cache that sweeps expired entries every minute.
func NewMemoryCache() *MemoryCache {
	return newMemoryCache(time.Minute, time.Now)
}

func newMemoryCache(sweepInterval time.Duration, now func() time.Time) *MemoryCache {
	c := &MemoryCache{
		entries:       make(map[string]*cacheEntry),
		now:           now,
		sweepInterval: sweepInterval,
		stopSweep:     make(chan struct{}),
	}

	go c.sweepLoop()

	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.expiredAt(c.now()) {
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = &cacheEntry{value: stored, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return ok && !entry.expiredAt(c.now()), nil
}

// GetOrSet does not deduplicate concurrent misses; fn may run more than once.
func (c *MemoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		return nil, err
	}
	return value, nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	return nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopSweep) })
	return nil
}

func (c *MemoryCache) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopSweep:
			return
		}
	}
}

func (c *MemoryCache) sweep() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.expiredAt(now) {
			delete(c.entries, key)
		}
	}
}

// Len reports stored entries, expired ones included until the next sweep.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
