package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config describes a token bucket per key.
type Config struct {
	PerMinute float64
	Burst     int
	// IdleTTL drops limiters unused for this long. Default: 10 minutes
	IdleTTL time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter hands out one rate.Limiter per key (user ID or client IP).
type KeyedLimiter struct {
	cfg     Config
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	stopCh  chan struct{}
	stop    sync.Once
}

// New creates a limiter and starts its idle sweep.
func New(cfg Config) *KeyedLimiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	l := &KeyedLimiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow reports whether one more event for key fits in its bucket.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.cfg.PerMinute/60.0), l.cfg.Burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops the sweep goroutine.
func (l *KeyedLimiter) Close() {
	l.stop.Do(func() { close(l.stopCh) })
}

func (l *KeyedLimiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.IdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

func (l *KeyedLimiter) sweep() {
	cutoff := l.now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
