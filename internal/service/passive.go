package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"cookieboy-api/internal/model"
	"cookieboy-api/internal/repository"
)

// duePeriods returns, per autoclicker item, how many of its periods are due at now.
// Must be called with tickMu held.
func (s *EconomyService) duePeriods(now time.Time) map[string]int64 {
	due := make(map[string]int64)
	for _, item := range s.catalog.ByKind(model.KindAutoClicker) {
		if s.config.PassiveMode == PassiveFixed {
			due[item.ID] = 1
			continue
		}

		anchor, ok := s.anchors[item.ID]
		if !ok {
			s.anchors[item.ID] = now
			continue
		}
		interval := item.Interval()
		elapsed := now.Sub(anchor)
		if elapsed < interval {
			continue
		}
		periods := int64(elapsed / interval)
		s.anchors[item.ID] = anchor.Add(time.Duration(periods) * interval)
		due[item.ID] = periods
	}
	return due
}

// PassiveTick credits autoclicker income to every inventory holder. Each user
// is credited atomically under their lock; a failure for one user is logged
// and does not stop the others.
func (s *EconomyService) PassiveTick(ctx context.Context, now time.Time) (model.TickReport, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := time.Now()
	report := model.TickReport{DueItems: []string{}}

	due := s.duePeriods(now)
	for id := range due {
		report.DueItems = append(report.DueItems, id)
	}
	sort.Strings(report.DueItems)
	if len(due) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	holders, err := s.repo.InventoryHolders(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list inventory holders: %w", err)
	}

	for _, userID := range holders {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		credited, err := s.creditPassive(ctx, userID, due, now)
		if err != nil {
			log.Printf("[EconomyService] Passive credit failed for %s: %v", userID, err)
			report.Failed++
			continue
		}
		if credited > 0 {
			report.Users++
			report.Credited += credited
		}
	}

	report.Duration = time.Since(start)
	s.recorder.PassiveTick(report)
	s.recorder.Credited(model.EntryPassive, report.Credited)
	return report, nil
}

func (s *EconomyService) creditPassive(ctx context.Context, userID string, due map[string]int64, now time.Time) (int64, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var income int64
	err := s.repo.Atomic(ctx, func(tx repository.Tx) error {
		inv, err := tx.GetAll(ctx, userID)
		if err != nil {
			return err
		}

		income = 0
		for id, qty := range inv {
			periods, ok := due[id]
			if !ok || qty <= 0 {
				continue
			}
			item, ok := s.catalog.Lookup(id)
			if !ok || item.Kind != model.KindAutoClicker {
				continue
			}
			income += item.Value * qty * periods
		}
		if income == 0 {
			return nil
		}

		_, err = s.creditAt(ctx, tx, userID, income, model.EntryPassive, "", now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return income, nil
}

// PassiveTicker is the part of the engine the scheduler drives.
type PassiveTicker interface {
	PassiveTick(ctx context.Context, now time.Time) (model.TickReport, error)
}

// PassiveConfig holds configuration for the passive income scheduler.
type PassiveConfig struct {
	// TickInterval is the base ticker period. Default: 10 seconds
	TickInterval time.Duration

	// TickTimeout bounds one tick. Default: 1 minute
	TickTimeout time.Duration
}

// DefaultPassiveConfig returns default scheduler configuration.
func DefaultPassiveConfig() PassiveConfig {
	return PassiveConfig{
		TickInterval: 10 * time.Second,
		TickTimeout:  time.Minute,
	}
}

// PassiveScheduler invokes PassiveTick on a fixed wall-clock period.
type PassiveScheduler struct {
	ticker    PassiveTicker
	config    PassiveConfig
	now       func() time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	mu        sync.Mutex
	isRunning bool
}

// NewPassiveScheduler creates a scheduler; zero config values take defaults.
func NewPassiveScheduler(ticker PassiveTicker, config PassiveConfig) *PassiveScheduler {
	defaults := DefaultPassiveConfig()
	if config.TickInterval <= 0 {
		config.TickInterval = defaults.TickInterval
	}
	if config.TickTimeout <= 0 {
		config.TickTimeout = defaults.TickTimeout
	}

	return &PassiveScheduler{
		ticker: ticker,
		config: config,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins ticking. Calling Start twice is a no-op.
func (s *PassiveScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	log.Printf("[PassiveScheduler] Started - Interval: %v", s.config.TickInterval)

	go s.run()
}

func (s *PassiveScheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runTick()
		case <-s.stopCh:
			log.Printf("[PassiveScheduler] Stopped")
			return
		}
	}
}

func (s *PassiveScheduler) runTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.TickTimeout)
	defer cancel()

	report, err := s.ticker.PassiveTick(ctx, s.now())
	if err != nil {
		log.Printf("[PassiveScheduler] Tick error: %v", err)
		return
	}
	if report.Credited > 0 || report.Failed > 0 {
		log.Printf("[PassiveScheduler] Credited %d cookies to %d users (%d failed) in %v",
			report.Credited, report.Users, report.Failed, report.Duration)
	}
}

// Stop halts the scheduler and waits for an in-flight tick to finish.
func (s *PassiveScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()

		close(s.stopCh)
		if running {
			<-s.doneCh
		}
	})
}

// RunNow triggers an immediate tick.
func (s *PassiveScheduler) RunNow(ctx context.Context) (model.TickReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.TickTimeout)
	defer cancel()

	return s.ticker.PassiveTick(ctx, s.now())
}
