package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"cookieboy-api/internal/catalog"
	"cookieboy-api/internal/model"
	"cookieboy-api/internal/repository"
	"cookieboy-api/pkg/uid"
)

// Payout ranges, inclusive.
const (
	ClickMin = 1
	ClickMax = 5
	DailyMin = 10
	DailyMax = 25
)

// PassiveMode selects how autoclicker intervals are honoured by PassiveTick.
type PassiveMode string

const (
	// PassiveInterval credits each autoclicker once per elapsed intervalMs,
	// multiplying missed periods when a tick runs late.
	PassiveInterval PassiveMode = "interval"
	// PassiveFixed credits every autoclicker on every tick.
	PassiveFixed PassiveMode = "fixed"
)

// Valid reports whether m is a known mode.
func (m PassiveMode) Valid() bool {
	return m == PassiveInterval || m == PassiveFixed
}

// EconomyConfig holds economy rules that are deployment tunable.
type EconomyConfig struct {
	// MaxPurchaseQuantity caps a single Buy. Default: 100
	MaxPurchaseQuantity int64

	// DailyCooldown is the gap between daily claims. Default: 24 hours
	DailyCooldown time.Duration

	// PassiveMode. Default: interval
	PassiveMode PassiveMode
}

// DefaultEconomyConfig returns the standard rules.
func DefaultEconomyConfig() EconomyConfig {
	return EconomyConfig{
		MaxPurchaseQuantity: 100,
		DailyCooldown:       model.DailyCooldown,
		PassiveMode:         PassiveInterval,
	}
}

// RandomSource yields uniform integers in [0, n).
type RandomSource interface {
	Int64N(n int64) int64
}

type globalRandom struct{}

func (globalRandom) Int64N(n int64) int64 { return rand.Int64N(n) }

// Recorder receives economy outcomes for metrics.
type Recorder interface {
	Operation(op string, err error)
	Credited(kind model.EntryKind, amount int64)
	PassiveTick(report model.TickReport)
}

type nopRecorder struct{}

func (nopRecorder) Operation(string, error)         {}
func (nopRecorder) Credited(model.EntryKind, int64) {}
func (nopRecorder) PassiveTick(model.TickReport)    {}

// EconomyOption customises an EconomyService.
type EconomyOption func(*EconomyService)

// WithRandom replaces the payout random source.
func WithRandom(r RandomSource) EconomyOption {
	return func(s *EconomyService) { s.rng = r }
}

// WithClock replaces the clock used for journal timestamps.
func WithClock(now func() time.Time) EconomyOption {
	return func(s *EconomyService) { s.now = now }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) EconomyOption {
	return func(s *EconomyService) { s.recorder = r }
}

// WithIDGenerator replaces the journal entry ID generator.
func WithIDGenerator(fn func() string) EconomyOption {
	return func(s *EconomyService) { s.newID = fn }
}

// EconomyService is the economy engine. Every compound read-modify-write
// holds the affected users' locks and runs in a single repository transaction.
type EconomyService struct {
	repo     repository.EconomyRepository
	catalog  *catalog.Catalog
	config   EconomyConfig
	locks    *userLocks
	rng      RandomSource
	now      func() time.Time
	newID    func() string
	recorder Recorder

	tickMu  sync.Mutex
	anchors map[string]time.Time // last credited period boundary per autoclicker
}

// NewEconomyService creates an economy engine.
func NewEconomyService(repo repository.EconomyRepository, cat *catalog.Catalog, config EconomyConfig, opts ...EconomyOption) *EconomyService {
	defaults := DefaultEconomyConfig()
	if config.MaxPurchaseQuantity <= 0 {
		config.MaxPurchaseQuantity = defaults.MaxPurchaseQuantity
	}
	if config.DailyCooldown <= 0 {
		config.DailyCooldown = defaults.DailyCooldown
	}
	if !config.PassiveMode.Valid() {
		config.PassiveMode = defaults.PassiveMode
	}

	s := &EconomyService{
		repo:     repo,
		catalog:  cat,
		config:   config,
		locks:    newUserLocks(),
		rng:      globalRandom{},
		now:      time.Now,
		newID:    uid.NewOrdered,
		recorder: nopRecorder{},
		anchors:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the active rules.
func (s *EconomyService) Config() EconomyConfig {
	return s.config
}

// Catalog returns the item catalog.
func (s *EconomyService) Catalog() *catalog.Catalog {
	return s.catalog
}

// ComputeClickBonus sums value x quantity over the user's multiplier items.
func (s *EconomyService) ComputeClickBonus(ctx context.Context, userID string) (int64, error) {
	var bonus int64
	err := s.repo.Atomic(ctx, func(tx repository.Tx) error {
		inv, err := tx.GetAll(ctx, userID)
		if err != nil {
			return err
		}
		bonus = s.clickBonus(inv)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to compute click bonus: %w", err)
	}
	return bonus, nil
}

func (s *EconomyService) clickBonus(inv model.Inventory) int64 {
	var bonus int64
	for id, qty := range inv {
		item, ok := s.catalog.Lookup(id)
		if !ok || item.Kind != model.KindMultiplier {
			continue
		}
		bonus += item.Value * qty
	}
	return bonus
}

// passiveIncome is the per-period autoclicker yield, ignoring intervals.
func (s *EconomyService) passiveIncome(inv model.Inventory) int64 {
	var income int64
	for id, qty := range inv {
		item, ok := s.catalog.Lookup(id)
		if !ok || item.Kind != model.KindAutoClicker {
			continue
		}
		income += item.Value * qty
	}
	return income
}

// Click credits a random base in [ClickMin, ClickMax] plus the click bonus.
func (s *EconomyService) Click(ctx context.Context, userID string) (result model.ClickResult, err error) {
	defer func() { s.recorder.Operation("click", err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	result.Base = ClickMin + s.rng.Int64N(ClickMax-ClickMin+1)

	err = s.repo.Atomic(ctx, func(tx repository.Tx) error {
		inv, err := tx.GetAll(ctx, userID)
		if err != nil {
			return err
		}
		result.Bonus = s.clickBonus(inv)
		result.Earned = result.Base + result.Bonus

		balance, err := s.credit(ctx, tx, userID, result.Earned, model.EntryClick, "")
		if err != nil {
			return err
		}
		result.NewBalance = balance
		return nil
	})
	if err != nil {
		return model.ClickResult{}, fmt.Errorf("failed to click: %w", err)
	}

	s.recorder.Credited(model.EntryClick, result.Earned)
	return result, nil
}

// DailyClaim grants a random bonus in [DailyMin, DailyMax] at most once per cooldown.
func (s *EconomyService) DailyClaim(ctx context.Context, userID string, now time.Time) (result model.DailyResult, err error) {
	defer func() { s.recorder.Operation("daily", err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	nowMs := now.UnixMilli()
	cooldownMs := s.config.DailyCooldown.Milliseconds()

	err = s.repo.Atomic(ctx, func(tx repository.Tx) error {
		last, err := tx.GetLastClaim(ctx, userID)
		if err != nil {
			return err
		}

		elapsed := nowMs - last
		if elapsed < cooldownMs {
			remaining := cooldownMs - elapsed
			if remaining > cooldownMs {
				remaining = cooldownMs
			}
			return &model.AlreadyClaimedError{Remaining: time.Duration(remaining) * time.Millisecond}
		}

		result.Granted = DailyMin + s.rng.Int64N(DailyMax-DailyMin+1)
		balance, err := s.creditAt(ctx, tx, userID, result.Granted, model.EntryDaily, "", now)
		if err != nil {
			return err
		}
		if err := tx.SetLastClaim(ctx, userID, nowMs); err != nil {
			return err
		}
		result.NewBalance = balance
		result.ClaimedAt = time.UnixMilli(nowMs).UTC()
		return nil
	})
	if err != nil {
		if model.IsUserError(err) {
			return model.DailyResult{}, err
		}
		return model.DailyResult{}, fmt.Errorf("failed to claim daily bonus: %w", err)
	}

	s.recorder.Credited(model.EntryDaily, result.Granted)
	return result, nil
}

// Buy debits cost x quantity and adds the items in one unit.
func (s *EconomyService) Buy(ctx context.Context, userID, itemID string, quantity int64) (result model.PurchaseResult, err error) {
	defer func() { s.recorder.Operation("buy", err) }()

	if quantity < 1 || quantity > s.config.MaxPurchaseQuantity {
		return model.PurchaseResult{}, fmt.Errorf("%w: must be between 1 and %d", model.ErrInvalidQuantity, s.config.MaxPurchaseQuantity)
	}

	item, ok := s.catalog.Lookup(itemID)
	if !ok {
		return model.PurchaseResult{}, fmt.Errorf("%w: %q", model.ErrItemNotFound, itemID)
	}

	if item.Cost > math.MaxInt64/quantity {
		return model.PurchaseResult{}, fmt.Errorf("%w: total cost of %d %s overflows", model.ErrInvalidQuantity, quantity, item.ID)
	}
	totalCost := item.Cost * quantity

	unlock := s.locks.Lock(userID)
	defer unlock()

	err = s.repo.Atomic(ctx, func(tx repository.Tx) error {
		balance, err := tx.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		if balance < totalCost {
			return &model.InsufficientFundsError{Need: totalCost, Have: balance}
		}

		inv, err := tx.GetAll(ctx, userID)
		if err != nil {
			return err
		}
		newQty := inv[itemID] + quantity

		if err := tx.SetBalance(ctx, userID, balance-totalCost); err != nil {
			return err
		}
		if err := tx.SetQuantity(ctx, userID, itemID, newQty); err != nil {
			return err
		}
		if err := s.journal(ctx, tx, userID, model.EntryPurchase, -totalCost, balance-totalCost, itemID, s.now()); err != nil {
			return err
		}

		result = model.PurchaseResult{
			Item:        item,
			Quantity:    quantity,
			TotalCost:   totalCost,
			NewBalance:  balance - totalCost,
			NewQuantity: newQty,
		}
		return nil
	})
	if err != nil {
		if model.IsUserError(err) {
			return model.PurchaseResult{}, err
		}
		return model.PurchaseResult{}, fmt.Errorf("failed to buy %s: %w", itemID, err)
	}
	return result, nil
}

// Transfer moves amount from one user to another, conserving the total.
func (s *EconomyService) Transfer(ctx context.Context, fromID, toID string, amount int64) (result model.TransferResult, err error) {
	defer func() { s.recorder.Operation("transfer", err) }()

	if fromID == toID {
		return model.TransferResult{}, model.ErrSelfTransfer
	}
	if amount <= 0 {
		return model.TransferResult{}, fmt.Errorf("%w: must be positive", model.ErrInvalidAmount)
	}

	unlock := s.locks.Lock(fromID, toID)
	defer unlock()

	now := s.now()
	err = s.repo.Atomic(ctx, func(tx repository.Tx) error {
		fromBalance, err := tx.GetBalance(ctx, fromID)
		if err != nil {
			return err
		}
		if fromBalance < amount {
			return &model.InsufficientFundsError{Need: amount, Have: fromBalance}
		}
		toBalance, err := tx.GetBalance(ctx, toID)
		if err != nil {
			return err
		}
		if toBalance > math.MaxInt64-amount {
			return fmt.Errorf("%w: recipient balance would overflow", model.ErrInvalidAmount)
		}

		if err := tx.SetBalance(ctx, fromID, fromBalance-amount); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, toID, toBalance+amount); err != nil {
			return err
		}
		if err := s.journal(ctx, tx, fromID, model.EntryTransferOut, -amount, fromBalance-amount, toID, now); err != nil {
			return err
		}
		if err := s.journal(ctx, tx, toID, model.EntryTransferIn, amount, toBalance+amount, fromID, now); err != nil {
			return err
		}

		result = model.TransferResult{
			From:           fromID,
			To:             toID,
			Amount:         amount,
			NewFromBalance: fromBalance - amount,
			NewToBalance:   toBalance + amount,
		}
		return nil
	})
	if err != nil {
		if model.IsUserError(err) {
			return model.TransferResult{}, err
		}
		return model.TransferResult{}, fmt.Errorf("failed to transfer: %w", err)
	}
	return result, nil
}

// Profile returns a read-only snapshot of the user's state.
func (s *EconomyService) Profile(ctx context.Context, userID string) (model.Profile, error) {
	profile := model.Profile{UserID: userID}
	err := s.repo.Atomic(ctx, func(tx repository.Tx) error {
		var err error
		if profile.Balance, err = tx.GetBalance(ctx, userID); err != nil {
			return err
		}
		if profile.Inventory, err = tx.GetAll(ctx, userID); err != nil {
			return err
		}
		if profile.LastClaimAt, err = tx.GetLastClaim(ctx, userID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}

	profile.ClickBonus = s.clickBonus(profile.Inventory)
	profile.PassiveIncome = s.passiveIncome(profile.Inventory)
	return profile, nil
}

// Balance returns the user's balance, 0 for unknown users.
func (s *EconomyService) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.repo.Atomic(ctx, func(tx repository.Tx) error {
		var err error
		balance, err = tx.GetBalance(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// History returns the user's newest journal entries. limit is clamped to [1, 100].
func (s *EconomyService) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	entries, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

// TopBalances returns at most limit accounts, richest first, ties by user ID.
func (s *EconomyService) TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error) {
	if limit <= 0 {
		return []model.RankEntry{}, nil
	}
	entries, err := s.repo.TopBalances(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank balances: %w", err)
	}
	return entries, nil
}

// Stats returns aggregate economy figures.
func (s *EconomyService) Stats(ctx context.Context) (model.EconomyStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return model.EconomyStats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}

func (s *EconomyService) credit(ctx context.Context, tx repository.Tx, userID string, amount int64, kind model.EntryKind, ref string) (int64, error) {
	return s.creditAt(ctx, tx, userID, amount, kind, ref, s.now())
}

// creditAt adds amount to the balance and journals it. Must run inside Atomic.
func (s *EconomyService) creditAt(ctx context.Context, tx repository.Tx, userID string, amount int64, kind model.EntryKind, ref string, at time.Time) (int64, error) {
	balance, err := tx.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	if balance > math.MaxInt64-amount {
		return 0, fmt.Errorf("%w: balance would overflow", model.ErrInvalidAmount)
	}

	balance += amount
	if err := tx.SetBalance(ctx, userID, balance); err != nil {
		return 0, err
	}
	if err := s.journal(ctx, tx, userID, kind, amount, balance, ref, at); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *EconomyService) journal(ctx context.Context, tx repository.Tx, userID string, kind model.EntryKind, delta, balanceAfter int64, ref string, at time.Time) error {
	return tx.AppendEntry(ctx, model.LedgerEntry{
		ID:           s.newID(),
		UserID:       userID,
		Kind:         kind,
		Delta:        delta,
		BalanceAfter: balanceAfter,
		Reference:    ref,
		CreatedAt:    at.UTC(),
	})
}
