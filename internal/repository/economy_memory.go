package repository

import (
	"context"
	"sort"
	"sync"

	"cookieboy-api/internal/model"
)

// MemoryEconomyRepository is an in-process EconomyRepository for development
// and tests. Writes made inside Atomic are staged and only applied when fn
// succeeds. State is lost on restart.
type MemoryEconomyRepository struct {
	mu       sync.RWMutex
	balances map[string]int64
	items    map[string]model.Inventory
	claims   map[string]int64
	ledger   map[string][]model.LedgerEntry
}

// NewMemoryEconomyRepository creates an empty in-memory repository.
func NewMemoryEconomyRepository() *MemoryEconomyRepository {
	return &MemoryEconomyRepository{
		balances: make(map[string]int64),
		items:    make(map[string]model.Inventory),
		claims:   make(map[string]int64),
		ledger:   make(map[string][]model.LedgerEntry),
	}
}

// Atomic runs fn with exclusive access and applies its writes only on success.
func (r *MemoryEconomyRepository) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{
		repo:     r,
		balances: make(map[string]int64),
		items:    make(map[string]map[string]int64),
		claims:   make(map[string]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// TopBalances returns the richest accounts.
func (r *MemoryEconomyRepository) TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]model.RankEntry, 0, len(r.balances))
	for user, amount := range r.balances {
		entries = append(entries, model.RankEntry{UserID: user, Balance: amount})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit < 0 {
		limit = 0
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// InventoryHolders returns users owning at least one item.
func (r *MemoryEconomyRepository) InventoryHolders(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.items))
	for user, inv := range r.items {
		if len(inv) > 0 {
			users = append(users, user)
		}
	}
	sort.Strings(users)
	return users, nil
}

// History returns the newest entries first.
func (r *MemoryEconomyRepository) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.ledger[userID]
	out := []model.LedgerEntry{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Stats aggregates balances and inventories.
func (r *MemoryEconomyRepository) Stats(ctx context.Context) (model.EconomyStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := model.EconomyStats{Accounts: int64(len(r.balances))}
	for _, amount := range r.balances {
		stats.Circulating += amount
	}
	for _, inv := range r.items {
		for _, qty := range inv {
			stats.ItemsOwned += qty
		}
	}
	return stats, nil
}

// Close is a no-op.
func (r *MemoryEconomyRepository) Close() error {
	return nil
}

// memoryTx stages writes on top of the repository state.
type memoryTx struct {
	repo     *MemoryEconomyRepository
	balances map[string]int64
	items    map[string]map[string]int64
	claims   map[string]int64
	entries  []model.LedgerEntry
}

func (t *memoryTx) GetBalance(ctx context.Context, userID string) (int64, error) {
	if v, ok := t.balances[userID]; ok {
		return v, nil
	}
	return t.repo.balances[userID], nil
}

func (t *memoryTx) SetBalance(ctx context.Context, userID string, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	t.balances[userID] = amount
	return nil
}

func (t *memoryTx) GetAll(ctx context.Context, userID string) (model.Inventory, error) {
	inv := model.Inventory{}
	for item, qty := range t.repo.items[userID] {
		inv[item] = qty
	}
	for item, qty := range t.items[userID] {
		if qty == 0 {
			delete(inv, item)
			continue
		}
		inv[item] = qty
	}
	return inv, nil
}

func (t *memoryTx) SetQuantity(ctx context.Context, userID, itemID string, quantity int64) error {
	if err := checkAmount(quantity); err != nil {
		return err
	}
	staged, ok := t.items[userID]
	if !ok {
		staged = make(map[string]int64)
		t.items[userID] = staged
	}
	staged[itemID] = quantity
	return nil
}

func (t *memoryTx) GetLastClaim(ctx context.Context, userID string) (int64, error) {
	if v, ok := t.claims[userID]; ok {
		return v, nil
	}
	return t.repo.claims[userID], nil
}

func (t *memoryTx) SetLastClaim(ctx context.Context, userID string, timestampMs int64) error {
	t.claims[userID] = timestampMs
	return nil
}

func (t *memoryTx) AppendEntry(ctx context.Context, entry model.LedgerEntry) error {
	t.entries = append(t.entries, entry)
	return nil
}

func (t *memoryTx) apply() {
	r := t.repo
	for user, amount := range t.balances {
		r.balances[user] = amount
	}
	for user, staged := range t.items {
		inv, ok := r.items[user]
		if !ok {
			inv = model.Inventory{}
			r.items[user] = inv
		}
		for item, qty := range staged {
			if qty == 0 {
				delete(inv, item)
				continue
			}
			inv[item] = qty
		}
		if len(inv) == 0 {
			delete(r.items, user)
		}
	}
	for user, ts := range t.claims {
		r.claims[user] = ts
	}
	for _, e := range t.entries {
		r.ledger[e.UserID] = append(r.ledger[e.UserID], e)
	}
}

// Ensure MemoryEconomyRepository implements EconomyRepository
var _ EconomyRepository = (*MemoryEconomyRepository)(nil)
