package repository

import (
	"context"

	"cookieboy-api/internal/model"
)

// Ledger owns per-user cookie balances. Unknown users have a balance of 0.
type Ledger interface {
	// GetBalance returns the user's balance, 0 if the user is unknown.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// SetBalance stores an absolute balance. Negative amounts fail with model.ErrInvalidAmount.
	SetBalance(ctx context.Context, userID string, amount int64) error
}

// InventoryStore owns per-user item quantities.
type InventoryStore interface {
	// GetAll returns the user's non-zero quantities, an empty map if the user is unknown.
	GetAll(ctx context.Context, userID string) (model.Inventory, error)

	// SetQuantity stores an absolute quantity. Zero removes the entry; negative fails with model.ErrInvalidAmount.
	SetQuantity(ctx context.Context, userID, itemID string, quantity int64) error
}

// ClaimTracker owns per-user last daily claim timestamps in milliseconds.
type ClaimTracker interface {
	// GetLastClaim returns 0 if the user never claimed.
	GetLastClaim(ctx context.Context, userID string) (int64, error)

	SetLastClaim(ctx context.Context, userID string, timestampMs int64) error
}

// Journal appends balance change records.
type Journal interface {
	AppendEntry(ctx context.Context, entry model.LedgerEntry) error
}

// Tx is a single all-or-nothing unit of work across every economy store.
type Tx interface {
	Ledger
	InventoryStore
	ClaimTracker
	Journal
}

// EconomyRepository defines persistent economy state access.
type EconomyRepository interface {
	// Atomic runs fn in one transaction. If fn returns an error nothing it wrote is kept.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// TopBalances returns up to limit accounts ordered by balance desc, user ID asc.
	TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error)

	// InventoryHolders returns every user ID owning at least one item, sorted.
	InventoryHolders(ctx context.Context) ([]string, error)

	// History returns up to limit journal entries for a user, newest first.
	History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)

	// Stats returns aggregate figures for monitoring.
	Stats(ctx context.Context) (model.EconomyStats, error)

	// Close closes the repository connection.
	Close() error
}
