package model

import "time"

// DailyCooldown is the minimum gap between two daily claims.
const DailyCooldown = 24 * time.Hour

// MaxUserIDLength is the longest user ID, in bytes, every store backend accepts.
const MaxUserIDLength = 128

// Inventory maps item IDs to owned quantities. Zero quantities are never present.
type Inventory map[string]int64

// RankEntry is a single leaderboard row.
type RankEntry struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// EntryKind labels a journal row.
type EntryKind string

const (
	EntryClick       EntryKind = "click"
	EntryDaily       EntryKind = "daily"
	EntryPurchase    EntryKind = "purchase"
	EntryTransferOut EntryKind = "transfer_out"
	EntryTransferIn  EntryKind = "transfer_in"
	EntryPassive     EntryKind = "passive"
)

// LedgerEntry records one balance change. It is appended in the same
// transaction as the change it describes.
type LedgerEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Kind         EntryKind `json:"kind"`
	Delta        int64     `json:"delta"`
	BalanceAfter int64     `json:"balance_after"`
	Reference    string    `json:"reference,omitempty"` // counterparty or item ID
	CreatedAt    time.Time `json:"created_at"`
}

// ClickResult describes a completed click.
type ClickResult struct {
	Base       int64 `json:"base"`
	Bonus      int64 `json:"bonus"`
	Earned     int64 `json:"earned"`
	NewBalance int64 `json:"new_balance"`
}

// DailyResult describes a granted daily bonus.
type DailyResult struct {
	Granted    int64     `json:"granted"`
	NewBalance int64     `json:"new_balance"`
	ClaimedAt  time.Time `json:"claimed_at"`
}

// PurchaseResult describes a completed purchase.
type PurchaseResult struct {
	Item        CatalogItem `json:"item"`
	Quantity    int64       `json:"quantity"`
	TotalCost   int64       `json:"total_cost"`
	NewBalance  int64       `json:"new_balance"`
	NewQuantity int64       `json:"new_quantity"`
}

// TransferResult describes a completed transfer.
type TransferResult struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Amount         int64  `json:"amount"`
	NewFromBalance int64  `json:"new_from_balance"`
	NewToBalance   int64  `json:"new_to_balance"`
}

// Profile is a read-only snapshot of one user's economy state.
type Profile struct {
	UserID        string    `json:"user_id"`
	Balance       int64     `json:"balance"`
	Inventory     Inventory `json:"inventory"`
	ClickBonus    int64     `json:"click_bonus"`
	PassiveIncome int64     `json:"passive_income"`
	LastClaimAt   int64     `json:"last_claim_at"`
}

// TickReport summarises one passive income run.
type TickReport struct {
	DueItems []string      `json:"due_items"`
	Users    int           `json:"users"`
	Credited int64         `json:"credited"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// EconomyStats is an aggregate view used by the admin endpoint.
type EconomyStats struct {
	Accounts    int64 `json:"accounts"`
	Circulating int64 `json:"circulating"`
	ItemsOwned  int64 `json:"items_owned"`
}
