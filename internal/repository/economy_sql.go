package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"cookieboy-api/internal/model"
)

// ErrStoreInUse is returned when another process already serves the store.
var ErrStoreInUse = errors.New("economy store is in use by another process")

// sqlDialect holds the backend-specific statements used by sqlEconomyRepository.
type sqlDialect struct {
	name   string
	schema []string

	selectBalance   string
	upsertBalance   string
	selectInventory string
	upsertInventory string
	deleteInventory string
	selectClaim     string
	upsertClaim     string
	insertEntry     string

	topBalances  string
	holders      string
	history      string
	accountStats string
	itemStats    string

	// claimOwner returns true when this process now owns the store;
	// releaseOwner gives it back. Both run on one dedicated connection.
	claimOwner   string
	releaseOwner string
}

// sqlEconomyRepository is the database/sql core shared by the SQLite,
// PostgreSQL and MySQL repositories.
type sqlEconomyRepository struct {
	db    *sql.DB
	d     sqlDialect
	owner *sql.Conn
}

// claimOwnership takes a session lock held until Close. Per-user locks and
// passive income anchors live in process memory, so a second process must
// not serve the same store.
func (r *sqlEconomyRepository) claimOwnership(ctx context.Context) error {
	if r.d.claimOwner == "" {
		return nil
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve owner connection: %w", err)
	}

	var owned bool
	if err := conn.QueryRowContext(ctx, r.d.claimOwner).Scan(&owned); err != nil {
		conn.Close()
		return fmt.Errorf("failed to lock economy store: %w", err)
	}
	if !owned {
		conn.Close()
		return ErrStoreInUse
	}

	r.owner = conn
	return nil
}

func (r *sqlEconomyRepository) migrate(ctx context.Context) error {
	for _, stmt := range r.d.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// Atomic runs fn inside a database transaction.
func (r *sqlEconomyRepository) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, d: &r.d}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TopBalances returns the richest accounts.
func (r *sqlEconomyRepository) TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error) {
	if limit <= 0 {
		return []model.RankEntry{}, nil
	}

	rows, err := r.db.QueryContext(ctx, r.d.topBalances, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top balances: %w", err)
	}
	defer rows.Close()

	entries := make([]model.RankEntry, 0, limit)
	for rows.Next() {
		var e model.RankEntry
		if err := rows.Scan(&e.UserID, &e.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan rank entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// InventoryHolders returns every user owning at least one item.
func (r *sqlEconomyRepository) InventoryHolders(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.d.holders)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory holders: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan inventory holder: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// History returns the newest journal entries for a user.
func (r *sqlEconomyRepository) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.d.history, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var (
			e         model.LedgerEntry
			kind      string
			createdMs int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Delta, &e.BalanceAfter, &e.Reference, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate economy figures.
func (r *sqlEconomyRepository) Stats(ctx context.Context) (model.EconomyStats, error) {
	var stats model.EconomyStats
	if err := r.db.QueryRowContext(ctx, r.d.accountStats).Scan(&stats.Accounts, &stats.Circulating); err != nil {
		return stats, fmt.Errorf("failed to query account stats: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, r.d.itemStats).Scan(&stats.ItemsOwned); err != nil {
		return stats, fmt.Errorf("failed to query item stats: %w", err)
	}
	return stats, nil
}

// Close releases store ownership and closes the database connection.
func (r *sqlEconomyRepository) Close() error {
	if r.owner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := r.owner.ExecContext(ctx, r.d.releaseOwner); err != nil {
			log.Printf("[EconomyRepository] Failed to release %s store lock: %v", r.d.name, err)
		}
		cancel()
		r.owner.Close()
		r.owner = nil
	}
	return r.db.Close()
}

// sqlTx implements Tx on an open *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
	d  *sqlDialect
}

func (t *sqlTx) GetBalance(ctx context.Context, userID string) (int64, error) {
	var amount int64
	err := t.tx.QueryRowContext(ctx, t.d.selectBalance, userID).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return amount, nil
}

func (t *sqlTx) SetBalance(ctx context.Context, userID string, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, t.d.upsertBalance, userID, amount); err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

func (t *sqlTx) GetAll(ctx context.Context, userID string) (model.Inventory, error) {
	rows, err := t.tx.QueryContext(ctx, t.d.selectInventory, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	defer rows.Close()

	inv := model.Inventory{}
	for rows.Next() {
		var itemID string
		var qty int64
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		inv[itemID] = qty
	}
	return inv, rows.Err()
}

func (t *sqlTx) SetQuantity(ctx context.Context, userID, itemID string, quantity int64) error {
	if err := checkAmount(quantity); err != nil {
		return err
	}

	var err error
	if quantity == 0 {
		_, err = t.tx.ExecContext(ctx, t.d.deleteInventory, userID, itemID)
	} else {
		_, err = t.tx.ExecContext(ctx, t.d.upsertInventory, userID, itemID, quantity)
	}
	if err != nil {
		return fmt.Errorf("failed to set inventory quantity: %w", err)
	}
	return nil
}

func (t *sqlTx) GetLastClaim(ctx context.Context, userID string) (int64, error) {
	var ts int64
	err := t.tx.QueryRowContext(ctx, t.d.selectClaim, userID).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last claim: %w", err)
	}
	return ts, nil
}

func (t *sqlTx) SetLastClaim(ctx context.Context, userID string, timestampMs int64) error {
	if _, err := t.tx.ExecContext(ctx, t.d.upsertClaim, userID, timestampMs); err != nil {
		return fmt.Errorf("failed to set last claim: %w", err)
	}
	return nil
}

func (t *sqlTx) AppendEntry(ctx context.Context, e model.LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, t.d.insertEntry,
		e.ID, e.UserID, string(e.Kind), e.Delta, e.BalanceAfter, e.Reference, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}
