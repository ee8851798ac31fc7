package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteEconomyRepository implements EconomyRepository using SQLite.
// A single connection serializes writers, so every Atomic call is isolated.
type SQLiteEconomyRepository struct {
	sqlEconomyRepository
}

// NewSQLiteEconomyRepository creates a new SQLite economy repository.
// dbPath is the path to the SQLite database file (e.g., "./data/economy.db"), or ":memory:".
func NewSQLiteEconomyRepository(dbPath string) (*SQLiteEconomyRepository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// Exclusive locking keeps the file locked from the first write until
		// Close, so a second process cannot open the same store.
		dsn = fmt.Sprintf("%s?_pragma=locking_mode(EXCLUSIVE)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_txlock=immediate", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer; one connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	repo := &SQLiteEconomyRepository{sqlEconomyRepository{db: db, d: sqliteDialect}}
	if err := repo.migrate(ctx); err != nil {
		db.Close()
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreInUse, dbPath)
		}
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO store_owner (id, pid, started_at_ms) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET pid = excluded.pid, started_at_ms = excluded.started_at_ms`,
		os.Getpid(), time.Now().UnixMilli()); err != nil {
		db.Close()
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreInUse, dbPath)
		}
		return nil, fmt.Errorf("failed to record store owner: %w", err)
	}

	log.Printf("[SQLiteEconomyRepository] Initialized with database: %s", dbPath)
	return repo, nil
}

var sqliteDialect = sqlDialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS balances (
			user_id TEXT PRIMARY KEY,
			amount INTEGER NOT NULL CHECK (amount >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balances_amount ON balances(amount)`,
		`CREATE TABLE IF NOT EXISTS inventories (
			user_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 0),
			PRIMARY KEY (user_id, item_id)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_claims (
			user_id TEXT PRIMARY KEY,
			last_claim_ms INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			delta INTEGER NOT NULL,
			balance_after INTEGER NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id, seq)`,
		`CREATE TABLE IF NOT EXISTS store_owner (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			pid INTEGER NOT NULL,
			started_at_ms INTEGER NOT NULL
		)`,
	},

	selectBalance: `SELECT amount FROM balances WHERE user_id = ?`,
	upsertBalance: `
		INSERT INTO balances (user_id, amount) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET amount = excluded.amount`,
	selectInventory: `SELECT item_id, quantity FROM inventories WHERE user_id = ? AND quantity > 0`,
	upsertInventory: `
		INSERT INTO inventories (user_id, item_id, quantity) VALUES (?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET quantity = excluded.quantity`,
	deleteInventory: `DELETE FROM inventories WHERE user_id = ? AND item_id = ?`,
	selectClaim:     `SELECT last_claim_ms FROM daily_claims WHERE user_id = ?`,
	upsertClaim: `
		INSERT INTO daily_claims (user_id, last_claim_ms) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_claim_ms = excluded.last_claim_ms`,
	insertEntry: `
		INSERT INTO ledger_entries (id, user_id, kind, delta, balance_after, reference, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,

	topBalances: `SELECT user_id, amount FROM balances ORDER BY amount DESC, user_id ASC LIMIT ?`,
	holders:     `SELECT DISTINCT user_id FROM inventories WHERE quantity > 0 ORDER BY user_id`,
	history: `
		SELECT id, user_id, kind, delta, balance_after, reference, created_at_ms
		FROM ledger_entries WHERE user_id = ? ORDER BY seq DESC LIMIT ?`,
	accountStats: `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM balances`,
	itemStats:    `SELECT COALESCE(SUM(quantity), 0) FROM inventories`,
}

// Ensure SQLiteEconomyRepository implements EconomyRepository
var _ EconomyRepository = (*SQLiteEconomyRepository)(nil)

func isBusy(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_BUSY
}
