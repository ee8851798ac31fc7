package repository

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// MySQLEconomyRepository implements EconomyRepository using MySQL (InnoDB).
type MySQLEconomyRepository struct {
	sqlEconomyRepository
}

// NewMySQLEconomyRepository creates a new MySQL economy repository on an
// already opened and pinged connection pool. The repository takes ownership
// of db and holds a named lock on it so only one process serves the store.
func NewMySQLEconomyRepository(db *sql.DB) (*MySQLEconomyRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := &MySQLEconomyRepository{sqlEconomyRepository{db: db, d: mysqlDialect}}
	if err := repo.claimOwnership(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := repo.migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	log.Println("[MySQLEconomyRepository] Initialized")
	return repo, nil
}

var mysqlDialect = sqlDialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS balances (
			user_id VARBINARY(128) NOT NULL PRIMARY KEY,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			INDEX idx_balances_amount (amount)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
		`CREATE TABLE IF NOT EXISTS inventories (
			user_id VARBINARY(128) NOT NULL,
			item_id VARBINARY(128) NOT NULL,
			quantity BIGINT NOT NULL CHECK (quantity >= 0),
			PRIMARY KEY (user_id, item_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
		`CREATE TABLE IF NOT EXISTS daily_claims (
			user_id VARBINARY(128) NOT NULL PRIMARY KEY,
			last_claim_ms BIGINT NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			user_id VARBINARY(128) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			delta BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			reference VARBINARY(128) NOT NULL DEFAULT '',
			created_at_ms BIGINT NOT NULL,
			INDEX idx_ledger_user (user_id, seq)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
	},

	selectBalance: `SELECT amount FROM balances WHERE user_id = ? FOR UPDATE`,
	upsertBalance: `
		INSERT INTO balances (user_id, amount) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE amount = VALUES(amount)`,
	selectInventory: `SELECT item_id, quantity FROM inventories WHERE user_id = ? AND quantity > 0`,
	upsertInventory: `
		INSERT INTO inventories (user_id, item_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`,
	deleteInventory: `DELETE FROM inventories WHERE user_id = ? AND item_id = ?`,
	selectClaim:     `SELECT last_claim_ms FROM daily_claims WHERE user_id = ? FOR UPDATE`,
	upsertClaim: `
		INSERT INTO daily_claims (user_id, last_claim_ms) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE last_claim_ms = VALUES(last_claim_ms)`,
	insertEntry: `
		INSERT INTO ledger_entries (id, user_id, kind, delta, balance_after, reference, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,

	topBalances: `SELECT user_id, amount FROM balances ORDER BY amount DESC, user_id ASC LIMIT ?`,
	holders:     `SELECT DISTINCT user_id FROM inventories WHERE quantity > 0 ORDER BY user_id`,
	history: `
		SELECT id, user_id, kind, delta, balance_after, reference, created_at_ms
		FROM ledger_entries WHERE user_id = ? ORDER BY seq DESC LIMIT ?`,
	accountStats: `SELECT COUNT(*), CAST(COALESCE(SUM(amount), 0) AS SIGNED) FROM balances`,
	itemStats:    `SELECT CAST(COALESCE(SUM(quantity), 0) AS SIGNED) FROM inventories`,

	claimOwner:   `SELECT COALESCE(GET_LOCK('cookieboy-api:economy', 0), 0) = 1`,
	releaseOwner: `SELECT RELEASE_LOCK('cookieboy-api:economy')`,
}

// Ensure MySQLEconomyRepository implements EconomyRepository
var _ EconomyRepository = (*MySQLEconomyRepository)(nil)
