package repository

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

// Server backends join the contract suite when a DSN is provided, e.g.
//
//	COOKIEBOY_TEST_POSTGRES_DSN="host=localhost user=postgres dbname=cookieboy_test sslmode=disable"
//	COOKIEBOY_TEST_MYSQL_DSN="root@tcp(localhost:3306)/cookieboy_test"
func init() {
	if dsn := os.Getenv("COOKIEBOY_TEST_POSTGRES_DSN"); dsn != "" {
		backends["postgres"] = func(t *testing.T) EconomyRepository {
			t.Helper()
			repo, err := NewPostgresEconomyRepository(dsn)
			require.NoError(t, err)
			truncateEconomyTables(t, repo.db)
			t.Cleanup(func() { repo.Close() })
			return repo
		}
	}
	if dsn := os.Getenv("COOKIEBOY_TEST_MYSQL_DSN"); dsn != "" {
		backends["mysql"] = func(t *testing.T) EconomyRepository {
			t.Helper()
			db, err := sql.Open("mysql", dsn)
			require.NoError(t, err)
			repo, err := NewMySQLEconomyRepository(db)
			require.NoError(t, err)
			truncateEconomyTables(t, db)
			t.Cleanup(func() { repo.Close() })
			return repo
		}
	}
}

func truncateEconomyTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"balances", "inventories", "daily_claims", "ledger_entries"} {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
}
