package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cookieboy-api/internal/model"

	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) EconomyRepository {
	t.Helper()
	repo, err := NewSQLiteEconomyRepository(":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestBolt(t *testing.T) EconomyRepository {
	t.Helper()
	repo, err := NewBoltEconomyRepository(filepath.Join(t.TempDir(), "economy.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestMemory(t *testing.T) EconomyRepository {
	return NewMemoryEconomyRepository()
}

var backends = map[string]func(t *testing.T) EconomyRepository{
	"memory": newTestMemory,
	"sqlite": newTestSQLite,
	"bolt":   newTestBolt,
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo EconomyRepository)) {
	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, newRepo(t))
		})
	}
}

func TestEconomyRepository_DefaultsForUnknownUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		err := repo.Atomic(ctx, func(tx Tx) error {
			balance, err := tx.GetBalance(ctx, "ghost")
			require.NoError(t, err)
			require.Zero(t, balance)

			inv, err := tx.GetAll(ctx, "ghost")
			require.NoError(t, err)
			require.NotNil(t, inv)
			require.Empty(t, inv)

			last, err := tx.GetLastClaim(ctx, "ghost")
			require.NoError(t, err)
			require.Zero(t, last)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestEconomyRepository_SetAndGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			require.NoError(t, tx.SetBalance(ctx, "u1", 120))
			require.NoError(t, tx.SetQuantity(ctx, "u1", "wooden_spoon", 3))
			require.NoError(t, tx.SetQuantity(ctx, "u1", "cookie_mouse", 1))
			require.NoError(t, tx.SetLastClaim(ctx, "u1", 1_700_000_000_000))
			return nil
		}))

		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			balance, err := tx.GetBalance(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, int64(120), balance)

			inv, err := tx.GetAll(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, model.Inventory{"wooden_spoon": 3, "cookie_mouse": 1}, inv)

			last, err := tx.GetLastClaim(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, int64(1_700_000_000_000), last)
			return nil
		}))
	})
}

func TestEconomyRepository_ZeroQuantityIsAbsent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			return tx.SetQuantity(ctx, "u1", "baking_bot", 2)
		}))
		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			return tx.SetQuantity(ctx, "u1", "baking_bot", 0)
		}))

		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			inv, err := tx.GetAll(ctx, "u1")
			require.NoError(t, err)
			require.Empty(t, inv)
			return nil
		}))

		holders, err := repo.InventoryHolders(ctx)
		require.NoError(t, err)
		require.Empty(t, holders)
	})
}

func TestEconomyRepository_RejectsNegativeValues(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		err := repo.Atomic(ctx, func(tx Tx) error {
			return tx.SetBalance(ctx, "u1", -1)
		})
		require.ErrorIs(t, err, model.ErrInvalidAmount)

		err = repo.Atomic(ctx, func(tx Tx) error {
			return tx.SetQuantity(ctx, "u1", "wooden_spoon", -5)
		})
		require.ErrorIs(t, err, model.ErrInvalidAmount)
	})
}

func TestEconomyRepository_AtomicRollback(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			return tx.SetBalance(ctx, "u1", 200)
		}))

		boom := errors.New("boom")
		err := repo.Atomic(ctx, func(tx Tx) error {
			require.NoError(t, tx.SetBalance(ctx, "u1", 50))
			require.NoError(t, tx.SetQuantity(ctx, "u1", "wooden_spoon", 3))
			require.NoError(t, tx.AppendEntry(ctx, model.LedgerEntry{
				ID: "e1", UserID: "u1", Kind: model.EntryPurchase, Delta: -150, BalanceAfter: 50,
				CreatedAt: time.Now(),
			}))
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			balance, err := tx.GetBalance(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, int64(200), balance)

			inv, err := tx.GetAll(ctx, "u1")
			require.NoError(t, err)
			require.Empty(t, inv)
			return nil
		}))

		history, err := repo.History(ctx, "u1", 10)
		require.NoError(t, err)
		require.Empty(t, history)
	})
}

func TestEconomyRepository_ReadYourWritesInsideTx(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			require.NoError(t, tx.SetBalance(ctx, "u1", 7))
			balance, err := tx.GetBalance(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, int64(7), balance)

			require.NoError(t, tx.SetQuantity(ctx, "u1", "golden_whisk", 1))
			inv, err := tx.GetAll(ctx, "u1")
			require.NoError(t, err)
			require.Equal(t, int64(1), inv["golden_whisk"])
			return nil
		}))
	})
}

func TestEconomyRepository_TopBalances(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		seed := map[string]int64{"alice": 30, "bob": 50, "carol": 30, "dave": 10, "erin": 0, "frank": 99}
		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			for user, amount := range seed {
				require.NoError(t, tx.SetBalance(ctx, user, amount))
			}
			return nil
		}))

		top, err := repo.TopBalances(ctx, 4)
		require.NoError(t, err)
		require.Equal(t, []model.RankEntry{
			{UserID: "frank", Balance: 99},
			{UserID: "bob", Balance: 50},
			{UserID: "alice", Balance: 30},
			{UserID: "carol", Balance: 30},
		}, top)

		all, err := repo.TopBalances(ctx, 100)
		require.NoError(t, err)
		require.Len(t, all, len(seed))

		none, err := repo.TopBalances(ctx, 0)
		require.NoError(t, err)
		require.Empty(t, none)
	})
}

func TestEconomyRepository_HistoryNewestFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		base := time.UnixMilli(1_700_000_000_000).UTC()
		for i, id := range []string{"e1", "e2", "e3"} {
			entry := model.LedgerEntry{
				ID: id, UserID: "u1", Kind: model.EntryClick, Delta: int64(i + 1),
				BalanceAfter: int64(i + 1), CreatedAt: base,
			}
			require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
				return tx.AppendEntry(ctx, entry)
			}))
		}

		history, err := repo.History(ctx, "u1", 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		require.Equal(t, "e3", history[0].ID)
		require.Equal(t, "e2", history[1].ID)
		require.Equal(t, model.EntryClick, history[0].Kind)
		require.True(t, base.Equal(history[0].CreatedAt))

		other, err := repo.History(ctx, "u2", 10)
		require.NoError(t, err)
		require.Empty(t, other)
	})
}

func TestEconomyRepository_HoldersAndStats(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			require.NoError(t, tx.SetBalance(ctx, "b", 10))
			require.NoError(t, tx.SetBalance(ctx, "a", 15))
			require.NoError(t, tx.SetQuantity(ctx, "b", "cookie_mouse", 2))
			require.NoError(t, tx.SetQuantity(ctx, "a", "wooden_spoon", 1))
			return nil
		}))

		holders, err := repo.InventoryHolders(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, holders)

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, model.EconomyStats{Accounts: 2, Circulating: 25, ItemsOwned: 3}, stats)
	})
}

func TestEconomyRepository_UserIDsAreExactBytes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo EconomyRepository) {
		ctx := context.Background()
		long := strings.Repeat("u", model.MaxUserIDLength-1) + "Z"

		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			if err := tx.SetBalance(ctx, "Alice", 100); err != nil {
				return err
			}
			if err := tx.SetQuantity(ctx, "Alice", "wooden_spoon", 2); err != nil {
				return err
			}
			if err := tx.SetLastClaim(ctx, "Alice", 1234); err != nil {
				return err
			}
			return tx.SetBalance(ctx, long, 7)
		}))

		require.NoError(t, repo.Atomic(ctx, func(tx Tx) error {
			for _, variant := range []string{"alice", "ALICE", "Alicé"} {
				balance, err := tx.GetBalance(ctx, variant)
				require.NoError(t, err)
				require.Zero(t, balance, variant)

				inv, err := tx.GetAll(ctx, variant)
				require.NoError(t, err)
				require.Empty(t, inv, variant)

				last, err := tx.GetLastClaim(ctx, variant)
				require.NoError(t, err)
				require.Zero(t, last, variant)
			}

			balance, err := tx.GetBalance(ctx, "Alice")
			require.NoError(t, err)
			require.Equal(t, int64(100), balance)

			balance, err = tx.GetBalance(ctx, long)
			require.NoError(t, err)
			require.Equal(t, int64(7), balance)

			balance, err = tx.GetBalance(ctx, strings.ToLower(long))
			require.NoError(t, err)
			require.Zero(t, balance)
			return nil
		}))

		top, err := repo.TopBalances(ctx, 10)
		require.NoError(t, err)
		require.Len(t, top, 2)
		require.Equal(t, "Alice", top[0].UserID)
		require.Equal(t, long, top[1].UserID)
	})
}
