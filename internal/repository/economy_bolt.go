package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"cookieboy-api/internal/model"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketBalances    = []byte("balances")
	bucketInventories = []byte("inventories") // nested: user -> item -> qty
	bucketClaims      = []byte("daily_claims")
	bucketLedger      = []byte("ledger") // nested: user -> seq -> entry JSON
)

// BoltEconomyRepository implements EconomyRepository on an embedded BoltDB
// file. Bolt allows one read-write transaction at a time, so Atomic is fully
// serialized.
type BoltEconomyRepository struct {
	db *bolt.DB
}

// NewBoltEconomyRepository opens (and initialises) the BoltDB file at path.
func NewBoltEconomyRepository(path string) (*BoltEconomyRepository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBalances, bucketInventories, bucketClaims, bucketLedger} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	log.Printf("[BoltEconomyRepository] Initialized with database: %s", path)
	return &BoltEconomyRepository{db: db}, nil
}

// Atomic runs fn inside one bolt read-write transaction.
func (r *BoltEconomyRepository) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// TopBalances scans every balance; bolt has no secondary indexes.
func (r *BoltEconomyRepository) TopBalances(ctx context.Context, limit int) ([]model.RankEntry, error) {
	entries := []model.RankEntry{}
	if limit <= 0 {
		return entries, nil
	}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBalances).ForEach(func(k, v []byte) error {
			entries = append(entries, model.RankEntry{UserID: string(k), Balance: decodeInt(v)})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan balances: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// InventoryHolders returns users with at least one owned item.
func (r *BoltEconomyRepository) InventoryHolders(ctx context.Context) ([]string, error) {
	var users []string
	err := r.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketInventories)
		return root.ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			if user := root.Bucket(k); user != nil {
				if first, _ := user.Cursor().First(); first != nil {
					users = append(users, string(k))
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan inventories: %w", err)
	}
	return users, nil
}

// History walks the user's journal bucket backwards.
func (r *BoltEconomyRepository) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	entries := []model.LedgerEntry{}
	err := r.db.View(func(tx *bolt.Tx) error {
		user := tx.Bucket(bucketLedger).Bucket([]byte(userID))
		if user == nil {
			return nil
		}
		c := user.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var e model.LedgerEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}

// Stats aggregates balances and inventories.
func (r *BoltEconomyRepository) Stats(ctx context.Context) (model.EconomyStats, error) {
	var stats model.EconomyStats
	err := r.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketBalances).ForEach(func(_, v []byte) error {
			stats.Accounts++
			stats.Circulating += decodeInt(v)
			return nil
		}); err != nil {
			return err
		}
		root := tx.Bucket(bucketInventories)
		return root.ForEach(func(k, v []byte) error {
			user := root.Bucket(k)
			if v != nil || user == nil {
				return nil
			}
			return user.ForEach(func(_, q []byte) error {
				stats.ItemsOwned += decodeInt(q)
				return nil
			})
		})
	})
	if err != nil {
		return stats, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// Close releases the underlying Bolt database handle.
func (r *BoltEconomyRepository) Close() error {
	return r.db.Close()
}

// boltTx implements Tx on a writable bolt transaction.
type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) GetBalance(ctx context.Context, userID string) (int64, error) {
	return decodeInt(t.tx.Bucket(bucketBalances).Get([]byte(userID))), nil
}

func (t *boltTx) SetBalance(ctx context.Context, userID string, amount int64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := t.tx.Bucket(bucketBalances).Put([]byte(userID), encodeInt(amount)); err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

func (t *boltTx) GetAll(ctx context.Context, userID string) (model.Inventory, error) {
	inv := model.Inventory{}
	user := t.tx.Bucket(bucketInventories).Bucket([]byte(userID))
	if user == nil {
		return inv, nil
	}
	err := user.ForEach(func(k, v []byte) error {
		if qty := decodeInt(v); qty > 0 {
			inv[string(k)] = qty
		}
		return nil
	})
	return inv, err
}

func (t *boltTx) SetQuantity(ctx context.Context, userID, itemID string, quantity int64) error {
	if err := checkAmount(quantity); err != nil {
		return err
	}

	root := t.tx.Bucket(bucketInventories)
	if quantity == 0 {
		if user := root.Bucket([]byte(userID)); user != nil {
			return user.Delete([]byte(itemID))
		}
		return nil
	}

	user, err := root.CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return fmt.Errorf("failed to create inventory bucket: %w", err)
	}
	if err := user.Put([]byte(itemID), encodeInt(quantity)); err != nil {
		return fmt.Errorf("failed to set inventory quantity: %w", err)
	}
	return nil
}

func (t *boltTx) GetLastClaim(ctx context.Context, userID string) (int64, error) {
	return decodeInt(t.tx.Bucket(bucketClaims).Get([]byte(userID))), nil
}

func (t *boltTx) SetLastClaim(ctx context.Context, userID string, timestampMs int64) error {
	if err := t.tx.Bucket(bucketClaims).Put([]byte(userID), encodeInt(timestampMs)); err != nil {
		return fmt.Errorf("failed to set last claim: %w", err)
	}
	return nil
}

func (t *boltTx) AppendEntry(ctx context.Context, e model.LedgerEntry) error {
	user, err := t.tx.Bucket(bucketLedger).CreateBucketIfNotExists([]byte(e.UserID))
	if err != nil {
		return fmt.Errorf("failed to create ledger bucket: %w", err)
	}
	seq, err := user.NextSequence()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return user.Put(encodeInt(int64(seq)), raw)
}

// encodeInt stores int64 big-endian so byte order matches numeric order for non-negative values.
func encodeInt(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// Ensure BoltEconomyRepository implements EconomyRepository
var _ EconomyRepository = (*BoltEconomyRepository)(nil)
