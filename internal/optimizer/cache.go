package optimizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/julianstephens/rhythm/internal/constants"
)

const cacheKeyPrefix = "guidance/"

// Cache keeps guidance per week so the advisory service is asked at most
// once per week within the TTL.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenCache opens a cache under dir. An empty dir keeps the cache in memory.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open advisory cache: %w", err)
	}
	return &Cache{db: db, ttl: constants.AdvisoryCacheTTL}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached guidance for weekStart, if present and unexpired.
func (c *Cache) Get(weekStart string) (Guidance, bool, error) {
	var g Guidance
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + weekStart))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &g)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Guidance{}, false, nil
	}
	if err != nil {
		return Guidance{}, false, err
	}
	return g, true, nil
}

func (c *Cache) Put(g Guidance) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(cacheKeyPrefix+g.WeekStart), raw).WithTTL(c.ttl))
	})
}

// Invalidate drops the cached guidance for weekStart.
func (c *Cache) Invalidate(weekStart string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(cacheKeyPrefix + weekStart))
	})
}
