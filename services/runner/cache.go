package runner

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Cache is a local badger-backed response cache for stateless queries.
//
// Only stateless answers are cacheable: a session-bound answer depends
// on the conversation history behind its handle, so replaying it from
// cache would silently change semantics. Callers gate on that; the
// cache itself only maps key -> response text.
//
// A nil *Cache is valid and disables caching.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenCache opens (or creates) the cache database at dir.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening response cache at %s: %w", dir, err)
	}
	return &Cache{db: db, ttl: 7 * 24 * time.Hour}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// key derives the cache key for one stateless query.
func (c *Cache) key(modelID string, mode Mode, prompt string) []byte {
	sum := sha256.Sum256([]byte(modelID + "|" + string(mode) + "|" + prompt))
	return sum[:]
}

// Get returns the cached response text and whether it was present.
func (c *Cache) Get(modelID string, mode Mode, prompt string) (string, bool) {
	if c == nil {
		return "", false
	}
	var text string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(modelID, mode, prompt))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			text = string(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			// Cache trouble must never fail a run.
			return "", false
		}
		return "", false
	}
	return text, true
}

// Put stores a response. Errors are swallowed; the cache is advisory.
func (c *Cache) Put(modelID string, mode Mode, prompt, text string) {
	if c == nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(c.key(modelID, mode, prompt), []byte(text)).WithTTL(c.ttl)
		return txn.SetEntry(e)
	})
}
