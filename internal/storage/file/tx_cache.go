package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/storage"
)

// CacheSchemaVersion tags the on-disk cache blob. Bumping it invalidates
// existing caches and forces a full backfill on next load.
const CacheSchemaVersion = "twirvo_cache_v1"

// cacheBlob is the single keyed blob persisted to disk.
type cacheBlob struct {
	Version      string                             `json:"version"`
	Transactions map[string]*domain.RawTransaction `json:"transactions"`
}

// TxCache is a file-backed implementation of storage.TransactionCache.
// Entries accumulate in memory and are written as one JSON blob on Flush,
// so a crash between flushes loses at most the unflushed tail.
type TxCache struct {
	mu    sync.RWMutex
	path  string
	data  map[string]*domain.RawTransaction
	dirty bool
}

// NewTxCache loads the cache blob at path, starting empty when the file is
// missing or carries a different schema version.
func NewTxCache(path string) (*TxCache, error) {
	c := &TxCache{
		path: path,
		data: make(map[string]*domain.RawTransaction),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var blob cacheBlob
	if err := json.Unmarshal(raw, &blob); err != nil || blob.Version != CacheSchemaVersion {
		// Unreadable or stale schema: drop it and refetch everything.
		return c, nil
	}

	for sig, tx := range blob.Transactions {
		if sig == "" || tx == nil {
			continue
		}
		c.data[sig] = tx
	}
	return c, nil
}

// Get returns the cached transaction. Returns ErrNotFound if absent.
func (c *TxCache) Get(_ context.Context, signature string) (*domain.RawTransaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tx, ok := c.data[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	txCopy := *tx
	return &txCopy, nil
}

// Put stores a transaction under its signature. First write wins.
func (c *TxCache) Put(_ context.Context, tx *domain.RawTransaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[tx.Signature]; exists {
		return nil
	}
	txCopy := *tx
	c.data[tx.Signature] = &txCopy
	c.dirty = true
	return nil
}

// Has reports whether the signature is already cached.
func (c *TxCache) Has(_ context.Context, signature string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.data[signature]
	return ok, nil
}

// All returns a copy of every cached transaction keyed by signature.
func (c *TxCache) All(_ context.Context) (map[string]*domain.RawTransaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*domain.RawTransaction, len(c.data))
	for sig, tx := range c.data {
		txCopy := *tx
		out[sig] = &txCopy
	}
	return out, nil
}

// Len returns the number of cached entries.
func (c *TxCache) Len(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data), nil
}

// Flush writes the blob to disk atomically via a temp-file rename.
func (c *TxCache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	blob := cacheBlob{
		Version:      CacheSchemaVersion,
		Transactions: c.data,
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal cache blob: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write cache blob: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache blob: %w", err)
	}

	c.dirty = false
	return nil
}

// Verify interface compliance at compile time.
var _ storage.TransactionCache = (*TxCache)(nil)
