package memory

import (
	"context"
	"sync"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/storage"
)

// TxCache is an in-memory implementation of storage.TransactionCache.
type TxCache struct {
	mu   sync.RWMutex
	data map[string]*domain.RawTransaction
}

// NewTxCache creates a new in-memory transaction cache.
func NewTxCache() *TxCache {
	return &TxCache{
		data: make(map[string]*domain.RawTransaction),
	}
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

// Put stores a transaction under its signature. Existing entries are kept:
// a fetched transaction is final, so the first write wins.
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

// Flush is a no-op: this backend writes through.
func (c *TxCache) Flush(_ context.Context) error {
	return nil
}

// Verify interface compliance at compile time.
var _ storage.TransactionCache = (*TxCache)(nil)
