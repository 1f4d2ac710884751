package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/storage"
)

// TxCache implements storage.TransactionCache using PostgreSQL. The raw
// transaction is stored as a JSONB document keyed by signature; inserts
// on an existing signature are ignored, keeping entries immutable.
type TxCache struct {
	pool *Pool
}

// NewTxCache creates a new Postgres-backed transaction cache.
func NewTxCache(pool *Pool) *TxCache {
	return &TxCache{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionCache = (*TxCache)(nil)

// Get returns the cached transaction. Returns ErrNotFound if absent.
func (c *TxCache) Get(ctx context.Context, signature string) (*domain.RawTransaction, error) {
	query := `SELECT raw FROM transaction_cache WHERE signature = $1`

	var raw []byte
	if err := c.pool.QueryRow(ctx, query, signature).Scan(&raw); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cached transaction: %w", err)
	}

	var tx domain.RawTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("decode cached transaction: %w", err)
	}
	return &tx, nil
}

// Put stores a transaction under its signature. First write wins.
func (c *TxCache) Put(ctx context.Context, tx *domain.RawTransaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	raw, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	query := `
		INSERT INTO transaction_cache (signature, raw)
		VALUES ($1, $2)
		ON CONFLICT (signature) DO NOTHING
	`
	if _, err := c.pool.Exec(ctx, query, tx.Signature, raw); err != nil {
		return fmt.Errorf("insert cached transaction: %w", err)
	}
	return nil
}

// Has reports whether the signature is already cached.
func (c *TxCache) Has(ctx context.Context, signature string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transaction_cache WHERE signature = $1)`

	var exists bool
	if err := c.pool.QueryRow(ctx, query, signature).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cached transaction: %w", err)
	}
	return exists, nil
}

// All returns every cached transaction keyed by signature.
func (c *TxCache) All(ctx context.Context) (map[string]*domain.RawTransaction, error) {
	query := `SELECT signature, raw FROM transaction_cache`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cached transactions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.RawTransaction)
	for rows.Next() {
		var (
			sig string
			raw []byte
		)
		if err := rows.Scan(&sig, &raw); err != nil {
			return nil, fmt.Errorf("scan cached transaction: %w", err)
		}
		var tx domain.RawTransaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, fmt.Errorf("decode cached transaction %s: %w", sig, err)
		}
		out[sig] = &tx
	}
	return out, rows.Err()
}

// Len returns the number of cached entries.
func (c *TxCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transaction_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached transactions: %w", err)
	}
	return n, nil
}

// Flush is a no-op: this backend writes through.
func (c *TxCache) Flush(_ context.Context) error {
	return nil
}
