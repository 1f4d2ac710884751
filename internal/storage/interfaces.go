package storage

import (
	"context"

	"twirvo-sync/internal/domain"
)

// TransactionCache maps signature to the raw transaction fetched for it.
// Entries are immutable: a Put for an existing signature is a no-op, so
// concurrent readers never observe a partially replaced record.
type TransactionCache interface {
	// Get returns the cached transaction. Returns ErrNotFound if absent.
	Get(ctx context.Context, signature string) (*domain.RawTransaction, error)

	// Put stores a transaction under its signature. Existing keys are kept
	// as-is; storing the same signature twice is not an error.
	Put(ctx context.Context, tx *domain.RawTransaction) error

	// Has reports whether the signature is already cached.
	Has(ctx context.Context, signature string) (bool, error)

	// All returns every cached transaction keyed by signature.
	All(ctx context.Context) (map[string]*domain.RawTransaction, error)

	// Len returns the number of cached entries.
	Len(ctx context.Context) (int, error)

	// Flush persists buffered entries for backends with deferred writes.
	// Backends that write through implement it as a no-op.
	Flush(ctx context.Context) error
}

// SignatureLog is the authenticated append-only list of real transaction
// signatures. Simulated signatures never enter it; they come from a separate
// feed merged at read time.
type SignatureLog interface {
	// Append adds a signature to the end of the log.
	// Returns ErrDuplicateKey if it was appended before.
	Append(ctx context.Context, signature string) error

	// List returns all signatures in append order.
	List(ctx context.Context) ([]string, error)
}

// PreferenceStore persists viewer preference entries by key. The HTTP
// layer keeps the whole bundle as JSON under a single key.
type PreferenceStore interface {
	// Get returns the raw value stored under key. Returns ErrNotFound if unset.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Clear removes every stored entry.
	Clear(ctx context.Context) error
}

// AuditRecord is one submission outcome emitted by the action dispatcher.
type AuditRecord struct {
	ID          string
	Timestamp   int64
	Wallet      string
	ActionKind  string
	Status      string // "successful" or "failed"
	TxSignature string
	Payload     string
	ErrorMsg    string
}

// AuditLog collects submission audit records. Append-only.
type AuditLog interface {
	// Insert adds a record. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, r *AuditRecord) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*AuditRecord, error)
}
