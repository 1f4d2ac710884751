package postgres

import (
	"context"
	"fmt"

	"twirvo-sync/internal/storage"
)

// SignatureLog implements storage.SignatureLog using PostgreSQL. Append
// order is preserved via a bigserial position column.
type SignatureLog struct {
	pool *Pool
}

// NewSignatureLog creates a new Postgres-backed signature log.
func NewSignatureLog(pool *Pool) *SignatureLog {
	return &SignatureLog{pool: pool}
}

// Compile-time interface check.
var _ storage.SignatureLog = (*SignatureLog)(nil)

// Append adds a signature to the end of the log.
func (l *SignatureLog) Append(ctx context.Context, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO signature_log (signature) VALUES ($1)`
	if _, err := l.pool.Exec(ctx, query, signature); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append signature: %w", err)
	}
	return nil
}

// List returns all signatures in append order.
func (l *SignatureLog) List(ctx context.Context) ([]string, error) {
	query := `SELECT signature FROM signature_log ORDER BY position ASC`

	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
