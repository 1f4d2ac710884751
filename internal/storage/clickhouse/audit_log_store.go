package clickhouse

import (
	"context"
	"fmt"

	"twirvo-sync/internal/storage"
)

// AuditLog implements storage.AuditLog using ClickHouse. Submission audit
// records are an append-only analytic stream, which fits a MergeTree table;
// uniqueness of ids is checked explicitly before insert.
type AuditLog struct {
	conn *Conn
}

// NewAuditLog creates a new ClickHouse-backed audit log.
func NewAuditLog(conn *Conn) *AuditLog {
	return &AuditLog{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditLog = (*AuditLog)(nil)

// Insert adds a record. Returns ErrDuplicateKey if the id exists.
func (l *AuditLog) Insert(ctx context.Context, r *storage.AuditRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness at insert time.
	var count uint64
	if err := l.conn.QueryRow(ctx,
		`SELECT count() FROM audit_log WHERE id = ?`, r.ID,
	).Scan(&count); err != nil {
		return fmt.Errorf("check audit record: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO audit_log (
			id, timestamp, wallet, action_kind, status, tx_signature, payload, error_msg
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if err := l.conn.Exec(ctx, query,
		r.ID,
		r.Timestamp,
		r.Wallet,
		r.ActionKind,
		r.Status,
		r.TxSignature,
		r.Payload,
		r.ErrorMsg,
	); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (l *AuditLog) ListRecent(ctx context.Context, limit int) ([]*storage.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, timestamp, wallet, action_kind, status, tx_signature, payload, error_msg
		FROM audit_log
		ORDER BY timestamp DESC
		LIMIT ?
	`
	rows, err := l.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var out []*storage.AuditRecord
	for rows.Next() {
		var r storage.AuditRecord
		if err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Wallet, &r.ActionKind,
			&r.Status, &r.TxSignature, &r.Payload, &r.ErrorMsg,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
