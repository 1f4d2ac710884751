package memory

import (
	"context"
	"sort"
	"sync"

	"twirvo-sync/internal/storage"
)

// AuditLog is an in-memory implementation of storage.AuditLog.
type AuditLog struct {
	mu   sync.RWMutex
	data map[string]*storage.AuditRecord
}

// NewAuditLog creates a new in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{
		data: make(map[string]*storage.AuditRecord),
	}
}

// Insert adds a record. Returns ErrDuplicateKey if the id exists.
func (l *AuditLog) Insert(_ context.Context, r *storage.AuditRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	l.data[r.ID] = &recordCopy
	return nil
}

// ListRecent returns up to limit records, newest first.
func (l *AuditLog) ListRecent(_ context.Context, limit int) ([]*storage.AuditRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*storage.AuditRecord, 0, len(l.data))
	for _, r := range l.data {
		recordCopy := *r
		out = append(out, &recordCopy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Verify interface compliance at compile time.
var _ storage.AuditLog = (*AuditLog)(nil)
