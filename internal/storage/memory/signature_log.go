package memory

import (
	"context"
	"sync"

	"twirvo-sync/internal/storage"
)

// SignatureLog is an in-memory implementation of storage.SignatureLog.
type SignatureLog struct {
	mu   sync.RWMutex
	seen map[string]struct{}
	log  []string
}

// NewSignatureLog creates a new in-memory signature log.
func NewSignatureLog() *SignatureLog {
	return &SignatureLog{
		seen: make(map[string]struct{}),
	}
}

// Append adds a signature to the end of the log.
func (l *SignatureLog) Append(_ context.Context, signature string) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.seen[signature]; exists {
		return storage.ErrDuplicateKey
	}

	l.seen[signature] = struct{}{}
	l.log = append(l.log, signature)
	return nil
}

// List returns all signatures in append order.
func (l *SignatureLog) List(_ context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.log))
	copy(out, l.log)
	return out, nil
}

// Verify interface compliance at compile time.
var _ storage.SignatureLog = (*SignatureLog)(nil)
