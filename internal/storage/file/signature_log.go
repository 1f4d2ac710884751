package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"twirvo-sync/internal/storage"
)

// SignatureLog is a file-backed implementation of storage.SignatureLog,
// one signature per line, append-only. This matches the ledger text file
// layout the directory endpoint serves.
type SignatureLog struct {
	mu   sync.Mutex
	path string
	seen map[string]struct{}
	log  []string
}

// NewSignatureLog opens (or prepares to create) the log at path.
func NewSignatureLog(path string) (*SignatureLog, error) {
	l := &SignatureLog{
		path: path,
		seen: make(map[string]struct{}),
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("open signature log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		sig := strings.TrimSpace(scanner.Text())
		if sig == "" {
			continue
		}
		if _, dup := l.seen[sig]; dup {
			continue
		}
		l.seen[sig] = struct{}{}
		l.log = append(l.log, sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read signature log: %w", err)
	}
	return l, nil
}

// Append adds a signature to the end of the log file.
func (l *SignatureLog) Append(_ context.Context, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[signature]; dup {
		return storage.ErrDuplicateKey
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open signature log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(signature + "\n"); err != nil {
		return fmt.Errorf("append signature: %w", err)
	}

	l.seen[signature] = struct{}{}
	l.log = append(l.log, signature)
	return nil
}

// List returns all signatures in append order.
func (l *SignatureLog) List(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.log))
	copy(out, l.log)
	return out, nil
}

// Verify interface compliance at compile time.
var _ storage.SignatureLog = (*SignatureLog)(nil)
