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

	"twirvo-sync/internal/storage"
)

// PreferenceStore is a file-backed implementation of storage.PreferenceStore.
// Each entry is individually keyed; the whole map is rewritten on Set, which
// is fine for the handful of preference keys this system persists.
type PreferenceStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewPreferenceStore loads the preference file at path, starting empty when
// the file is missing or unreadable.
func NewPreferenceStore(path string) (*PreferenceStore, error) {
	s := &PreferenceStore{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read preference file: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = make(map[string]string)
	}
	return s, nil
}

// Get returns the value stored under key. Returns ErrNotFound if unset.
func (s *PreferenceStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set stores value under key and persists the file.
func (s *PreferenceStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.persistLocked()
}

// Clear removes every stored entry and persists the file.
func (s *PreferenceStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]string)
	return s.persistLocked()
}

func (s *PreferenceStore) persistLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preference dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace preferences: %w", err)
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PreferenceStore = (*PreferenceStore)(nil)
