package memory

import (
	"context"
	"sync"

	"twirvo-sync/internal/storage"
)

// PreferenceStore is an in-memory implementation of storage.PreferenceStore.
type PreferenceStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewPreferenceStore creates a new in-memory preference store.
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{
		data: make(map[string]string),
	}
}

// Get returns the value stored under key. Returns ErrNotFound if unset.
func (s *PreferenceStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Set stores value under key, overwriting any previous value.
func (s *PreferenceStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Clear removes every stored entry.
func (s *PreferenceStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]string)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PreferenceStore = (*PreferenceStore)(nil)
