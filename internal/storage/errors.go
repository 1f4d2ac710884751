package storage

import "errors"

// Sentinel errors shared by every store implementation. Callers match
// them with errors.Is; wrapped variants carry backend detail.
var (
	// ErrNotFound marks a lookup for a record that was never written.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey marks a write whose key is already present. The
	// logs and caches here never update in place.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput marks a nil or empty argument rejected before it
	// reaches the backend.
	ErrInvalidInput = errors.New("invalid input")
)
