// Package directory maintains the set of transaction signatures the fold
// replays: the persisted append log, signatures pending local confirmation,
// and an optional signature arriving through a deep link.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/storage"
)

// MinDeepLinkSigLen is the shortest route segment treated as a raw
// signature rather than a username or wallet.
const MinDeepLinkSigLen = 60

// Directory merges the signature sources into one deduplicated, ordered set.
type Directory struct {
	log storage.SignatureLog

	mu       sync.Mutex
	pending  []string
	routeSig string
}

// New creates a directory over the given append log.
func New(log storage.SignatureLog) *Directory {
	return &Directory{log: log}
}

// AddPending registers a locally submitted signature that is not yet in the
// persisted log, so the next fold picks it up immediately.
func (d *Directory) AddPending(sig string) {
	if sig == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, sig)
}

// Commit moves a pending signature into the persisted append log.
// A signature already in the log is fine: the pending entry is dropped.
func (d *Directory) Commit(ctx context.Context, sig string) error {
	if err := d.log.Append(ctx, sig); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("commit signature: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.pending[:0]
	for _, p := range d.pending {
		if p != sig {
			kept = append(kept, p)
		}
	}
	d.pending = kept
	return nil
}

// SetRouteSignature records the signature parsed from the current deep-link
// route, if any. Simulated signatures are never resolvable and are ignored.
func (d *Directory) SetRouteSignature(sig string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(sig) > MinDeepLinkSigLen && !domain.IsSimulatedSignature(sig) {
		d.routeSig = sig
	} else {
		d.routeSig = ""
	}
}

// Signatures returns the deduplicated union of the append log, pending
// signatures, and the route signature, preserving first-seen order.
func (d *Directory) Signatures(ctx context.Context) ([]string, error) {
	logged, err := d.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list signature log: %w", err)
	}

	d.mu.Lock()
	pending := make([]string, len(d.pending))
	copy(pending, d.pending)
	routeSig := d.routeSig
	d.mu.Unlock()

	seen := make(map[string]struct{}, len(logged)+len(pending)+1)
	out := make([]string, 0, len(logged)+len(pending)+1)
	add := func(sig string) {
		if sig == "" {
			return
		}
		if _, dup := seen[sig]; dup {
			return
		}
		seen[sig] = struct{}{}
		out = append(out, sig)
	}

	for _, sig := range logged {
		add(sig)
	}
	for _, sig := range pending {
		add(sig)
	}
	add(routeSig)

	return out, nil
}
