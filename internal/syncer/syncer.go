// Package syncer drives the replay loop: it resolves the signature
// directory through the backfiller, decodes cached transactions, merges
// the simulated feed and folds everything into a fresh state snapshot.
package syncer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"twirvo-sync/internal/directory"
	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/fold"
	"twirvo-sync/internal/ingestion"
	"twirvo-sync/internal/memo"
	"twirvo-sync/internal/storage"
)

// DefaultInterval is the periodic re-fold cadence.
const DefaultInterval = 5 * time.Second

// SimSource supplies the simulated event feed, merged on every cycle.
type SimSource func(ctx context.Context) ([]*domain.Event, error)

// Options configures a Syncer.
type Options struct {
	Directory *directory.Directory
	Resolver  ingestion.Resolver
	Cache     storage.TransactionCache
	SimFeed   SimSource
	Logger    logrus.FieldLogger
	Interval  time.Duration

	// Backfill tuning, passed through to the backfiller.
	InterRequestDelay time.Duration
	NotFoundBackoff   time.Duration
}

// Syncer owns the directory, the backfiller and the fold. One re-fold runs
// at a time; requests arriving while one is in flight are no-ops and the
// next tick picks up whatever they would have seen.
type Syncer struct {
	directory  *directory.Directory
	backfiller *ingestion.Backfiller
	cache      storage.TransactionCache
	simFeed    SimSource
	logger     logrus.FieldLogger
	interval   time.Duration

	inFlight atomic.Bool
	snapshot atomic.Pointer[fold.State]
	progress atomic.Pointer[ingestion.Progress]
}

// New creates a Syncer over the given directory, resolver and cache.
func New(opts Options) *Syncer {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	s := &Syncer{
		directory: opts.Directory,
		cache:     opts.Cache,
		simFeed:   opts.SimFeed,
		logger:    logger,
		interval:  interval,
	}
	s.backfiller = ingestion.NewBackfiller(ingestion.Options{
		Resolver:          opts.Resolver,
		Cache:             opts.Cache,
		Logger:            logger,
		InterRequestDelay: opts.InterRequestDelay,
		NotFoundBackoff:   opts.NotFoundBackoff,
		OnProgress: func(p ingestion.Progress) {
			s.progress.Store(&p)
		},
	})
	s.snapshot.Store(fold.Fold(nil))
	s.progress.Store(&ingestion.Progress{})
	return s
}

// State returns the latest fold snapshot. Never nil.
func (s *Syncer) State() *fold.State {
	return s.snapshot.Load()
}

// Progress reports the current backfill position for sync overlays.
func (s *Syncer) Progress() ingestion.Progress {
	return *s.progress.Load()
}

// Refold runs one full cycle: directory, backfill, decode, fold, swap the
// snapshot. A call while another cycle is running returns immediately.
func (s *Syncer) Refold(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	sigs, err := s.directory.Signatures(ctx)
	if err != nil {
		return err
	}

	if _, err := s.backfiller.Backfill(ctx, sigs); err != nil {
		return err
	}

	events := make([]*domain.Event, 0, len(sigs))
	for _, sig := range sigs {
		if domain.IsSimulatedSignature(sig) {
			continue
		}
		tx, err := s.cache.Get(ctx, sig)
		if err != nil {
			continue
		}
		ev, err := memo.Decode(tx)
		if err != nil {
			// Undecodable entries are dropped; the rest of the ledger folds.
			continue
		}
		events = append(events, ev)
	}

	if s.simFeed != nil {
		simEvents, err := s.simFeed(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("simulated feed unavailable")
		} else {
			events = append(events, simEvents...)
		}
	}

	state := fold.Fold(events)
	s.snapshot.Store(state)

	s.logger.WithFields(logrus.Fields{
		"signatures": len(sigs),
		"events":     len(events),
		"posts":      len(state.Posts),
		"wallets":    len(state.Wallets),
	}).Debug("refold complete")
	return nil
}

// Run folds once immediately, then on every tick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.Refold(ctx); err != nil {
		s.logger.WithError(err).Warn("initial fold failed")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refold(ctx); err != nil {
				s.logger.WithError(err).Warn("refold failed")
			}
		}
	}
}
