// Package ingestion resolves directory signatures into raw transactions,
// populating the local cache incrementally against a rate-limited ledger.
package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/storage"
)

// Resolver fetches one transaction by signature. A (nil, nil) return means
// the transaction is not yet available; callers retry on a later cycle.
type Resolver interface {
	GetTransaction(ctx context.Context, signature string) (*domain.RawTransaction, error)
}

// Default pacing values. The external ledger rate-limits aggressively, so
// fetches are sequential with a fixed inter-request delay once the batch is
// larger than a handful of entries.
const (
	DefaultInterRequestDelay   = 150 * time.Millisecond
	DefaultNotFoundBackoff     = 500 * time.Millisecond
	DefaultSequentialThreshold = 5
	DefaultPersistEvery        = 5
)

// Progress reports backfill advancement after every processed signature.
type Progress struct {
	Current int
	Total   int
}

// Backfiller fetches transactions missing from the cache.
type Backfiller struct {
	resolver            Resolver
	cache               storage.TransactionCache
	interRequestDelay   time.Duration
	notFoundBackoff     time.Duration
	sequentialThreshold int
	persistEvery        int
	onProgress          func(Progress)
	logger              logrus.FieldLogger
}

// Options configures a Backfiller. Zero values fall back to defaults.
type Options struct {
	Resolver            Resolver
	Cache               storage.TransactionCache
	InterRequestDelay   time.Duration
	NotFoundBackoff     time.Duration
	SequentialThreshold int
	PersistEvery        int
	OnProgress          func(Progress)
	Logger              logrus.FieldLogger
}

// NewBackfiller creates a backfiller over the given resolver and cache.
func NewBackfiller(opts Options) *Backfiller {
	interRequestDelay := opts.InterRequestDelay
	if interRequestDelay == 0 {
		interRequestDelay = DefaultInterRequestDelay
	}
	notFoundBackoff := opts.NotFoundBackoff
	if notFoundBackoff == 0 {
		notFoundBackoff = DefaultNotFoundBackoff
	}
	sequentialThreshold := opts.SequentialThreshold
	if sequentialThreshold == 0 {
		sequentialThreshold = DefaultSequentialThreshold
	}
	persistEvery := opts.PersistEvery
	if persistEvery == 0 {
		persistEvery = DefaultPersistEvery
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Backfiller{
		resolver:            opts.Resolver,
		cache:               opts.Cache,
		interRequestDelay:   interRequestDelay,
		notFoundBackoff:     notFoundBackoff,
		sequentialThreshold: sequentialThreshold,
		persistEvery:        persistEvery,
		onProgress:          opts.OnProgress,
		logger:              logger,
	}
}

// Result contains statistics from one backfill pass.
type Result struct {
	Fetched    int
	Cached     int
	Unresolved int
	Errors     int
	Duration   time.Duration
}

// Backfill resolves every signature missing from the cache. Safe to re-run:
// cached signatures cost nothing, unresolved ones are left for the next
// cycle rather than failing the pass. The cache is flushed periodically so
// a crash mid-backfill loses minimal work.
func (b *Backfiller) Backfill(ctx context.Context, sigs []string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	var missing []string
	for _, sig := range sigs {
		if domain.IsSimulatedSignature(sig) {
			continue
		}
		cached, err := b.cache.Has(ctx, sig)
		if err != nil {
			return result, err
		}
		if cached {
			result.Cached++
			continue
		}
		missing = append(missing, sig)
	}

	if len(missing) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	b.logger.WithField("missing", len(missing)).Info("starting backfill")
	throttled := len(missing) > b.sequentialThreshold

	sinceFlush := 0
	for i, sig := range missing {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tx, err := b.resolver.GetTransaction(ctx, sig)
		switch {
		case err != nil:
			// Transient failure: back off and leave it for the next cycle.
			result.Errors++
			b.logger.WithField("signature", sig).WithError(err).Warn("fetch failed")
			if !sleepCtx(ctx, b.notFoundBackoff) {
				return result, ctx.Err()
			}
		case tx == nil:
			result.Unresolved++
			if !sleepCtx(ctx, b.notFoundBackoff) {
				return result, ctx.Err()
			}
		default:
			if err := b.cache.Put(ctx, tx); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				result.Errors++
				b.logger.WithField("signature", sig).WithError(err).Warn("cache write failed")
			} else {
				result.Fetched++
				sinceFlush++
			}
			if sinceFlush >= b.persistEvery {
				if err := b.cache.Flush(ctx); err != nil {
					b.logger.WithError(err).Warn("cache flush failed")
				}
				sinceFlush = 0
			}
		}

		b.report(Progress{Current: i + 1, Total: len(missing)})

		if throttled && i < len(missing)-1 {
			if !sleepCtx(ctx, b.interRequestDelay) {
				return result, ctx.Err()
			}
		}
	}

	if err := b.cache.Flush(ctx); err != nil {
		b.logger.WithError(err).Warn("cache flush failed")
	}

	result.Duration = time.Since(start)
	b.logger.WithFields(logrus.Fields{
		"fetched":    result.Fetched,
		"cached":     result.Cached,
		"unresolved": result.Unresolved,
		"errors":     result.Errors,
		"duration":   result.Duration,
	}).Info("backfill complete")

	return result, nil
}

func (b *Backfiller) report(p Progress) {
	if b.onProgress != nil {
		b.onProgress(p)
	}
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
