// Package server exposes the ledger directory and read-only state
// projections over HTTP.
//
// The /v1/ledger pair is the authenticated append log of real signatures.
// The simulated ledger is a separate write-bypass feed: POSTs require the
// admin bearer token and the entries are merged into views read-side only,
// never mixed into the real log.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"twirvo-sync/internal/storage"
	"twirvo-sync/internal/syncer"
	"twirvo-sync/internal/views"
)

const maxBodySize = 16 * 1024

// BalanceFetcher reports the lamport balance held by a wallet.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, wallet string) (uint64, error)
}

type server struct {
	sync       *syncer.Syncer
	ledger     storage.SignatureLog
	simLedger  storage.SignatureLog
	audit      storage.AuditLog
	prefStore  storage.PreferenceStore
	prefs      *prefState
	balances   BalanceFetcher
	adminToken string
	logger     logrus.FieldLogger
}

// Options wires the router's collaborators.
type Options struct {
	Syncer     *syncer.Syncer
	Ledger     storage.SignatureLog
	SimLedger  storage.SignatureLog
	Audit      storage.AuditLog
	Prefs      storage.PreferenceStore
	Balances   BalanceFetcher
	AdminToken string
	Logger     logrus.FieldLogger
	Timeout    time.Duration
}

// SetupRouter mounts all handlers on r.
func SetupRouter(opts Options, r chi.Router) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r.Use(
		middleware.RequestID,
		middleware.StripSlashes,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		middleware.RequestSize(maxBodySize),
	)

	srv := server{
		sync:       opts.Syncer,
		ledger:     opts.Ledger,
		simLedger:  opts.SimLedger,
		audit:      opts.Audit,
		prefStore:  opts.Prefs,
		prefs:      &prefState{prefs: loadPrefs(opts.Prefs, logger)},
		balances:   opts.Balances,
		adminToken: opts.AdminToken,
		logger:     logger,
	}

	r.Get("/health", srv.health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/ledger", srv.listLedger)
		r.Post("/ledger", srv.appendLedger)
		r.Get("/simulated-ledger", srv.listSimLedger)
		r.Post("/simulated-ledger", srv.appendSimLedger)
		r.Post("/audit-log", srv.insertAuditRecord)
		r.Get("/audit-log", srv.listAuditRecords)
		r.Get("/preferences", srv.getPreferences)
		r.Put("/preferences", srv.putPreferences)
		r.Get("/profile/{segment}", srv.getProfile)
		r.Get("/feed", srv.getFeed)
		r.Get("/state", srv.getState)
	})
}

// Handler returns a fully wired router.
func Handler(opts Options) http.Handler {
	r := chi.NewRouter()
	SetupRouter(opts, r)
	return r
}

// prefsKey is the store entry holding the preferences bundle as JSON.
const prefsKey = "preferences"

// prefState caches the viewer preferences loaded at startup. Reads hand
// out clones; writes replace the cached bundle after persisting it.
type prefState struct {
	mu    sync.RWMutex
	prefs *views.Preferences
}

func (p *prefState) snapshot() *views.Preferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs.Clone()
}

func (p *prefState) set(prefs *views.Preferences) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs = prefs
}

// loadPrefs restores the persisted preferences or returns defaults when
// the store is absent, empty or unreadable.
func loadPrefs(store storage.PreferenceStore, logger logrus.FieldLogger) *views.Preferences {
	prefs := views.DefaultPreferences()
	if store == nil {
		return prefs
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := store.Get(ctx, prefsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.WithError(err).Warn("failed to load preferences, using defaults")
		}
		return prefs
	}
	if err := json.Unmarshal([]byte(raw), prefs); err != nil {
		logger.WithError(err).Warn("stored preferences unreadable, using defaults")
		return views.DefaultPreferences()
	}
	return prefs
}
