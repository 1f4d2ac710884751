package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"twirvo-sync/internal/directory"
	"twirvo-sync/internal/domain"
	"twirvo-sync/internal/server"
	"twirvo-sync/internal/simfeed"
	"twirvo-sync/internal/solana"
	"twirvo-sync/internal/storage"
	"twirvo-sync/internal/storage/clickhouse"
	"twirvo-sync/internal/storage/file"
	"twirvo-sync/internal/storage/memory"
	"twirvo-sync/internal/storage/migrations"
	"twirvo-sync/internal/storage/postgres"
	"twirvo-sync/internal/syncer"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host string `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port int    `long:"http.port" env:"HTTP_PORT" default:"8080" description:"port to listen on"`

	RPCEndpoint string `long:"rpc.endpoint" env:"RPC_ENDPOINT" default:"https://api.mainnet-beta.solana.com" description:"solana json-rpc endpoint"`

	LedgerPath    string `long:"ledger.path" env:"LEDGER_PATH" default:"data/ledger.txt" description:"real signature log file"`
	SimLedgerPath string `long:"ledger.sim_path" env:"LEDGER_SIM_PATH" default:"data/sim-ledger.txt" description:"simulated signature log file"`
	SimFeedPath   string `long:"ledger.sim_feed" env:"LEDGER_SIM_FEED" description:"simulated feed file, one json object per line; empty disables the merge"`
	CachePath     string `long:"cache.path" env:"CACHE_PATH" default:"data/tx-cache.json" description:"transaction cache file"`
	PrefsPath     string `long:"prefs.path" env:"PREFS_PATH" default:"data/preferences.json" description:"viewer preferences file"`

	Postgres   string `long:"postgres" env:"POSTGRES" description:"postgres dsn; when set the signature log and transaction cache move off the filesystem"`
	Clickhouse string `long:"clickhouse" env:"CLICKHOUSE" description:"clickhouse dsn for the audit log; empty keeps audit records in memory"`

	SyncInterval      time.Duration `long:"sync.interval" env:"SYNC_INTERVAL" default:"5s" description:"re-fold cadence"`
	InterRequestDelay time.Duration `long:"rpc.inter_request_delay" env:"RPC_INTER_REQUEST_DELAY" default:"150ms" description:"delay between rpc fetches on large backfills"`
	NotFoundBackoff   time.Duration `long:"rpc.not_found_backoff" env:"RPC_NOT_FOUND_BACKOFF" default:"500ms" description:"wait after an unresolved signature"`

	AdminToken string `long:"admin.token" env:"ADMIN_TOKEN" description:"bearer token for simulated ledger writes"`
	LogLevel   string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "Twirvo Sync"
	parser.LongDescription = "Twirvo Sync"

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	logrus.Info("service started")
	logrus.Infof("%+v", opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger, simLedger, cache, closeStores := mustGetStores(ctx)
	defer closeStores()

	audit := mustGetAuditLog(ctx)

	prefs, err := file.NewPreferenceStore(opts.PrefsPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open preference store")
	}

	rpc := solana.NewHTTPClient(opts.RPCEndpoint)

	sync := syncer.New(syncer.Options{
		Directory:         directory.New(ledger),
		Resolver:          rpc,
		Cache:             cache,
		SimFeed:           simFeedSource(opts.SimFeedPath),
		Logger:            logrus.StandardLogger(),
		Interval:          opts.SyncInterval,
		InterRequestDelay: opts.InterRequestDelay,
		NotFoundBackoff:   opts.NotFoundBackoff,
	})

	r := chi.NewRouter()
	server.SetupRouter(server.Options{
		Syncer:     sync,
		Ledger:     ledger,
		SimLedger:  simLedger,
		Audit:      audit,
		Prefs:      prefs,
		Balances:   rpc,
		AdminToken: opts.AdminToken,
		Logger:     logrus.StandardLogger(),
	}, r)

	srv := http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: r,
	}

	gr, _ := errgroup.WithContext(ctx)
	gr.Go(func() error {
		return sync.Run(ctx)
	})
	gr.Go(srv.ListenAndServe)
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		s := <-sigs

		logrus.Infof("terminating by %s signal", s)

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)

		return errTerminated
	})

	if err := gr.Wait(); err != nil && !errors.Is(err, errTerminated) && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).Fatal("sync service unexpectedly closed")
	}
}

func mustGetStores(ctx context.Context) (storage.SignatureLog, storage.SignatureLog, storage.TransactionCache, func()) {
	if opts.Postgres != "" {
		pool, err := postgres.NewPool(ctx, opts.Postgres)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to postgres")
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logrus.WithError(err).Fatal("failed to migrate postgres")
		}

		simLedger, err := file.NewSignatureLog(opts.SimLedgerPath)
		if err != nil {
			logrus.WithError(err).Fatal("failed to open simulated ledger")
		}
		return postgres.NewSignatureLog(pool), simLedger, postgres.NewTxCache(pool), pool.Close
	}

	ledger, err := file.NewSignatureLog(opts.LedgerPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open ledger")
	}
	simLedger, err := file.NewSignatureLog(opts.SimLedgerPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open simulated ledger")
	}
	cache, err := file.NewTxCache(opts.CachePath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open transaction cache")
	}
	return ledger, simLedger, cache, func() {}
}

func mustGetAuditLog(ctx context.Context) storage.AuditLog {
	if opts.Clickhouse == "" {
		return memory.NewAuditLog()
	}

	conn, err := clickhouse.NewConn(ctx, opts.Clickhouse)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to clickhouse")
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		logrus.WithError(err).Fatal("failed to migrate clickhouse")
	}
	return clickhouse.NewAuditLog(conn)
}

// simFeedSource re-reads the simulated feed file on every cycle so appended
// lines show up without a restart. A missing file is an empty feed.
func simFeedSource(path string) syncer.SimSource {
	if path == "" {
		return nil
	}
	return func(_ context.Context) ([]*domain.Event, error) {
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		defer f.Close()
		return simfeed.Parse(f)
	}
}
