// Command opsdemo runs a small service wired through opsdiag and serves its
// diagnostics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/danpasecinic/opsdiag"
	"github.com/danpasecinic/opsdiag/cache"
	"github.com/danpasecinic/opsdiag/config"
	"github.com/danpasecinic/opsdiag/opsfx"
	"github.com/danpasecinic/opsdiag/opshttp"
)

type serverOptions struct {
	Addr                 string        `config:"addr"`
	RootPath             string        `config:"root_path"`
	ExcludeStartupChecks bool          `config:"exclude_startup_checks"`
	RequestTimeout       time.Duration `config:"request_timeout"`
	AuthSecret           string        `config:"auth_secret"`
	Policy               string        `config:"policy"`
}

func (o *serverOptions) SetDefaults() {
	o.Addr = opshttp.DefaultAddr
	o.RootPath = opshttp.DefaultRootPath
	o.RequestTimeout = 30 * time.Second
	o.Policy = opshttp.DefaultPolicy
}

func (o serverOptions) settings(gatherer prometheus.Gatherer) opsfx.Settings {
	s := opsfx.DefaultSettings()
	s.Addr = o.Addr
	s.HTTP.RootPath = o.RootPath
	s.HTTP.ExcludeStartupChecks = o.ExcludeStartupChecks
	s.HTTP.RequestTimeout = o.RequestTimeout
	s.HTTP.AuthSecret = o.AuthSecret
	s.HTTP.Policy = o.Policy
	s.HTTP.Gatherer = gatherer
	return s
}

type StoreOptions struct {
	DSN string `config:"dsn"`
}

func (o StoreOptions) Validate() error {
	if o.DSN == "" {
		return errors.New("dsn is required")
	}
	return nil
}

type SearchFeature struct {
	Enabled bool `config:"enabled"`
}

func (f SearchFeature) FeatureEnabled() bool { return f.Enabled }

type Store struct {
	dsn string
}

type Mailer interface {
	Send(to, body string) error
}

type Notifier struct {
	store  *Store
	mailer Mailer
}

type Sweeper struct {
	store  *Store
	cache  *cache.LRU[string, []byte]
	logger *slog.Logger
	done   chan struct{}
	runs   atomic.Int64
}

func (s *Sweeper) Start(_ context.Context) error {
	s.done = make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				n := s.runs.Add(1)
				s.cache.Add(fmt.Sprintf("sweep-%d", n), make([]byte, 256))
				s.logger.Debug("sweep finished", "run", n, "store", s.store.dsn)
			}
		}
	}()
	return nil
}

func (s *Sweeper) Stop(_ context.Context) error {
	close(s.done)
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		envFile    = flag.String("env-file", "", "path to a dotenv file")
		prefix     = flag.String("env-prefix", "OPSDEMO", "environment variable prefix")
		token      = flag.Bool("print-token", false, "print a bearer token for the ops endpoints and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := loadStore(*configPath, *envFile, *prefix)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	serverOpts, err := config.BindNew[serverOptions](store, "ops")
	if err != nil {
		logger.Error("invalid ops server config", "error", err)
		os.Exit(1)
	}

	if *token {
		if serverOpts.AuthSecret == "" {
			logger.Error("ops.auth_secret is not set")
			os.Exit(1)
		}
		raw, err := opshttp.IssueToken(serverOpts.AuthSecret, "opsdemo", []string{serverOpts.Policy}, time.Hour)
		if err != nil {
			logger.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(raw)
		return
	}

	registry := prometheus.NewRegistry()
	engine, err := newEngine(logger, store, registry)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	fxLogger, err := zap.NewProduction()
	if err != nil {
		logger.Error("failed to build fx logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = fxLogger.Sync() }()

	settings := serverOpts.settings(registry)
	fx.New(
		opsfx.ZapLogger(fxLogger),
		fx.Supply(engine, &settings),
		opsfx.Module(),
	).Run()
}

func loadStore(configPath, envFile, prefix string) (*config.Store, error) {
	store := config.NewStore()
	if configPath != "" {
		if err := store.LoadYAML(configPath); err != nil {
			return nil, err
		}
	}
	if envFile != "" {
		if err := store.LoadDotEnv(prefix, envFile); err != nil {
			return nil, err
		}
	}
	store.LoadEnv(prefix)
	return store, nil
}

func newEngine(logger *slog.Logger, store *config.Store, registry *prometheus.Registry) (*opsdiag.Engine, error) {
	observer, err := opsdiag.NewPrometheusObserver(registry)
	if err != nil {
		return nil, err
	}

	engine := opsdiag.New(
		opsdiag.WithLogger(logger),
		opsdiag.WithConfigStore(store),
		opsdiag.WithProbeObserver(observer.Hook()),
	)

	if err := registry.Register(opsdiag.NewCacheCollector(engine)); err != nil {
		return nil, err
	}

	blobs, err := cache.NewLRU[string, []byte](
		1024,
		cache.WithSizeLimit[string, []byte](1<<20),
		cache.WithSizeFunc[string, []byte](func(_ string, v []byte) int64 { return int64(len(v)) }),
	)
	if err != nil {
		return nil, err
	}
	engine.RegisterCache(blobs)

	if err := opsdiag.Configure[StoreOptions](engine, "store"); err != nil {
		return nil, err
	}
	if err := opsdiag.Configure[SearchFeature](engine, "features.search"); err != nil {
		return nil, err
	}

	if err := opsdiag.ProvideValue(engine, logger); err != nil {
		return nil, err
	}

	err = opsdiag.Provide(
		engine, func(ctx context.Context, r opsdiag.Resolver) (*Store, error) {
			opts, err := opsdiag.Resolve[opsdiag.Options[StoreOptions]](ctx, r)
			if err != nil {
				return nil, err
			}
			return &Store{dsn: opts.Value().DSN}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	// Mailer is left unregistered so the services report has something to
	// show under missing registrations.
	err = opsdiag.Provide(
		engine, func(ctx context.Context, r opsdiag.Resolver) (*Notifier, error) {
			store, err := opsdiag.Resolve[*Store](ctx, r)
			if err != nil {
				return nil, err
			}
			mailer, err := opsdiag.Resolve[Mailer](ctx, r)
			if err != nil {
				return nil, err
			}
			return &Notifier{store: store, mailer: mailer}, nil
		},
		opsdiag.WithLifetime(opsdiag.Transient),
	)
	if err != nil {
		return nil, err
	}

	err = opsdiag.ProvideWorker(
		engine, func(ctx context.Context, r opsdiag.Resolver) (*Sweeper, error) {
			return &Sweeper{
				store:  opsdiag.MustResolve[*Store](ctx, r),
				cache:  blobs,
				logger: opsdiag.MustResolve[*slog.Logger](ctx, r),
			}, nil
		},
		opsdiag.WithDependencies(opsdiag.Key[*Store]()),
	)
	if err != nil {
		return nil, err
	}

	return engine, nil
}
