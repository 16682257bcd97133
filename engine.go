package opsdiag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/danpasecinic/opsdiag/config"
	"github.com/danpasecinic/opsdiag/internal/container"
	"github.com/danpasecinic/opsdiag/internal/reflect"
)

// Engine owns a service registry, an options binder and a cache list, and
// builds diagnostic reports over them.
type Engine struct {
	internal *container.Container
	config   *engineConfig
	prober   *Prober
	health   *HealthRunner
	started  time.Time

	mu       sync.RWMutex
	shapes   []Shape
	caches   []any
	features []featureDecl
}

type engineConfig struct {
	logger        *slog.Logger
	clock         clock.Clock
	store         *config.Store
	defaultChecks bool

	onResolve []ResolveHook
	onProvide []ProvideHook
	onStart   []StartHook
	onStop    []StopHook
	onProbe   []ProbeHook
}

func New(opts ...Option) *Engine {
	cfg := &engineConfig{
		logger:        slog.Default(),
		clock:         clock.New(),
		defaultChecks: true,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	if cfg.store == nil {
		cfg.store = config.NewStore()
	}

	internal := container.New(
		&container.Config{
			Logger:    cfg.logger,
			OnResolve: convertHooks[ResolveHook, container.ResolveHook](cfg.onResolve),
			OnStart:   convertHooks[StartHook, container.LifecycleHook](cfg.onStart),
			OnStop:    convertHooks[StopHook, container.LifecycleHook](cfg.onStop),
		},
	)

	e := &Engine{
		internal: internal,
		config:   cfg,
		prober:   NewProber(cfg.logger, cfg.clock, cfg.onProbe...),
		health:   NewHealthRunner(cfg.logger, cfg.clock),
		started:  cfg.clock.Now(),
	}

	if cfg.defaultChecks {
		tags := []string{TagStartup, TagDiagnostics}
		_ = e.health.Register("options", OptionsHealthCheck(e, e.prober), tags...)
		_ = e.health.Register("services", ServicesHealthCheck(e, e.prober), tags...)
	}

	return e
}

func convertHooks[From ~func(string, time.Duration, error), To ~func(string, time.Duration, error)](hooks []From) []To {
	out := make([]To, len(hooks))
	for i, h := range hooks {
		out[i] = To(h)
	}
	return out
}

func (e *Engine) Logger() *slog.Logger {
	return e.config.logger
}

func (e *Engine) Clock() clock.Clock {
	return e.config.clock
}

func (e *Engine) Store() *config.Store {
	return e.config.store
}

func (e *Engine) Prober() *Prober {
	return e.prober
}

func (e *Engine) Health() *HealthRunner {
	return e.health
}

func (e *Engine) StartTime() time.Time {
	return e.started
}

func (e *Engine) Validate() error {
	if err := e.internal.Validate(); err != nil {
		return errValidationFailed(err)
	}
	return nil
}

func (e *Engine) Size() int {
	return e.internal.Size()
}

func (e *Engine) Keys() []string {
	return e.internal.Keys()
}

// RegisterShape adds an option shape that was bound outside Configure.
func (e *Engine) RegisterShape(s Shape) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shapes = append(e.shapes, s)
}

func (e *Engine) OptionShapes() []Shape {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Shape, len(e.shapes))
	copy(out, e.shapes)
	return out
}

func (e *Engine) ServiceRegistrations() []ServiceRegistration {
	entries := e.internal.Entries()
	out := make([]ServiceRegistration, 0, len(entries))

	for _, entry := range entries {
		reg := ServiceRegistration{
			Key:         entry.Key,
			ServiceType: reflect.DisplayName(entry.Key),
			Lifetime:    entry.Scope,
			Hosted:      entry.Hosted,
		}

		switch {
		case entry.HasInstance:
			reg.Instance = entry.Instance
		case entry.Implementation != "":
			reg.ImplementationType = reflect.DisplayName(entry.Implementation)
		case entry.Provider != nil:
			key := entry.Key
			reg.Factory = func(ctx context.Context) (any, error) {
				return e.internal.Construct(ctx, key)
			}
		}

		out = append(out, reg)
	}
	return out
}

func (e *Engine) Resolve(ctx context.Context, key string) (any, error) {
	return e.internal.Resolve(ctx, key)
}

// RegisterCache adds a cache to the caches report. Caches implementing
// CacheSizer are reported as managed.
func (e *Engine) RegisterCache(cache any) {
	if cache == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.caches = append(e.caches, cache)
}

func (e *Engine) Caches() []any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]any, len(e.caches))
	copy(out, e.caches)
	return out
}

// Start runs the startup health checks and then starts every worker in
// dependency order. An unhealthy startup check aborts before any worker
// starts.
func (e *Engine) Start(ctx context.Context) error {
	switch e.internal.State() {
	case container.StateStarting, container.StateRunning, container.StateStopping:
		return errEngineAlreadyStarted()
	}

	if err := e.CheckStartup(ctx); err != nil {
		return err
	}

	err := e.internal.Start(ctx, startWorker, stopWorker)
	if errors.Is(err, container.ErrAlreadyStarted) {
		return errEngineAlreadyStarted()
	}
	if err != nil {
		return errStartupFailed(err)
	}

	e.config.logger.Info("engine started")
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	if err := e.internal.Stop(ctx, stopWorker); err != nil {
		return errShutdownFailed(err)
	}
	return nil
}

func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}

	signal.Stop(quit)

	return e.Stop(context.Background())
}

func startWorker(ctx context.Context, key string, instance any) error {
	w, ok := instance.(Worker)
	if !ok {
		return fmt.Errorf("%s does not implement Worker", reflect.DisplayName(key))
	}
	return w.Start(ctx)
}

func stopWorker(ctx context.Context, key string, instance any) error {
	w, ok := instance.(Worker)
	if !ok {
		return nil
	}
	return w.Stop(ctx)
}
