package opsdiag

import (
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/danpasecinic/opsdiag/config"
)

type Option func(*engineConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithClock replaces the clock used to time probes, health checks and the
// engine start time.
func WithClock(clk clock.Clock) Option {
	return func(cfg *engineConfig) {
		cfg.clock = clk
	}
}

// WithConfigStore sets the store that Configure binds option payloads from.
func WithConfigStore(store *config.Store) Option {
	return func(cfg *engineConfig) {
		cfg.store = store
	}
}

// WithoutHealthChecks skips registering the built-in options and services
// health checks.
func WithoutHealthChecks() Option {
	return func(cfg *engineConfig) {
		cfg.defaultChecks = false
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *engineConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithProvideObserver(hook ProvideHook) Option {
	return func(cfg *engineConfig) {
		cfg.onProvide = append(cfg.onProvide, hook)
	}
}

func WithStartObserver(hook StartHook) Option {
	return func(cfg *engineConfig) {
		cfg.onStart = append(cfg.onStart, hook)
	}
}

func WithStopObserver(hook StopHook) Option {
	return func(cfg *engineConfig) {
		cfg.onStop = append(cfg.onStop, hook)
	}
}

func WithProbeObserver(hook ProbeHook) Option {
	return func(cfg *engineConfig) {
		cfg.onProbe = append(cfg.onProbe, hook)
	}
}
