// Package opsfx runs an opsdiag engine and its HTTP endpoints inside an fx
// application.
package opsfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/danpasecinic/opsdiag"
	"github.com/danpasecinic/opsdiag/opshttp"
)

// Settings configures the module. When absent from the graph the server
// listens on opshttp.DefaultAddr with opshttp.DefaultConfig.
type Settings struct {
	Addr string
	HTTP opshttp.Config

	// DisableServer starts only the engine.
	DisableServer bool
}

func DefaultSettings() Settings {
	return Settings{
		Addr: opshttp.DefaultAddr,
		HTTP: opshttp.DefaultConfig(),
	}
}

type Params struct {
	fx.In

	Engine   *opsdiag.Engine
	Settings *Settings `optional:"true"`
}

// Module expects an *opsdiag.Engine in the graph. On start it runs the
// engine's startup checks and workers, then the server; on stop it reverses
// both.
func Module() fx.Option {
	return fx.Module(
		"opsdiag",
		fx.Provide(NewServer),
		fx.Invoke(registerLifecycle),
	)
}

// NewServer builds the ops server, or nil when the server is disabled.
func NewServer(p Params) (*opshttp.Server, error) {
	settings := DefaultSettings()
	if p.Settings != nil {
		settings = *p.Settings
	}
	if settings.DisableServer {
		return nil, nil
	}
	return opshttp.NewServer(settings.Addr, p.Engine, settings.HTTP)
}

type lifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Engine    *opsdiag.Engine
	Server    *opshttp.Server
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := p.Engine.Start(ctx); err != nil {
					return err
				}
				if p.Server == nil {
					return nil
				}
				if err := p.Server.Start(ctx); err != nil {
					return multierr.Append(err, p.Engine.Stop(ctx))
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				var err error
				if p.Server != nil {
					err = p.Server.Stop(ctx)
				}
				return multierr.Append(err, p.Engine.Stop(ctx))
			},
		},
	)
}

// ZapLogger routes fx's own events through log.
func ZapLogger(log *zap.Logger) fx.Option {
	return fx.WithLogger(
		func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		},
	)
}
