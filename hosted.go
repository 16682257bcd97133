package opsdiag

import (
	"context"

	"github.com/danpasecinic/opsdiag/internal/container"
	"github.com/danpasecinic/opsdiag/internal/reflect"
	"github.com/danpasecinic/opsdiag/internal/scope"
)

// Worker is a long-running background service started and stopped with the
// engine.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ProvideWorker registers a singleton worker. Workers start after the
// services they declare as dependencies and stop before them.
func ProvideWorker[T Worker](e *Engine, provider Provider[T], opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	return e.register(
		container.ServiceEntry{
			Key:          keyFor[T](cfg),
			Provider:     wrapProvider(provider),
			Scope:        scope.Singleton,
			Dependencies: cfg.dependencies,
			Hosted:       true,
		},
	)
}

// HostedServicesReport lists the runtime types of the registered workers in
// registration order.
func (e *Engine) HostedServicesReport(ctx context.Context) HostedServicesReport {
	report := HostedServicesReport{Services: []string{}}

	for _, reg := range EnumerateServiceRegistrations(e) {
		if !reg.Hosted {
			continue
		}

		instance, err := e.internal.Resolve(ctx, reg.Key)
		if err != nil || reflect.IsNil(instance) {
			e.config.logger.Warn("hosted service unavailable", "service", reg.ServiceType, "error", err)
			report.Services = append(report.Services, reg.ServiceType)
			continue
		}
		report.Services = append(report.Services, reflect.DisplayNameOf(instance))
	}

	return report
}
