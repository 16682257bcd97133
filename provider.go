package opsdiag

import (
	"context"
	"errors"

	"github.com/danpasecinic/opsdiag/internal/container"
	"github.com/danpasecinic/opsdiag/internal/reflect"
	"github.com/danpasecinic/opsdiag/internal/scope"
)

type Provider[T any] func(ctx context.Context, r Resolver) (T, error)

type ProviderOption func(*providerConfig)

type providerConfig struct {
	name         string
	dependencies []string
	lifetime     scope.Scope
}

func newProviderConfig(opts []ProviderOption) *providerConfig {
	cfg := &providerConfig{lifetime: scope.Singleton}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func keyFor[T any](cfg *providerConfig) string {
	if cfg.name != "" {
		return reflect.TypeKeyNamed[T](cfg.name)
	}
	return reflect.TypeKey[T]()
}

func Provide[T any](e *Engine, provider Provider[T], opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	return e.register(
		container.ServiceEntry{
			Key:          keyFor[T](cfg),
			Provider:     wrapProvider(provider),
			Scope:        cfg.lifetime,
			Dependencies: cfg.dependencies,
		},
	)
}

func ProvideValue[T any](e *Engine, value T, opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)
	return e.register(
		container.ServiceEntry{
			Key:          keyFor[T](cfg),
			Instance:     value,
			HasInstance:  true,
			Scope:        scope.Singleton,
			Dependencies: cfg.dependencies,
		},
	)
}

func ProvideNamed[T any](e *Engine, name string, provider Provider[T], opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return Provide(e, provider, opts...)
}

func ProvideNamedValue[T any](e *Engine, name string, value T, opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return ProvideValue(e, value, opts...)
}

func WithName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.name = name
	}
}

func WithDependencies(deps ...string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.dependencies = deps
	}
}

func WithLifetime(l Lifetime) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.lifetime = l
	}
}

func wrapProvider[T any](provider Provider[T]) container.ProviderFunc {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		return provider(ctx, &resolverAdapter{resolver: r})
	}
}

func (e *Engine) register(entry container.ServiceEntry) error {
	if err := e.internal.Register(entry); err != nil {
		return translateRegisterError(entry.Key, err)
	}

	for _, hook := range e.config.onProvide {
		hook(entry.Key)
	}
	return nil
}

func translateRegisterError(key string, err error) error {
	var dup *container.DuplicateError
	if errors.As(err, &dup) {
		return errDuplicateService(reflect.DisplayName(key), err)
	}

	var circ *container.CircularError
	if errors.As(err, &circ) {
		return errCircularDependency(displayNames(circ.Path), err)
	}
	return err
}

func displayNames(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = reflect.DisplayName(k)
	}
	return out
}
