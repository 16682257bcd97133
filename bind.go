package opsdiag

import (
	"github.com/danpasecinic/opsdiag/internal/container"
	"github.com/danpasecinic/opsdiag/internal/reflect"
)

// Bind registers I as resolving to the registration of T. Nothing is
// constructed for I itself.
func Bind[I, T any](e *Engine, opts ...ProviderOption) error {
	cfg := newProviderConfig(opts)

	return e.register(
		container.ServiceEntry{
			Key:            keyFor[I](cfg),
			Implementation: reflect.TypeKey[T](),
			Scope:          cfg.lifetime,
		},
	)
}

func BindNamed[I, T any](e *Engine, name string, opts ...ProviderOption) error {
	opts = append(opts, WithName(name))
	return Bind[I, T](e, opts...)
}
