package opsdiag

import (
	"context"
	"errors"

	"github.com/danpasecinic/opsdiag/internal/container"
	"github.com/danpasecinic/opsdiag/internal/reflect"
)

type Resolver interface {
	Resolve(ctx context.Context, key string) (any, error)
	Has(key string) bool
}

type resolverAdapter struct {
	resolver container.Resolver
}

func (r *resolverAdapter) Resolve(ctx context.Context, key string) (any, error) {
	return r.resolver.Resolve(ctx, key)
}

func (r *resolverAdapter) Has(key string) bool {
	return r.resolver.Has(key)
}

// Resolve resolves T through r. Providers should prefer it over Invoke so
// nested resolutions share the caller's scope and cycle tracking.
func Resolve[T any](ctx context.Context, r Resolver) (T, error) {
	return resolveKey[T](ctx, r, reflect.TypeKey[T]())
}

func ResolveNamed[T any](ctx context.Context, r Resolver, name string) (T, error) {
	return resolveKey[T](ctx, r, reflect.TypeKeyNamed[T](name))
}

func MustResolve[T any](ctx context.Context, r Resolver) T {
	v, err := Resolve[T](ctx, r)
	if err != nil {
		panic(err)
	}
	return v
}

func resolveKey[T any](ctx context.Context, r Resolver, key string) (T, error) {
	var zero T

	instance, err := r.Resolve(ctx, key)
	if err != nil {
		return zero, translateResolveError(reflect.DisplayName(key), err)
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, errResolutionFailed(reflect.DisplayName(key), nil)
	}

	return typed, nil
}

func translateResolveError(service string, err error) error {
	var circ *container.CircularError
	if errors.As(err, &circ) {
		return errCircularDependency(displayNames(circ.Path), err)
	}

	var nf *container.NotFoundError
	if errors.As(err, &nf) {
		return errServiceNotFound(reflect.DisplayName(nf.Key), err)
	}

	return errResolutionFailed(service, err)
}

func (e *Engine) Has(key string) bool {
	return e.internal.Has(key)
}

func Invoke[T any](e *Engine) (T, error) {
	return InvokeCtx[T](context.Background(), e)
}

func InvokeCtx[T any](ctx context.Context, e *Engine) (T, error) {
	return resolveKey[T](ctx, e, reflect.TypeKey[T]())
}

func InvokeNamed[T any](e *Engine, name string) (T, error) {
	return InvokeNamedCtx[T](context.Background(), e, name)
}

func InvokeNamedCtx[T any](ctx context.Context, e *Engine, name string) (T, error) {
	return resolveKey[T](ctx, e, reflect.TypeKeyNamed[T](name))
}

func MustInvoke[T any](e *Engine) T {
	v, err := Invoke[T](e)
	if err != nil {
		panic(err)
	}
	return v
}

func MustInvokeCtx[T any](ctx context.Context, e *Engine) T {
	v, err := InvokeCtx[T](ctx, e)
	if err != nil {
		panic(err)
	}
	return v
}

func TryInvoke[T any](e *Engine) (T, bool) {
	v, err := Invoke[T](e)
	return v, err == nil
}

func Has[T any](e *Engine) bool {
	return e.internal.Has(reflect.TypeKey[T]())
}

func HasNamed[T any](e *Engine, name string) bool {
	return e.internal.Has(reflect.TypeKeyNamed[T](name))
}

// Key returns the registry key of T, for use with WithDependencies.
func Key[T any]() string {
	return reflect.TypeKey[T]()
}

func KeyNamed[T any](name string) string {
	return reflect.TypeKeyNamed[T](name)
}
