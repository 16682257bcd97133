package opsdiag

import (
	"context"
	"sync"

	"github.com/danpasecinic/opsdiag/config"
	"github.com/danpasecinic/opsdiag/internal/container"
	"github.com/danpasecinic/opsdiag/internal/reflect"
	"github.com/danpasecinic/opsdiag/internal/scope"
)

// Options holds a payload bound once for the life of the engine.
type Options[T any] struct {
	value T
}

func (o Options[T]) Value() T {
	return o.value
}

// Snapshot holds a payload bound once per resolution scope.
type Snapshot[T any] struct {
	value T
}

func (s Snapshot[T]) Value() T {
	return s.value
}

// Monitor re-binds its payload whenever the backing store changes. A
// failed re-bind keeps the last good value.
type Monitor[T any] struct {
	mu       sync.Mutex
	store    *config.Store
	section  string
	value    T
	revision uint64
	err      error
	engine   *Engine
}

func (m *Monitor[T]) Value() T {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rev := m.store.Revision(); rev != m.revision {
		m.refreshLocked(rev)
	}
	return m.value
}

// Err returns the error of the latest bind attempt.
func (m *Monitor[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Monitor[T]) refreshLocked(rev uint64) {
	value, err := config.BindNew[T](m.store, m.section)
	m.revision = rev
	m.err = err
	if err != nil {
		m.engine.config.logger.Warn("options reload failed", "section", m.section, "error", err)
		return
	}
	m.value = value
}

// Configure binds T from section of the engine's store and registers
// Options[T], Snapshot[T] and *Monitor[T] along with their option shapes.
// Binding happens on resolution, so a bad section surfaces in the options
// report rather than here.
func Configure[T any](e *Engine, section string) error {
	store := e.config.store
	name := reflect.TypeName[T]()

	bind := func(ctx context.Context) (T, error) {
		value, err := config.BindNew[T](store, section)
		if err != nil {
			return value, errBindingFailed(name, err)
		}
		return value, nil
	}

	entries := []container.ServiceEntry{
		{
			Key:   reflect.TypeKey[Options[T]](),
			Scope: scope.Singleton,
			Provider: func(ctx context.Context, _ container.Resolver) (any, error) {
				value, err := bind(ctx)
				if err != nil {
					return nil, err
				}
				return Options[T]{value: value}, nil
			},
		},
		{
			Key:   reflect.TypeKey[Snapshot[T]](),
			Scope: scope.Scoped,
			Provider: func(ctx context.Context, _ container.Resolver) (any, error) {
				value, err := bind(ctx)
				if err != nil {
					return nil, err
				}
				return Snapshot[T]{value: value}, nil
			},
		},
		{
			Key:   reflect.TypeKey[*Monitor[T]](),
			Scope: scope.Singleton,
			Provider: func(ctx context.Context, _ container.Resolver) (any, error) {
				rev := store.Revision()
				value, err := bind(ctx)
				if err != nil {
					return nil, err
				}
				return &Monitor[T]{store: store, section: section, value: value, revision: rev, engine: e}, nil
			},
		},
	}

	for _, entry := range entries {
		if err := e.register(entry); err != nil {
			return err
		}
	}

	shapeBind := func(ctx context.Context) (any, error) {
		return bind(ctx)
	}
	payload := reflect.TypeOf[T]()
	for _, family := range []string{
		reflect.TypeName[Options[T]](),
		reflect.TypeName[Snapshot[T]](),
		reflect.TypeName[*Monitor[T]](),
	} {
		e.RegisterShape(Shape{Family: family, Name: name, Payload: payload, Bind: shapeBind})
	}

	if isFeature[T]() {
		e.addFeature(featureDecl{name: name, key: reflect.TypeKey[T](), bind: shapeBind})
	}
	return nil
}
