package container

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/danpasecinic/opsdiag/internal/scope"
)

func (c *Container) Resolve(ctx context.Context, key string) (any, error) {
	start := time.Now()
	result, err := c.resolve(ctx, key)
	c.callResolveHooks(key, time.Since(start), err)
	return result, err
}

// Construct runs the provider of key without consulting or filling any
// instance cache. Dependencies it resolves still follow their lifetimes.
func (c *Container) Construct(ctx context.Context, key string) (any, error) {
	entry, ctx, err := c.enter(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry.HasInstance {
		return entry.Instance, nil
	}
	if entry.Implementation != "" {
		return c.resolveImplementation(ctx, entry)
	}
	return c.construct(ctx, entry)
}

func (c *Container) enter(ctx context.Context, key string) (*ServiceEntry, context.Context, error) {
	path := pathFrom(ctx)
	if slices.Contains(path, key) {
		cycle := append(slices.Clone(path), key)
		return nil, ctx, &CircularError{Path: cycle}
	}

	entry, exists := c.registry.Get(key)
	if !exists {
		return nil, ctx, &NotFoundError{Key: key}
	}
	return entry, withPath(ctx, path, key), nil
}

func (c *Container) resolve(ctx context.Context, key string) (any, error) {
	entry, ctx, err := c.enter(ctx, key)
	if err != nil {
		return nil, err
	}

	switch {
	case entry.HasInstance:
		return entry.Instance, nil
	case entry.Implementation != "":
		return c.resolveImplementation(ctx, entry)
	}

	switch entry.Scope {
	case scope.Transient:
		return c.construct(ctx, entry)
	case scope.Scoped:
		return c.resolveScoped(ctx, entry)
	default:
		return c.resolveSingleton(ctx, entry)
	}
}

func (c *Container) resolveImplementation(ctx context.Context, entry *ServiceEntry) (any, error) {
	instance, err := c.Resolve(ctx, entry.Implementation)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve implementation %s for %s: %w", entry.Implementation, entry.Key, err)
	}
	return instance, nil
}

func (c *Container) resolveSingleton(ctx context.Context, entry *ServiceEntry) (any, error) {
	s := entry.singleton
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return s.value, nil
	}

	instance, err := c.construct(ctx, entry)
	if err != nil {
		return nil, err
	}
	s.value, s.ready = instance, true
	return instance, nil
}

func (c *Container) resolveScoped(ctx context.Context, entry *ServiceEntry) (any, error) {
	rs := scopeFrom(ctx)
	if rs == nil {
		return nil, fmt.Errorf("%w for %s; use WithScope(ctx)", ErrNoScope, entry.Key)
	}

	if instance, ok := rs.Get(entry.Key); ok {
		return instance, nil
	}

	instance, err := c.construct(ctx, entry)
	if err != nil {
		return nil, err
	}
	return rs.SetIfAbsent(entry.Key, instance), nil
}

func (c *Container) construct(ctx context.Context, entry *ServiceEntry) (any, error) {
	for _, dep := range entry.Dependencies {
		if _, err := c.Resolve(ctx, dep); err != nil {
			return nil, fmt.Errorf("failed to resolve dependency %s for %s: %w", dep, entry.Key, err)
		}
	}

	if entry.Provider == nil {
		return nil, fmt.Errorf("no provider registered for %s", entry.Key)
	}

	instance, err := entry.Provider(ctx, &boundResolver{c: c, parent: ctx})
	if err != nil {
		return nil, fmt.Errorf("provider failed for %s: %w", entry.Key, err)
	}
	return instance, nil
}

// boundResolver carries the resolution path and scope of the provider
// invocation into nested resolutions even when the provider passes a
// different context.
type boundResolver struct {
	c      *Container
	parent context.Context
}

func (r *boundResolver) Resolve(ctx context.Context, key string) (any, error) {
	return r.c.Resolve(inherit(ctx, r.parent), key)
}

func (r *boundResolver) Has(key string) bool {
	return r.c.Has(key)
}

func inherit(ctx, parent context.Context) context.Context {
	if ctx == nil {
		return parent
	}
	if pathFrom(ctx) == nil {
		if p := pathFrom(parent); p != nil {
			ctx = context.WithValue(ctx, pathKey{}, p)
		}
	}
	if scopeFrom(ctx) == nil {
		if s := scopeFrom(parent); s != nil {
			ctx = context.WithValue(ctx, scopeKey{}, s)
		}
	}
	return ctx
}

type pathKey struct{}

func pathFrom(ctx context.Context) []string {
	if path, ok := ctx.Value(pathKey{}).([]string); ok {
		return path
	}
	return nil
}

func withPath(ctx context.Context, path []string, key string) context.Context {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return context.WithValue(ctx, pathKey{}, append(next, key))
}

type scopeKey struct{}

// ResolutionScope holds the scoped instances created for one unit of work.
type ResolutionScope struct {
	mu        sync.RWMutex
	instances map[string]any
}

func NewResolutionScope() *ResolutionScope {
	return &ResolutionScope{
		instances: make(map[string]any),
	}
}

func (rs *ResolutionScope) Get(key string) (any, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	instance, ok := rs.instances[key]
	return instance, ok
}

// SetIfAbsent stores instance unless another one won the race, and returns
// the stored value.
func (rs *ResolutionScope) SetIfAbsent(key string, instance any) any {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if existing, ok := rs.instances[key]; ok {
		return existing
	}
	rs.instances[key] = instance
	return instance
}

func (rs *ResolutionScope) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.instances)
}

func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, NewResolutionScope())
}

func HasScope(ctx context.Context) bool {
	return scopeFrom(ctx) != nil
}

func scopeFrom(ctx context.Context) *ResolutionScope {
	if rs, ok := ctx.Value(scopeKey{}).(*ResolutionScope); ok {
		return rs
	}
	return nil
}
