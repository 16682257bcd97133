package container

import (
	"context"
	"sync"

	"github.com/danpasecinic/opsdiag/internal/scope"
)

type ProviderFunc func(ctx context.Context, r Resolver) (any, error)

type Resolver interface {
	Resolve(ctx context.Context, key string) (any, error)
	Has(key string) bool
}

// ServiceEntry describes one registration. At most one of Provider,
// Instance (with HasInstance) and Implementation is set.
type ServiceEntry struct {
	Key            string
	Provider       ProviderFunc
	Instance       any
	HasInstance    bool
	Implementation string
	Scope          scope.Scope
	Dependencies   []string
	Hosted         bool

	singleton *singletonState
}

type singletonState struct {
	mu    sync.Mutex
	value any
	ready bool
}

func (s *singletonState) get() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.ready
}

type Registry struct {
	mu       sync.RWMutex
	services map[string]*ServiceEntry
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]*ServiceEntry),
	}
}

func (r *Registry) Register(entry ServiceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[entry.Key]; exists {
		return &DuplicateError{Key: entry.Key}
	}

	deps := make([]string, len(entry.Dependencies))
	copy(deps, entry.Dependencies)
	entry.Dependencies = deps
	entry.singleton = &singletonState{}

	r.services[entry.Key] = &entry
	r.order = append(r.order, entry.Key)
	return nil
}

func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.services[key]
	return exists
}

func (r *Registry) Get(key string) (*ServiceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.services[key]
	return entry, exists
}

// Entries returns copies of every registration in registration order.
func (r *Registry) Entries() []ServiceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]ServiceEntry, 0, len(r.order))
	for _, key := range r.order {
		e := *r.services[key]
		e.Dependencies = append([]string(nil), e.Dependencies...)
		e.singleton = nil
		entries = append(entries, e)
	}
	return entries
}

func (r *Registry) GetInstance(key string) (any, bool) {
	r.mu.RLock()
	entry, exists := r.services[key]
	r.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if entry.HasInstance {
		return entry.Instance, true
	}
	return entry.singleton.get()
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[key]; !exists {
		return
	}
	delete(r.services, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
