package container

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danpasecinic/opsdiag/internal/graph"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

type ResolveHook func(key string, duration time.Duration, err error)
type LifecycleHook func(key string, duration time.Duration, err error)

type Container struct {
	mu       sync.RWMutex
	registry *Registry
	graph    *graph.Graph
	logger   *slog.Logger
	state    State
	started  []startedService

	onResolve []ResolveHook
	onStart   []LifecycleHook
	onStop    []LifecycleHook
}

type Config struct {
	Logger    *slog.Logger
	OnResolve []ResolveHook
	OnStart   []LifecycleHook
	OnStop    []LifecycleHook
}

func New(cfg *Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Container{
		registry:  NewRegistry(),
		graph:     graph.New(),
		logger:    logger,
		onResolve: cfg.OnResolve,
		onStart:   cfg.OnStart,
		onStop:    cfg.OnStop,
	}
}

// Register adds entry and rejects it when its declared dependencies would
// close a cycle.
func (c *Container) Register(entry ServiceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.Key == "" {
		return fmt.Errorf("service key must not be empty")
	}

	deps := entry.Dependencies
	if entry.Implementation != "" {
		deps = append(append([]string(nil), deps...), entry.Implementation)
	}

	if err := c.registry.Register(entry); err != nil {
		return err
	}
	c.graph.AddNode(entry.Key, deps)

	if cycle := c.graph.CycleThrough(entry.Key); cycle != nil {
		c.registry.Remove(entry.Key)
		c.graph.RemoveNode(entry.Key)
		return &CircularError{Path: cycle}
	}

	c.logger.Debug("registered service", "service", entry.Key, "scope", entry.Scope.String())
	return nil
}

func (c *Container) Has(key string) bool {
	return c.registry.Has(key)
}

func (c *Container) Keys() []string {
	return c.registry.Keys()
}

func (c *Container) Size() int {
	return c.registry.Size()
}

// Entries returns every registration in registration order.
func (c *Container) Entries() []ServiceEntry {
	return c.registry.Entries()
}

func (c *Container) Entry(key string) (ServiceEntry, bool) {
	entry, ok := c.registry.Get(key)
	if !ok {
		return ServiceEntry{}, false
	}
	out := *entry
	out.Dependencies = append([]string(nil), entry.Dependencies...)
	out.singleton = nil
	return out, true
}

func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if missing := c.graph.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %v", missing)
	}
	if cycle := c.graph.FindCycle(); cycle != nil {
		return &CircularError{Path: cycle}
	}
	return nil
}

func (c *Container) Graph() *graph.Graph {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.graph.Clone()
}

func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Container) callResolveHooks(key string, duration time.Duration, err error) {
	for _, hook := range c.onResolve {
		hook(key, duration, err)
	}
}
