package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/danpasecinic/opsdiag/internal/graph"
)

var ErrAlreadyStarted = errors.New("container already started")

type startedService struct {
	key      string
	instance any
}

// HostedFunc is applied to each hosted instance during Start and Stop.
type HostedFunc func(ctx context.Context, key string, instance any) error

// HostedKeys returns the hosted registrations in dependency order.
func (c *Container) HostedKeys() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	order, err := c.graph.StartupOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to determine startup order: %w", err)
	}

	hosted := make(map[string]bool)
	for _, entry := range c.registry.Entries() {
		if entry.Hosted {
			hosted[entry.Key] = true
		}
	}
	return graph.Restrict(order, hosted), nil
}

// rollbackTimeout bounds stopping the already started services after a
// failed Start. The rollback ignores cancellation of the Start context.
const rollbackTimeout = 30 * time.Second

// Start resolves and starts every hosted service in dependency order. When
// one fails, the ones already started are stopped in reverse order.
func (c *Container) Start(ctx context.Context, start, stop HostedFunc) error {
	c.mu.Lock()
	if c.state != StateNew && c.state != StateStopped {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateStarting
	c.started = nil
	c.mu.Unlock()

	keys, err := c.HostedKeys()
	if err != nil {
		c.setState(StateStopped)
		return err
	}

	for _, key := range keys {
		if err := c.startService(ctx, key, start); err != nil {
			rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
			rollback := c.stopStarted(rollbackCtx, stop)
			cancel()
			c.setState(StateStopped)
			return multierr.Append(err, rollback)
		}
	}

	c.setState(StateRunning)
	return nil
}

func (c *Container) startService(ctx context.Context, key string, start HostedFunc) error {
	begin := time.Now()

	instance, err := c.Resolve(ctx, key)
	if err != nil {
		err = fmt.Errorf("failed to resolve %s during startup: %w", key, err)
		c.callLifecycleHooks(c.onStart, key, time.Since(begin), err)
		return err
	}

	c.logger.Debug("starting hosted service", "service", key)
	if err := start(ctx, key, instance); err != nil {
		err = fmt.Errorf("start failed for %s: %w", key, err)
		c.callLifecycleHooks(c.onStart, key, time.Since(begin), err)
		return err
	}

	c.mu.Lock()
	c.started = append(c.started, startedService{key: key, instance: instance})
	c.mu.Unlock()

	c.callLifecycleHooks(c.onStart, key, time.Since(begin), nil)
	return nil
}

// Stop stops the started hosted services in reverse start order and
// combines every failure.
func (c *Container) Stop(ctx context.Context, stop HostedFunc) error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopping
	c.mu.Unlock()

	err := c.stopStarted(ctx, stop)
	c.setState(StateStopped)
	return err
}

func (c *Container) stopStarted(ctx context.Context, stop HostedFunc) error {
	c.mu.Lock()
	started := c.started
	c.started = nil
	c.mu.Unlock()

	var errs error
	for i := len(started) - 1; i >= 0; i-- {
		key, instance := started[i].key, started[i].instance
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shutdown timeout exceeded: %w", err))
			break
		}

		begin := time.Now()
		c.logger.Debug("stopping hosted service", "service", key)
		err := stop(ctx, key, instance)
		if err != nil {
			err = fmt.Errorf("stop failed for %s: %w", key, err)
			errs = multierr.Append(errs, err)
		}
		c.callLifecycleHooks(c.onStop, key, time.Since(begin), err)
	}
	return errs
}

func (c *Container) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Container) callLifecycleHooks(hooks []LifecycleHook, key string, duration time.Duration, err error) {
	for _, hook := range hooks {
		hook(key, duration, err)
	}
}
