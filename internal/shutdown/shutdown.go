// Package shutdown provides a bounded background-task registry and a
// LIFO hook registry for coordinated daemon shutdown.
package shutdown

import (
	"context"
	"fmt"
	"sync"

	"github.com/shadehub/shadehub/internal/log"
)

// Hook performs cleanup during graceful shutdown.
type Hook func(ctx context.Context) error

// Coordinator tracks orchestrator-owned goroutines and shutdown hooks,
// so a SIGTERM drains in-flight work (a retry attempt, a scene step, a
// sweeper tick) instead of abandoning it mid-write.
type Coordinator struct {
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
	hooks   []namedHook
}

type namedHook struct {
	name string
	hook Hook
}

// New returns an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// Go runs fn in a goroutine tracked by the coordinator. It returns false
// without running fn if the coordinator is already closing.
func (c *Coordinator) Go(fn func()) bool {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return false
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}

// RegisterHook registers a shutdown hook. Hooks run in reverse
// registration order (LIFO) during Close.
func (c *Coordinator) RegisterHook(name string, hook Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, namedHook{name: name, hook: hook})
}

// Close marks the coordinator as closing, runs shutdown hooks in LIFO
// order, then waits for all tracked goroutines to finish or ctx to expire.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closing = true
	hooks := append([]namedHook(nil), c.hooks...)
	c.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.hook(ctx); err != nil {
			log.L().Warn().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown drain timeout: %w", ctx.Err())
	}
}
