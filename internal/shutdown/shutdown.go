// Package shutdown stops a benchmark run cleanly: an interrupt cancels the
// run's context so the current trial finishes and cleans up, and the
// registered components are closed in priority order afterwards.
package shutdown

import (
	"cmp"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// PriorityCache is the close priority of the dataset cache. Lower closes
// first.
const PriorityCache = 10

// Coordinator owns the interrupt handling and the close order.
type Coordinator struct {
	logger zerolog.Logger

	mu         sync.Mutex
	components []namedComponent

	once sync.Once
	err  error
}

type namedComponent struct {
	name      string
	component io.Closer
	priority  int
}

// New creates a coordinator.
func New(logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		logger: logger.With().Str("component", "shutdown").Logger(),
	}
}

// Register adds a component to close on Shutdown.
func (c *Coordinator) Register(name string, component io.Closer, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.components = append(c.components, namedComponent{
		name:      name,
		component: component,
		priority:  priority,
	})

	c.logger.Debug().
		Str("name", name).
		Int("priority", priority).
		Msg("Registered component for shutdown")
}

// Context returns a child of parent that is cancelled on SIGINT or SIGTERM.
// The returned stop function releases the signal handler.
func (c *Coordinator) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigs:
			c.logger.Warn().
				Str("signal", sig.String()).
				Msg("Interrupted, stopping after the current trial")
			cancel()
		case <-done:
		}
	}()

	var stopOnce sync.Once
	return ctx, func() {
		stopOnce.Do(func() {
			signal.Stop(sigs)
			close(done)
			cancel()
		})
	}
}

// Shutdown closes every registered component, lowest priority first. A
// failing component doesn't stop the rest; the failures are joined. Only
// the first call does any work.
func (c *Coordinator) Shutdown() error {
	c.once.Do(func() {
		c.mu.Lock()
		components := slices.Clone(c.components)
		c.mu.Unlock()

		slices.SortStableFunc(components, func(a, b namedComponent) int {
			return cmp.Compare(a.priority, b.priority)
		})

		var errs []error
		for _, comp := range components {
			if err := comp.component.Close(); err != nil {
				c.logger.Error().
					Err(err).
					Str("name", comp.name).
					Msg("Component close failed")
				errs = append(errs, err)
				continue
			}
			c.logger.Debug().Str("name", comp.name).Msg("Component closed")
		}
		c.err = errors.Join(errs...)
	})
	return c.err
}
