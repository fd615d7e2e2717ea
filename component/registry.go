package component

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/marathon/logger"
)

const defaultStopTimeout = 10 * time.Second

// StartError reports the component whose Start aborted the sequence.
type StartError struct {
	Component string
	Err       error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Component, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

type componentEntry struct {
	component Component
	started   bool
}

// Registry manages component lifecycle with deterministic ordering.
// Components are started in registration order and stopped in reverse order.
type Registry struct {
	entries      []*componentEntry
	lookup       map[string]*componentEntry
	startTimeout time.Duration
	log          *logger.Logger
	mu           sync.RWMutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStartTimeout bounds each component's Start call. Zero means no bound.
func WithStartTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.startTimeout = d }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates a new component registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make([]*componentEntry, 0),
		lookup:  make(map[string]*componentEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.WithComponent("registry")
	}
	return r
}

// Register adds a component to the registry. Components are started in
// the order they are registered, so register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}

	entry := &componentEntry{component: c}
	r.entries = append(r.entries, entry)
	r.lookup[name] = entry

	r.log.Debug("Component registered", map[string]interface{}{"component": name})
	return nil
}

// StartAll starts components one at a time in registration order. The first
// failure stops the sequence; later components are never started. The
// returned error is a *StartError naming the failed component.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("Starting all components", map[string]interface{}{"count": len(r.entries)})

	for _, entry := range r.entries {
		if entry.started {
			continue
		}
		name := entry.component.Name()
		began := time.Now()

		r.log.Debug("Starting component", map[string]interface{}{"component": name})
		if err := r.start(ctx, entry.component); err != nil {
			r.log.Error("Component start failed", map[string]interface{}{
				"component":          name,
				"error":              err.Error(),
				logger.FieldDuration: time.Since(began).Milliseconds(),
			})
			return &StartError{Component: name, Err: err}
		}

		entry.started = true
		r.log.Info("Component started", map[string]interface{}{
			"component":          name,
			logger.FieldDuration: time.Since(began).Milliseconds(),
		})
	}

	r.log.Info("All components started successfully")
	return nil
}

func (r *Registry) start(ctx context.Context, c Component) error {
	if r.startTimeout <= 0 {
		return c.Start(ctx)
	}
	startCtx, cancel := context.WithTimeout(ctx, r.startTimeout)
	defer cancel()

	err := c.Start(startCtx)
	if err != nil && startCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fmt.Errorf("timed out after %s: %w", r.startTimeout, err)
	}
	return err
}

// StopAll stops started components in reverse registration order.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !entry.started {
			continue
		}

		name := entry.component.Name()
		stopCtx, cancel := context.WithTimeout(ctx, defaultStopTimeout)
		if err := entry.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("Component stop failed", map[string]interface{}{
				"component": name,
				"error":     err.Error(),
			})
		} else {
			r.log.Info("Component stopped", map[string]interface{}{"component": name})
		}
		entry.started = false
		cancel()
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// HealthAll returns health status for all registered components.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, entry := range r.entries {
		if !entry.started {
			results = append(results, Health{
				Name:    entry.component.Name(),
				Status:  StatusUnhealthy,
				Message: "not started",
			})
			continue
		}
		results = append(results, entry.component.Health(ctx))
	}
	return results
}

// Started reports whether the named component has been started.
func (r *Registry) Started(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.lookup[name]
	return ok && entry.started
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, exists := r.lookup[name]; exists {
		return entry.component
	}
	return nil
}

// All returns all registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry.component)
	}
	return result
}
