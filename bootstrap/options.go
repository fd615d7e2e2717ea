package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/logger"
	"github.com/kbukum/marathon/server/router"
)

// Option configures the App during creation.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	failFast        bool
	exit            ExitFunc
	handlers        []router.Handler
	components      []component.Component
	methods         []router.Method
	summaryOut      io.Writer
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithFailFast makes unrecoverable startup errors terminate the process.
func WithFailFast(failFast bool) Option {
	return func(o *appOptions) {
		o.failFast = failFast
	}
}

// WithExit replaces os.Exit for the fail-fast policy.
func WithExit(exit ExitFunc) Option {
	return func(o *appOptions) {
		o.exit = exit
	}
}

// WithHandlers adds route handlers. They are bound after the healthcheck,
// in the given order.
func WithHandlers(handlers ...router.Handler) Option {
	return func(o *appOptions) {
		o.handlers = append(o.handlers, handlers...)
	}
}

// WithComponents replaces the default connect sequence (cache, relational
// store, queue client, queue producer) with components, started in order.
func WithComponents(components ...component.Component) Option {
	return func(o *appOptions) {
		o.components = append(o.components, components...)
	}
}

// WithAllowedMethods restricts the operations the router binds.
func WithAllowedMethods(methods ...router.Method) Option {
	return func(o *appOptions) {
		o.methods = methods
	}
}

// WithSummaryWriter sets where the startup summary is printed. Defaults to stdout.
func WithSummaryWriter(w io.Writer) Option {
	return func(o *appOptions) {
		o.summaryOut = w
	}
}
