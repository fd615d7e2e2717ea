package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/database"
	"github.com/kbukum/marathon/handlers/healthcheck"
	"github.com/kbukum/marathon/kafka"
	"github.com/kbukum/marathon/kafka/producer"
	"github.com/kbukum/marathon/logger"
	"github.com/kbukum/marathon/observability"
	"github.com/kbukum/marathon/redis"
	"github.com/kbukum/marathon/server"
	"github.com/kbukum/marathon/server/router"
)

// Services holds the live handles once the connect sequence succeeded.
// Handles are nil for components replaced with WithComponents.
type Services struct {
	Redis    *redis.Client
	DB       *database.DB
	Kafka    *kafka.Client
	Producer *producer.Producer
}

// App is the marathon API process: it connects the backing services, binds
// handler routes and serves HTTP.
//
// Startup order is fixed. Components connect first; only when every one of
// them is up are routes bound and the listener opened.
type App struct {
	Name       string
	Version    string
	Cfg        *Config
	Logger     *logger.Logger
	Components *component.Registry
	Services   Services
	Server     *server.Server
	Summary    *Summary

	orchestrator    *Orchestrator
	handlers        []router.Handler
	methods         []router.Method
	routes          *router.RouteTable
	providers       *observability.Providers
	gracefulTimeout time.Duration

	redis    *redis.Component
	postgres *database.Component
	kafka    *kafka.Component
	producer *producer.Component

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	stopOnce sync.Once
	stopErr  error
}

// NewApp creates an application from cfg. It applies defaults, validates the
// config, initializes the logger and registers the connect sequence. Nothing
// is connected yet.
func NewApp(cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		methods:         o.methods,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		app.Logger = logger.Init(cfg.Logging)
	}

	app.Components = component.NewRegistry(
		component.WithStartTimeout(cfg.ConnectTimeout()),
		component.WithLogger(app.Logger.WithComponent("registry")),
	)
	app.orchestrator = NewOrchestrator(app.Components, app.Logger, o.failFast, o.exit)

	components := o.components
	if components == nil {
		components = app.defaultComponents()
	}
	for _, c := range components {
		if err := app.Components.Register(c); err != nil {
			return nil, err
		}
	}

	app.handlers = append([]router.Handler{
		healthcheck.New(cfg.Name, app.Components.HealthAll),
	}, o.handlers...)

	app.Summary = NewSummary(cfg.Name, cfg.Version, o.summaryOut)
	return app, nil
}

// defaultComponents builds the cache, relational store, queue client and
// queue producer components in connect order.
func (a *App) defaultComponents() []component.Component {
	services := a.Cfg.App.Services
	a.redis = redis.NewComponent(services.Redis, a.Logger)
	a.postgres = database.NewComponent(services.PostgreSQL, a.Logger)
	a.kafka = kafka.NewComponent(services.Kafka.API.Client, a.Logger)
	a.producer = producer.NewComponent(a.kafka, services.Kafka.API.Producer, a.Logger)
	return []component.Component{a.redis, a.postgres, a.kafka, a.producer}
}

// Routes returns the bound route table, or nil before Start succeeds.
func (a *App) Routes() *router.RouteTable { return a.routes }

// Run starts the application, blocks until SIGINT/SIGTERM or ctx is done,
// then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.Shutdown(context.Background())
}

// Start connects every component, binds the routes and opens the listener.
// Any failure goes through the orchestrator's failure policy.
func (a *App) Start(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})

	providers, err := observability.Init(ctx, a.Cfg.Observability, a.Name, a.Version, a.Cfg.Environment)
	if err != nil {
		return a.fail(ctx, fmt.Errorf("observability: %w", err))
	}
	a.providers = providers
	metrics, err := providers.Metrics(a.Name)
	if err != nil {
		return a.fail(ctx, fmt.Errorf("observability: %w", err))
	}

	a.Logger.Debug("Connecting services")
	if err := a.orchestrator.Initialize(ctx); err != nil {
		a.shutdownProviders(ctx)
		return err
	}
	a.collectServices()

	if err := runHooks(ctx, a.onStart); err != nil {
		return a.fail(ctx, fmt.Errorf("onStart hook failed: %w", err))
	}

	table, err := router.Bind(a.handlers, a.methods)
	if err != nil {
		return a.fail(ctx, err)
	}

	srv := server.New(a.Cfg.App.Config, a.Logger, server.WithMetrics(metrics))
	srv.Mount(table)
	if err := srv.Start(ctx); err != nil {
		return a.fail(ctx, err)
	}
	a.routes = table
	a.Server = srv

	if err := runHooks(ctx, a.onReady); err != nil {
		a.Logger.Warn("OnReady hook failed", logger.ErrorFields("on_ready", err))
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary(ctx)
	return nil
}

// fail applies the failure policy after the connect sequence succeeded.
func (a *App) fail(ctx context.Context, err error) error {
	err = a.orchestrator.Fail(ctx, err)
	a.shutdownProviders(ctx)
	return err
}

func (a *App) shutdownProviders(ctx context.Context) {
	if a.providers == nil {
		return
	}
	_ = a.providers.Shutdown(context.WithoutCancel(ctx))
	a.providers = nil
}

func (a *App) collectServices() {
	if a.redis != nil {
		a.Services.Redis = a.redis.Client()
	}
	if a.postgres != nil {
		a.Services.DB = a.postgres.DB()
	}
	if a.kafka != nil {
		a.Services.Kafka = a.kafka.Client()
	}
	if a.producer != nil {
		a.Services.Producer = a.producer.Producer()
	}
}

// DisplaySummary prints the startup summary with live component health.
func (a *App) DisplaySummary(ctx context.Context) {
	a.Summary.Collect(ctx, a.Components, a.Server, a.routes)
	a.Summary.Display(a.Logger)
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the server, then the components in reverse connect order,
// then flushes telemetry. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		a.stopErr = a.stop(ctx)
	})
	return a.stopErr
}

func (a *App) stop(ctx context.Context) error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.gracefulTimeout)
	defer cancel()

	var errs []error

	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.ErrorFields("on_stop", err))
		errs = append(errs, err)
	}

	if a.Server != nil {
		if err := a.Server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("stop", err))
		errs = append(errs, err)
	}

	if a.providers != nil {
		if err := a.providers.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.Logger.Info("Application shutdown complete")
	return errors.Join(errs...)
}
