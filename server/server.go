package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/logger"
	"github.com/kbukum/marathon/observability"
	"github.com/kbukum/marathon/server/middleware"
	"github.com/kbukum/marathon/server/router"
)

// Server is the HTTP server: a Gin engine mounted on a ServeMux, wrapped by
// the net/http middleware chain and served over HTTP/1.1 and h2c.
//
// The chain, outermost first, is ResponseTime, Recovery, RequestID and
// RequestLogger. Routes come from a router.RouteTable via Mount.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	config     Config
	log        *logger.Logger
	metrics    *observability.Metrics

	mu       sync.Mutex
	listener net.Listener
	served   chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request and error metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a new Server. No listener is opened until Start.
func New(cfg Config, log *logger.Logger, opts ...Option) *Server {
	// Gin mode follows the global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine: gin.New(),
		mux:    http.NewServeMux(),
		config: cfg,
		log:    log.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(otelgin.Middleware(log.Service()))
	s.mux.Handle("/", s.engine)

	var rec middleware.RequestRecorder
	if s.metrics != nil {
		rec = s.metrics
	}
	chain := middleware.Chain(
		middleware.ResponseTime(rec),
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
	)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h2c.NewHandler(chain(s.mux), h2s),
		ReadTimeout:  cfg.duration(cfg.ReadTimeout),
		WriteTimeout: cfg.duration(cfg.WriteTimeout),
		IdleTimeout:  cfg.duration(cfg.IdleTimeout),
	}
	return s
}

// Engine returns the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Mount registers every binding of table on the engine. Operation errors are
// rendered as AppError JSON, logged and counted.
func (s *Server) Mount(table *router.RouteTable) {
	table.Register(s.engine, s.handleError)
	s.log.Debug("Routes mounted", map[string]interface{}{"count": table.Len()})
}

func (s *Server) handleError(c *gin.Context, b router.Binding, err error) {
	ctx := c.Request.Context()
	appErr := RespondWithError(c, err)
	requestID := logger.RequestIDFromContext(ctx)

	observability.SpanFromContext(ctx).SetAttributes(
		attribute.String(observability.AttrRoute, b.Route),
		attribute.String(observability.AttrRequestID, requestID),
		attribute.String("error.code", string(appErr.Code)),
	)
	observability.SetSpanError(ctx, err)

	fields := map[string]interface{}{
		logger.FieldMethod:    b.Method.HTTP(),
		logger.FieldRoute:     b.Route,
		"handler":             b.Handler,
		"code":                string(appErr.Code),
		logger.FieldStatus:    appErr.HTTPStatus,
		logger.FieldError:     err.Error(),
		logger.FieldRequestID: requestID,
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		s.log.Error("Request failed", fields)
	} else {
		s.log.Warn("Request failed", fields)
	}

	if s.metrics != nil {
		s.metrics.RecordError(ctx, string(appErr.Code), b.Handler)
	}
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("server already listening on %s", s.listener.Addr())
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener
	s.served = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.ErrorFields("serve", err))
		}
	}(s.served)

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Stop gracefully shuts down the server, bounded by the shutdown timeout.
// Stopping a server that never started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.duration(s.config.ShutdownTimeout))
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.ErrorFields("shutdown", err))
		return fmt.Errorf("server shutdown error: %w", err)
	}
	<-s.served
	s.listener = nil

	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Running reports whether a listener is open.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Addr returns the bound address while running, the configured one otherwise.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Describe returns the server line for the startup summary.
func (s *Server) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: s.Addr(),
	}
}
