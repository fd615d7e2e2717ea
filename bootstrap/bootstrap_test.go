package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/config"
	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/kafka"
	"github.com/kbukum/marathon/kafka/producer"
	"github.com/kbukum/marathon/logger"
	"github.com/kbukum/marathon/server/router"
	"github.com/kbukum/marathon/testutil"
)

var connectOrder = []string{"redis", "postgresql", "kafka-client", "kafka-producer"}

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		ServiceConfig: config.ServiceConfig{
			Name:        "marathon",
			Version:     "1.0.0",
			Environment: "test",
		},
	}
	cfg.App.Host = "127.0.0.1"
	cfg.App.Port = testutil.FreePort(t)
	cfg.App.Services.Redis.URL = "redis://" + testutil.ClosedAddr(t)
	cfg.App.Services.PostgreSQL.URL = "postgres://marathon@" + testutil.ClosedAddr(t) + "/marathon"
	cfg.App.Services.Kafka.API.Client.URL = testutil.ClosedAddr(t)
	cfg.App.Services.Kafka.API.Client.DialTimeout = "1s"
	return cfg
}

func stubs(rec *testutil.Recorder) []*testutil.StubComponent {
	out := make([]*testutil.StubComponent, len(connectOrder))
	for i, name := range connectOrder {
		out[i] = testutil.NewStub(name, rec)
	}
	return out
}

func asComponents(in []*testutil.StubComponent) []component.Component {
	out := make([]component.Component, len(in))
	for i, c := range in {
		out[i] = c
	}
	return out
}

func newTestApp(t *testing.T, cfg *Config, opts ...Option) *App {
	t.Helper()
	base := []Option{
		WithLogger(logger.NewNop()),
		WithSummaryWriter(&bytes.Buffer{}),
		WithGracefulTimeout(5 * time.Second),
	}
	app, err := NewApp(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app
}

func equalEvents(t *testing.T, got, want []string) {
	t.Helper()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

type routeHandler struct {
	name, route string
	get         router.HandlerFunc
	post        router.HandlerFunc
}

func (h routeHandler) Descriptor() router.Descriptor {
	return router.Descriptor{Name: h.name, Route: h.route, Get: h.get, Post: h.post}
}

func noop(*gin.Context) error { return nil }

func TestConfigDefaults(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.ConnectTimeout() != 30*time.Second {
		t.Errorf("connect timeout = %s, want 30s", cfg.ConnectTimeout())
	}

	cfg.App.ConnectTimeout = "0s"
	if cfg.ConnectTimeout() != 0 {
		t.Errorf("0s must disable the bound, got %s", cfg.ConnectTimeout())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing redis url", func(c *Config) { c.App.Services.Redis.URL = "" }, "app.services.redis"},
		{"bad postgres url", func(c *Config) { c.App.Services.PostgreSQL.URL = "::nope" }, "app.services.postgresql"},
		{"missing kafka url", func(c *Config) { c.App.Services.Kafka.API.Client.URL = "" }, "app.services.kafka.api.client"},
		{"bad acks", func(c *Config) { c.App.Services.Kafka.API.Producer.RequiredAcks = 5 }, "app.services.kafka.api.producer"},
		{"bad connect timeout", func(c *Config) { c.App.ConnectTimeout = "eventually" }, "app.connect_timeout"},
		{"negative connect timeout", func(c *Config) { c.App.ConnectTimeout = "-1s" }, "app.connect_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}

func TestStartConnectsInOrderThenServes(t *testing.T) {
	rec := &testutil.Recorder{}
	app := newTestApp(t, newTestConfig(t), WithComponents(asComponents(stubs(rec))...))

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	equalEvents(t, rec.Events(), []string{"start:redis", "start:postgresql", "start:kafka-client", "start:kafka-producer"})

	if app.Server == nil || !app.Server.Running() {
		t.Fatal("expected the listener to be open")
	}
	if app.Routes().Len() != 1 {
		t.Fatalf("expected only the healthcheck route, got %v", app.Routes().Routes())
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/healthcheck", app.Server.Addr()))
	if err != nil {
		t.Fatalf("GET /healthcheck: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if v := resp.Header.Get("X-Response-Time"); !regexp.MustCompile(`^\d+ms$`).MatchString(v) {
		t.Fatalf("X-Response-Time = %q", v)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if app.Server.Running() {
		t.Fatal("listener still open after Shutdown")
	}
	equalEvents(t, rec.Events()[4:], []string{"stop:kafka-producer", "stop:kafka-client", "stop:postgresql", "stop:redis"})
}

func TestConnectFailureAbortsStartup(t *testing.T) {
	for failAt, name := range connectOrder {
		t.Run(name, func(t *testing.T) {
			rec := &testutil.Recorder{}
			components := stubs(rec)
			components[failAt].StartErr = errors.New("connection refused")

			exited := false
			app := newTestApp(t, newTestConfig(t),
				WithComponents(asComponents(components)...),
				WithExit(func(int) { exited = true }),
			)

			err := app.Start(context.Background())
			if !apperrors.IsCode(err, apperrors.ErrCodeConnectionFailed) {
				t.Fatalf("expected CONNECTION_FAILED, got %v", err)
			}
			appErr, _ := apperrors.AsAppError(err)
			if appErr.Details["service"] != name {
				t.Fatalf("failed component = %v, want %s", appErr.Details["service"], name)
			}
			if !strings.Contains(errors.Unwrap(err).Error(), "connection refused") {
				t.Fatalf("cause lost: %v", err)
			}
			if exited {
				t.Fatal("exit must not be called without fail-fast")
			}

			if app.Server != nil || app.Routes() != nil {
				t.Fatal("no route may be bound and no listener opened after a connect failure")
			}

			var want []string
			for i := 0; i <= failAt; i++ {
				want = append(want, "start:"+connectOrder[i])
			}
			for i := failAt - 1; i >= 0; i-- {
				want = append(want, "stop:"+connectOrder[i])
			}
			equalEvents(t, rec.Events(), want)
		})
	}
}

func TestFailFastExitsWithStatusOne(t *testing.T) {
	rec := &testutil.Recorder{}
	components := stubs(rec)
	components[1].StartErr = errors.New("password authentication failed")

	var logs bytes.Buffer
	code := -1
	app := newTestApp(t, newTestConfig(t),
		WithComponents(asComponents(components)...),
		WithFailFast(true),
		WithExit(func(c int) { code = c }),
		WithLogger(logger.NewWithWriter(&logs, &logger.Config{Level: "info", Format: "json"}, "marathon")),
	)

	if err := app.Start(context.Background()); err == nil {
		t.Fatal("expected an error once exit returns")
	}
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if app.Server != nil {
		t.Fatal("listener must not open")
	}
	equalEvents(t, rec.Events(), []string{"start:redis", "start:postgresql"})

	var fatal map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		if entry["message"] == "Application initialization failed" {
			fatal = entry
		}
	}
	if fatal == nil {
		t.Fatalf("initialization failure not logged:\n%s", logs.String())
	}
	details, _ := fatal["details"].(map[string]interface{})
	if fatal["level"] != "fatal" || fatal["code"] != string(apperrors.ErrCodeConnectionFailed) || details["service"] != "postgresql" {
		t.Fatalf("unexpected failure entry %v", fatal)
	}
}

func TestInitializeRecordsConnectSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	rec := &testutil.Recorder{}
	failing := testutil.NewStub("redis", rec)
	failing.StartErr = errors.New("dial tcp: connection refused")
	registry := component.NewRegistry(component.WithLogger(logger.NewNop()))
	if err := registry.Register(failing); err != nil {
		t.Fatalf("Register: %v", err)
	}

	orch := NewOrchestrator(registry, logger.NewNop(), false, nil)
	if err := orch.Initialize(context.Background()); !apperrors.IsCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("expected CONNECTION_FAILED, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "bootstrap.connect" {
		t.Fatalf("spans = %v", spans)
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("span status = %v, want Error", spans[0].Status.Code)
	}
}

func TestProducerStartsOnlyAfterClient(t *testing.T) {
	rec := &testutil.Recorder{}
	components := stubs(rec)
	components[3].OnStart = func(context.Context) error {
		events := rec.Events()
		if len(events) < 2 || events[len(events)-2] != "start:kafka-client" {
			return fmt.Errorf("producer started before the client: %v", events)
		}
		return nil
	}

	app := newTestApp(t, newTestConfig(t), WithComponents(asComponents(components)...))
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestProducerNotAttemptedWhenClientFails(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ApplyDefaults()

	rec := &testutil.Recorder{}
	client := kafka.NewComponent(cfg.App.Services.Kafka.API.Client, logger.NewNop())
	prod := producer.NewComponent(client, cfg.App.Services.Kafka.API.Producer, logger.NewNop())

	app := newTestApp(t, cfg, WithComponents(
		testutil.NewStub("redis", rec),
		testutil.NewStub("postgresql", rec),
		client,
		prod,
	))

	err := app.Start(context.Background())
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Details["service"] != kafka.ComponentName {
		t.Fatalf("expected kafka-client connect failure, got %v", err)
	}
	if app.Components.Started(producer.ComponentName) || prod.Producer() != nil {
		t.Fatal("producer must not connect after the client failed")
	}
}

func TestConnectTimeout(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.App.ConnectTimeout = "50ms"

	rec := &testutil.Recorder{}
	components := stubs(rec)
	components[0].OnStart = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	app := newTestApp(t, cfg, WithComponents(asComponents(components)...))

	began := time.Now()
	err := app.Start(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("expected CONNECTION_FAILED, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in the chain, got %v", err)
	}
	if time.Since(began) > 5*time.Second {
		t.Fatal("connect step was not bounded")
	}
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  router.Handler
		failFast bool
		code     apperrors.ErrorCode
	}{
		{
			name:     "healthcheck conflict with fail-fast",
			handler:  routeHandler{name: "shadow", route: "/healthcheck", get: noop},
			failFast: true,
			code:     apperrors.ErrCodeRouteConflict,
		},
		{
			name:    "unreachable route",
			handler: routeHandler{name: "silent", route: "/templates"},
			code:    apperrors.ErrCodeUnreachableRoute,
		},
		{
			name:    "empty route",
			handler: routeHandler{name: "anonymous", get: noop},
			code:    apperrors.ErrCodeInvalidRoute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &testutil.Recorder{}
			code := -1
			app := newTestApp(t, newTestConfig(t),
				WithComponents(asComponents(stubs(rec))...),
				WithHandlers(tt.handler),
				WithFailFast(tt.failFast),
				WithExit(func(c int) { code = c }),
			)

			err := app.Start(context.Background())
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if app.Server != nil {
				t.Fatal("listener must not open on a bind error")
			}

			stopped := 0
			for _, e := range rec.Events() {
				if strings.HasPrefix(e, "stop:") {
					stopped++
				}
			}
			if tt.failFast {
				if code != 1 {
					t.Fatalf("exit code = %d, want 1", code)
				}
				return
			}
			if code != -1 {
				t.Fatal("exit must not be called without fail-fast")
			}
			if stopped != len(connectOrder) {
				t.Fatalf("expected every component stopped, got %v", rec.Events())
			}
		})
	}
}

func TestAllowedMethodsRestrictBinding(t *testing.T) {
	rec := &testutil.Recorder{}
	app := newTestApp(t, newTestConfig(t),
		WithComponents(asComponents(stubs(rec))...),
		WithHandlers(routeHandler{name: "templates", route: "/templates", get: noop, post: noop}),
		WithAllowedMethods(router.Get),
	)
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, ok := app.Routes().Lookup(router.Post, "/templates"); ok {
		t.Fatal("POST must not be bound when only get is allowed")
	}
	if app.Routes().Len() != 2 {
		t.Fatalf("routes = %v", app.Routes().Routes())
	}
}

func TestOnStartHookFailureAbortsBeforeBinding(t *testing.T) {
	rec := &testutil.Recorder{}
	app := newTestApp(t, newTestConfig(t), WithComponents(asComponents(stubs(rec))...))
	app.OnStart(func(context.Context) error { return errors.New("warmup failed") })

	if err := app.Start(context.Background()); err == nil {
		t.Fatal("expected hook failure")
	}
	if app.Routes() != nil || app.Server != nil {
		t.Fatal("routes must not be bound after a failed hook")
	}
}

func TestHealthcheckReflectsComponents(t *testing.T) {
	rec := &testutil.Recorder{}
	components := stubs(rec)
	components[2].Status = component.StatusUnhealthy
	app := newTestApp(t, newTestConfig(t), WithComponents(asComponents(components)...))
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/healthcheck", app.Server.Addr()))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
}

func TestSummary(t *testing.T) {
	rec := &testutil.Recorder{}
	var out bytes.Buffer
	app := newTestApp(t, newTestConfig(t),
		WithComponents(asComponents(stubs(rec))...),
		WithSummaryWriter(&out),
	)
	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := len(app.Summary.Infrastructure()); got != len(connectOrder)+1 {
		t.Fatalf("expected components plus server, got %d", got)
	}
	routes := app.Summary.Routes()
	if len(routes) != 1 || routes[0].Method != "GET" || routes[0].Path != "/healthcheck" {
		t.Fatalf("routes = %+v", routes)
	}

	text := out.String()
	for _, want := range []string{"marathon v1.0.0", "All components healthy (5/5)", "/healthcheck", "Listening on " + app.Server.Addr()} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}
