// Package observability wires OpenTelemetry into marathon.
//
// Init starts OTLP/HTTP meter and tracer providers when enabled:
//
//	providers, err := observability.Init(ctx, cfg, "marathon", version.Version, "production")
//	defer providers.Shutdown(ctx)
//
//	metrics, err := providers.Metrics("marathon")
//	metrics.RecordHTTPRequest(ctx, "GET", "/healthcheck", 200, elapsed)
package observability
