package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"

	"github.com/kbukum/marathon/logger"
)

// Providers owns the SDK providers started by Init.
type Providers struct {
	shutdown []func(context.Context) error
}

// Init starts the OTLP meter and tracer providers when cfg is enabled and
// installs them globally. When disabled it returns empty Providers and the
// global no-op providers stay in place.
func Init(ctx context.Context, cfg Config, serviceName, version, environment string) (*Providers, error) {
	p := &Providers{}
	if !cfg.Enabled {
		return p, nil
	}

	meterCfg := cfg.MeterConfig(serviceName, version, environment)
	mp, err := InitMeter(ctx, &meterCfg)
	if err != nil {
		return nil, err
	}
	p.shutdown = append(p.shutdown, mp.Shutdown)

	tracerCfg := cfg.TracerConfig(serviceName, version, environment)
	tp, err := InitTracer(ctx, &tracerCfg)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	p.shutdown = append(p.shutdown, tp.Shutdown)

	return p, nil
}

// Metrics creates the service instruments on the global meter provider.
func (p *Providers) Metrics(serviceName string) (*Metrics, error) {
	return NewMetrics(otel.Meter(defaultTracerName), serviceName)
}

// Shutdown flushes and stops every provider started by Init.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		if err := p.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdown = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn("Telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		return err
	}
	return nil
}
