package observability

import (
	"fmt"
	"time"
)

// Config enables OTLP export of traces and metrics. When disabled the
// global no-op providers stay in place.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `mapstructure:"endpoint"`

	// Insecure allows plain HTTP to the collector.
	Insecure bool `mapstructure:"insecure"`

	// Interval is the metric export interval (e.g. "15s").
	Interval string `mapstructure:"interval"`

	// SampleRate is the trace sampling ratio, 0.0 to 1.0.
	SampleRate *float64 `mapstructure:"sample_rate"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval == "" {
		c.Interval = "15s"
	}
	if c.SampleRate == nil {
		rate := 1.0
		c.SampleRate = &rate
	}
}

// Validate checks that values are parseable and in range.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid observability interval %q: %w", c.Interval, err)
	}
	if c.SampleRate != nil && (*c.SampleRate < 0 || *c.SampleRate > 1) {
		return fmt.Errorf("observability sample_rate must be within [0, 1] (got: %v)", *c.SampleRate)
	}
	return nil
}

// MeterConfig builds the meter settings for a service.
func (c *Config) MeterConfig(serviceName, version, environment string) MeterConfig {
	interval, _ := time.ParseDuration(c.Interval)
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		Interval:       interval,
	}
}

// TracerConfig builds the tracer settings for a service.
func (c *Config) TracerConfig(serviceName, version, environment string) TracerConfig {
	rate := 1.0
	if c.SampleRate != nil {
		rate = *c.SampleRate
	}
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		SampleRate:     rate,
	}
}
