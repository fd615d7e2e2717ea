package producer

import (
	"fmt"
	"time"
)

// Config holds the queue producer configuration read from
// app.services.kafka.api.producer.
type Config struct {
	// Topic is the default topic for messages that do not name one. When
	// set, Connect verifies that it exists.
	Topic string `mapstructure:"topic"`

	Compression  string `mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout string `mapstructure:"batch_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`

	// RequiredAcks is -1 (all replicas) or 1 (leader only).
	RequiredAcks int `mapstructure:"required_acks"`

	// MaxAttempts bounds the writer's own delivery attempts per batch.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "1s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
}

// Validate checks that values are parseable and in range.
func (c *Config) Validate() error {
	switch c.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("unsupported compression: %s", c.Compression)
	}
	for _, d := range []struct {
		name, val string
	}{
		{"batch_timeout", c.BatchTimeout},
		{"write_timeout", c.WriteTimeout},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	if c.RequiredAcks != -1 && c.RequiredAcks != 1 {
		return fmt.Errorf("required_acks must be -1 or 1 (got: %d)", c.RequiredAcks)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0")
	}
	return nil
}
