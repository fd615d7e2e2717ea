package redis

import (
	"fmt"
	"time"
)

// Config holds the cache connection configuration read from
// app.services.redis.
type Config struct {
	// URL is a redis:// or rediss:// URL, or a bare host:port.
	URL string `mapstructure:"url"`

	// DB selects the database. When unset the database in URL is used.
	DB *int `mapstructure:"db"`

	// ShouldReconnect lets the client retry failed commands on a fresh
	// connection. Defaults to true.
	ShouldReconnect *bool `mapstructure:"should_reconnect"`

	// Password is only applied when non-empty; an empty value keeps the
	// credential from URL, if any.
	Password string `mapstructure:"password"`

	PoolSize     int    `mapstructure:"pool_size"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ShouldReconnect == nil {
		reconnect := true
		c.ShouldReconnect = &reconnect
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("redis url is required")
	}
	if c.DB != nil && *c.DB < 0 {
		return fmt.Errorf("redis db must be >= 0 (got: %d)", *c.DB)
	}
	for name, value := range map[string]string{
		"dial_timeout":  c.DialTimeout,
		"read_timeout":  c.ReadTimeout,
		"write_timeout": c.WriteTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	return nil
}
