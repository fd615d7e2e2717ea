package kafka

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the queue client configuration read from
// app.services.kafka.api.client.
type Config struct {
	// URL is a comma-separated broker list, e.g. "kafka-1:9092,kafka-2:9092".
	URL string `mapstructure:"url"`

	// ClientID identifies this service to the brokers.
	ClientID string `mapstructure:"client_id"`

	// TLS
	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	TLSCertFile   string `mapstructure:"tls_cert_file"`
	TLSKeyFile    string `mapstructure:"tls_key_file"`

	// SASL
	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	// Connection settings
	DialTimeout string `mapstructure:"dial_timeout"`
	IdleTimeout string `mapstructure:"idle_timeout"`
	MetadataTTL string `mapstructure:"metadata_ttl"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "marathon"
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30s"
	}
	if c.MetadataTTL == "" {
		c.MetadataTTL = "6s"
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if len(c.Brokers()) == 0 {
		return fmt.Errorf("kafka url is required")
	}
	for _, d := range []struct {
		name, val string
	}{
		{"dial_timeout", c.DialTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"metadata_ttl", c.MetadataTTL},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("unsupported SASL mechanism: %s", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	return nil
}

// Brokers splits URL into broker addresses, dropping blanks and any
// kafka:// scheme prefix.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.URL, ",") {
		b = strings.TrimSpace(b)
		b = strings.TrimPrefix(b, "kafka://")
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ParseDuration parses a duration string, returning zero on empty input.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
