package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// CreateTransport builds the kafka-go Transport shared by writers created
// on top of the client.
func CreateTransport(cfg *Config) (*kafkago.Transport, error) {
	transport := &kafkago.Transport{
		ClientID:    cfg.ClientID,
		DialTimeout: ParseDuration(cfg.DialTimeout),
		IdleTimeout: ParseDuration(cfg.IdleTimeout),
		MetadataTTL: ParseDuration(cfg.MetadataTTL),
	}

	if cfg.EnableTLS {
		tc, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("TLS config: %w", err)
		}
		transport.TLS = tc
	}

	if cfg.EnableSASL {
		m, err := buildSASLMechanism(cfg)
		if err != nil {
			return nil, fmt.Errorf("SASL config: %w", err)
		}
		transport.SASL = m
	}

	return transport, nil
}

// CreateDialer builds the kafka-go Dialer used for metadata requests.
func CreateDialer(cfg *Config) (*kafkago.Dialer, error) {
	dialer := &kafkago.Dialer{
		ClientID:  cfg.ClientID,
		Timeout:   ParseDuration(cfg.DialTimeout),
		DualStack: true,
	}

	if cfg.EnableTLS {
		tc, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("TLS config: %w", err)
		}
		dialer.TLS = tc
	}

	if cfg.EnableSASL {
		m, err := buildSASLMechanism(cfg)
		if err != nil {
			return nil, fmt.Errorf("SASL config: %w", err)
		}
		dialer.SASLMechanism = m
	}

	return dialer, nil
}

func buildTLSConfig(cfg *Config) (*tls.Config, error) {
	tc := &tls.Config{
		InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec
		MinVersion:         tls.VersionTLS12,
	}

	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tc.RootCAs = pool
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	return tc, nil
}

func buildSASLMechanism(cfg *Config) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
}

// ResolveCompression maps a compression name to a kafka-go codec.
// Unknown names fall back to snappy.
func ResolveCompression(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	case "snappy":
		return kafkago.Snappy
	case "none":
		return 0
	default:
		return kafkago.Snappy
	}
}
