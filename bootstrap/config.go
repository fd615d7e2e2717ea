package bootstrap

import (
	"fmt"
	"time"

	"github.com/kbukum/marathon/config"
	"github.com/kbukum/marathon/database"
	"github.com/kbukum/marathon/kafka"
	"github.com/kbukum/marathon/kafka/producer"
	"github.com/kbukum/marathon/observability"
	"github.com/kbukum/marathon/redis"
	"github.com/kbukum/marathon/server"
)

// DefaultConnectTimeout bounds each step of the connect sequence.
const DefaultConnectTimeout = "30s"

// Config is the full marathon configuration tree.
//
//	name: marathon
//	app:
//	  port: 3000
//	  connect_timeout: 30s
//	  services:
//	    redis: {url: redis://localhost:6379}
//	    postgresql: {url: postgres://localhost:5432/marathon}
//	    kafka:
//	      api:
//	        client: {url: localhost:9092}
//	        producer: {topic: marathon-notifications}
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	App           AppConfig            `yaml:"app" mapstructure:"app"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// AppConfig is the app section: listener settings plus backing services.
type AppConfig struct {
	server.Config `yaml:",inline" mapstructure:",squash"`

	// ConnectTimeout bounds each connect step. "0s" disables the bound.
	ConnectTimeout string         `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	Services       ServicesConfig `yaml:"services" mapstructure:"services"`
}

// ServicesConfig holds one section per backing service.
type ServicesConfig struct {
	Redis      redis.Config    `yaml:"redis" mapstructure:"redis"`
	PostgreSQL database.Config `yaml:"postgresql" mapstructure:"postgresql"`
	Kafka      KafkaConfig     `yaml:"kafka" mapstructure:"kafka"`
}

// KafkaConfig groups the queue settings under kafka.api.
type KafkaConfig struct {
	API struct {
		Client   kafka.Config    `yaml:"client" mapstructure:"client"`
		Producer producer.Config `yaml:"producer" mapstructure:"producer"`
	} `yaml:"api" mapstructure:"api"`
}

// ApplyDefaults fills unset fields in every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.App.Config.ApplyDefaults()
	if c.App.ConnectTimeout == "" {
		c.App.ConnectTimeout = DefaultConnectTimeout
	}
	c.App.Services.Redis.ApplyDefaults()
	c.App.Services.PostgreSQL.ApplyDefaults()
	c.App.Services.Kafka.API.Client.ApplyDefaults()
	c.App.Services.Kafka.API.Producer.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section and names the failing one.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.App.Config.Validate(); err != nil {
		return err
	}
	if d, err := time.ParseDuration(c.App.ConnectTimeout); err != nil || d < 0 {
		return fmt.Errorf("app.connect_timeout is invalid: %q", c.App.ConnectTimeout)
	}

	checks := []struct {
		path string
		fn   func() error
	}{
		{"app.services.redis", c.App.Services.Redis.Validate},
		{"app.services.postgresql", c.App.Services.PostgreSQL.Validate},
		{"app.services.kafka.api.client", c.App.Services.Kafka.API.Client.Validate},
		{"app.services.kafka.api.producer", c.App.Services.Kafka.API.Producer.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s: %w", check.path, err)
		}
	}
	return nil
}

// ConnectTimeout returns the parsed per-step connect bound.
func (c *Config) ConnectTimeout() time.Duration {
	d, _ := time.ParseDuration(c.App.ConnectTimeout)
	return d
}
