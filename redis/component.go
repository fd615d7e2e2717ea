package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/logger"
)

// ComponentName is the registry name of the cache connector.
const ComponentName = "redis"

// Component connects the cache on Start and exposes the live Client.
type Component struct {
	client *Client
	cfg    Config
	log    *logger.Logger
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the cache component for the registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{
		cfg: cfg,
		log: log.WithComponent(ComponentName),
	}
}

// Client returns the connected client, or nil before Start succeeds.
func (c *Component) Client() *Client {
	return c.client
}

func (c *Component) Name() string { return ComponentName }

// Start connects and pings the cache.
func (c *Component) Start(ctx context.Context) error {
	client, err := Connect(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	c.client = client
	return nil
}

// Stop closes the connection.
func (c *Component) Stop(_ context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health pings the cache.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.client == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "redis not connected"}
	}
	if err := c.client.Ping(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: err.Error()}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns summary info for the startup summary.
func (c *Component) Describe() component.Description {
	details := c.cfg.URL
	if c.client != nil {
		opts := c.client.Unwrap().Options()
		details = fmt.Sprintf("%s db=%d pool=%d", opts.Addr, opts.DB, opts.PoolSize)
	}
	return component.Description{Name: "Redis", Type: "cache", Details: details}
}
