package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/logger"
)

// ComponentName is the registry name of the queue client connector.
const ComponentName = "kafka-client"

// Component connects the queue client on Start and exposes the live Client.
type Component struct {
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the queue client component for the registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{
		cfg: cfg,
		log: log.WithComponent(ComponentName),
	}
}

func (c *Component) Name() string { return ComponentName }

// Client returns the connected client, or nil before Start succeeds.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Start connects to the brokers.
func (c *Component) Start(ctx context.Context) error {
	client, err := Connect(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("kafka client start: %w", err)
	}
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	return nil
}

// Stop closes the client.
func (c *Component) Stop(_ context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	return client.Close()
}

// Health refreshes broker metadata.
func (c *Component) Health(ctx context.Context) component.Health {
	client := c.Client()
	if client == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "kafka client not connected"}
	}
	if err := client.Ping(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("broker metadata: %v", err)}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns summary info for the startup summary.
func (c *Component) Describe() component.Description {
	details := "brokers=" + strings.Join(c.cfg.Brokers(), ",")
	if client := c.Client(); client != nil {
		details += fmt.Sprintf(" cluster=%d", len(client.Cluster()))
	}
	return component.Description{Name: "Kafka", Type: "queue", Details: details}
}
