package producer

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/kafka"
	"github.com/kbukum/marathon/logger"
)

// ComponentName is the registry name of the queue producer connector.
const ComponentName = "kafka-producer"

// Component connects the producer on Start using the live client of the
// queue client component, which must have started first.
type Component struct {
	client *kafka.Component
	cfg    Config
	log    *logger.Logger

	mu       sync.RWMutex
	producer *Producer
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the producer component bound to client.
func NewComponent(client *kafka.Component, cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		client: client,
		cfg:    cfg,
		log:    log.WithComponent(ComponentName),
	}
}

func (c *Component) Name() string { return ComponentName }

// Producer returns the connected producer, or nil before Start succeeds.
func (c *Component) Producer() *Producer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.producer
}

// Start connects the producer through the client component's client.
func (c *Component) Start(ctx context.Context) error {
	var client *kafka.Client
	if c.client != nil {
		client = c.client.Client()
	}
	if client == nil {
		return fmt.Errorf("kafka producer start: %s is not connected", kafka.ComponentName)
	}

	p, err := Connect(ctx, client, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("kafka producer start: %w", err)
	}
	c.mu.Lock()
	c.producer = p
	c.mu.Unlock()
	return nil
}

// Stop flushes and closes the producer.
func (c *Component) Stop(_ context.Context) error {
	return c.Producer().Close()
}

// Health reports writer errors since the previous check.
func (c *Component) Health(_ context.Context) component.Health {
	p := c.Producer()
	if p == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "kafka producer not connected"}
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "kafka producer closed"}
	}

	m := kafka.CollectWriterMetrics(p.Stats())
	if m.Errors > 0 {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("%d write errors in %d writes", m.Errors, m.Writes),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns summary info for the startup summary.
func (c *Component) Describe() component.Description {
	topic := c.cfg.Topic
	if topic == "" {
		topic = "-"
	}
	return component.Description{
		Name:    "Kafka producer",
		Type:    "producer",
		Details: fmt.Sprintf("topic=%s compression=%s", topic, c.cfg.Compression),
	}
}
