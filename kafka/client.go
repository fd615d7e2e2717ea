package kafka

import (
	"context"
	"fmt"
	"net"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/marathon/logger"
)

// Client is a live connection to the broker cluster. Producers are built
// on top of its address and transport.
type Client struct {
	cfg       Config
	brokers   []string
	dialer    *kafkago.Dialer
	transport *kafkago.Transport
	log       *logger.Logger

	mu      sync.Mutex
	closed  bool
	cluster []kafkago.Broker
}

// Connect dials the first reachable broker and fetches cluster metadata.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	c, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	cluster, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}
	c.cluster = cluster

	log.Info("Kafka client connected", map[string]interface{}{
		"brokers":   c.brokers,
		"cluster":   len(cluster),
		"client_id": c.cfg.ClientID,
	})
	return c, nil
}

// NewClient builds a client from cfg without contacting the brokers.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka client config: %w", err)
	}

	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka client dialer: %w", err)
	}
	transport, err := CreateTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka client transport: %w", err)
	}

	return &Client{
		cfg:       cfg,
		brokers:   cfg.Brokers(),
		dialer:    dialer,
		transport: transport,
		log:       log,
	}, nil
}

// dial opens a connection to the first broker that accepts one.
func (c *Client) dial(ctx context.Context) (*kafkago.Conn, error) {
	var lastErr error
	for _, broker := range c.brokers {
		conn, err := c.dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("dial kafka brokers %v: %w", c.brokers, lastErr)
}

func (c *Client) metadata(ctx context.Context) ([]kafkago.Broker, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	brokers, err := conn.Brokers()
	if err != nil {
		return nil, fmt.Errorf("fetch broker metadata: %w", err)
	}
	return brokers, nil
}

// Ping refreshes broker metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return fmt.Errorf("kafka client is closed")
	}
	cluster, err := c.metadata(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cluster = cluster
	c.mu.Unlock()
	return nil
}

// Partitions returns the partitions of topic. A topic without partitions
// is reported as an error.
func (c *Client) Partitions(ctx context.Context, topic string) ([]kafkago.Partition, error) {
	if c.isClosed() {
		return nil, fmt.Errorf("kafka client is closed")
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err != nil {
		return nil, fmt.Errorf("read partitions of %q: %w", topic, err)
	}
	if len(partitions) == 0 {
		return nil, fmt.Errorf("topic %q has no partitions", topic)
	}
	return partitions, nil
}

// Brokers returns the configured broker addresses.
func (c *Client) Brokers() []string {
	return append([]string(nil), c.brokers...)
}

// Cluster returns the brokers reported by the last metadata request.
func (c *Client) Cluster() []kafkago.Broker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]kafkago.Broker(nil), c.cluster...)
}

// Addr returns the broker address set for kafka-go writers.
func (c *Client) Addr() net.Addr {
	return kafkago.TCP(c.brokers...)
}

// Transport returns the shared transport for kafka-go writers.
func (c *Client) Transport() *kafkago.Transport {
	return c.transport
}

// ClientID returns the id sent to the brokers.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close releases idle transport connections. Subsequent calls are no-ops.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.transport.CloseIdleConnections()
	c.log.Info("Kafka client closed")
	return nil
}
