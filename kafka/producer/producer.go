package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/marathon/kafka"
	"github.com/kbukum/marathon/logger"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("producer is closed")

// Producer publishes messages through a kafka-go Writer that shares the
// address and transport of a connected kafka.Client.
type Producer struct {
	writer *kafkago.Writer
	client *kafka.Client
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// Connect builds a producer on top of client and verifies it can reach
// the cluster: the default topic must have partitions, or, without one,
// the client must answer a metadata request.
func Connect(ctx context.Context, client *kafka.Client, cfg Config, log *logger.Logger) (*Producer, error) {
	p, err := New(client, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := p.verify(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	log.Info("Kafka producer connected", map[string]interface{}{
		"topic":       p.cfg.Topic,
		"compression": p.cfg.Compression,
		"batch_size":  p.cfg.BatchSize,
	})
	return p, nil
}

// New builds a producer on top of client without contacting the brokers.
func New(client *kafka.Client, cfg Config, log *logger.Logger) (*Producer, error) {
	if client == nil {
		return nil, fmt.Errorf("kafka producer requires a connected kafka client")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}

	p := &Producer{client: client, cfg: cfg, log: log}
	p.writer = &kafkago.Writer{
		Addr:         client.Addr(),
		Transport:    client.Transport(),
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: kafka.ParseDuration(cfg.BatchTimeout),
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  kafka.ResolveCompression(cfg.Compression),
		WriteTimeout: kafka.ParseDuration(cfg.WriteTimeout),
		MaxAttempts:  cfg.MaxAttempts,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}
	return p, nil
}

func (p *Producer) verify(ctx context.Context) error {
	if p.cfg.Topic == "" {
		if err := p.client.Ping(ctx); err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		return nil
	}
	if _, err := p.client.Partitions(ctx, p.cfg.Topic); err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	return nil
}

// Topic returns the default topic, which may be empty.
func (p *Producer) Topic() string {
	return p.cfg.Topic
}

// Send writes msgs. Messages without a topic go to the default topic; the
// caller's slice is left untouched. Write failures are returned as AppErrors.
func (p *Producer) Send(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	out := make([]kafkago.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if out[i].Topic == "" {
			if p.cfg.Topic == "" {
				return fmt.Errorf("message %d has no topic and no default topic is configured", i)
			}
			out[i].Topic = p.cfg.Topic
		}
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		topic := p.cfg.Topic
		if len(out) > 0 {
			topic = out[0].Topic
		}
		p.log.Warn("Write failed", map[string]interface{}{"topic": topic, "error": err.Error()})
		return kafka.FromKafka(err, topic)
	}
	return nil
}

// SendJSON marshals value as JSON and sends it to topic with key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return p.Send(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}

// Publish sends a structured event keyed by its subject or id.
func (p *Producer) Publish(ctx context.Context, topic string, event kafka.Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.Send(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(event.Key()),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafkago.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-source", Value: []byte(event.Source)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Stats returns writer statistics. Each call resets the writer's counters.
func (p *Producer) Stats() kafkago.WriterStats {
	return p.writer.Stats()
}

// Close flushes pending messages and shuts the writer down. Subsequent
// calls are no-ops.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	p.log.Info("Kafka producer closed")
	return nil
}
