package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/marathon/logger"
)

// Client wraps a go-redis client with marathon logging.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	closed bool
	mu     sync.Mutex
}

// Options translates cfg into go-redis options. The URL is parsed first,
// then DB, reconnect behavior and the password are layered on top. An empty
// password is never written into the options.
func Options(cfg Config) (*goredis.Options, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts *goredis.Options
	if strings.Contains(cfg.URL, "://") {
		parsed, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &goredis.Options{Addr: cfg.URL}
	}

	if cfg.DB != nil {
		opts.DB = *cfg.DB
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if !*cfg.ShouldReconnect {
		opts.MaxRetries = -1
	}

	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout, _ = time.ParseDuration(cfg.DialTimeout)
	opts.ReadTimeout, _ = time.ParseDuration(cfg.ReadTimeout)
	opts.WriteTimeout, _ = time.ParseDuration(cfg.WriteTimeout)

	return opts, nil
}

// Connect creates a client and verifies it with PING. The client is closed
// again if the server cannot be reached.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	c := &Client{rdb: goredis.NewClient(opts), log: log}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}

	log.Info("Redis connection established", map[string]interface{}{
		"addr":      opts.Addr,
		"db":        opts.DB,
		"auth":      opts.Password != "",
		"pool_size": opts.PoolSize,
	})
	return c, nil
}

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Get retrieves a value by key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores a value with a key and expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Addr returns the server address the client talks to.
func (c *Client) Addr() string {
	return c.rdb.Options().Addr
}

// Close closes the Redis connection. Safe to call multiple times.
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
	c.log.Info("Closing Redis connection")
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
