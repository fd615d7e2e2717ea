package database

import (
	"context"
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"github.com/kbukum/marathon/component"
	"github.com/kbukum/marathon/logger"
)

// ComponentName is the registry name of the relational store connector.
const ComponentName = "postgresql"

// Component connects the relational store on Start and exposes the live DB.
type Component struct {
	db        *DB
	cfg       Config
	log       *logger.Logger
	dialector gorm.Dialector
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the relational store component for the registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{
		cfg: cfg,
		log: log.WithComponent(ComponentName),
	}
}

// WithDialector makes Start open d instead of the PostgreSQL URL.
func (c *Component) WithDialector(d gorm.Dialector) *Component {
	c.dialector = d
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

func (c *Component) Name() string { return ComponentName }

// Start connects to the database and pings it.
func (c *Component) Start(ctx context.Context) error {
	var (
		db  *DB
		err error
	)
	if c.dialector != nil {
		db, err = Open(ctx, c.dialector, c.cfg, c.log)
	} else {
		db, err = Connect(ctx, c.cfg, c.log)
	}
	if err != nil {
		return fmt.Errorf("postgresql start: %w", err)
	}
	c.db = db
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "database not connected"}
	}
	if err := c.db.Ping(ctx); err != nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	stats := c.db.Stats()
	if c.cfg.MaxOpenConns > 0 && stats.InUse >= c.cfg.MaxOpenConns {
		return component.Health{Name: c.Name(), Status: component.StatusDegraded, Message: "connection pool exhausted"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns summary info for the startup summary.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("pool=%d/%d", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if host := redactedHost(c.cfg.URL); host != "" {
		details = host + " " + details
	}
	return component.Description{Name: "PostgreSQL", Type: "database", Details: details}
}

// redactedHost returns host/dbname from a connection URL without credentials.
func redactedHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host + u.Path
}
