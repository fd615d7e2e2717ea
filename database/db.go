package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/logger"
)

// DB wraps a gorm connection to the relational store.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
	log  *logger.Logger

	mu     sync.Mutex
	closed bool
}

// Connect opens a PostgreSQL connection from cfg and pings it once.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return Open(ctx, postgres.Open(dsn), cfg, log)
}

// Open opens a connection through any gorm dialector, pings it once and
// applies the pool settings from cfg. No retries are attempted.
func Open(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:               newGormLogger(log, cfg.GetSlowQueryThreshold(), parseLogLevel(cfg.LogLevel)),
		DisableAutomaticPing: true,
		TranslateError:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if d := cfg.GetConnMaxLifetime(); d > 0 {
		sqlDB.SetConnMaxLifetime(d)
	}
	if d := cfg.GetConnMaxIdleTime(); d > 0 {
		sqlDB.SetConnMaxIdleTime(d)
	}

	log.Info("Database connected", map[string]interface{}{
		"dialect":        dialector.Name(),
		"max_open_conns": cfg.MaxOpenConns,
	})

	return &DB{gorm: gdb, sql: sqlDB, log: log}, nil
}

// Gorm returns the underlying gorm handle.
func (d *DB) Gorm() *gorm.DB {
	return d.gorm
}

// WithContext returns a gorm session bound to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.gorm.WithContext(ctx)
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (d *DB) Stats() sql.DBStats {
	return d.sql.Stats()
}

// Transaction runs fn inside a transaction bound to ctx. The transaction
// is rolled back when fn returns an error or panics. AppErrors from fn are
// returned as is; any other failure is translated with FromDatabase, using
// resource to name what was being written.
func (d *DB) Transaction(ctx context.Context, resource string, fn func(tx *gorm.DB) error) error {
	err := d.gorm.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return FromDatabase(err, resource)
}

// Close closes the connection pool. Subsequent calls are no-ops.
func (d *DB) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.sql.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	d.log.Info("Database connection closed")
	return nil
}
