// Package migration applies the versioned SQL migrations with golang-migrate.
//
// Migrations are read from an fs.FS (normally the embedded
// database/migrations files) and applied through a DriverFunc that builds
// the golang-migrate database driver on the shared *sql.DB.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// DriverFunc creates a migrate database driver from sql.DB.
type DriverFunc func(*sql.DB) (database.Driver, error)

// Postgres is the DriverFunc for the PostgreSQL store.
func Postgres(db *sql.DB) (database.Driver, error) {
	return migratepg.WithInstance(db, &migratepg.Config{})
}

// Migrator runs migrations from one source against one database.
type Migrator struct {
	m *migrate.Migrate
}

// New builds a Migrator over the migrations found at path in fsys.
// The returned Migrator shares gormDB's pool; it is never closed here.
func New(gormDB *gorm.DB, fsys fs.FS, path string, driverFunc DriverFunc) (*Migrator, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	src, err := Source(fsys, path)
	if err != nil {
		return nil, err
	}

	driver, err := driverFunc(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "database", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Source opens the migrations at path in fsys as a golang-migrate source.
func Source(fsys fs.FS, path string) (source.Driver, error) {
	src, err := iofs.New(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	return src, nil
}

// Up applies every pending migration. No pending migrations is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Steps applies n migrations, rolling back when n is negative.
func (m *Migrator) Steps(n int) error {
	if err := m.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps: %w", err)
	}
	return nil
}

// Version returns the current migration version and dirty flag. A
// database with no migrations applied reports version 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
