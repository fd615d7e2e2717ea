package database

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/marathon/component"
	apperrors "github.com/kbukum/marathon/errors"
	"github.com/kbukum/marathon/logger"
)

func sqliteConfig() Config {
	cfg := Config{URL: "postgres://marathon@localhost:5432/marathon", MaxOpenConns: 1, MaxIdleConns: 1}
	cfg.ApplyDefaults()
	cfg.ConnMaxIdleTime = ""
	cfg.ConnMaxLifetime = ""
	return cfg
}

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), sqlite.Open(":memory:"), sqliteConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenPingAndClose(t *testing.T) {
	db := openSQLite(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("expected pool size 1, got %d", got)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
	if err := db.Ping(context.Background()); err == nil {
		t.Error("expected ping on closed db to fail")
	}
}

func TestOpenTranslatesDuplicateKey(t *testing.T) {
	db := openSQLite(t)
	if err := db.Gorm().AutoMigrate(&App{}, &Template{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	app := &App{Name: "game", BundleID: "com.example.game", CreatedBy: "ops"}
	if err := db.WithContext(context.Background()).Create(app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}

	first := newTemplate(app.ID, "welcome", "en")
	if err := db.Gorm().Create(first).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}
	err := db.Gorm().Create(newTemplate(app.ID, "welcome", "en")).Error
	if !IsDuplicate(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	db := openSQLite(t)
	if err := db.Gorm().AutoMigrate(&App{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	errAbort := errors.New("abort")
	err := db.Transaction(context.Background(), "app", func(tx *gorm.DB) error {
		if err := tx.Create(&App{Name: "game", BundleID: "b", CreatedBy: "c"}).Error; err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected abort error, got %v", err)
	}

	var count int64
	db.Gorm().Model(&App{}).Count(&count)
	if count != 0 {
		t.Errorf("expected rollback, found %d apps", count)
	}
}

func TestTransactionTranslatesErrors(t *testing.T) {
	db := openSQLite(t)
	if err := db.Gorm().AutoMigrate(&App{}, &Template{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()

	app := &App{Name: "game", BundleID: "com.example.game", CreatedBy: "ops"}
	if err := db.WithContext(ctx).Create(app).Error; err != nil {
		t.Fatalf("create app: %v", err)
	}

	err := db.Transaction(ctx, "template", func(tx *gorm.DB) error {
		if err := tx.Create(newTemplate(app.ID, "welcome", "en")).Error; err != nil {
			return err
		}
		return tx.Create(newTemplate(app.ID, "welcome", "en")).Error
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeAlreadyExists) {
		t.Fatalf("expected ALREADY_EXISTS, got %v", err)
	}

	err = db.Transaction(ctx, "template", func(tx *gorm.DB) error {
		var missing Template
		return tx.First(&missing, "name = ?", "nope").Error
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	own := apperrors.Validation("bad body")
	err = db.Transaction(ctx, "template", func(*gorm.DB) error { return own })
	if err != own {
		t.Fatalf("expected the AppError from fn unchanged, got %v", err)
	}

	var count int64
	db.Gorm().Model(&Template{}).Count(&count)
	if count != 0 {
		t.Errorf("expected rollback, found %d templates", count)
	}
}

func TestConnectFailsFastOnUnreachableServer(t *testing.T) {
	cfg := Config{
		URL:     "postgres://marathon@127.0.0.1:1/marathon",
		Options: map[string]string{"connect_timeout": "1", "sslmode": "disable"},
	}
	cfg.ApplyDefaults()

	db, err := Connect(context.Background(), cfg, logger.NewNop())
	if err == nil {
		_ = db.Close()
		t.Fatal("expected connect to fail")
	}
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	if _, err := Connect(context.Background(), Config{}, logger.NewNop()); err == nil {
		t.Fatal("expected missing url to fail")
	}
}

func TestComponentLifecycle(t *testing.T) {
	c := NewComponent(sqliteConfig(), logger.NewNop()).WithDialector(sqlite.Open(":memory:"))
	ctx := context.Background()

	if c.Name() != ComponentName {
		t.Errorf("expected name %q, got %q", ComponentName, c.Name())
	}
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.DB() == nil {
		t.Fatal("expected DB after start")
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s (%s)", h.Status, h.Message)
	}

	desc := c.Describe()
	if desc.Type != "database" || desc.Details != "localhost:5432/marathon pool=1/1" {
		t.Errorf("unexpected description %+v", desc)
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy after stop, got %s", h.Status)
	}
}

func TestComponentStartError(t *testing.T) {
	c := NewComponent(Config{}, logger.NewNop())
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail without url")
	}
	if c.DB() != nil {
		t.Error("expected no DB after failed start")
	}
}
