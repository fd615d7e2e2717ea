package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/marathon/database"
	"github.com/kbukum/marathon/database/migration"
	"github.com/kbukum/marathon/database/migrations"
	"github.com/kbukum/marathon/logger"
)

const migrateConnectTimeout = 30 * time.Second

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	Long:  "Applies or reverts the embedded SQL migrations against app.services.postgresql.",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *migration.Migrator, log *logger.Logger) error {
			if migrateSteps > 0 {
				return m.Steps(migrateSteps)
			}
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert migrations (all of them unless --steps is set)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *migration.Migrator, log *logger.Logger) error {
			if migrateSteps > 0 {
				return m.Steps(-migrateSteps)
			}
			return m.Down()
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(m *migration.Migrator, log *logger.Logger) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d", v)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		})
	},
}

func init() {
	migrateUpCmd.Flags().IntVar(&migrateSteps, "steps", 0, "number of migrations to apply (0 = all)")
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 0, "number of migrations to revert (0 = all)")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withMigrator connects to PostgreSQL only; the other services are not needed.
func withMigrator(ctx context.Context, fn func(*migration.Migrator, *logger.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Init(cfg.Logging).WithComponent("migrate")

	pg := cfg.App.Services.PostgreSQL
	if err := pg.Validate(); err != nil {
		return fmt.Errorf("app.services.postgresql: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(ctx, migrateConnectTimeout)
	defer cancel()

	db, err := database.Connect(connectCtx, pg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := migration.New(db.Gorm(), migrations.FS, migrations.Path, migration.Postgres)
	if err != nil {
		return err
	}

	if err := fn(m, log); err != nil {
		log.Error("Migration failed", logger.ErrorFields("migrate", err))
		return err
	}
	if v, dirty, err := m.Version(); err == nil {
		log.Info("Schema version", map[string]interface{}{"version": v, "dirty": dirty})
	}
	return nil
}
