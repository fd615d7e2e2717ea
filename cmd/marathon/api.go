package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/marathon/bootstrap"
	"github.com/kbukum/marathon/logger"
	"github.com/kbukum/marathon/version"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the marathon API",
	Long: `Connects redis, PostgreSQL and Kafka in that order, binds the
handler routes and serves HTTP until SIGINT or SIGTERM. Any connect or
binding failure terminates the process with status 1.`,
	Args: cobra.NoArgs,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg, bootstrap.WithFailFast(true))
	if err != nil {
		return err
	}
	app.Logger.Info("Starting marathon API", version.Get().Fields())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Run(ctx); err != nil {
		app.Logger.Error("API stopped with error", logger.ErrorFields("run", err))
		return err
	}
	return nil
}
