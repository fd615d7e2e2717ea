package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/marathon/bootstrap"
	"github.com/kbukum/marathon/config"
	"github.com/kbukum/marathon/version"
)

const serviceName = "marathon"

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   serviceName,
	Short: "Marathon sends push notifications",
	Long: `Marathon stores notification templates and hands notification jobs
to Kafka. Configuration is read from a YAML file, an optional .env file and
MARATHON_ prefixed environment variables (MARATHON_APP__PORT=3000).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("marathon version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file")
}

// loadConfig reads the configuration selected by the persistent flags.
// Defaults are applied; validation is left to the caller.
func loadConfig() (*bootstrap.Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}

	cfg := &bootstrap.Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
