package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/speclens/speclens/cmd/speclens/config"
	"github.com/speclens/speclens/pkg/logging"
)

var (
	cfg        *config.Config
	logger     *logging.Logger
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err = logging.New(logging.Config{
			Level:  logging.ParseLevel(cfg.LogLevel),
			LogDir: cfg.LogDir,
			JSON:   cfg.LogJSON,
		})
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		slog.SetDefault(logger.Logger)
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	}
}
