package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-classroom/internal/config"
	"github.com/phrazzld/scry-classroom/internal/platform/logger"
	"github.com/spf13/cobra"
)

// loadAppConfig loads configuration, honouring the --config flag, and sets up
// the process logger from it.
func loadAppConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("store_driver", cfg.Store.Driver))
	if cfg.Database.URL != "" {
		log.Debug("database configuration", slog.Bool("url_present", true))
	}
	return cfg, log, nil
}
