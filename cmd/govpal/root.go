package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"govpal/internal/config"
	"govpal/internal/logger"
	"govpal/internal/service"
)

// NewRootCmd creates the root govpal command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "govpal",
		Short:         "GovPal: policy document ingestion and semantic search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to YAML config (default ./govpal.yaml or ~/.config/govpal/config.yaml)")
	root.PersistentFlags().String("index-dir", "", "override index directory")
	root.PersistentFlags().String("storage-dir", "", "override original-file storage directory")
	root.PersistentFlags().String("backend", "", "override index backend (disk, memory, sqlite)")
	root.PersistentFlags().String("log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newSearchCmd(),
		newTUICmd(),
		newStatsCmd(),
	)
	return root
}

// loadConfig resolves the config file, then applies flag overrides on top of
// file and environment settings.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("index-dir"); v != "" {
		cfg.Index.Dir = v
	}
	if v, _ := cmd.Flags().GetString("storage-dir"); v != "" {
		cfg.Storage.Dir = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Index.Backend = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openService loads config, builds the logger and wires the service.
func openService(cmd *cobra.Command) (*service.Service, *config.AppConfig, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	svc, err := service.New(cfg, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing: %w", err)
	}
	return svc, cfg, log, nil
}
