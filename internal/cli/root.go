package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskflow/internal/app"
	"github.com/eleven-am/taskflow/internal/config"
	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// Global configuration variables
var (
	configFile  string
	cfg         *config.Config
	databaseURL string
	debug       bool
	verbose     bool
)

// openApp builds the application for commands that need the store. Tests
// replace it to run against the in-memory store.
var openApp = func(ctx context.Context, cfg *config.Config) (*app.App, error) {
	return app.Open(ctx, cfg)
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskflow",
		Short: "taskflow - task management backend",
		Long: `taskflow manages tasks, teams and notifications on PostgreSQL.

The CLI covers the operational side:
- Schema migrations and verification
- The background worker running recurrence, sweeps and statistics
- One-off job runs
- Account, role and team administration`,
		Version:       taskflow.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			if err != nil {
				return err
			}
			if databaseURL != "" {
				cfg.Database.URL = databaseURL
			}

			level := logger.ParseLevel(cfg.Logging.Level)
			if verbose && level > logger.LevelInfo {
				level = logger.LevelInfo
			}
			if debug {
				level = logger.LevelDebug
			}
			logger.SetOutput(cmd.ErrOrStderr(), cfg.Logging.JSON)
			logger.SetLevel(level)

			if verbose {
				path := configFile
				if path == "" {
					path = config.Path()
				}
				if path == "" {
					path = "(defaults)"
				}
				cmd.PrintErrf("Using config: %s\n", path)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: taskflow.yaml)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "url", "", "database connection URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose output")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newRunJobCommand())
	rootCmd.AddCommand(newUserCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// withApp opens the application, runs fn and closes it again.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.CLI().Warn("failed to close", "error", err)
		}
	}()
	return fn(a)
}

func requireURL() error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database connection required: use --url, %s or database.url in taskflow.yaml", config.EnvDatabaseURL)
	}
	return nil
}
