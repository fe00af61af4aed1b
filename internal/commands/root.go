// Package commands implements the fintrack-admin maintenance CLI.
package commands

import (
	"context"
	"fmt"

	"fintrack/pkg/config"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fintrack-admin",
		Short: "Maintenance tasks for the fintrack API",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newParseCommand(),
		newVAPIDCommand(),
		newSeedCommand(),
	)

	return rootCmd
}

// env bundles what the database-backed subcommands need.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
	logger.Sync()
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := logger.Init(cfg.Logger.Level, "console"); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	appLogger := logger.Get()

	pool, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: appLogger, pool: pool}, nil
}
