// Package cmd implements catalogctl, the operator CLI for the catalog
// database and the product search index.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	pkgconfig "github.com/Anitha-22/myecommerce/pkg/config"
	"github.com/Anitha-22/myecommerce/pkg/database"
	"github.com/Anitha-22/myecommerce/pkg/logger"
	"github.com/Anitha-22/myecommerce/services/search/internal/config"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Manage the product catalog and its search index",
	Long: `catalogctl migrates and seeds the catalog database, creates the
product search index and rebuilds it from the database.

Configuration is read from the same environment variables as the search
service (SEARCH_ENGINE, SEARCH_INDEX, POSTGRES_*, KAFKA_BROKERS, ...).`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(createIndexCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(searchCmd)
}

// setup loads configuration and builds the logger. Logs go to stderr so
// that command output on stdout stays machine readable.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	if err := pkgconfig.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	return cfg, logger.NewWithWriter("catalogctl", level, cmd.ErrOrStderr()), nil
}

func openCatalog(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}
	return pool, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func closeQuietly(log *slog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn("close failed", slog.String("component", what), slog.String("error", err.Error()))
	}
}
