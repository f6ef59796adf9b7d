package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Anitha-22/myecommerce/pkg/database"
	"github.com/Anitha-22/myecommerce/services/search/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending catalog database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := database.RunMigrations(ctx, pool, migrations.FS, log)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("migrations complete", slog.Int("applied", len(applied)))
	for _, name := range applied {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
