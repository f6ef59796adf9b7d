package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Anitha-22/myecommerce/services/search/internal/app"
	"github.com/Anitha-22/myecommerce/services/search/internal/indexer"
	"github.com/Anitha-22/myecommerce/services/search/internal/repository/postgres"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index every catalog product",
	Long: `Read every product from the catalog database, joined with its category
name, and bulk index it. The index is created first when missing. Batch size,
concurrency and rate limit come from SYNC_BATCH_SIZE, SYNC_CONCURRENCY and
SYNC_RATE_LIMIT.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
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

	eng, closeEngine, err := app.NewEngine(cfg, log)
	if err != nil {
		return err
	}
	defer closeQuietly(log, "search engine", closeEngine)

	syncer := indexer.NewSyncer(postgres.NewCatalogRepository(pool), eng, indexer.Config{
		BatchSize:   cfg.SyncBatchSize,
		Concurrency: cfg.SyncConcurrency,
		RateLimit:   cfg.SyncRateLimit,
	}, log)

	report, err := syncer.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), report)
}
