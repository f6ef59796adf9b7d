package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Anitha-22/myecommerce/services/search/internal/app"
)

var recreateIndex bool

var createIndexCmd = &cobra.Command{
	Use:   "create-index",
	Short: "Create the product search index",
	Long: `Create the product search index with the product mapping if it does not
exist. With --recreate the index is dropped first, discarding every indexed
document; run "catalogctl sync" afterwards to rebuild it.`,
	Args: cobra.NoArgs,
	RunE: runCreateIndex,
}

func init() {
	createIndexCmd.Flags().BoolVar(&recreateIndex, "recreate", false, "Drop and recreate the index")
}

type indexStatus struct {
	Engine    string `json:"engine"`
	Index     string `json:"index"`
	Recreated bool   `json:"recreated"`
	Documents int64  `json:"documents"`
}

func runCreateIndex(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	eng, closeEngine, err := app.NewEngine(cfg, log)
	if err != nil {
		return err
	}
	defer closeQuietly(log, "search engine", closeEngine)

	ctx := cmd.Context()
	if recreateIndex {
		log.Info("recreating index", slog.String("index", cfg.SearchIndex))
		err = eng.RecreateIndex(ctx)
	} else {
		err = eng.EnsureIndex(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	count, err := eng.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	return printJSON(cmd.OutOrStdout(), indexStatus{
		Engine:    eng.Name(),
		Index:     cfg.SearchIndex,
		Recreated: recreateIndex,
		Documents: count,
	})
}
