package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Anitha-22/myecommerce/services/search/internal/app"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/service"
)

var (
	searchPage  int
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a catalog search and print the response",
	Long: `Run a query through the same pipeline as GET /api/search and print the
JSON response. Price phrases are understood:

  catalogctl search "jeans under 1000"
  catalogctl search "speaker above 500 under 2000" --limit 5
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "Page number")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "Results per page (defaults to SEARCH_DEFAULT_LIMIT)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	eng, closeEngine, err := app.NewEngine(cfg, log)
	if err != nil {
		return err
	}
	defer closeQuietly(log, "search engine", closeEngine)

	svc := service.NewSearchService(app.NewSearcher(eng, nil, cfg, log), service.Config{
		Timeout:         cfg.SearchTimeout,
		DefaultLimit:    cfg.DefaultLimit,
		MaxLimit:        cfg.MaxLimit,
		MaxResultWindow: cfg.MaxWindow,
	}, log)

	resp, err := svc.Search(cmd.Context(), domain.SearchRequest{
		RawQuery: strings.Join(args, " "),
		Page:     searchPage,
		Limit:    searchLimit,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
