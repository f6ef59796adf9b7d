package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgkafka "github.com/Anitha-22/myecommerce/pkg/kafka"
	"github.com/Anitha-22/myecommerce/services/search/internal/repository/postgres"
	"github.com/Anitha-22/myecommerce/services/search/internal/seed"
)

var (
	seedFile    string
	seedPublish bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load categories and products from a YAML fixture",
	Long: `Load categories and products from a YAML fixture into the catalog database.

Categories are upserted by name. Products whose category is unknown, or that
fail validation, are skipped and listed in the report. With --publish, a
product created event is sent to Kafka for every inserted product so running
search services index them without a full sync.

Example:
  catalogctl seed --file services/search/testdata/catalog.yaml --publish
`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Catalog fixture to load (required)")
	seedCmd.Flags().BoolVar(&seedPublish, "publish", false, "Publish product created events to Kafka")
	_ = seedCmd.MarkFlagRequired("file")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	catalog, err := seed.LoadFile(seedFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	var publisher seed.Publisher
	if seedPublish {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		defer closeQuietly(log, "kafka producer", producer.Close)
		publisher = producer
	}

	report, err := seed.NewSeeder(postgres.NewCatalogRepository(pool), publisher, log).Apply(ctx, catalog)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), report)
}
