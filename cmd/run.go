package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/orderbook-snapshotter/internal/ingest"
	"github.com/mselser95/orderbook-snapshotter/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingest pipeline",
	Long: `Starts the order-book ingest pipeline, which will:
1. Decode MBO events from INPUT_PATH
2. Apply each event to the per-(instrument, publisher) order book
3. Build a market-by-price snapshot for every applied event
4. Publish the snapshot to the Latest-Snapshot Cell and fan it out to the
   storage writer and the MBP JSON log writer
5. Serve the latest snapshot over HTTP until a shutdown signal arrives`,
	RunE: runIngest,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runIngest(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := ingest.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
