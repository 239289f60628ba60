package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "orderbook-snapshotter",
	Short: "Market-by-order ingest and market-by-price snapshot pipeline",
	Long: `orderbook-snapshotter ingests a stream of market-by-order events for one
or more instruments, maintains a per-(instrument, publisher) limit order
book, and fans out periodic market-by-price snapshots to a durable store,
a line-delimited JSON log, and a latest-snapshot HTTP endpoint.

A separate subcommand pre-encodes MBO events into a length-prefixed frame
file and replays it to many concurrent TCP clients for load testing.`,
	PersistentPreRunE: loadDotenv,
}

// loadDotenv loads a .env file from the working directory if one is
// present. A missing file is not an error: in production configuration
// comes from the environment directly.
func loadDotenv(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
