package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"MarketRegime/internal/di"
	"MarketRegime/internal/domain/models"
)

var (
	runSymbols   []string
	runSkipFetch bool
)

// runCmd performs one ingest + pipeline pass and prints the summary.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ingestion and the pipeline once",
	Long: `Refreshes prices and news, then computes features, regimes and signals for
every symbol and prints the run summary as JSON.

Examples:
  app run
  app run --symbols TCS.NS,INFY.NS
  app run --skip-fetch --config config/config.yaml`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "restrict the run to these symbols (default: configured universe)")
	runCmd.Flags().BoolVar(&runSkipFetch, "skip-fetch", false, "use stored prices and news instead of fetching")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	summary, err := app.RunOnce(cmd.Context(), models.RunRequest{
		Symbols:     runSymbols,
		SkipFetch:   runSkipFetch,
		RequestedBy: "cli",
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
