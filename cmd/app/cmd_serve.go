package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"MarketRegime/internal/di"
)

// serveCmd runs the HTTP API, scheduler and run-request consumer.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and run the pipeline on schedule",
	Long: `Starts the HTTP API and WebSocket stream, the daily scheduler and, when Kafka
is enabled, the run-requests consumer. Blocks until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		app, cleanup, err := di.InitializeApp(cfg)
		if err != nil {
			return fmt.Errorf("app initialization failed: %w", err)
		}
		defer cleanup()

		return app.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
