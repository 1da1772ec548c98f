package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"MarketRegime/pkg/config"
)

var configPath string

// rootCmd is the base command for the market regime service.
var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "Daily market regime and signal pipeline",
	Long: `Fetches daily prices and headlines for the configured universe, derives
features, market regimes and signals, and serves the results to the dashboard.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (defaults and environment only when empty)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
