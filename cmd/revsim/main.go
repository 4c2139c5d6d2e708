package main

import (
	"fmt"
	"os"

	"github.com/nvandessel/revsim/internal/config"
	"github.com/spf13/cobra"
)

// Version info, set via ldflags at build time
var (
	version = "0.1.0-dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "revsim",
		Short: "Synthetic SaaS revenue dataset simulator",
		Long: `revsim generates an internally consistent SaaS revenue dataset:
customers, products, subscription contracts, monthly product usage, and
sales-pipeline snapshots, driven by a single seeded random source.

The generated tables are written as parquet files and can be certified
against the configured realism targets with 'revsim validate'.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "sim_config.yml", "Path to simulation config YAML")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(),
		newValidateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the config file named by the global
// --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
