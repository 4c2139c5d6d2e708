package main

import (
	"fmt"
	"strings"

	"github.com/nvandessel/revsim/internal/logging"
	"github.com/nvandessel/revsim/internal/simulate"
	"github.com/nvandessel/revsim/internal/store"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the simulated datasets",
		Long: `Generate the simulated datasets and write them as parquet files.

Runs all generators against the configured calendar and seed, then writes
the five tables under output.base_path. Nothing is written if any
generator fails. A short data quality report is printed afterwards.

Examples:
  revsim generate                          # Use ./sim_config.yml
  revsim generate --config configs/big.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

			logger.Info("generating dataset",
				"seed", cfg.RandomSeed,
				"start_month", cfg.StartMonth,
				"months", cfg.Months,
				"customers", cfg.NCustomersTotal,
			)
			ds, err := simulate.Run(cfg, logger)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			if err := store.WriteDataset(cfg.Output.BasePath, ds); err != nil {
				return fmt.Errorf("writing dataset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s/ (%s)\n", cfg.Output.BasePath, strings.Join([]string{
				store.FileProducts,
				store.FileCustomers,
				store.FileSubscriptions,
				store.FileUsage,
				store.FilePipeline,
			}, ", "))

			simulate.WriteQualityReport(cmd.OutOrStdout(), cfg, ds)
			return nil
		},
	}
}
