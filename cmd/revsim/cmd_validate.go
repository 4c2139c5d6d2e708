package main

import (
	"errors"
	"fmt"

	"github.com/nvandessel/revsim/internal/store"
	"github.com/nvandessel/revsim/internal/validate"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate generated datasets against realism targets",
		Long: `Validate generated datasets against the configured realism targets.

This command reloads the persisted parquet tables and checks:
  - Segment distribution vs the configured mix
  - Annualized logo churn vs per-segment targets
  - Revenue concentration (top-5 ARR share) in the last month
  - Pipeline close rate and stage volatility
  - Usage dispersion and its correlation with CRM health

All checks run to completion; the command fails if any check fails.
Warnings never fail the run.

Examples:
  revsim validate
  revsim validate --config configs/big.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ds, err := store.ReadDataset(cmd.Context(), cfg.Output.BasePath)
			if err != nil {
				return fmt.Errorf("loading dataset from %s: %w", cfg.Output.BasePath, err)
			}

			report := validate.Run(cfg, ds)
			report.Write(cmd.OutOrStdout())
			if !report.Passed() {
				return errors.New("validation failed: one or more critical checks did not pass")
			}
			return nil
		},
	}
}
