// Package simulate generates an internally consistent multi-year SaaS
// revenue dataset: customers, products, subscription contracts, monthly
// usage, and sales-pipeline snapshots, all driven by unobserved per-customer
// latent traits and a single seeded pseudo-random source.
package simulate

import (
	"fmt"
	"log/slog"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/config"
	"github.com/nvandessel/revsim/internal/rng"
	"github.com/nvandessel/revsim/internal/tables"
)

// Run executes all generators in dependency order against one calendar and
// one seeded master source. Each generator draws from its own deterministic
// sub-stream, so adding draws to one generator never perturbs another.
// Any failure aborts the whole run; nothing is persisted here.
func Run(cfg *config.Config, logger *slog.Logger) (*tables.Dataset, error) {
	start, err := calendar.ParseMonth(cfg.StartMonth)
	if err != nil {
		return nil, fmt.Errorf("invalid start month: %w", err)
	}
	cal := calendar.Months(start, cfg.Months)
	master := rng.New(cfg.RandomSeed)

	products := generateProducts(master.Derive("products"))
	logger.Debug("generated products", "count", len(products))

	customers, latents := generateCustomers(cfg, cal, master.Derive("customers"))
	logger.Debug("generated customers", "count", len(customers))

	subs := generateContracts(cfg, cal, products, customers, latents, master.Derive("contracts"))
	logger.Debug("generated subscription line items", "count", len(subs))

	cov, err := BuildCoverage(subs, start, cfg.Months)
	if err != nil {
		return nil, fmt.Errorf("building coverage index: %w", err)
	}

	usage := generateUsage(cfg, cal, customers, latents, cov, master.Derive("usage"))
	logger.Debug("generated usage records", "count", len(usage))

	pipeline := generatePipeline(cfg, cal, customers, master.Derive("pipeline"))
	logger.Debug("generated pipeline snapshots", "count", len(pipeline))

	logger.Info("simulation complete",
		"customers", len(customers),
		"subscription_line_items", len(subs),
		"usage_rows", len(usage),
		"pipeline_snapshots", len(pipeline),
	)

	return &tables.Dataset{
		Customers:     customers,
		Products:      products,
		Subscriptions: subs,
		Usage:         usage,
		Pipeline:      pipeline,
	}, nil
}
