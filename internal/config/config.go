// Package config provides simulation configuration loading for revsim.
// It supports loading from YAML files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/tables"
)

// Config contains all simulation and validation settings.
type Config struct {
	// RandomSeed seeds the master pseudo-random source. Identical
	// (seed, config) pairs reproduce byte-identical output tables.
	RandomSeed uint64 `yaml:"random_seed"`

	// StartMonth is the first simulated month, as YYYY-MM-DD.
	StartMonth string `yaml:"start_month"`

	// Months is the calendar horizon length.
	Months int `yaml:"months"`

	// NCustomersTotal is the size of the generated customer population.
	NCustomersTotal int `yaml:"n_customers_total"`

	// SegmentMix maps segment name to target share. Missing segments
	// default to 0.25; the mix is renormalized to sum to 1.
	SegmentMix map[string]float64 `yaml:"segment_mix"`

	// ChurnTargetsBySegment maps segment name to target annual churn rate.
	ChurnTargetsBySegment map[string]float64 `yaml:"churn_targets_by_segment"`

	// EnterpriseLarge and MidSMB configure contract behavior per segment
	// group.
	EnterpriseLarge GroupBehavior `yaml:"enterprise_large"`
	MidSMB          GroupBehavior `yaml:"mid_smb"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	Usage    UsageConfig    `yaml:"usage"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GroupBehavior holds the contract choice lists for one segment group.
type GroupBehavior struct {
	// TermMonthsChoices are the contract term lengths drawn from at
	// contract creation and renewal.
	TermMonthsChoices []int `yaml:"term_months_choices"`

	// OnboardingLagChoices are the months between customer creation and
	// first contract start.
	OnboardingLagChoices []int `yaml:"onboarding_lag_months_choices"`
}

// PipelineConfig configures the sales funnel simulation.
type PipelineConfig struct {
	// OppsPerMonthPer100Customers scales monthly opportunity spawning.
	OppsPerMonthPer100Customers float64 `yaml:"opps_per_month_per_100_customers"`

	// StageNames is the ordered funnel; the last two stages are the
	// terminal won/lost states.
	StageNames []string `yaml:"stage_names"`

	// SlippageByStageMonths maps a stage to the close-date slippage applied
	// when an opportunity advances into it.
	SlippageByStageMonths map[string]int `yaml:"slippage_by_stage_months"`

	// ForceCloseWindowMonths is the tail window of the horizon in which
	// late-stage opportunities are probabilistically forced to resolve.
	ForceCloseWindowMonths int `yaml:"force_close_window_months"`
}

// UsageConfig configures monthly usage generation.
type UsageConfig struct {
	// Features are the feature keys emitted per covered customer-month.
	Features []string `yaml:"features"`

	// NoiseStd is the standard deviation of the multiplicative usage noise.
	NoiseStd float64 `yaml:"noise_std"`

	// ContradictorySignalRate is the probability that a customer's reported
	// CRM health is inverted relative to their latent health.
	ContradictorySignalRate float64 `yaml:"contradictory_signal_rate"`
}

// OutputConfig locates the persisted datasets.
type OutputConfig struct {
	BasePath string `yaml:"base_path"`

	// Format must be "parquet"; any other value is a fatal configuration
	// error reported before generation begins.
	Format string `yaml:"format"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default) or "debug".
	Level string `yaml:"level"`
}

// FormatParquet is the only supported output format.
const FormatParquet = "parquet"

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		RandomSeed:      42,
		StartMonth:      "2024-01-01",
		Months:          24,
		NCustomersTotal: 1200,
		SegmentMix: map[string]float64{
			"enterprise": 0.10,
			"large":      0.20,
			"medium":     0.30,
			"smb":        0.40,
		},
		ChurnTargetsBySegment: map[string]float64{
			"enterprise": 0.08,
			"large":      0.10,
			"medium":     0.16,
			"smb":        0.22,
		},
		EnterpriseLarge: GroupBehavior{
			TermMonthsChoices:    []int{12, 24},
			OnboardingLagChoices: []int{1, 2, 3},
		},
		MidSMB: GroupBehavior{
			TermMonthsChoices:    []int{12, 24},
			OnboardingLagChoices: []int{0, 1},
		},
		Pipeline: PipelineConfig{
			OppsPerMonthPer100Customers: 6.0,
			StageNames: []string{
				"prospecting", "discovery", "proposal", "negotiation",
				"closed_won", "closed_lost",
			},
			SlippageByStageMonths:  map[string]int{"proposal": 1, "negotiation": 2},
			ForceCloseWindowMonths: 3,
		},
		Usage: UsageConfig{
			Features:                []string{"api_calls", "seats_active", "reports_run"},
			NoiseStd:                0.25,
			ContradictorySignalRate: 0.10,
		},
		Output: OutputConfig{
			BasePath: "./warehouse/sim_data",
			Format:   FormatParquet,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadFromFile loads configuration from a YAML file, layered over defaults,
// with environment overrides applied last.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks that the configuration is usable. Violations here are
// fatal and must be reported before any generation begins.
func (c *Config) Validate() error {
	if c.Months < 1 {
		return fmt.Errorf("months must be at least 1, got %d", c.Months)
	}
	if c.NCustomersTotal < 1 {
		return fmt.Errorf("n_customers_total must be at least 1, got %d", c.NCustomersTotal)
	}
	if c.Output.Format != FormatParquet {
		return fmt.Errorf("unsupported output format: %q (only %q is supported)", c.Output.Format, FormatParquet)
	}
	if c.Output.BasePath == "" {
		return fmt.Errorf("output.base_path must not be empty")
	}
	if _, err := calendar.ParseMonth(c.StartMonth); err != nil {
		return fmt.Errorf("start_month: %w", err)
	}

	known := make(map[string]bool, len(tables.Segments))
	for _, s := range tables.Segments {
		known[s] = true
	}
	for seg, w := range c.SegmentMix {
		if !known[seg] {
			return fmt.Errorf("segment_mix: unknown segment %q", seg)
		}
		if w < 0 {
			return fmt.Errorf("segment_mix: weight for %q must be non-negative, got %f", seg, w)
		}
	}
	for seg, rate := range c.ChurnTargetsBySegment {
		if !known[seg] {
			return fmt.Errorf("churn_targets_by_segment: unknown segment %q", seg)
		}
		if rate < 0 || rate > 1 {
			return fmt.Errorf("churn_targets_by_segment: rate for %q must be in [0,1], got %f", seg, rate)
		}
	}

	for _, g := range []struct {
		name string
		gb   GroupBehavior
	}{{"enterprise_large", c.EnterpriseLarge}, {"mid_smb", c.MidSMB}} {
		if len(g.gb.TermMonthsChoices) == 0 {
			return fmt.Errorf("%s: term_months_choices must not be empty", g.name)
		}
		for _, t := range g.gb.TermMonthsChoices {
			if t < 1 {
				return fmt.Errorf("%s: term length must be at least 1 month, got %d", g.name, t)
			}
		}
		if len(g.gb.OnboardingLagChoices) == 0 {
			return fmt.Errorf("%s: onboarding_lag_months_choices must not be empty", g.name)
		}
		for _, l := range g.gb.OnboardingLagChoices {
			if l < 0 {
				return fmt.Errorf("%s: onboarding lag must be non-negative, got %d", g.name, l)
			}
		}
	}

	if len(c.Pipeline.StageNames) < 3 {
		return fmt.Errorf("pipeline.stage_names needs at least one open stage plus two terminal stages, got %d", len(c.Pipeline.StageNames))
	}
	if c.Pipeline.OppsPerMonthPer100Customers < 0 {
		return fmt.Errorf("pipeline.opps_per_month_per_100_customers must be non-negative, got %f", c.Pipeline.OppsPerMonthPer100Customers)
	}
	if c.Pipeline.ForceCloseWindowMonths < 0 {
		return fmt.Errorf("pipeline.force_close_window_months must be non-negative, got %d", c.Pipeline.ForceCloseWindowMonths)
	}

	if len(c.Usage.Features) == 0 {
		return fmt.Errorf("usage.features must not be empty")
	}
	if c.Usage.NoiseStd < 0 {
		return fmt.Errorf("usage.noise_std must be non-negative, got %f", c.Usage.NoiseStd)
	}
	if c.Usage.ContradictorySignalRate < 0 || c.Usage.ContradictorySignalRate > 1 {
		return fmt.Errorf("usage.contradictory_signal_rate must be in [0,1], got %f", c.Usage.ContradictorySignalRate)
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, or empty for default)", c.Logging.Level)
	}

	return nil
}

// SegmentWeights returns the renormalized segment mix in canonical segment
// order. Segments absent from the configured mix default to weight 0.25
// before renormalization.
func (c *Config) SegmentWeights() []float64 {
	weights := make([]float64, len(tables.Segments))
	var total float64
	for i, seg := range tables.Segments {
		w, ok := c.SegmentMix[seg]
		if !ok {
			w = 0.25
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return weights
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// GroupFor returns the behavior block for a segment.
func (c *Config) GroupFor(segment string) GroupBehavior {
	if tables.SegmentGroup(segment) == tables.GroupEnterpriseLarge {
		return c.EnterpriseLarge
	}
	return c.MidSMB
}

// ChurnTargetSegments returns the segments with configured churn targets in
// deterministic order.
func (c *Config) ChurnTargetSegments() []string {
	segs := make([]string, 0, len(c.ChurnTargetsBySegment))
	for seg := range c.ChurnTargetsBySegment {
		segs = append(segs, seg)
	}
	sort.Strings(segs)
	return segs
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REVSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REVSIM_OUTPUT_BASE_PATH"); v != "" {
		cfg.Output.BasePath = v
	}
}
