package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.RandomSeed != 42 {
		t.Errorf("expected RandomSeed 42, got %d", cfg.RandomSeed)
	}
	if cfg.Months != 24 {
		t.Errorf("expected Months 24, got %d", cfg.Months)
	}
	if cfg.NCustomersTotal != 1200 {
		t.Errorf("expected NCustomersTotal 1200, got %d", cfg.NCustomersTotal)
	}
	if cfg.Output.Format != FormatParquet {
		t.Errorf("expected Output.Format %q, got %q", FormatParquet, cfg.Output.Format)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got %q", cfg.Logging.Level)
	}
	if got := cfg.ChurnTargetsBySegment["smb"]; got != 0.22 {
		t.Errorf("expected smb churn target 0.22, got %f", got)
	}
	if len(cfg.Pipeline.StageNames) != 6 {
		t.Errorf("expected 6 pipeline stages, got %d", len(cfg.Pipeline.StageNames))
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sim_config.yml")

	configContent := `
random_seed: 7
start_month: "2023-06-01"
months: 12
n_customers_total: 300

segment_mix:
  enterprise: 0.2
  smb: 0.5

pipeline:
  force_close_window_months: 2

output:
  base_path: ./out
  format: parquet
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile returned error: %v", err)
	}
	if cfg.RandomSeed != 7 {
		t.Errorf("expected RandomSeed 7, got %d", cfg.RandomSeed)
	}
	if cfg.Months != 12 {
		t.Errorf("expected Months 12, got %d", cfg.Months)
	}
	if cfg.Pipeline.ForceCloseWindowMonths != 2 {
		t.Errorf("expected ForceCloseWindowMonths 2, got %d", cfg.Pipeline.ForceCloseWindowMonths)
	}
	// Untouched sections keep their defaults.
	if cfg.Usage.NoiseStd != 0.25 {
		t.Errorf("expected default NoiseStd 0.25, got %f", cfg.Usage.NoiseStd)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config must validate, got: %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"non-parquet format", func(c *Config) { c.Output.Format = "csv" }, "output format"},
		{"zero months", func(c *Config) { c.Months = 0 }, "months"},
		{"zero customers", func(c *Config) { c.NCustomersTotal = 0 }, "n_customers_total"},
		{"bad start month", func(c *Config) { c.StartMonth = "June 2024" }, "start_month"},
		{"unknown segment", func(c *Config) { c.SegmentMix["whale"] = 0.5 }, "unknown segment"},
		{"churn rate above 1", func(c *Config) { c.ChurnTargetsBySegment["smb"] = 1.5 }, "churn_targets_by_segment"},
		{"empty terms", func(c *Config) { c.EnterpriseLarge.TermMonthsChoices = nil }, "term_months_choices"},
		{"two stages", func(c *Config) { c.Pipeline.StageNames = []string{"open", "closed"} }, "stage_names"},
		{"no features", func(c *Config) { c.Usage.Features = nil }, "features"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestSegmentWeights(t *testing.T) {
	cfg := Default()
	cfg.SegmentMix = map[string]float64{
		"enterprise": 1,
		"large":      1,
		"medium":     1,
		"smb":        1,
	}
	weights := cfg.SegmentWeights()
	if len(weights) != 4 {
		t.Fatalf("expected 4 weights, got %d", len(weights))
	}
	var sum float64
	for _, w := range weights {
		if math.Abs(w-0.25) > 1e-9 {
			t.Errorf("expected renormalized weight 0.25, got %f", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights sum to %f, want 1", sum)
	}

	// Missing segments default to 0.25 before renormalization.
	cfg.SegmentMix = map[string]float64{"enterprise": 0.25}
	weights = cfg.SegmentWeights()
	if math.Abs(weights[0]-0.25) > 1e-9 {
		t.Errorf("expected enterprise weight 0.25, got %f", weights[0])
	}
}

func TestGroupFor(t *testing.T) {
	cfg := Default()
	cfg.EnterpriseLarge.OnboardingLagChoices = []int{9}
	cfg.MidSMB.OnboardingLagChoices = []int{0}

	if got := cfg.GroupFor("enterprise").OnboardingLagChoices[0]; got != 9 {
		t.Errorf("enterprise group lag = %d, want 9", got)
	}
	if got := cfg.GroupFor("large").OnboardingLagChoices[0]; got != 9 {
		t.Errorf("large group lag = %d, want 9", got)
	}
	if got := cfg.GroupFor("smb").OnboardingLagChoices[0]; got != 0 {
		t.Errorf("smb group lag = %d, want 0", got)
	}
}

func TestChurnTargetSegmentsSorted(t *testing.T) {
	cfg := Default()
	segs := cfg.ChurnTargetSegments()
	want := []string{"enterprise", "large", "medium", "smb"}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d", len(segs), len(want))
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segs[%d] = %s, want %s", i, segs[i], want[i])
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sim_config.yml")
	if err := os.WriteFile(configPath, []byte("months: 6\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("REVSIM_LOG_LEVEL", "debug")
	t.Setenv("REVSIM_OUTPUT_BASE_PATH", "/tmp/override")

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile returned error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug' from env, got %q", cfg.Logging.Level)
	}
	if cfg.Output.BasePath != "/tmp/override" {
		t.Errorf("expected base path from env, got %q", cfg.Output.BasePath)
	}
}
