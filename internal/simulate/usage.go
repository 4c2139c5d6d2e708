package simulate

import (
	"math"
	"time"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/config"
	"github.com/nvandessel/revsim/internal/rng"
	"github.com/nvandessel/revsim/internal/tables"
)

// onboardingRamp scales usage up over the first months of a customer's
// life: 40% of steady state at creation, reaching full usage after three
// elapsed months.
func onboardingRamp(monthsSinceCreated int) float64 {
	if monthsSinceCreated < 0 {
		monthsSinceCreated = 0
	}
	return math.Min(1.0, 0.4+0.2*float64(monthsSinceCreated))
}

// seasonality applies a mild annual cycle to usage intensity.
func seasonality(monthIdx int) float64 {
	return 1 + 0.1*math.Sin(2*math.Pi*float64(monthIdx)/12)
}

// generateUsage emits per-feature monthly usage for every customer-month
// covered by an active contract. Usage is proportional to latent health,
// ramps during onboarding, follows a seasonal cycle, and dips in the months
// leading up to a churn, so that product telemetry is a leading indicator
// of retention the way it is in real accounts.
func generateUsage(cfg *config.Config, cal []time.Time, customers []tables.Customer,
	latents []latentTraits, cov *Coverage, r *rng.RNG) []tables.UsageRecord {

	var out []tables.UsageRecord
	for i, cust := range customers {
		lat := latents[i]
		churnM, hasChurn := cov.ChurnMonth(cust.CustomerID)

		for m := 0; m < len(cal); m++ {
			if !cov.Covered(cust.CustomerID, m) {
				continue
			}

			base := 100 * lat.health * onboardingRamp(m-lat.createdMonth) * seasonality(m)
			if hasChurn && m >= churnM-3 && m < churnM && r.Bool(0.6) {
				base *= r.Uniform(0.35, 0.75)
			}
			base *= r.ClippedNormal(1, cfg.Usage.NoiseStd, 0.3, 1.8)

			activeUsers := int64(math.Max(1, math.Round(base*r.Uniform(0.3, 1.0))))
			raw := base * float64(activeUsers) * r.Uniform(0.5, 1.5)

			month := calendar.Format(cal[m])
			for _, feature := range cfg.Usage.Features {
				scale := r.ClippedNormal(1, 0.15, 0.5, 1.5)
				out = append(out, tables.UsageRecord{
					CompanyID:   tables.CompanyID,
					Month:       month,
					CustomerID:  cust.CustomerID,
					FeatureKey:  feature,
					UsageCount:  int64(math.Max(0, math.Round(raw*scale))),
					ActiveUsers: activeUsers,
				})
			}
		}
	}
	return out
}
