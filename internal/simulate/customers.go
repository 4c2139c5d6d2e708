package simulate

import (
	"fmt"
	"math"
	"time"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/config"
	"github.com/nvandessel/revsim/internal/rng"
	"github.com/nvandessel/revsim/internal/tables"
)

// latentTraits carries the unobserved per-customer state that downstream
// generators condition on. None of it is persisted; it only shapes the
// observable tables so that derived metrics correlate the way real
// business data does.
type latentTraits struct {
	health               float64 // 0.2..0.95, drives retention, usage, and CRM scores
	priceSensitivity     float64
	expansionPropensity  float64
	onboardingComplexity float64
	size                 float64 // heavily right-skewed, drives seats, price, and concentration
	createdMonth         int     // index into the simulation calendar
}

var regions = []string{"NA", "EMEA", "APAC", "LATAM"}

var industries = []string{
	"Software", "Financial Services", "Healthcare", "Retail",
	"Manufacturing", "Education", "Media", "Logistics",
}

var namePrefixes = []string{
	"Apex", "Blue Ridge", "Cascade", "Delta", "Everline", "Fulcrum",
	"Granite", "Harbor", "Ironwood", "Junction", "Keystone", "Lumen",
	"Meridian", "Northwind", "Outpost", "Pinnacle", "Quarry", "Redwood",
	"Summit", "Tidewater", "Vanguard", "Westgate",
}

var nameSuffixes = []string{
	"Systems", "Holdings", "Labs", "Industries", "Group", "Partners",
	"Technologies", "Logistics", "Analytics", "Networks",
}

// scaleHealth maps a latent health draw in [0.2, 0.95] onto the 1..10
// CRM scale before noise and rounding. Monotonic by construction.
func scaleHealth(latent float64) float64 {
	return 1 + (latent-0.2)/0.75*9
}

func generateCustomers(cfg *config.Config, cal []time.Time, r *rng.RNG) ([]tables.Customer, []latentTraits) {
	weights := cfg.SegmentWeights()
	customers := make([]tables.Customer, 0, cfg.NCustomersTotal)
	latents := make([]latentTraits, 0, cfg.NCustomersTotal)

	for i := 0; i < cfg.NCustomersTotal; i++ {
		segment := tables.Segments[r.WeightedIndex(weights)]
		prof := segmentProfiles[segment]

		lat := latentTraits{
			health:              r.Uniform(0.2, 0.95),
			priceSensitivity:    r.Float64(),
			expansionPropensity: r.Float64(),
			size:                math.Pow(r.Float64(), prof.sizeExponent),
			createdMonth:        r.IntN(len(cal)),
		}
		if tables.SegmentGroup(segment) == tables.GroupEnterpriseLarge {
			lat.onboardingComplexity = r.Uniform(0.5, 1.5)
		} else {
			lat.onboardingComplexity = r.Uniform(0.2, 1.0)
		}

		crm := scaleHealth(lat.health) + r.Normal(0, 1.2)
		if r.Bool(cfg.Usage.ContradictorySignalRate) {
			// Contradictory signal: a healthy customer that looks sick in
			// the CRM, or vice versa. Inverted around the scale midpoint
			// before rounding so the noise structure is preserved.
			crm = 11 - crm
		}
		score := int64(rng.Clip(math.Round(crm), 1, 10))

		customers = append(customers, tables.Customer{
			CompanyID:      tables.CompanyID,
			CustomerID:     fmt.Sprintf("CUST-%05d", i+1),
			CustomerName:   fmt.Sprintf("%s %s", r.ChoiceString(namePrefixes), r.ChoiceString(nameSuffixes)),
			Segment:        segment,
			Region:         r.ChoiceString(regions),
			Industry:       r.ChoiceString(industries),
			CreatedDate:    calendar.Format(cal[lat.createdMonth]),
			CRMHealthInput: score,
		})
		latents = append(latents, lat)
	}
	return customers, latents
}
