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

// Funnel transition probabilities. Branches are evaluated in fixed priority
// order each month: forced end-of-horizon resolution, advancement, direct
// loss from the final open stage, regression.
const (
	forceCloseProb    = 0.35
	forceCloseWinProb = 0.65
	advanceProb       = 0.52
	winFromFinalProb  = 0.30
	directLossProb    = 0.12
	regressProb       = 0.08
	expansionLinkProb = 0.40
)

type opportunity struct {
	id            string
	customerID    string
	segment       string
	oppType       string
	amount        float64
	stage         int
	expectedClose time.Time
	terminal      bool
}

// funnel precomputes stage geometry from the configured stage list. The
// last two stages are terminal: won then lost. Everything before them is
// open, and the stage just before the terminals is the final open stage.
type funnel struct {
	stages      []string
	wonIdx      int
	lostIdx     int
	finalOpen   int
	slippage    map[string]int
	forceWindow int
	months      int
}

func newFunnel(cfg *config.Config, months int) funnel {
	n := len(cfg.Pipeline.StageNames)
	return funnel{
		stages:      cfg.Pipeline.StageNames,
		wonIdx:      n - 2,
		lostIdx:     n - 1,
		finalOpen:   n - 3,
		slippage:    cfg.Pipeline.SlippageByStageMonths,
		forceWindow: cfg.Pipeline.ForceCloseWindowMonths,
		months:      months,
	}
}

// transition applies one month of funnel movement to an opportunity.
// Terminal opportunities never move again; their later snapshots repeat
// the closing state unchanged.
func (f funnel) transition(o *opportunity, monthIdx int, r *rng.RNG) {
	if o.terminal {
		return
	}

	lateStage := o.stage == f.finalOpen || o.stage == f.finalOpen-1
	if monthIdx >= f.months-f.forceWindow && lateStage && r.Bool(forceCloseProb) {
		if r.Bool(forceCloseWinProb) {
			f.close(o, f.wonIdx)
		} else {
			f.close(o, f.lostIdx)
		}
		return
	}

	if r.Bool(advanceProb) {
		if o.stage == f.finalOpen {
			if r.Bool(winFromFinalProb) {
				f.close(o, f.wonIdx)
			} else {
				f.close(o, f.lostIdx)
			}
			return
		}
		o.stage++
		// Slippage is keyed on the stage the deal lands in: entering a
		// sticky stage pushes the expected close out.
		slip := f.slippage[f.stages[o.stage]]
		if slip > 0 && tables.SegmentGroup(o.segment) == tables.GroupEnterpriseLarge {
			slip++
		}
		if slip > 0 {
			o.expectedClose = calendar.AddMonths(o.expectedClose, slip)
		}
		return
	}

	if o.stage == f.finalOpen && r.Bool(directLossProb) {
		f.close(o, f.lostIdx)
		return
	}

	if o.stage > 0 && r.Bool(regressProb) {
		o.stage--
	}
}

func (funnel) close(o *opportunity, stage int) {
	o.stage = stage
	o.terminal = true
}

// generatePipeline simulates a monthly sales funnel over the calendar and
// emits one snapshot row per known opportunity per month, terminal or not.
// Spawn volume scales with the customer population; a portion of new
// opportunities are expansion deals linked to an existing customer, the
// rest are unlinked new business.
func generatePipeline(cfg *config.Config, cal []time.Time, customers []tables.Customer, r *rng.RNG) []tables.PipelineSnapshot {
	f := newFunnel(cfg, len(cal))
	weights := cfg.SegmentWeights()
	perMonth := float64(len(customers)) / 100 * cfg.Pipeline.OppsPerMonthPer100Customers

	var opps []*opportunity
	var out []tables.PipelineSnapshot
	seq := 0

	for m := 0; m < len(cal); m++ {
		// Existing opportunities move before this month's are spawned, so a
		// new opportunity's first snapshot is always its entry stage.
		for _, o := range opps {
			f.transition(o, m, r)
		}

		n := int(math.Round(perMonth * r.Uniform(0.8, 1.2)))
		for k := 0; k < n; k++ {
			seq++
			o := &opportunity{
				id:      fmt.Sprintf("OPP-%06d", seq),
				oppType: tables.OppTypeNewBusiness,
			}
			if len(customers) > 0 && r.Bool(expansionLinkProb) {
				c := customers[r.IntN(len(customers))]
				o.customerID = c.CustomerID
				o.segment = c.Segment
				o.oppType = tables.OppTypeExpansion
			} else {
				o.segment = tables.Segments[r.WeightedIndex(weights)]
			}

			prof := segmentProfiles[o.segment]
			o.amount = math.Round(r.Skewed(prof.oppAmountLo, prof.oppAmountHi, 2)*100) / 100

			horizon := 3 + r.IntN(4)
			if tables.SegmentGroup(o.segment) == tables.GroupEnterpriseLarge {
				horizon += 2
			}
			o.expectedClose = calendar.AddMonths(cal[m], horizon)
			opps = append(opps, o)
		}

		snapshotDate := calendar.Format(cal[m])
		for _, o := range opps {
			out = append(out, tables.PipelineSnapshot{
				CompanyID:         tables.CompanyID,
				SnapshotDate:      snapshotDate,
				OpportunityID:     o.id,
				CustomerID:        o.customerID,
				Segment:           o.segment,
				Stage:             f.stages[o.stage],
				Amount:            o.amount,
				ExpectedCloseDate: calendar.Format(o.expectedClose),
				OpportunityType:   o.oppType,
			})
		}
	}
	return out
}
