package simulate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/config"
	"github.com/nvandessel/revsim/internal/rng"
	"github.com/nvandessel/revsim/internal/tables"
)

// baseRenewalChurn converts an annual churn target into a per-renewal-event
// probability for a given contract term, so that segments on multi-year
// terms churn at the same annual rate as segments renewing yearly.
func baseRenewalChurn(annualTarget float64, termMonths int) float64 {
	return 1 - math.Pow(1-annualTarget, float64(termMonths)/12)
}

// effectiveRenewalChurn adjusts the base probability for customer health and
// adds noise. A customer at the top of the health range churns at a fraction
// of the segment rate; one at the bottom churns at a multiple of it.
func effectiveRenewalChurn(base, latentHealth, noise float64) float64 {
	return rng.Clip(base*(1.2-latentHealth)+noise, 0.02, 0.95)
}

const addOnAttachProb = 0.3

type contractLine struct {
	product  tables.Product
	quantity float64
	price    float64
}

// contractChain is one customer's planned subscription history: the initial
// term plus renewals at the term cadence, and whether the customer churns at
// the first renewal boundary.
type contractChain struct {
	cust       int // index into the customers slice
	startIdx   int
	term       int
	renewIdx   int // first renewal boundary; >= horizon when none occurs
	lines      []contractLine
	oneTime    *contractLine
	billing    string
	discount   float64
	churnScore float64
	churns     bool
}

// generateContracts builds the full subscription history for every customer.
// It plans every chain first, then assigns churn per segment, then emits the
// line items. A churned renewal is emitted with status cancelled and carries
// no recurring revenue, so churn is reconstructable downstream as a
// positive-to-zero ARR transition.
func generateContracts(cfg *config.Config, cal []time.Time, products []tables.Product,
	customers []tables.Customer, latents []latentTraits, r *rng.RNG) []tables.SubscriptionLineItem {

	months := len(cal)
	recurringByFamily := make(map[string]tables.Product, len(products))
	var addOn tables.Product
	hasAddOn := false
	for _, p := range products {
		if p.IsRecurring {
			recurringByFamily[p.ProductFamily] = p
		} else {
			addOn = p
			hasAddOn = true
		}
	}

	chains := make([]*contractChain, 0, len(customers))
	for i, cust := range customers {
		lat := latents[i]
		prof := segmentProfiles[cust.Segment]
		group := cfg.GroupFor(cust.Segment)

		lag := r.ChoiceInt(group.OnboardingLagChoices)
		if lat.onboardingComplexity >= 1.2 {
			lag++
		}
		startIdx := lat.createdMonth + lag
		if startIdx >= months {
			// Signed too late in the window to start a contract.
			continue
		}

		nFamilies := prof.familiesMin
		if prof.familiesMax > prof.familiesMin {
			nFamilies += r.IntN(prof.familiesMax - prof.familiesMin + 1)
		}
		families := pickFamilies(r, nFamilies)

		lines := make([]contractLine, 0, len(families))
		attachAddOn := false
		for _, fam := range families {
			qty := (prof.qtyLo + (prof.qtyHi-prof.qtyLo)*lat.size) * r.Uniform(0.7, 1.3)
			price := (prof.priceLo + (prof.priceHi-prof.priceLo)*lat.size) * r.Uniform(0.85, 1.15)
			lines = append(lines, contractLine{
				product:  recurringByFamily[fam],
				quantity: math.Max(1, qty),
				price:    price,
			})
			if fam == addOnFamily && hasAddOn && r.Bool(addOnAttachProb) {
				attachAddOn = true
			}
		}
		var oneTime *contractLine
		if attachAddOn {
			oneTime = &contractLine{
				product:  addOn,
				quantity: 1,
				price:    r.Uniform(500, 5000) * (1 + 4*lat.size),
			}
		}

		billing := tables.BillingMonthly
		if r.Bool(prof.annualBillingProb) {
			billing = tables.BillingAnnual
		}

		term := r.ChoiceInt(group.TermMonthsChoices)
		base := baseRenewalChurn(cfg.ChurnTargetsBySegment[cust.Segment], term)

		chains = append(chains, &contractChain{
			cust:       i,
			startIdx:   startIdx,
			term:       term,
			renewIdx:   startIdx + term,
			lines:      lines,
			oneTime:    oneTime,
			billing:    billing,
			discount:   r.Uniform(0, prof.discountMax),
			churnScore: effectiveRenewalChurn(base, lat.health, r.Uniform(-0.05, 0.08)),
		})
	}

	assignChurn(cfg, chains, customers, months)

	var out []tables.SubscriptionLineItem
	contractSeq := 0
	for _, ch := range chains {
		cust := customers[ch.cust]
		lat := latents[ch.cust]
		prof := segmentProfiles[cust.Segment]

		startIdx := ch.startIdx
		first := true
		for startIdx < months {
			if !first {
				if ch.churns {
					contractSeq++
					out = append(out, termRows(contractSeq, cust.CustomerID, ch.lines, nil,
						cal[startIdx], ch.term, ch.billing, ch.discount, tables.StatusCancelled)...)
					break
				}
				// Renewal adjustments: expansion trumps contraction, price
				// pressure and discount are redrawn either way.
				if r.Bool(0.4 * lat.expansionPropensity) {
					growth := 1 + r.Uniform(0.05, 0.30)
					for j := range ch.lines {
						ch.lines[j].quantity *= growth
					}
				} else if r.Bool(0.15) {
					shrink := 1 - r.Uniform(0.02, 0.10)
					for j := range ch.lines {
						ch.lines[j].quantity = math.Max(1, ch.lines[j].quantity*shrink)
					}
				}
				if r.Bool(0.5 * lat.priceSensitivity) {
					cut := 1 - r.Uniform(0.02, 0.12)
					for j := range ch.lines {
						ch.lines[j].price *= cut
					}
				}
				ch.discount = r.Uniform(0, prof.discountMax)
			}

			contractSeq++
			var oneTime *contractLine
			if first {
				oneTime = ch.oneTime
			}
			out = append(out, termRows(contractSeq, cust.CustomerID, ch.lines, oneTime,
				cal[startIdx], ch.term, ch.billing, ch.discount, tables.StatusActive)...)

			first = false
			startIdx += ch.term
		}
	}
	return out
}

// assignChurn decides which customers churn. The churn count per segment is
// pinned to the configured annual target over the observation window:
// quota = round(at_risk * target / annualization factor). The customers
// with the highest churn propensity are the ones who churn, so retention
// still tracks latent health. Only chains whose first renewal leaves at
// least two fully zero months inside the window are candidates, because a
// later cancellation is not reconstructable from the revenue matrix.
func assignChurn(cfg *config.Config, chains []*contractChain, customers []tables.Customer, months int) {
	factor := tables.AnnualizationFactor(months)
	atRisk := make(map[string]int)
	candidates := make(map[string][]*contractChain)
	for _, ch := range chains {
		seg := customers[ch.cust].Segment
		atRisk[seg]++
		if ch.renewIdx <= months-2 {
			candidates[seg] = append(candidates[seg], ch)
		}
	}
	for _, seg := range tables.Segments {
		target := cfg.ChurnTargetsBySegment[seg]
		if target <= 0 {
			continue
		}
		quota := int(math.Round(float64(atRisk[seg]) * target / factor))
		cands := candidates[seg]
		if quota > len(cands) {
			quota = len(cands)
		}
		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].churnScore != cands[j].churnScore {
				return cands[i].churnScore > cands[j].churnScore
			}
			return cands[i].cust < cands[j].cust
		})
		for i := 0; i < quota; i++ {
			cands[i].churns = true
		}
	}
}

// termRows emits one contract term: one row per recurring line plus an
// optional one-time add-on, all under the same contract id and dates.
func termRows(seq int, customerID string, lines []contractLine, oneTime *contractLine,
	start time.Time, termMonths int, billing string, discount float64, status string) []tables.SubscriptionLineItem {

	contractID := fmt.Sprintf("CT-%06d", seq)
	startDate := calendar.Format(start)
	endDate := calendar.Format(calendar.EndOfTerm(start, termMonths))

	rows := make([]tables.SubscriptionLineItem, 0, len(lines)+1)
	for _, ln := range lines {
		rows = append(rows, tables.SubscriptionLineItem{
			CompanyID:         tables.CompanyID,
			ContractID:        contractID,
			CustomerID:        customerID,
			ProductID:         ln.product.ProductID,
			ContractStartDate: startDate,
			ContractEndDate:   endDate,
			BillingFrequency:  billing,
			Quantity:          int64(math.Round(ln.quantity)),
			UnitPrice:         math.Round(ln.price*100) / 100,
			DiscountPct:       math.Round(discount*10000) / 10000,
			Status:            status,
		})
	}
	if oneTime != nil {
		rows = append(rows, tables.SubscriptionLineItem{
			CompanyID:         tables.CompanyID,
			ContractID:        contractID,
			CustomerID:        customerID,
			ProductID:         oneTime.product.ProductID,
			ContractStartDate: startDate,
			ContractEndDate:   endDate,
			BillingFrequency:  tables.BillingOneTime,
			Quantity:          int64(oneTime.quantity),
			UnitPrice:         math.Round(oneTime.price*100) / 100,
			DiscountPct:       0,
			Status:            status,
		})
	}
	return rows
}

// pickFamilies draws n distinct product families in a deterministic order.
func pickFamilies(r *rng.RNG, n int) []string {
	if n >= len(productFamilies) {
		out := make([]string, len(productFamilies))
		copy(out, productFamilies)
		return out
	}
	idx := make([]int, len(productFamilies))
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates over the index slice.
	for i := 0; i < n; i++ {
		j := i + r.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = productFamilies[idx[i]]
	}
	return out
}
