// Package validate certifies that a generated dataset satisfies the
// configured realism targets: segment mix, annualized churn, revenue
// concentration, pipeline dynamics, and usage signal quality. Checks are
// independent and all run to completion; the run fails if any check fails.
package validate

import (
	"math"
	"sort"
	"time"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/config"
	"github.com/nvandessel/revsim/internal/tables"
)

// Tolerances and bounds applied by the checks.
const (
	churnRelativeTolerance = 0.35 // +/- 35% relative vs target
	segmentAbsTolerance    = 0.08 // max absolute diff per segment share

	top5ShareOverallMin         = 0.20
	top5ShareOverallMax         = 0.70
	top5ShareEnterpriseLargeMin = 0.30

	pipelineCloseRateMin       = 0.15
	pipelineCloseRateMax       = 0.45
	pipelineStageVolatilityMin = 0.05

	usageCVMin       = 0.15
	usageCRMCorrMin  = 0.15
	usageCRMCorrMax  = 0.75
	usageCorrMinSize = 10
)

// Run applies every check to the dataset and returns the collected report.
func Run(cfg *config.Config, ds *tables.Dataset) *Report {
	return &Report{Checks: []CheckResult{
		SegmentDistribution(ds.Customers, cfg),
		AnnualizedChurn(ds.Subscriptions, ds.Customers, cfg),
		RevenueConcentration(ds.Subscriptions, ds.Customers, cfg),
		PipelineHealth(ds.Pipeline, cfg),
		UsageSignals(ds.Usage, ds.Customers),
	}}
}

// SegmentDistribution compares the realized segment mix against the
// configured targets. Fails if any segment's share deviates by more than
// the absolute tolerance.
func SegmentDistribution(customers []tables.Customer, cfg *config.Config) CheckResult {
	res := CheckResult{Name: "Segment distribution"}
	if len(cfg.SegmentMix) == 0 {
		return res
	}
	if len(customers) == 0 {
		res.failf("No customers")
		return res
	}
	counts := make(map[string]int)
	for _, c := range customers {
		counts[c.Segment]++
	}
	n := float64(len(customers))
	for _, seg := range tables.Segments {
		target, ok := cfg.SegmentMix[seg]
		if !ok {
			continue
		}
		actual := float64(counts[seg]) / n
		if diff := math.Abs(actual - target); diff > segmentAbsTolerance {
			res.failf("Segment %s: |actual - target| = %.3f (max %.2f)", seg, diff, segmentAbsTolerance)
		}
	}
	return res
}

// AnnualizedChurn reconstructs a customer-by-month ARR matrix from active
// contract intervals, bounded to the configured calendar, and detects churn
// as a positive-ARR month followed by at least two consecutive zero months.
// The annualized logo rate must land within the relative tolerance of the
// configured target, overall and per segment. Only customers with
// ever-positive ARR count as at risk.
func AnnualizedChurn(subs []tables.SubscriptionLineItem, customers []tables.Customer, cfg *config.Config) CheckResult {
	res := CheckResult{Name: "Churn by segment"}
	if len(cfg.ChurnTargetsBySegment) == 0 || len(subs) == 0 {
		return res
	}
	start, err := calendar.ParseMonth(cfg.StartMonth)
	if err != nil {
		res.failf("invalid start_month %q: %v", cfg.StartMonth, err)
		return res
	}
	months := cfg.Months

	arr := make(map[string][]float64)
	for _, item := range subs {
		if item.Status != tables.StatusActive {
			continue
		}
		mrr := tables.MonthlyRevenue(item)
		if mrr <= 0 {
			continue
		}
		s, err := time.Parse(calendar.DateLayout, item.ContractStartDate)
		if err != nil {
			res.failf("contract %s: bad start date %q", item.ContractID, item.ContractStartDate)
			continue
		}
		e, err := time.Parse(calendar.DateLayout, item.ContractEndDate)
		if err != nil {
			res.failf("contract %s: bad end date %q", item.ContractID, item.ContractEndDate)
			continue
		}
		lo := calendar.Index(s, start)
		hi := calendar.Index(e, start)
		if lo < 0 {
			lo = 0
		}
		if hi > months-1 {
			hi = months - 1
		}
		if lo > hi {
			continue
		}
		series := arr[item.CustomerID]
		if series == nil {
			series = make([]float64, months)
			arr[item.CustomerID] = series
		}
		for m := lo; m <= hi; m++ {
			series[m] += mrr * 12
		}
	}
	if len(arr) == 0 {
		res.warnf("No active subscription-months for churn calc")
		return res
	}

	churned := make(map[string]bool)
	for cust, series := range arr {
		for i := 0; i+2 < len(series); i++ {
			if series[i] > 0 && series[i+1] == 0 && series[i+2] == 0 {
				churned[cust] = true
				break
			}
		}
	}

	segOf := make(map[string]string, len(customers))
	for _, c := range customers {
		segOf[c.CustomerID] = c.Segment
	}

	atRiskBySeg := make(map[string]int)
	churnedBySeg := make(map[string]int)
	for cust := range arr {
		seg := segOf[cust]
		atRiskBySeg[seg]++
		if churned[cust] {
			churnedBySeg[seg]++
		}
	}

	factor := tables.AnnualizationFactor(months)

	segments := cfg.ChurnTargetSegments()
	var totAtRisk, totChurned int
	var weightedTarget float64
	for _, seg := range segments {
		nAtRisk := atRiskBySeg[seg]
		if nAtRisk == 0 {
			continue
		}
		target := cfg.ChurnTargetsBySegment[seg]
		rate := float64(churnedBySeg[seg]) / float64(nAtRisk) * factor
		low := target * (1 - churnRelativeTolerance)
		high := target * (1 + churnRelativeTolerance)
		if rate < low || rate > high {
			res.failf("Churn %s: annualized %.3f (target %v, allowed [%.3f, %.3f])", seg, rate, target, low, high)
		}
		totAtRisk += nAtRisk
		totChurned += churnedBySeg[seg]
		weightedTarget += float64(nAtRisk) * target
	}
	if totAtRisk > 0 {
		target := weightedTarget / float64(totAtRisk)
		rate := float64(totChurned) / float64(totAtRisk) * factor
		low := target * (1 - churnRelativeTolerance)
		high := target * (1 + churnRelativeTolerance)
		if rate < low || rate > high {
			res.failf("Churn overall: annualized %.3f (target %.3f, allowed [%.3f, %.3f])", rate, target, low, high)
		}
	}
	return res
}

// RevenueConcentration checks top-5 ARR concentration in the last simulated
// month, overall and within the enterprise/large group.
func RevenueConcentration(subs []tables.SubscriptionLineItem, customers []tables.Customer, cfg *config.Config) CheckResult {
	res := CheckResult{Name: "Revenue concentration"}
	if len(subs) == 0 {
		return res
	}
	start, err := calendar.ParseMonth(cfg.StartMonth)
	if err != nil {
		res.failf("invalid start_month %q: %v", cfg.StartMonth, err)
		return res
	}
	last := calendar.AddMonths(start, cfg.Months-1)

	arrByCustomer := make(map[string]float64)
	for _, item := range subs {
		if item.Status != tables.StatusActive {
			continue
		}
		s, err := time.Parse(calendar.DateLayout, item.ContractStartDate)
		if err != nil {
			continue
		}
		e, err := time.Parse(calendar.DateLayout, item.ContractEndDate)
		if err != nil {
			continue
		}
		if s.After(last) || e.Before(last) {
			continue
		}
		arrByCustomer[item.CustomerID] += tables.AnnualRevenue(item)
	}

	segOf := make(map[string]string, len(customers))
	for _, c := range customers {
		segOf[c.CustomerID] = c.Segment
	}

	type custARR struct {
		id  string
		arr float64
	}
	all := make([]custARR, 0, len(arrByCustomer))
	var group []custARR
	var total, groupTotal float64
	for id, arr := range arrByCustomer {
		all = append(all, custARR{id, arr})
		total += arr
		if tables.SegmentGroup(segOf[id]) == tables.GroupEnterpriseLarge {
			group = append(group, custARR{id, arr})
			groupTotal += arr
		}
	}
	if total <= 0 {
		return res
	}

	topShare := func(xs []custARR, sum float64) float64 {
		sort.Slice(xs, func(i, j int) bool {
			if xs[i].arr != xs[j].arr {
				return xs[i].arr > xs[j].arr
			}
			return xs[i].id < xs[j].id
		})
		var top float64
		for i := 0; i < len(xs) && i < 5; i++ {
			top += xs[i].arr
		}
		return top / sum
	}

	share := topShare(all, total)
	if share < top5ShareOverallMin || share > top5ShareOverallMax {
		res.failf("Top-5 share overall %.2f (allowed [%.2f, %.2f])", share, top5ShareOverallMin, top5ShareOverallMax)
	}
	if len(group) >= 5 && groupTotal > 0 {
		groupShare := topShare(group, groupTotal)
		if groupShare < top5ShareEnterpriseLargeMin {
			res.failf("Enterprise_large top-5 share %.2f (min %.2f)", groupShare, top5ShareEnterpriseLargeMin)
		}
	}
	return res
}

// PipelineHealth checks the win rate over resolved opportunities and that
// enough opportunities regress a stage at least once.
func PipelineHealth(snapshots []tables.PipelineSnapshot, cfg *config.Config) CheckResult {
	res := CheckResult{Name: "Pipeline"}
	if len(snapshots) == 0 {
		return res
	}
	stages := cfg.Pipeline.StageNames
	if len(stages) < 3 {
		res.failf("fewer than 3 configured stages")
		return res
	}
	wonStage := stages[len(stages)-2]
	lostStage := stages[len(stages)-1]
	rank := make(map[string]int, len(stages))
	for i, s := range stages {
		rank[s] = i
	}

	// Snapshot dates sort lexicographically, so a stable sort restores
	// chronological order per opportunity regardless of input row order.
	ordered := make([]tables.PipelineSnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SnapshotDate < ordered[j].SnapshotDate
	})

	lastStage := make(map[string]string)
	prevRank := make(map[string]int)
	regressed := make(map[string]bool)
	for _, snap := range ordered {
		r, known := rank[snap.Stage]
		if !known {
			r = -1
		}
		if prev, seen := prevRank[snap.OpportunityID]; seen && r >= 0 && r < prev {
			regressed[snap.OpportunityID] = true
		}
		prevRank[snap.OpportunityID] = r
		lastStage[snap.OpportunityID] = snap.Stage
	}

	won, closed := 0, 0
	for _, stage := range lastStage {
		switch stage {
		case wonStage:
			won++
			closed++
		case lostStage:
			closed++
		}
	}
	if closed == 0 {
		res.failf("No %s/%s opportunities", wonStage, lostStage)
		return res
	}
	rate := float64(won) / float64(closed)
	if rate < pipelineCloseRateMin || rate > pipelineCloseRateMax {
		res.failf("Close rate %.2f (allowed [%.2f, %.2f])", rate, pipelineCloseRateMin, pipelineCloseRateMax)
	}
	vol := float64(len(regressed)) / float64(len(lastStage))
	if vol < pipelineStageVolatilityMin {
		res.failf("Stage volatility (regression %%) %.2f (min %.2f)", vol, pipelineStageVolatilityMin)
	}
	return res
}

// UsageSignals checks that per-user usage has enough spread to be a useful
// signal and that it correlates with the reported CRM health score, but not
// so tightly that the CRM score is redundant.
func UsageSignals(usage []tables.UsageRecord, customers []tables.Customer) CheckResult {
	res := CheckResult{Name: "Usage"}
	if len(usage) == 0 {
		return res
	}

	var perUser []float64
	sumByCustomer := make(map[string]float64)
	countByCustomer := make(map[string]int)
	for _, u := range usage {
		if u.ActiveUsers == 0 {
			continue
		}
		v := float64(u.UsageCount) / float64(u.ActiveUsers)
		perUser = append(perUser, v)
		sumByCustomer[u.CustomerID] += v
		countByCustomer[u.CustomerID]++
	}
	m := mean(perUser)
	if m == 0 {
		res.failf("Usage mean is 0")
		return res
	}
	if cv := stddev(perUser) / m; cv < usageCVMin {
		res.failf("Usage CV %.2f (min %.2f)", cv, usageCVMin)
	}

	var avgUsage, crmScore []float64
	for _, c := range customers {
		n := countByCustomer[c.CustomerID]
		if n == 0 {
			continue
		}
		avgUsage = append(avgUsage, sumByCustomer[c.CustomerID]/float64(n))
		crmScore = append(crmScore, float64(c.CRMHealthInput))
	}
	if len(avgUsage) < usageCorrMinSize {
		res.warnf("Only %d customers with usage; skipping CRM correlation check", len(avgUsage))
		return res
	}
	corr, ok := pearson(avgUsage, crmScore)
	if !ok {
		res.failf("CRM health vs usage correlation is undefined")
	} else if corr < usageCRMCorrMin || corr > usageCRMCorrMax {
		res.failf("CRM health vs usage correlation %.2f (allowed [%.2f, %.2f])", corr, usageCRMCorrMin, usageCRMCorrMax)
	}
	return res
}
