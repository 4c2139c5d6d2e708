package simulate

import (
	"fmt"
	"io"

	"github.com/nvandessel/revsim/internal/config"
	"github.com/nvandessel/revsim/internal/tables"
)

// WriteQualityReport prints a short post-generation summary: segment mix,
// logo and revenue churn over contracts, average ARR per segment, and the
// close rate over resolved pipeline opportunities. It is a smoke check for
// the operator, not a validation; the validate command applies the real
// statistical checks.
func WriteQualityReport(w io.Writer, cfg *config.Config, ds *tables.Dataset) {
	fmt.Fprintln(w, "\n--- Data quality report ---")
	segCounts := make(map[string]int)
	segByCustomer := make(map[string]string, len(ds.Customers))
	for _, c := range ds.Customers {
		segCounts[c.Segment]++
		segByCustomer[c.CustomerID] = c.Segment
	}
	fmt.Fprintln(w, "Customers per segment:")
	for _, seg := range tables.Segments {
		fmt.Fprintf(w, "  %s: %d\n", seg, segCounts[seg])
	}

	if len(ds.Subscriptions) == 0 {
		fmt.Fprintln(w, "Churn/ARR: no subscriptions.")
		fmt.Fprintln(w, "Pipeline: no data.")
		return
	}

	contracts := make(map[string]bool)
	cancelled := make(map[string]bool)
	var revTotal, revCancelled float64
	segARRSum := make(map[string]float64)
	segARRCount := make(map[string]int)
	for _, item := range ds.Subscriptions {
		contracts[item.ContractID] = true
		mrr := tables.MonthlyRevenue(item)
		revTotal += mrr
		if item.Status == tables.StatusCancelled {
			cancelled[item.ContractID] = true
			revCancelled += mrr
		}
		seg := segByCustomer[item.CustomerID]
		segARRSum[seg] += mrr * 12
		segARRCount[seg]++
	}
	churnLogo := 0.0
	if len(contracts) > 0 {
		churnLogo = float64(len(cancelled)) / float64(len(contracts))
	}
	churnRev := 0.0
	if revTotal > 0 {
		churnRev = revCancelled / revTotal
	}
	fmt.Fprintf(w, "Churn (logo): %.2f%% of contracts cancelled\n", churnLogo*100)
	fmt.Fprintf(w, "Churn (revenue): %.2f%% of contract MRR lost\n", churnRev*100)

	fmt.Fprintln(w, "Avg ARR by segment:")
	for _, seg := range tables.Segments {
		avg := 0.0
		if n := segARRCount[seg]; n > 0 {
			avg = segARRSum[seg] / float64(n)
		}
		fmt.Fprintf(w, "  %s: %.0f\n", seg, avg)
	}

	if len(ds.Pipeline) > 0 && len(cfg.Pipeline.StageNames) >= 2 {
		n := len(cfg.Pipeline.StageNames)
		wonStage := cfg.Pipeline.StageNames[n-2]
		lostStage := cfg.Pipeline.StageNames[n-1]
		// Snapshots are chronological, so the running value per opportunity
		// ends at its final state.
		lastStage := make(map[string]string)
		for _, snap := range ds.Pipeline {
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
		if closed > 0 {
			fmt.Fprintf(w, "Pipeline close rate (of closed opps): %.1f%% won\n",
				float64(won)/float64(closed)*100)
		}
	}
	fmt.Fprintln(w, "Sanity counts:")
	fmt.Fprintf(w, "  customers: %d, subscription_line_items: %d, pipeline_snapshots: %d\n",
		len(ds.Customers), len(ds.Subscriptions), len(ds.Pipeline))
	fmt.Fprintln(w, "---")
}
