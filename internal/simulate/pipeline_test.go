package simulate

import (
	"strings"
	"testing"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/config"
	"github.com/nvandessel/revsim/internal/rng"
	"github.com/nvandessel/revsim/internal/tables"
)

func TestNewFunnelGeometry(t *testing.T) {
	cfg := config.Default()
	f := newFunnel(cfg, 24)
	if got := cfg.Pipeline.StageNames[f.wonIdx]; got != "closed_won" {
		t.Errorf("won stage = %s, want closed_won", got)
	}
	if got := cfg.Pipeline.StageNames[f.lostIdx]; got != "closed_lost" {
		t.Errorf("lost stage = %s, want closed_lost", got)
	}
	if got := cfg.Pipeline.StageNames[f.finalOpen]; got != "negotiation" {
		t.Errorf("final open stage = %s, want negotiation", got)
	}
}

func TestTransitionTerminalIsSticky(t *testing.T) {
	cfg := config.Default()
	f := newFunnel(cfg, 24)
	r := rng.New(42)

	o := &opportunity{segment: "smb", stage: f.wonIdx, terminal: true}
	for m := 0; m < 50; m++ {
		f.transition(o, m, r)
		if o.stage != f.wonIdx {
			t.Fatalf("terminal opportunity moved to stage %d", o.stage)
		}
	}
}

func TestTransitionStaysInBounds(t *testing.T) {
	cfg := config.Default()
	f := newFunnel(cfg, 24)
	r := rng.New(42)

	start, _ := calendar.ParseMonth(cfg.StartMonth)
	for i := 0; i < 500; i++ {
		o := &opportunity{segment: "large", expectedClose: start}
		for m := 0; m < 24 && !o.terminal; m++ {
			f.transition(o, m, r)
			if o.stage < 0 || o.stage > f.lostIdx {
				t.Fatalf("stage %d out of bounds", o.stage)
			}
			if !o.terminal && o.stage > f.finalOpen {
				t.Fatalf("open opportunity sits on terminal stage %d", o.stage)
			}
		}
	}
}

// advanceFrom runs single-month transitions over fresh seeds until one
// advances the opportunity out of the given stage, and returns it.
func advanceFrom(t *testing.T, f funnel, stage int, segment string) *opportunity {
	t.Helper()
	start, _ := calendar.ParseMonth("2024-01")
	for seed := uint64(0); seed < 1000; seed++ {
		o := &opportunity{segment: segment, stage: stage, expectedClose: start}
		f.transition(o, 0, rng.New(seed))
		if o.stage == stage+1 && !o.terminal {
			return o
		}
	}
	t.Fatalf("no advancement out of stage %d in 1000 seeds", stage)
	return nil
}

func TestAdvanceSlippageUsesEnteredStage(t *testing.T) {
	cfg := config.Default()
	f := newFunnel(cfg, 24)
	start, _ := calendar.ParseMonth("2024-01")

	// Default slippage configures proposal and negotiation. Entering a
	// configured stage pushes the close date by its slippage months, with
	// one extra for enterprise and large deals.
	cases := []struct {
		name       string
		fromStage  string
		segment    string
		slipMonths int
	}{
		{"unconfigured stage", "prospecting", "smb", 0},
		{"entering proposal", "discovery", "smb", 1},
		{"entering negotiation", "proposal", "smb", 2},
		{"entering negotiation enterprise", "proposal", "enterprise", 3},
	}
	for _, tc := range cases {
		stage := -1
		for i, name := range f.stages {
			if name == tc.fromStage {
				stage = i
			}
		}
		if stage < 0 {
			t.Fatalf("%s: stage %s not in default config", tc.name, tc.fromStage)
		}
		o := advanceFrom(t, f, stage, tc.segment)
		want := calendar.AddMonths(start, tc.slipMonths)
		if !o.expectedClose.Equal(want) {
			t.Errorf("%s: expected close %s, want %s", tc.name,
				calendar.Format(o.expectedClose), calendar.Format(want))
		}
	}
}

func TestGeneratePipelineInvariants(t *testing.T) {
	cfg := config.Default()
	cfg.NCustomersTotal = 100
	cal := testCalendar(t, cfg)
	master := rng.New(42)
	customers, _ := generateCustomers(cfg, cal, master.Derive("customers"))

	snaps := generatePipeline(cfg, cal, customers, master.Derive("pipeline"))
	if len(snaps) == 0 {
		t.Fatal("no pipeline snapshots generated")
	}

	stageRank := make(map[string]int)
	for i, s := range cfg.Pipeline.StageNames {
		stageRank[s] = i
	}
	custSegment := make(map[string]string)
	for _, c := range customers {
		custSegment[c.CustomerID] = c.Segment
	}

	firstStage := make(map[string]string)
	seenMonths := make(map[string]int)
	prevDate := ""
	for _, snap := range snaps {
		if snap.SnapshotDate < prevDate {
			t.Fatal("snapshots are not in chronological order")
		}
		prevDate = snap.SnapshotDate

		if !strings.HasPrefix(snap.OpportunityID, "OPP-") {
			t.Errorf("opportunity id %q has wrong prefix", snap.OpportunityID)
		}
		if _, ok := stageRank[snap.Stage]; !ok {
			t.Errorf("unknown stage %q", snap.Stage)
		}
		if snap.Amount <= 0 {
			t.Errorf("opportunity %s amount %v <= 0", snap.OpportunityID, snap.Amount)
		}
		prof, ok := segmentProfiles[snap.Segment]
		if !ok {
			t.Errorf("opportunity %s has unknown segment %q", snap.OpportunityID, snap.Segment)
		} else if snap.Amount < prof.oppAmountLo || snap.Amount > prof.oppAmountHi {
			t.Errorf("opportunity %s amount %v outside segment %s range [%v, %v]",
				snap.OpportunityID, snap.Amount, snap.Segment, prof.oppAmountLo, prof.oppAmountHi)
		}

		switch snap.OpportunityType {
		case tables.OppTypeExpansion:
			if snap.CustomerID == "" {
				t.Errorf("expansion opportunity %s has no customer", snap.OpportunityID)
			}
			if got := custSegment[snap.CustomerID]; got != snap.Segment {
				t.Errorf("expansion opportunity %s segment %q != customer segment %q",
					snap.OpportunityID, snap.Segment, got)
			}
		case tables.OppTypeNewBusiness:
			if snap.CustomerID != "" {
				t.Errorf("new business opportunity %s is linked to %s", snap.OpportunityID, snap.CustomerID)
			}
		default:
			t.Errorf("unknown opportunity type %q", snap.OpportunityType)
		}

		if _, seen := firstStage[snap.OpportunityID]; !seen {
			firstStage[snap.OpportunityID] = snap.Stage
		}
		seenMonths[snap.OpportunityID]++
	}

	// Every opportunity enters the funnel at the first stage.
	entry := cfg.Pipeline.StageNames[0]
	for id, stage := range firstStage {
		if stage != entry {
			t.Errorf("opportunity %s first snapshot stage = %q, want %q", id, stage, entry)
		}
	}
}

func TestGeneratePipelineTerminalSnapshotsRepeat(t *testing.T) {
	cfg := config.Default()
	cfg.NCustomersTotal = 100
	cal := testCalendar(t, cfg)
	master := rng.New(42)
	customers, _ := generateCustomers(cfg, cal, master.Derive("customers"))
	snaps := generatePipeline(cfg, cal, customers, master.Derive("pipeline"))

	f := newFunnel(cfg, cfg.Months)
	won := cfg.Pipeline.StageNames[f.wonIdx]
	lost := cfg.Pipeline.StageNames[f.lostIdx]

	// Once an opportunity shows a terminal stage, every later snapshot
	// repeats it unchanged.
	terminalStage := make(map[string]string)
	terminalAmount := make(map[string]float64)
	for _, snap := range snaps {
		if prev, ok := terminalStage[snap.OpportunityID]; ok {
			if snap.Stage != prev {
				t.Fatalf("opportunity %s left terminal stage %q for %q", snap.OpportunityID, prev, snap.Stage)
			}
			if snap.Amount != terminalAmount[snap.OpportunityID] {
				t.Fatalf("opportunity %s amount changed after closing", snap.OpportunityID)
			}
			continue
		}
		if snap.Stage == won || snap.Stage == lost {
			terminalStage[snap.OpportunityID] = snap.Stage
			terminalAmount[snap.OpportunityID] = snap.Amount
		}
	}
	if len(terminalStage) == 0 {
		t.Fatal("expected some opportunities to close over 24 months")
	}
}

func TestGeneratePipelineDynamics(t *testing.T) {
	cfg := config.Default()
	cfg.NCustomersTotal = 400
	cal := testCalendar(t, cfg)
	master := rng.New(42)
	customers, _ := generateCustomers(cfg, cal, master.Derive("customers"))
	snaps := generatePipeline(cfg, cal, customers, master.Derive("pipeline"))

	f := newFunnel(cfg, cfg.Months)
	won := cfg.Pipeline.StageNames[f.wonIdx]
	lost := cfg.Pipeline.StageNames[f.lostIdx]
	rank := make(map[string]int)
	for i, s := range cfg.Pipeline.StageNames {
		rank[s] = i
	}

	lastStage := make(map[string]string)
	prevRank := make(map[string]int)
	regressed := make(map[string]bool)
	for _, snap := range snaps {
		r := rank[snap.Stage]
		if prev, ok := prevRank[snap.OpportunityID]; ok && r < prev {
			regressed[snap.OpportunityID] = true
		}
		prevRank[snap.OpportunityID] = r
		lastStage[snap.OpportunityID] = snap.Stage
	}

	wonN, closed := 0, 0
	for _, stage := range lastStage {
		switch stage {
		case won:
			wonN++
			closed++
		case lost:
			closed++
		}
	}
	if closed == 0 {
		t.Fatal("no closed opportunities")
	}
	rate := float64(wonN) / float64(closed)
	if rate < 0.12 || rate > 0.48 {
		t.Errorf("close rate = %.3f, want roughly [0.15, 0.45]", rate)
	}

	vol := float64(len(regressed)) / float64(len(lastStage))
	if vol < 0.05 {
		t.Errorf("stage regression share = %.3f, want >= 0.05", vol)
	}
}
