package simulate

import (
	"testing"
	"time"

	"github.com/nvandessel/revsim/internal/tables"
)

func TestBuildCoverage(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []tables.SubscriptionLineItem{
		{ContractID: "CT-000001", CustomerID: "CUST-00001",
			ContractStartDate: "2024-01-01", ContractEndDate: "2024-12-31", Status: tables.StatusActive},
		{ContractID: "CT-000002", CustomerID: "CUST-00001",
			ContractStartDate: "2025-01-01", ContractEndDate: "2025-12-31", Status: tables.StatusCancelled},
		{ContractID: "CT-000003", CustomerID: "CUST-00002",
			ContractStartDate: "2024-06-01", ContractEndDate: "2026-05-31", Status: tables.StatusActive},
	}
	cov, err := BuildCoverage(items, start, 24)
	if err != nil {
		t.Fatalf("BuildCoverage returned error: %v", err)
	}

	// First customer is covered for 2024 only; the cancelled term does not
	// extend coverage.
	for m := 0; m < 12; m++ {
		if !cov.Covered("CUST-00001", m) {
			t.Errorf("CUST-00001 month %d: want covered", m)
		}
	}
	for m := 12; m < 24; m++ {
		if cov.Covered("CUST-00001", m) {
			t.Errorf("CUST-00001 month %d: want not covered", m)
		}
	}
	churn, ok := cov.ChurnMonth("CUST-00001")
	if !ok {
		t.Fatal("CUST-00001: expected a churn month")
	}
	if churn != 12 {
		t.Errorf("CUST-00001 churn month = %d, want 12", churn)
	}

	// Second customer's contract runs past the calendar; coverage clamps.
	if !cov.Covered("CUST-00002", 5) || !cov.Covered("CUST-00002", 23) {
		t.Error("CUST-00002 should be covered from month 5 through the calendar end")
	}
	if cov.Covered("CUST-00002", 4) {
		t.Error("CUST-00002 month 4: want not covered")
	}
	if cov.Covered("CUST-00002", 24) {
		t.Error("coverage outside the calendar must be false")
	}
	if _, ok := cov.ChurnMonth("CUST-00002"); ok {
		t.Error("CUST-00002: unexpected churn month")
	}

	// Unknown customers are never covered.
	if cov.Covered("CUST-09999", 0) {
		t.Error("unknown customer reported as covered")
	}
}

func TestBuildCoverageBadDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []tables.SubscriptionLineItem{
		{ContractID: "CT-000001", CustomerID: "CUST-00001",
			ContractStartDate: "01/01/2024", ContractEndDate: "2024-12-31", Status: tables.StatusActive},
	}
	if _, err := BuildCoverage(items, start, 12); err == nil {
		t.Error("expected error for malformed contract date")
	}
}

func TestBuildCoverageMultipleCancellations(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []tables.SubscriptionLineItem{
		{ContractID: "CT-000001", CustomerID: "CUST-00001",
			ContractStartDate: "2025-06-01", ContractEndDate: "2026-05-31", Status: tables.StatusCancelled},
		{ContractID: "CT-000002", CustomerID: "CUST-00001",
			ContractStartDate: "2025-01-01", ContractEndDate: "2025-12-31", Status: tables.StatusCancelled},
	}
	cov, err := BuildCoverage(items, start, 24)
	if err != nil {
		t.Fatalf("BuildCoverage returned error: %v", err)
	}
	churn, ok := cov.ChurnMonth("CUST-00001")
	if !ok || churn != 12 {
		t.Errorf("churn month = %d (ok=%v), want earliest cancellation at 12", churn, ok)
	}
}
