// Package tables defines the row types of the five simulated datasets and
// the revenue arithmetic shared by the generators, the quality report, and
// the validator.
package tables

import "math"

// CompanyID is the single tenant the simulator generates data for.
const CompanyID int64 = 1

// Segments is the fixed customer tier set, in canonical order. Every
// categorical draw over segments iterates this slice so that map ordering
// never leaks into generated data.
var Segments = []string{"enterprise", "large", "medium", "smb"}

// Segment group names used by the behavior config blocks and the
// concentration check.
const (
	GroupEnterpriseLarge = "enterprise_large"
	GroupMidSMB          = "mid_smb"
)

// SegmentGroup maps a segment to its behavior group.
func SegmentGroup(segment string) string {
	if segment == "enterprise" || segment == "large" {
		return GroupEnterpriseLarge
	}
	return GroupMidSMB
}

// Billing frequencies for subscription line items.
const (
	BillingMonthly = "monthly"
	BillingAnnual  = "annual"
	BillingOneTime = "one_time"
)

// Contract line item statuses.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

// Opportunity types.
const (
	OppTypeNewBusiness = "new_business"
	OppTypeExpansion   = "expansion"
)

// Customer is one row of the customers dataset. Latent traits are not part
// of this row; they live in the generator and are never persisted.
type Customer struct {
	CompanyID      int64
	CustomerID     string
	CustomerName   string
	Segment        string
	Region         string
	Industry       string
	CRMHealthInput int64
	CreatedDate    string
}

// Product is one row of the products dataset.
type Product struct {
	CompanyID         int64
	ProductID         string
	ProductFamily     string
	IsRecurring       bool
	DefaultTermMonths int64
}

// SubscriptionLineItem is one row of subscription_line_items: one product on
// one contract for one term. Dates are YYYY-MM-DD.
type SubscriptionLineItem struct {
	CompanyID         int64
	ContractID        string
	CustomerID        string
	ProductID         string
	ContractStartDate string
	ContractEndDate   string
	BillingFrequency  string
	Quantity          int64
	UnitPrice         float64
	DiscountPct       float64
	Status            string
}

// UsageRecord is one row of usage_monthly: one feature's usage for one
// customer in one month.
type UsageRecord struct {
	CompanyID   int64
	Month       string
	CustomerID  string
	FeatureKey  string
	UsageCount  int64
	ActiveUsers int64
}

// PipelineSnapshot is one row of pipeline_opportunities_snapshot: the state
// of one opportunity in one month. CustomerID is empty for unlinked
// new-business opportunities and persisted as null.
type PipelineSnapshot struct {
	CompanyID         int64
	SnapshotDate      string
	OpportunityID     string
	CustomerID        string
	Segment           string
	Stage             string
	Amount            float64
	ExpectedCloseDate string
	OpportunityType   string
}

// Dataset aggregates one generated run of all five tables.
type Dataset struct {
	Customers     []Customer
	Products      []Product
	Subscriptions []SubscriptionLineItem
	Usage         []UsageRecord
	Pipeline      []PipelineSnapshot
}

// MonthlyRevenue returns the MRR contribution of a line item:
// quantity x unit_price x (1 - discount), normalized to monthly when billed
// annually. Non-recurring items carry no recurring revenue.
func MonthlyRevenue(item SubscriptionLineItem) float64 {
	if item.BillingFrequency == BillingOneTime {
		return 0
	}
	mrr := float64(item.Quantity) * item.UnitPrice * (1 - item.DiscountPct)
	if item.BillingFrequency == BillingAnnual {
		mrr /= 12
	}
	return mrr
}

// AnnualRevenue returns the ARR contribution of a line item.
func AnnualRevenue(item SubscriptionLineItem) float64 {
	return MonthlyRevenue(item) * 12
}

// AnnualizationFactor scales a churn fraction observed over a window of the
// given length to an annual rate. Windows shorter than a year are treated as
// a full year rather than extrapolated up.
func AnnualizationFactor(months int) float64 {
	return 12 / math.Max(1, float64(months)/12)
}
