package simulate

import (
	"fmt"
	"time"

	"github.com/nvandessel/revsim/internal/calendar"
	"github.com/nvandessel/revsim/internal/tables"
)

// Coverage indexes which calendar months each customer has an active
// contract in, plus the first cancelled-term month per customer. Usage is
// only generated for covered months, and the pre-churn usage decline keys
// off the churn month.
type Coverage struct {
	months     int
	covered    map[string][]bool
	churnMonth map[string]int
}

// BuildCoverage indexes subscription line items against a calendar of the
// given start and length. Months outside the calendar are clamped away.
func BuildCoverage(items []tables.SubscriptionLineItem, start time.Time, months int) (*Coverage, error) {
	c := &Coverage{
		months:     months,
		covered:    make(map[string][]bool),
		churnMonth: make(map[string]int),
	}
	for _, item := range items {
		s, err := time.Parse(calendar.DateLayout, item.ContractStartDate)
		if err != nil {
			return nil, fmt.Errorf("contract %s start date: %w", item.ContractID, err)
		}
		e, err := time.Parse(calendar.DateLayout, item.ContractEndDate)
		if err != nil {
			return nil, fmt.Errorf("contract %s end date: %w", item.ContractID, err)
		}
		sIdx := calendar.Index(s, start)
		eIdx := calendar.Index(e, start)

		if item.Status == tables.StatusCancelled {
			if prev, ok := c.churnMonth[item.CustomerID]; !ok || sIdx < prev {
				c.churnMonth[item.CustomerID] = sIdx
			}
			continue
		}

		lo := sIdx
		if lo < 0 {
			lo = 0
		}
		hi := eIdx
		if hi > months-1 {
			hi = months - 1
		}
		if lo > hi {
			continue
		}
		row := c.covered[item.CustomerID]
		if row == nil {
			row = make([]bool, months)
			c.covered[item.CustomerID] = row
		}
		for m := lo; m <= hi; m++ {
			row[m] = true
		}
	}
	return c, nil
}

// Covered reports whether the customer has an active contract in month m.
func (c *Coverage) Covered(customerID string, m int) bool {
	if m < 0 || m >= c.months {
		return false
	}
	row := c.covered[customerID]
	return row != nil && row[m]
}

// ChurnMonth returns the month index of the customer's first cancelled
// term, if any.
func (c *Coverage) ChurnMonth(customerID string) (int, bool) {
	m, ok := c.churnMonth[customerID]
	return m, ok
}
