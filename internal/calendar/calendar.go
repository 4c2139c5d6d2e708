// Package calendar provides the ordered month-boundary sequence every
// generator iterates, plus date arithmetic on month indices.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for all date columns.
const DateLayout = "2006-01-02"

// ParseMonth parses a YYYY-MM-DD date and normalizes it to the first day of
// its month in UTC.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing month %q: %w", s, err)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// Months returns n consecutive month boundaries starting at start.
func Months(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = AddMonths(start, i)
	}
	return out
}

// AddMonths returns the month boundary n months after t.
func AddMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// Index returns the month offset of t relative to start. Days within the
// month are ignored.
func Index(t, start time.Time) int {
	return int(t.Month()-start.Month()) + 12*(t.Year()-start.Year())
}

// Format renders a date in the wire format.
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// EndOfTerm returns the last day of the term that starts at the month
// boundary start and runs for termMonths months.
func EndOfTerm(start time.Time, termMonths int) time.Time {
	return AddMonths(start, termMonths).AddDate(0, 0, -1)
}
