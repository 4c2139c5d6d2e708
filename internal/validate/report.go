package validate

import (
	"fmt"
	"io"
)

// CheckResult is the outcome of one realism check. A check passes when it
// records no failures; warnings never fail a run.
type CheckResult struct {
	Name     string
	Failures []string
	Warnings []string
}

func (c CheckResult) Passed() bool {
	return len(c.Failures) == 0
}

func (c *CheckResult) failf(format string, args ...any) {
	c.Failures = append(c.Failures, fmt.Sprintf(format, args...))
}

func (c *CheckResult) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Report collects every check result for one validation run. All checks
// always run to completion; one failing check never short-circuits the
// rest.
type Report struct {
	Checks []CheckResult
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed() {
			return false
		}
	}
	return true
}

func (r *Report) hasWarnings() bool {
	for _, c := range r.Checks {
		if len(c.Warnings) > 0 {
			return true
		}
	}
	return false
}

// Write renders the report as the operator-facing text summary.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintln(w, "Simulation quality validator")
	fmt.Fprintln(w, "===========================")
	for _, c := range r.Checks {
		if c.Passed() && len(c.Warnings) == 0 {
			fmt.Fprintf(w, "\n[%s] OK\n", c.Name)
			continue
		}
		fmt.Fprintf(w, "\n[%s]\n", c.Name)
		for _, f := range c.Failures {
			fmt.Fprintf(w, "  FAIL: %s\n", f)
		}
		for _, warn := range c.Warnings {
			fmt.Fprintf(w, "  WARN: %s\n", warn)
		}
	}
	fmt.Fprintln(w, "\n===========================")
	switch {
	case !r.Passed():
		fmt.Fprintln(w, "Result: FAILED (critical checks)")
	case r.hasWarnings():
		fmt.Fprintln(w, "Result: PASSED with warnings")
	default:
		fmt.Fprintln(w, "Result: PASSED")
	}
}
