package calendar

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2024-03-15")
	if err != nil {
		t.Fatalf("ParseMonth returned error: %v", err)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseMonth normalized to %v, want %v", got, want)
	}

	if _, err := ParseMonth("not-a-date"); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestMonths(t *testing.T) {
	start := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	cal := Months(start, 4)
	if len(cal) != 4 {
		t.Fatalf("len(cal) = %d, want 4", len(cal))
	}
	wantLast := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	if !cal[3].Equal(wantLast) {
		t.Errorf("cal[3] = %v, want %v (year rollover)", cal[3], wantLast)
	}
}

func TestIndex(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		date string
		want int
	}{
		{"2024-01-01", 0},
		{"2024-01-31", 0},
		{"2024-12-15", 11},
		{"2025-02-01", 13},
		{"2023-12-01", -1},
	}
	for _, tt := range tests {
		d, err := time.Parse(DateLayout, tt.date)
		if err != nil {
			t.Fatalf("parsing %s: %v", tt.date, err)
		}
		if got := Index(d, start); got != tt.want {
			t.Errorf("Index(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestEndOfTerm(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := Format(EndOfTerm(start, 12))
	if got != "2024-12-31" {
		t.Errorf("12-month term end = %s, want 2024-12-31", got)
	}

	got = Format(EndOfTerm(start, 24))
	if got != "2025-12-31" {
		t.Errorf("24-month term end = %s, want 2025-12-31", got)
	}

	// February boundary
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	got = Format(EndOfTerm(feb, 1))
	if got != "2024-02-29" {
		t.Errorf("1-month term from Feb 2024 ends %s, want 2024-02-29", got)
	}
}
