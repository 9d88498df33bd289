package timeframe

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateClipsFinalMonth(t *testing.T) {
	windows := Generate(date(2025, time.March, 1), date(2025, time.May, 15))
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}

	if windows[0].Key != "march2025" || windows[1].Key != "april2025" || windows[2].Key != "may2025" {
		t.Fatalf("unexpected keys: %q %q %q", windows[0].Key, windows[1].Key, windows[2].Key)
	}
	if windows[0].EndDate() != "2025-03-31" {
		t.Fatalf("expected March to end on the 31st, got %s", windows[0].EndDate())
	}
	if windows[1].EndDate() != "2025-04-30" {
		t.Fatalf("expected April to end on the 30th, got %s", windows[1].EndDate())
	}
	if windows[2].EndDate() != "2025-05-15" {
		t.Fatalf("expected May to clip to the range end, got %s", windows[2].EndDate())
	}
	if windows[2].StartDate() != "2025-05-01" {
		t.Fatalf("expected May to start on the 1st, got %s", windows[2].StartDate())
	}
	if windows[0].Name != "March 2025" {
		t.Fatalf("unexpected display name %q", windows[0].Name)
	}
}

func TestGenerateStartsFromFirstOfMonth(t *testing.T) {
	windows := Generate(date(2025, time.March, 20), date(2025, time.April, 2))
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].StartDate() != "2025-03-01" {
		t.Fatalf("expected window start normalized to the 1st, got %s", windows[0].StartDate())
	}
}

func TestGenerateInvalidRangeIsEmpty(t *testing.T) {
	windows := Generate(date(2025, time.June, 1), date(2025, time.March, 1))
	if len(windows) != 0 {
		t.Fatalf("expected empty result for inverted range, got %d windows", len(windows))
	}
}

func TestGenerateCrossesYearBoundary(t *testing.T) {
	windows := Generate(date(2024, time.November, 1), date(2025, time.February, 10))
	if len(windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(windows))
	}
	if windows[0].Key != "november2024" || windows[2].Key != "january2025" {
		t.Fatalf("expected year-qualified keys, got %q and %q", windows[0].Key, windows[2].Key)
	}
	// December keeps its full month; it is not the range end.
	if windows[1].EndDate() != "2024-12-31" {
		t.Fatalf("expected December to run to the 31st, got %s", windows[1].EndDate())
	}
}

func TestGenerateLeapFebruary(t *testing.T) {
	windows := Generate(date(2024, time.February, 1), date(2024, time.March, 31))
	if windows[0].EndDate() != "2024-02-29" {
		t.Fatalf("expected leap-year February end, got %s", windows[0].EndDate())
	}
}

func TestCurrentClipsToToday(t *testing.T) {
	w := Current(date(2025, time.August, 14))
	if w.Key != "august2025" {
		t.Fatalf("unexpected key %q", w.Key)
	}
	if w.StartDate() != "2025-08-01" || w.EndDate() != "2025-08-14" {
		t.Fatalf("expected window clipped to today, got %s..%s", w.StartDate(), w.EndDate())
	}
}

func TestParseKey(t *testing.T) {
	ts, err := ParseKey("march2025")
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if !ts.Equal(date(2025, time.March, 1)) {
		t.Fatalf("unexpected parsed time %v", ts)
	}

	if _, err := ParseKey("notamonth2025"); err == nil {
		t.Fatalf("expected error for bogus key")
	}
	if _, err := ParseKey("march25"); err == nil {
		t.Fatalf("expected error for short year")
	}
}
