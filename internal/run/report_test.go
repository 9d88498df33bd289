package run

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"effortwatch/internal/analysis"
	"effortwatch/internal/dataset"
	"effortwatch/internal/timeframe"
)

func reportFixture(t *testing.T, direction analysis.Direction) string {
	t.Helper()

	windows := timeframe.Generate(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC))

	r := newReport(testMode(), direction, time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	r.addMonth(windows[0], dataset.MonthStatistics{
		Name:         "March 2025",
		TotalIssues:  4,
		TotalChanges: 3,
		ByBaseAndTarget: map[string]map[string]int{
			"1": {},
			"2": {"3": 1, "5": 2},
			"3": {},
			"5": {},
		},
		Distribution: map[string]int{"2": 1, "5": 2, "unset": 1},
		Keys: []analysis.Transition{
			{Key: "OPT-1", From: 2, To: 3},
			{Key: "OPT-2", From: 2, To: 5},
			{Key: "OPT-3", From: 2, To: 5},
		},
	})
	r.addError(windows[1], stderrors.New("issue search returned status 502"))
	return r.render()
}

func TestReportSections(t *testing.T) {
	text := reportFixture(t, analysis.DirectionUp)

	for _, expected := range []string{
		"Story Points Analysis Report (1/2/3/5→higher)",
		"Generated: 2025-05-01T08:00:00Z",
		"March 2025",
		"Total Issues: 4",
		"Total Story Points Increases: 3",
		"From 2 points (3 changes):",
		"  2 → 3: 1 changes",
		"    Keys: OPT-1",
		"  2 → 5: 2 changes",
		"    Keys: OPT-2, OPT-3",
		"April 2025: ERROR - issue search returned status 502",
		"STORY POINTS DISTRIBUTION BY MONTH",
		"No Story Points: 1 (25.0%)",
		"2 points: 1 (25.0%)",
		"5 points: 2 (50.0%)",
		"GRAND TOTALS",
		"Total Issues: 4",
		"Total Changes: 3",
		"Overall Change Rate: 75.00%",
		"ALL AFFECTED ISSUE KEYS",
		"  From 2:",
		"    2 → 5: OPT-2, OPT-3",
	} {
		if !strings.Contains(text, expected) {
			t.Fatalf("report missing %q:\n%s", expected, text)
		}
	}
}

func TestReportDistributionOrder(t *testing.T) {
	text := reportFixture(t, analysis.DirectionUp)
	unsetIdx := strings.Index(text, "No Story Points")
	twoIdx := strings.Index(text, "2 points:")
	fiveIdx := strings.Index(text, "5 points:")
	if unsetIdx == -1 || twoIdx == -1 || fiveIdx == -1 {
		t.Fatalf("distribution lines missing:\n%s", text)
	}
	if !(unsetIdx < twoIdx && twoIdx < fiveIdx) {
		t.Fatalf("expected unset first then ascending buckets, got positions %d %d %d", unsetIdx, twoIdx, fiveIdx)
	}
}

func TestReportDecreaseWording(t *testing.T) {
	text := reportFixture(t, analysis.DirectionDown)
	if !strings.Contains(text, "Story Points Analysis Report (1/2/3/5→lower)") {
		t.Fatalf("expected lower-direction header:\n%s", text)
	}
	if !strings.Contains(text, "Total Story Points Decreases: 3") {
		t.Fatalf("expected decrease wording:\n%s", text)
	}
}
