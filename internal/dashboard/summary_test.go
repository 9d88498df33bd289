package dashboard

import (
	"testing"

	"effortwatch/internal/analysis"
	"effortwatch/internal/dataset"
)

func twoMonthDataset() dataset.Months {
	return dataset.Months{
		"april2025": {
			Name:         "April 2025",
			TotalIssues:  10,
			TotalChanges: 1,
			ByBaseAndTarget: map[string]map[string]int{
				"2": {"3": 1},
				"3": {},
			},
			Distribution: map[string]int{"2": 4, "5": 2, "unset": 4},
			Keys:         []analysis.Transition{{Key: "OPT-10", From: 2, To: 3}},
		},
		"march2025": {
			Name:         "March 2025",
			TotalIssues:  20,
			TotalChanges: 3,
			ByBaseAndTarget: map[string]map[string]int{
				"2": {"3": 1, "5": 1},
				"3": {"5": 1},
			},
			Distribution: map[string]int{"2": 10, "3": 5, "unset": 5},
			Keys: []analysis.Transition{
				{Key: "OPT-1", From: 2, To: 3},
				{Key: "OPT-2", From: 2, To: 5},
				{Key: "OPT-3", From: 3, To: 5},
			},
		},
	}
}

func TestBuildSummaryOrdersAndTotals(t *testing.T) {
	summary := BuildSummary(twoMonthDataset(), []float64{2, 3}, nil)

	if len(summary.Months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(summary.Months))
	}
	// Chronological despite map iteration order.
	if summary.Months[0].Key != "march2025" || summary.Months[1].Key != "april2025" {
		t.Fatalf("expected chronological order, got %s then %s", summary.Months[0].Key, summary.Months[1].Key)
	}

	if summary.GrandTotalIssues != 30 || summary.GrandTotalChanges != 4 {
		t.Fatalf("unexpected grand totals: issues=%d changes=%d", summary.GrandTotalIssues, summary.GrandTotalChanges)
	}
	if summary.GrandTotalByTransition["2→3"] != 2 || summary.GrandTotalByTransition["3→5"] != 1 {
		t.Fatalf("unexpected per-transition totals: %v", summary.GrandTotalByTransition)
	}

	expected := []string{"2→3", "2→5", "3→5"}
	if len(summary.Transitions) != len(expected) {
		t.Fatalf("unexpected transitions %v", summary.Transitions)
	}
	for i, label := range expected {
		if summary.Transitions[i] != label {
			t.Fatalf("expected transitions sorted numerically, got %v", summary.Transitions)
		}
	}

	march := summary.Months[0]
	if march.ChangeRate != 15.0 {
		t.Fatalf("expected 3/20 = 15%%, got %v", march.ChangeRate)
	}
	if summary.OverallChangeRate != 13.33 {
		t.Fatalf("expected overall rate 13.33, got %v", summary.OverallChangeRate)
	}
}

func TestBuildSummaryAverageEffort(t *testing.T) {
	summary := BuildSummary(twoMonthDataset(), []float64{2, 3}, nil)
	// March: (2*10 + 3*5) / 15 ≈ 2.33
	if summary.Months[0].AverageEffort != 2.33 {
		t.Fatalf("expected march average 2.33, got %v", summary.Months[0].AverageEffort)
	}
	// April: (2*4 + 5*2) / 6 = 3
	if summary.Months[1].AverageEffort != 3.0 {
		t.Fatalf("expected april average 3, got %v", summary.Months[1].AverageEffort)
	}
}

func TestBuildSummarySelectedBase(t *testing.T) {
	base := 2.0
	summary := BuildSummary(twoMonthDataset(), []float64{2, 3}, &base)

	march := summary.Months[0]
	if march.TotalChanges != 2 {
		t.Fatalf("expected march filtered to base-2 changes, got %d", march.TotalChanges)
	}
	if len(march.Keys) != 2 {
		t.Fatalf("expected base-2 keys only, got %+v", march.Keys)
	}
	if _, present := march.ByBaseAndTarget["3"]; present {
		t.Fatalf("expected base 3 filtered out")
	}
	// Issue totals are unfiltered; only transitions narrow.
	if march.TotalIssues != 20 {
		t.Fatalf("expected full issue count, got %d", march.TotalIssues)
	}
	if summary.GrandTotalChanges != 3 {
		t.Fatalf("expected filtered grand changes 3, got %d", summary.GrandTotalChanges)
	}
	for _, label := range summary.Transitions {
		from, _ := splitTransition(label)
		if from != 2 {
			t.Fatalf("expected only base-2 transitions, got %v", summary.Transitions)
		}
	}
}

func TestBuildSummaryPieBuckets(t *testing.T) {
	summary := BuildSummary(twoMonthDataset(), []float64{2, 3}, nil)

	wantLabels := []string{"2", "3", "5"}
	if len(summary.PieLabels) != len(wantLabels) {
		t.Fatalf("unexpected pie labels %v", summary.PieLabels)
	}
	for i, label := range wantLabels {
		if summary.PieLabels[i] != label {
			t.Fatalf("expected pie labels %v, got %v", wantLabels, summary.PieLabels)
		}
	}
	// 2: 10+4, 3: 5, 5: 2 — unset excluded.
	if summary.PieData[0] != 14 || summary.PieData[1] != 5 || summary.PieData[2] != 2 {
		t.Fatalf("unexpected pie data %v", summary.PieData)
	}
}

func TestBuildSummaryEmptyDataset(t *testing.T) {
	summary := BuildSummary(dataset.Months{}, []float64{2}, nil)
	if summary.GrandTotalIssues != 0 || summary.OverallChangeRate != 0 {
		t.Fatalf("expected zeroed summary, got %+v", summary)
	}
	if len(summary.Months) != 0 {
		t.Fatalf("expected no months")
	}
}
