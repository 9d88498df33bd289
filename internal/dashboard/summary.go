// Package dashboard derives presentation-ready aggregates from persisted
// datasets and serves them over HTTP. Aggregates are recomputed on every
// request from the per-month records; nothing here caches derived numbers in
// a way that could drift from the underlying dataset.
package dashboard

import (
	"math"
	"sort"
	"strconv"

	"effortwatch/internal/analysis"
	"effortwatch/internal/dataset"
	"effortwatch/internal/timeframe"
)

// MonthView is one month of the summary, filtered to the selected base when
// one is set.
type MonthView struct {
	Key             string                    `json:"key"`
	Name            string                    `json:"name"`
	TotalIssues     int                       `json:"totalIssues"`
	TotalChanges    int                       `json:"totalChanges"`
	ChangeRate      float64                   `json:"changeRate"`
	AverageEffort   float64                   `json:"averageEffort"`
	ByBaseAndTarget map[string]map[string]int `json:"byBaseAndTarget"`
	Distribution    map[string]int            `json:"distribution"`
	Keys            []analysis.Transition     `json:"keys"`
}

// Summary is everything the dashboard needs: chart series, grand totals, and
// the transition breakdown, in chronological month order.
type Summary struct {
	Months                 []MonthView    `json:"months"`
	ChartLabels            []string       `json:"chartLabels"`
	Transitions            []string       `json:"transitions"`
	TotalIssuesSeries      []int          `json:"totalIssuesSeries"`
	TotalChangesSeries     []int          `json:"totalChangesSeries"`
	AverageEffortSeries    []float64      `json:"averageEffortSeries"`
	GrandTotalIssues       int            `json:"grandTotalIssues"`
	GrandTotalChanges      int            `json:"grandTotalChanges"`
	GrandTotalByTransition map[string]int `json:"grandTotalByTransition"`
	OverallChangeRate      float64        `json:"overallChangeRate"`
	PieLabels              []string       `json:"pieLabels"`
	PieData                []int          `json:"pieData"`
	BasePoints             []float64      `json:"basePoints"`
	SelectedBase           *float64       `json:"selectedBase"`
}

// BuildSummary derives the dashboard aggregate from a dataset. When
// selectedBase is non-nil, transitions and key lists are filtered to that
// origin value; issue totals and distributions always cover every issue.
func BuildSummary(months dataset.Months, basePoints []float64, selectedBase *float64) Summary {
	keys := sortedMonthKeys(months)

	summary := Summary{
		GrandTotalByTransition: map[string]int{},
		BasePoints:             append([]float64(nil), basePoints...),
		SelectedBase:           selectedBase,
	}

	transitionSet := map[string]bool{}

	for _, key := range keys {
		stats := months[key]

		view := MonthView{
			Key:             key,
			Name:            stats.Name,
			TotalIssues:     stats.TotalIssues,
			Distribution:    stats.Distribution,
			ByBaseAndTarget: map[string]map[string]int{},
			AverageEffort:   round2(analysis.AverageEffort(stats.Distribution)),
		}

		for _, base := range basePoints {
			if selectedBase != nil && base != *selectedBase {
				continue
			}
			baseKey := analysis.FormatPoints(base)
			targets := stats.ByBaseAndTarget[baseKey]
			if targets == nil {
				targets = map[string]int{}
			}
			view.ByBaseAndTarget[baseKey] = targets
			for target, count := range targets {
				view.TotalChanges += count
				label := baseKey + "→" + target
				transitionSet[label] = true
				summary.GrandTotalByTransition[label] += count
			}
		}

		if selectedBase == nil {
			view.Keys = stats.Keys
		} else {
			for _, tr := range stats.Keys {
				if tr.From == *selectedBase {
					view.Keys = append(view.Keys, tr)
				}
			}
		}

		if view.TotalIssues > 0 {
			view.ChangeRate = round2(float64(view.TotalChanges) / float64(view.TotalIssues) * 100)
		}

		summary.Months = append(summary.Months, view)
		summary.ChartLabels = append(summary.ChartLabels, stats.Name)
		summary.TotalIssuesSeries = append(summary.TotalIssuesSeries, view.TotalIssues)
		summary.TotalChangesSeries = append(summary.TotalChangesSeries, view.TotalChanges)
		summary.AverageEffortSeries = append(summary.AverageEffortSeries, view.AverageEffort)
		summary.GrandTotalIssues += view.TotalIssues
		summary.GrandTotalChanges += view.TotalChanges
	}

	summary.Transitions = sortTransitionLabels(transitionSet)
	if summary.GrandTotalIssues > 0 {
		summary.OverallChangeRate = round2(float64(summary.GrandTotalChanges) / float64(summary.GrandTotalIssues) * 100)
	}

	summary.PieLabels, summary.PieData = pieBuckets(months, keys)
	return summary
}

// sortedMonthKeys orders dataset keys chronologically. JSON objects carry no
// order, so the month key itself is parsed back into a date.
func sortedMonthKeys(months dataset.Months) []string {
	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, errI := timeframe.ParseKey(keys[i])
		tj, errJ := timeframe.ParseKey(keys[j])
		if errI != nil || errJ != nil {
			return keys[i] < keys[j]
		}
		return ti.Before(tj)
	})
	return keys
}

func sortTransitionLabels(set map[string]bool) []string {
	labels := make([]string, 0, len(set))
	for label := range set {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		fromI, toI := splitTransition(labels[i])
		fromJ, toJ := splitTransition(labels[j])
		if fromI != fromJ {
			return fromI < fromJ
		}
		return toI < toJ
	})
	return labels
}

func splitTransition(label string) (float64, float64) {
	for i := 0; i+2 < len(label); i++ {
		if label[i:i+3] == "→" {
			from, _ := strconv.ParseFloat(label[:i], 64)
			to, _ := strconv.ParseFloat(label[i+3:], 64)
			return from, to
		}
	}
	return 0, 0
}

// pieBuckets sums the numeric distribution buckets across all months, sorted
// ascending by value. The unset bucket is excluded; the pie shows how sized
// work splits, not how much work is unsized.
func pieBuckets(months dataset.Months, keys []string) ([]string, []int) {
	totals := map[string]int{}
	for _, key := range keys {
		for bucket, count := range months[key].Distribution {
			if bucket == analysis.UnsetBucket {
				continue
			}
			totals[bucket] += count
		}
	}

	labels := make([]string, 0, len(totals))
	for bucket := range totals {
		labels = append(labels, bucket)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, errA := strconv.ParseFloat(labels[i], 64)
		b, errB := strconv.ParseFloat(labels[j], 64)
		if errA != nil || errB != nil {
			return labels[i] < labels[j]
		}
		return a < b
	})

	data := make([]int, len(labels))
	for i, label := range labels {
		data[i] = totals[label]
	}
	return labels, data
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
