package analysis

import "strconv"

// FormatPoints renders a point value the way the persisted dataset keys its
// mappings: shortest decimal form, so 2 stays "2" and 2.5 stays "2.5".
func FormatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GroupByBaseAndTarget tallies transitions into base → target → count. Every
// base value is present in the result even with no transitions, so consumers
// never need existence checks.
func GroupByBaseAndTarget(transitions []Transition, basePoints []float64) map[string]map[string]int {
	grouped := make(map[string]map[string]int, len(basePoints))
	for _, base := range basePoints {
		grouped[FormatPoints(base)] = make(map[string]int)
	}
	for _, tr := range transitions {
		base := FormatPoints(tr.From)
		targets, ok := grouped[base]
		if !ok {
			// From values are validated against basePoints at detection time;
			// tolerate stray data loaded from older datasets anyway.
			targets = make(map[string]int)
			grouped[base] = targets
		}
		targets[FormatPoints(tr.To)]++
	}
	return grouped
}

// AverageEffort is the weighted mean of the numeric distribution buckets.
// The unset bucket and unparsable keys are excluded; an all-unset month
// averages to zero.
func AverageEffort(distribution map[string]int) float64 {
	totalEffort := 0.0
	totalTasks := 0
	for bucket, count := range distribution {
		if bucket == UnsetBucket {
			continue
		}
		points, err := strconv.ParseFloat(bucket, 64)
		if err != nil {
			continue
		}
		totalEffort += points * float64(count)
		totalTasks += count
	}
	if totalTasks == 0 {
		return 0
	}
	return totalEffort / float64(totalTasks)
}
