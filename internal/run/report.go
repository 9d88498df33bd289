package run

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"effortwatch/internal/analysis"
	"effortwatch/internal/dataset"
	"effortwatch/internal/mode"
	"effortwatch/internal/timeframe"
)

const reportBanner = "============================================================"

// report accumulates the flat text report: one section per processed month in
// loop order, then the distribution breakdown, grand totals, and the affected
// issue keys. Counts are exact; percentages are the only rounded values.
type report struct {
	mode        mode.TrackingMode
	direction   analysis.Direction
	generatedAt time.Time
	sections    []string
	months      []reportMonth
}

type reportMonth struct {
	window timeframe.Window
	stats  dataset.MonthStatistics
}

func newReport(m mode.TrackingMode, direction analysis.Direction, generatedAt time.Time) *report {
	return &report{mode: m, direction: direction, generatedAt: generatedAt}
}

func (r *report) addMonth(window timeframe.Window, stats dataset.MonthStatistics) {
	r.months = append(r.months, reportMonth{window: window, stats: stats})
	r.sections = append(r.sections, r.formatMonth(window.Name, stats))
}

func (r *report) addError(window timeframe.Window, err error) {
	r.sections = append(r.sections, fmt.Sprintf("\n%s: ERROR - %v\n", window.Name, err))
}

func (r *report) render() string {
	var b strings.Builder

	target := "higher"
	if r.direction == analysis.DirectionDown {
		target = "lower"
	}
	basePointsStr := joinPoints(r.mode.BasePoints, "/")
	b.WriteString(fmt.Sprintf("%s Analysis Report (%s→%s)\n", r.mode.FieldName, basePointsStr, target))
	b.WriteString(fmt.Sprintf("Generated: %s\n", r.generatedAt.Format(time.RFC3339)))

	for _, section := range r.sections {
		b.WriteString(section)
	}

	b.WriteString(fmt.Sprintf("\n\n%s\n%s DISTRIBUTION BY MONTH\n%s\n\n",
		reportBanner, strings.ToUpper(r.mode.FieldName), reportBanner))
	for _, month := range r.months {
		r.writeDistribution(&b, month.stats)
	}

	grandIssues, grandChanges := 0, 0
	for _, month := range r.months {
		grandIssues += month.stats.TotalIssues
		grandChanges += month.stats.TotalChanges
	}
	b.WriteString(fmt.Sprintf("\n%s\nGRAND TOTALS\n%s\n", reportBanner, reportBanner))
	b.WriteString(fmt.Sprintf("Total Issues: %d\n", grandIssues))
	b.WriteString(fmt.Sprintf("Total Changes: %d\n", grandChanges))
	if grandIssues > 0 {
		b.WriteString(fmt.Sprintf("Overall Change Rate: %.2f%%\n", float64(grandChanges)/float64(grandIssues)*100))
	}

	b.WriteString(fmt.Sprintf("\n\n%s\nALL AFFECTED ISSUE KEYS\n%s\n\n", reportBanner, reportBanner))
	for _, month := range r.months {
		r.writeKeys(&b, month.stats)
	}

	return b.String()
}

func (r *report) formatMonth(name string, stats dataset.MonthStatistics) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n%s\n%s\n%s\n", reportBanner, name, reportBanner))
	b.WriteString(fmt.Sprintf("Total Issues: %d\n", stats.TotalIssues))
	b.WriteString(fmt.Sprintf("Total %s %s: %d\n\n", r.mode.FieldName, r.direction.Label(), stats.TotalChanges))

	if stats.TotalChanges == 0 {
		return b.String()
	}

	for _, base := range r.mode.BasePoints {
		baseKey := analysis.FormatPoints(base)
		byTarget := keysByTarget(stats.Keys, base)
		if len(byTarget) == 0 {
			continue
		}

		total := 0
		for _, keys := range byTarget {
			total += len(keys)
		}
		b.WriteString(fmt.Sprintf("From %s points (%d changes):\n", baseKey, total))
		for _, targetKey := range sortedPointKeys(targetsOf(byTarget)) {
			keys := byTarget[targetKey]
			b.WriteString(fmt.Sprintf("  %s → %s: %d changes\n", baseKey, targetKey, len(keys)))
			b.WriteString(fmt.Sprintf("    Keys: %s\n", strings.Join(keys, ", ")))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (r *report) writeDistribution(b *strings.Builder, stats dataset.MonthStatistics) {
	b.WriteString(fmt.Sprintf("\n%s:\n", stats.Name))
	b.WriteString(fmt.Sprintf("  Total Issues: %d\n\n", stats.TotalIssues))
	b.WriteString(fmt.Sprintf("  %s Distribution:\n", r.mode.FieldName))

	for _, bucket := range sortedDistributionKeys(stats.Distribution) {
		count := stats.Distribution[bucket]
		label := bucket + " points"
		if bucket == analysis.UnsetBucket {
			label = "No " + r.mode.FieldName
		}
		percentage := 0.0
		if stats.TotalIssues > 0 {
			percentage = float64(count) / float64(stats.TotalIssues) * 100
		}
		b.WriteString(fmt.Sprintf("    %s: %d (%.1f%%)\n", label, count, percentage))
	}

	b.WriteString(fmt.Sprintf("\n  %s Changes:\n", r.mode.FieldName))
	b.WriteString(fmt.Sprintf("  Total Changes: %d\n", stats.TotalChanges))
	for _, base := range r.mode.BasePoints {
		baseKey := analysis.FormatPoints(base)
		targets := stats.ByBaseAndTarget[baseKey]
		totalForBase := 0
		for _, count := range targets {
			totalForBase += count
		}
		if totalForBase == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  From %s: %d\n", baseKey, totalForBase))
		for _, targetKey := range sortedPointKeys(mapKeys(targets)) {
			b.WriteString(fmt.Sprintf("    %s → %s: %d\n", baseKey, targetKey, targets[targetKey]))
		}
	}
}

func (r *report) writeKeys(b *strings.Builder, stats dataset.MonthStatistics) {
	if len(stats.Keys) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("%s:\n", stats.Name))
	for _, base := range r.mode.BasePoints {
		byTarget := keysByTarget(stats.Keys, base)
		if len(byTarget) == 0 {
			continue
		}
		baseKey := analysis.FormatPoints(base)
		b.WriteString(fmt.Sprintf("  From %s:\n", baseKey))
		for _, targetKey := range sortedPointKeys(targetsOf(byTarget)) {
			b.WriteString(fmt.Sprintf("    %s → %s: %s\n", baseKey, targetKey, strings.Join(byTarget[targetKey], ", ")))
		}
	}
	b.WriteString("\n")
}

func keysByTarget(transitions []analysis.Transition, base float64) map[string][]string {
	byTarget := make(map[string][]string)
	for _, tr := range transitions {
		if tr.From != base {
			continue
		}
		target := analysis.FormatPoints(tr.To)
		byTarget[target] = append(byTarget[target], tr.Key)
	}
	return byTarget
}

func targetsOf(byTarget map[string][]string) []string {
	targets := make([]string, 0, len(byTarget))
	for target := range byTarget {
		targets = append(targets, target)
	}
	return targets
}

func mapKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// sortedPointKeys sorts stringified point values numerically, not lexically.
func sortedPointKeys(keys []string) []string {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseFloat(keys[i], 64)
		b, errB := strconv.ParseFloat(keys[j], 64)
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

// sortedDistributionKeys puts the unset bucket first, then numeric buckets
// ascending, then anything unparsable.
func sortedDistributionKeys(distribution map[string]int) []string {
	keys := make([]string, 0, len(distribution))
	for k := range distribution {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := distributionRank(keys[i]), distributionRank(keys[j])
		if ri == rj {
			return keys[i] < keys[j]
		}
		return ri < rj
	})
	return keys
}

func distributionRank(bucket string) float64 {
	if bucket == analysis.UnsetBucket {
		return -1
	}
	v, err := strconv.ParseFloat(bucket, 64)
	if err != nil {
		return 1e18
	}
	return v
}

func joinPoints(points []float64, sep string) string {
	parts := make([]string, 0, len(points))
	for _, p := range points {
		parts = append(parts, analysis.FormatPoints(p))
	}
	return strings.Join(parts, sep)
}
