// Package dataset owns the durable output contract: the JSON mapping from
// month key to per-month statistics that every presenter reads.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"effortwatch/internal/analysis"
)

// MonthStatistics is one analyzed month. The JSON field names are the
// persisted contract; presenters treat the file as read-only input.
type MonthStatistics struct {
	Name            string                    `json:"name"`
	TotalIssues     int                       `json:"totalIssues"`
	TotalChanges    int                       `json:"totalChanges"`
	ByBaseAndTarget map[string]map[string]int `json:"byBaseAndTarget"`
	Distribution    map[string]int            `json:"distribution"`
	Keys            []analysis.Transition     `json:"keys"`
}

// Months is the whole dataset, keyed by month key ("march2025"). A month
// absent from the mapping was not analyzed; a month present with zero counts
// was analyzed and had no matches.
type Months map[string]MonthStatistics

// Load reads a persisted dataset. A missing file is an empty dataset, not an
// error; the first run of a new mode starts from nothing.
func Load(path string) (Months, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Months{}, nil
		}
		return nil, fmt.Errorf("read dataset %q: %w", path, err)
	}

	var months Months
	if err := json.Unmarshal(data, &months); err != nil {
		return nil, fmt.Errorf("decode dataset %q: %w", path, err)
	}
	if months == nil {
		months = Months{}
	}
	return months, nil
}

// Save writes the dataset, creating parent directories as needed.
func Save(path string, months Months) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset directory %q: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(months, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dataset %q: %w", path, err)
	}
	return nil
}

// Merge replaces exactly one month's entry, leaving every other entry
// untouched. This is what makes the incremental current-month update safe
// against a previously persisted multi-month dataset.
func Merge(existing Months, key string, stats MonthStatistics) Months {
	if existing == nil {
		existing = Months{}
	}
	existing[key] = stats
	return existing
}

// FreshToday reports whether the dataset file was last written on the same
// UTC calendar day as now. Callers may use it to skip an incremental update;
// it is an optimization, never a correctness gate.
func FreshToday(path string, now time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	modified := info.ModTime().UTC()
	now = now.UTC()
	return modified.Year() == now.Year() && modified.YearDay() == now.YearDay()
}
