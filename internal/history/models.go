package history

import "time"

const SchemaVersion = 1

// RunRecord is one completed analysis run: enough to answer "when did we last
// run, over what, and what came out" without reopening the JSON datasets.
type RunRecord struct {
	RunID          string
	Mode           string
	Direction      string
	SchemaVersion  int
	StartedAt      time.Time
	FinishedAt     time.Time
	MonthsAnalyzed int
	MonthsFailed   int
	TotalIssues    int
	TotalChanges   int
}
