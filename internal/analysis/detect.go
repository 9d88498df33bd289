// Package analysis holds the pure transformation core: transition detection
// over change histories, current-value distribution, and aggregation.
package analysis

import (
	"strconv"

	"effortwatch/internal/jira"
)

// Direction selects which way a tracked transition must move.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Label is the report wording for the direction ("Increases"/"Decreases").
func (d Direction) Label() string {
	if d == DirectionDown {
		return "Decreases"
	}
	return "Increases"
}

// Transition is one observed change of the tracked field from a base value to
// a different value on one issue.
type Transition struct {
	Key  string  `json:"key"`
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// DetectTransitions scans each issue's change history and returns every
// qualifying transition in encounter order, without deduplication.
//
// Issues whose key does not carry the project prefix are skipped whole; that
// keeps cross-project leakage out of the numbers and is intentional, not an
// error. History values that fail to parse as numbers are discarded silently:
// text fields have shipped under reused field ids before, and they must never
// crash the pipeline.
func DetectTransitions(issues []jira.Issue, basePoints []float64, direction Direction, fieldID, fieldName, projectKey string) []Transition {
	prefix := projectKey + "-"
	bases := make(map[float64]bool, len(basePoints))
	for _, b := range basePoints {
		bases[b] = true
	}

	var transitions []Transition
	for _, issue := range issues {
		if len(issue.Key) <= len(prefix) || issue.Key[:len(prefix)] != prefix {
			continue
		}
		if issue.Changelog == nil {
			continue
		}
		for _, history := range issue.Changelog.Histories {
			for _, item := range history.Items {
				// Field id alone is not trusted; the label must match too,
				// guarding against id reuse across field schema changes.
				if item.FieldID != fieldID || item.Field != fieldName {
					continue
				}
				from, err := strconv.ParseFloat(item.FromString, 64)
				if err != nil {
					continue
				}
				to, err := strconv.ParseFloat(item.ToString, 64)
				if err != nil {
					continue
				}
				if !bases[from] {
					continue
				}
				if direction == DirectionDown {
					if to >= from {
						continue
					}
				} else if to <= from {
					continue
				}
				transitions = append(transitions, Transition{Key: issue.Key, From: from, To: to})
			}
		}
	}
	return transitions
}
