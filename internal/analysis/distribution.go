package analysis

import "effortwatch/internal/jira"

// UnsetBucket is the distribution key for issues whose tracked field is null
// or absent.
const UnsetBucket = "unset"

// TabulateDistribution counts issues by their *current* tracked-field value,
// not history. Buckets are keyed by the raw string form of the value with no
// numeric normalization; distinct source renderings stay distinct buckets.
// Changing that would silently shift historical report totals.
func TabulateDistribution(issues []jira.Issue, fieldID string) map[string]int {
	distribution := make(map[string]int)
	for _, issue := range issues {
		value, ok := issue.FieldValue(fieldID)
		if !ok {
			distribution[UnsetBucket]++
			continue
		}
		distribution[value]++
	}
	return distribution
}
