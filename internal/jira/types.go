package jira

import (
	"fmt"
	"strconv"
)

// Issue is the slice of the Jira search response the pipeline consumes: the
// key, the current value of the tracked custom field, and the changelog.
type Issue struct {
	Key       string                 `json:"key"`
	Fields    map[string]interface{} `json:"fields"`
	Changelog *Changelog             `json:"changelog"`
}

type Changelog struct {
	Histories []History `json:"histories"`
}

type History struct {
	Created string       `json:"created"`
	Author  Author       `json:"author"`
	Items   []ChangeItem `json:"items"`
}

type Author struct {
	DisplayName string `json:"displayName"`
}

// ChangeItem is one field change inside a history entry. Multiple items in
// one entry are independent events.
type ChangeItem struct {
	FieldID    string `json:"fieldId"`
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// FieldValue returns the issue's current value for fieldID rendered the way
// the persisted dataset keys distribution buckets: JSON numbers in their
// shortest decimal form, anything else via its string form. ok is false when
// the field is null or absent.
func (i Issue) FieldValue(fieldID string) (string, bool) {
	raw, exists := i.Fields[fieldID]
	if !exists || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case string:
		return v, true
	default:
		return fmt.Sprint(v), true
	}
}

type searchResponse struct {
	Issues        []Issue `json:"issues"`
	IsLast        bool    `json:"isLast"`
	NextPageToken string  `json:"nextPageToken"`
}
