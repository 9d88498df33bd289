// Package mode holds the static tracking-mode table: which issue types a run
// covers and which change-tracked field it watches.
package mode

import (
	"fmt"
	"sort"
	"strings"

	"effortwatch/internal/errors"
)

// TrackingMode selects the issue types and the tracked estimate field for one
// analysis run. Values are resolved once at startup and passed explicitly
// through the pipeline; nothing reads mode configuration ambiently.
type TrackingMode struct {
	ID         string
	IssueTypes []string
	FieldID    string
	FieldName  string
	BasePoints []float64
}

var defaultBasePoints = []float64{1, 2, 3, 5, 8, 13, 17, 21, 34}

// Builtins returns the modes the original deployment tracked. Config may
// override or extend them.
func Builtins() []TrackingMode {
	return []TrackingMode{
		{
			ID:         "dev",
			IssueTypes: []string{"Web Service (OPT)", "Experiment (OPT)", "Personalization (OPT)"},
			FieldID:    "customfield_10008",
			FieldName:  "Story Points",
			BasePoints: append([]float64(nil), defaultBasePoints...),
		},
		{
			ID:         "qa",
			IssueTypes: []string{"QA (OPT)"},
			FieldID:    "customfield_14664",
			FieldName:  "QA Efforts",
			BasePoints: append([]float64(nil), defaultBasePoints...),
		},
		{
			ID:         "qa-board",
			IssueTypes: []string{"Web Service (OPT)", "Experiment (OPT)", "Personalization (OPT)"},
			FieldID:    "customfield_14664",
			FieldName:  "QA Efforts",
			BasePoints: append([]float64(nil), defaultBasePoints...),
		},
	}
}

// Registry maps mode ids to their configuration. It is populated once and
// exposes no mutation after construction.
type Registry struct {
	modes map[string]TrackingMode
	ids   []string
}

func NewRegistry(modes []TrackingMode) (*Registry, error) {
	r := &Registry{modes: make(map[string]TrackingMode, len(modes))}
	for _, m := range modes {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, errors.New(errors.CodeValidation, "tracking mode id must not be empty")
		}
		if _, exists := r.modes[id]; exists {
			return nil, errors.New(errors.CodeValidation, fmt.Sprintf("duplicate tracking mode %q", id))
		}
		if strings.TrimSpace(m.FieldID) == "" || strings.TrimSpace(m.FieldName) == "" {
			return nil, errors.New(errors.CodeValidation, fmt.Sprintf("tracking mode %q must set field id and field name", id))
		}
		if len(m.BasePoints) == 0 {
			m.BasePoints = append([]float64(nil), defaultBasePoints...)
		}
		m.ID = id
		r.modes[id] = m
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)
	return r, nil
}

// Get resolves a mode id. Unknown ids fail with an UNKNOWN_MODE error naming
// the registered ids, before any month loop starts.
func (r *Registry) Get(id string) (TrackingMode, error) {
	m, ok := r.modes[id]
	if !ok {
		return TrackingMode{}, errors.New(errors.CodeUnknownMode,
			fmt.Sprintf("invalid mode %q, valid modes are: %s", id, strings.Join(r.ids, ", ")))
	}
	return m, nil
}

func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}
