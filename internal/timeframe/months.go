// Package timeframe generates the calendar-month windows an analysis run
// iterates over.
package timeframe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Window is one calendar month inside the analysis period. End is the last
// calendar day of the month, except for the month containing the range end,
// which is clipped so the window never covers days that have not happened.
type Window struct {
	Key   string
	Start time.Time
	End   time.Time
	Name  string
}

// StartDate returns the window start in the YYYY-MM-DD form the issue
// source's query language expects.
func (w Window) StartDate() string {
	return w.Start.Format("2006-01-02")
}

func (w Window) EndDate() string {
	return w.End.Format("2006-01-02")
}

// Generate returns the ordered month windows from start through end, oldest
// first. A start after end yields an empty slice rather than an error;
// callers treat it as a no-op range.
func Generate(start, end time.Time) []Window {
	start = midnight(start)
	end = midnight(end)
	if start.After(end) {
		return nil
	}

	var windows []Window
	current := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !current.After(end) {
		windows = append(windows, makeWindow(current, end))
		current = current.AddDate(0, 1, 0)
	}
	return windows
}

// Current returns the window for the month containing now, clipped to today.
func Current(now time.Time) Window {
	now = midnight(now)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return makeWindow(first, now)
}

func makeWindow(first, rangeEnd time.Time) Window {
	name := monthNames[first.Month()-1]
	year := first.Year()

	endDay := first.AddDate(0, 1, -1).Day()
	if year == rangeEnd.Year() && first.Month() == rangeEnd.Month() {
		endDay = rangeEnd.Day()
	}

	return Window{
		Key:   strings.ToLower(name) + strconv.Itoa(year),
		Start: first,
		End:   time.Date(year, first.Month(), endDay, 0, 0, 0, 0, time.UTC),
		Name:  fmt.Sprintf("%s %d", name, year),
	}
}

// ParseKey recovers the first day of the month a window key refers to.
// Keys are lowercase month name plus 4-digit year ("march2025"), which keeps
// them unique across year boundaries but not lexically sortable; consumers
// ordering persisted datasets use this to sort chronologically.
func ParseKey(key string) (time.Time, error) {
	for i, name := range monthNames {
		prefix := strings.ToLower(name)
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		year, err := strconv.Atoi(key[len(prefix):])
		if err != nil || year < 1000 || year > 9999 {
			continue
		}
		return time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("invalid month key %q", key)
}

func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
