// Package freshness decides whether a location's product data is outdated.
package freshness

import (
	"math"
	"strings"
	"time"

	"GroceryScanner/internal/domain"
)

// DefaultThresholdDays is the staleness window used by the pipeline.
const DefaultThresholdDays = 7

var layouts = []string{
	domain.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// placeholders written by spreadsheet tooling for missing values.
var missing = map[string]struct{}{
	"":     {},
	"nan":  {},
	"nat":  {},
	"none": {},
	"null": {},
}

// ParseDate parses a persisted retrieval date in now's location.
// The boolean is false for absent or malformed values.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if _, ok := missing[strings.ToLower(raw)]; ok {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysSince returns the whole days elapsed from last to now, floored.
// Both sides are compared on the wall clock of now's location, so a
// daylight-saving shift inside the window does not change the count.
func DaysSince(last, now time.Time) int {
	return int(math.Floor(wallClock(now).Sub(wallClock(last.In(now.Location()))).Hours() / 24))
}

func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// IsStale reports whether data retrieved at lastRetrieved needs a refresh.
// Absent or unparsable dates are stale.
func IsStale(lastRetrieved string, thresholdDays int, now time.Time) bool {
	last, ok := ParseDate(lastRetrieved, now.Location())
	if !ok {
		return true
	}
	return DaysSince(last, now) >= thresholdDays
}
