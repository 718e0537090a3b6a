package incident

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// spaceSeparated matches "YYYY-MM-DD HH:MM..." so it can be rewritten to the T-separated form.
var spaceSeparated = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2})`)

// Layouts that carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z07:00",
	time.RFC1123Z,
	time.RFC1123,
}

// Layouts interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTime resolves a date-like value. Text without an offset is read in loc (UTC when nil),
// except a bare date which is read as UTC midnight. The boolean result is false when the value
// is absent or unparseable.
func ParseTime(ts Timestamp, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}

	if ts.Numeric {
		if math.IsNaN(ts.Epoch) || math.IsInf(ts.Epoch, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ts.Epoch)).In(loc), true
	}

	raw := strings.TrimSpace(ts.Raw)
	if raw == "" {
		return time.Time{}, false
	}
	raw = spaceSeparated.ReplaceAllString(raw, "${1}T${2}")

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.In(loc), true
	}

	return time.Time{}, false
}

// EventTime returns the best available event time of the record in Unix milliseconds. The
// candidates are start, publication, modification, version and end time; the first one that
// parses to a positive instant wins. It returns 0 when none does.
func EventTime(r Record, loc *time.Location) int64 {
	for _, candidate := range r.eventTimeCandidates() {
		t, ok := ParseTime(candidate, loc)
		if !ok {
			continue
		}
		if ms := t.UnixMilli(); ms > 0 {
			return ms
		}
	}
	return 0
}
