package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// TruncateDay drops the time-of-day component in UTC.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AlignDateRange truncates both ends to day boundaries, swapping them if
// reversed.
func AlignDateRange(from, to time.Time) (time.Time, time.Time) {
	from, to = TruncateDay(from), TruncateDay(to)
	if to.Before(from) {
		from, to = to, from
	}
	return from, to
}

// DaysBetween counts whole days from a to b, negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(TruncateDay(b).Sub(TruncateDay(a)) / (24 * time.Hour))
}