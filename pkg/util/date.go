package util

import (
	"strconv"
	"time"
)

// unix timestamps above this are taken as milliseconds (year 2286 in seconds).
const millisThreshold = 10_000_000_000

// ParseTime accepts RFC3339, RFC3339Nano, unix seconds or unix milliseconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromUnix(ts), true
	}
	return time.Time{}, false
}

// FromUnix converts unix seconds or milliseconds to UTC.
func FromUnix(ts int64) time.Time {
	if ts >= millisThreshold {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// AlignFromTo rounds the time range down to bar boundaries of length bar.
func AlignFromTo(from, to time.Time, bar time.Duration) (time.Time, time.Time) {
	if bar <= 0 {
		return from, to
	}
	return from.Truncate(bar), to.Truncate(bar)
}
