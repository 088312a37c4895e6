package util

import (
	"strconv"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z, // RSS pubDate
	time.RFC1123,
	"2006-01-02 15:04:05", // sqlite CURRENT_TIMESTAMP
	"2006-01-02",
}

// ParseTime tries the common API, feed and database layouts, then unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
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

// DayRange returns [from, to] as unix seconds, from truncated to midnight UTC.
func DayRange(from, to time.Time) (int64, int64) {
	from = from.UTC().Truncate(24 * time.Hour)
	return from.Unix(), to.UTC().Unix()
}
