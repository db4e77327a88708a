package journal

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used as the store key.
const DateLayout = "2006-01-02"

// DateKey formats t as a calendar date in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts a bare date or a full timestamp and returns the calendar
// date at midnight UTC. Timestamps are truncated to their date part before
// parsing so that "2025-01-02T23:10:00" and "2025-01-02" compare equal.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if idx := strings.IndexAny(value, "T "); idx >= 0 {
		value = value[:idx]
	}
	day, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return day, nil
}

// DaysBetween returns the number of calendar days from earlier to later.
// Both arguments may be bare dates or timestamps.
func DaysBetween(earlier, later string) (int, error) {
	from, err := ParseDate(earlier)
	if err != nil {
		return 0, err
	}
	to, err := ParseDate(later)
	if err != nil {
		return 0, err
	}
	return int(to.Sub(from).Hours() / 24), nil
}
