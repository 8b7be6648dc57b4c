package transform

import (
	"fmt"
	"strings"
	"time"
)

// yearMonthLayouts are tried in order. Month-only forms resolve to the
// first day of the month.
var yearMonthLayouts = []string{
	"2006-01",
	"2006-1",
	"2006-01-02",
	"2006/01",
	"2006/1",
	"2006/01/02",
	"200601",
	"20060102",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"January 2006",
	"Jan 2006",
}

// ParseYearMonth converts a period string from the API into a UTC date.
// An explicit offset is dropped and the source wall clock is kept, so the
// calendar month never shifts.
func ParseYearMonth(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range yearMonthLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse year_month %q", s)
}
