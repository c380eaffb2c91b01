package catalog

import (
	"strings"
	"time"
)

// DatePrecision indicates the granularity of a tag date.
type DatePrecision int

const (
	PrecisionNone  DatePrecision = iota // No date or invalid
	PrecisionYear                       // "2024"
	PrecisionMonth                      // "2024-05"
	PrecisionDay                        // "2024-05-15"
)

// ParseDate parses a tag date of variable precision. Longer values such as
// full timestamps are cut to their date part.
func ParseDate(date string) (time.Time, DatePrecision) {
	date = strings.TrimSpace(date)
	if len(date) > 10 {
		date = date[:10]
	}

	var layout string
	var precision DatePrecision
	switch len(date) {
	case 4:
		layout, precision = "2006", PrecisionYear
	case 7:
		layout, precision = "2006-01", PrecisionMonth
	case 10:
		layout, precision = "2006-01-02", PrecisionDay
	default:
		return time.Time{}, PrecisionNone
	}

	t, err := time.Parse(layout, date)
	if err != nil || t.Year() == 0 {
		return time.Time{}, PrecisionNone
	}
	return t, precision
}

// releaseDate returns a pointer to the parsed date, or nil when the value
// carries no usable date.
func releaseDate(date string) *time.Time {
	t, precision := ParseDate(date)
	if precision == PrecisionNone {
		return nil
	}
	return &t
}
