package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthKey identifies a calendar month. Its string form "M/YYYY" is also the
// column header used by the master report.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

// MonthOf returns the month key of t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%d/%d", k.Month, k.Year)
}

// Less orders keys chronologically, year first.
func (k MonthKey) Less(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// ParseMonth accepts 1-12 or an English month name ("February", "feb").
func ParseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidMonth)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		m := int(f)
		if float64(m) != f || m < 1 || m > 12 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
		}
		return m, nil
	}
	lower := strings.ToLower(s)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if lower == name || (len(lower) >= 3 && strings.HasPrefix(name, lower)) {
			return int(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

// ParseYear accepts a four digit year, possibly rendered as a float.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYear, s)
	}
	y := int(f)
	if float64(y) != f || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYear, s)
	}
	return y, nil
}

var dateLayouts = []string{
	DateLayout,
	TimestampLayout,
	time.RFC3339,
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"2006/01/02",
	"2006/1/2",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate reads a calendar date from a cell rendering. Dates are naive and
// carried in UTC so hour arithmetic never crosses a DST change.
func ParseDate(s string) (time.Time, bool) {
	t, ok := ParseTimestamp(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// ParseTimestamp is ParseDate keeping the time of day.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			hh, mm, ss := t.Clock()
			return time.Date(y, m, d, hh, mm, ss, 0, time.UTC), true
		}
	}
	// Spreadsheet serial number (days since 1899-12-30, fraction is time of day).
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < 2958466 {
		secs := int64(f*86400 + 0.5)
		return sheetsEpoch.Add(time.Duration(secs) * time.Second), true
	}
	return time.Time{}, false
}
