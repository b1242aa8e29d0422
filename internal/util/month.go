package util

import (
	"fmt"
	"time"
)

// MonthOf truncates t to the first day of its month in UTC.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonth converts a YYYY-MM string to the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t, nil
}

// FormatMonth renders a month date as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.Format("2006-01")
}
