package domain

import (
	"fmt"
	"time"
)

const monthDayLayout = "01-02"

// MonthDay is a calendar position without a year, formatted "MM-DD".
// "02-29" is a valid position; whether it occurs depends on the year it is
// anchored to.
type MonthDay string

// ParseMonthDay validates s as an "MM-DD" calendar position.
func ParseMonthDay(s string) (MonthDay, error) {
	if _, err := time.Parse(monthDayLayout, s); err != nil {
		return "", fmt.Errorf("invalid month-day %q: want MM-DD: %w", s, err)
	}
	return MonthDay(s), nil
}

// MonthDayOf extracts the calendar position of t.
func MonthDayOf(t time.Time) MonthDay {
	return MonthDay(t.Format(monthDayLayout))
}

// InYear anchors the position to a concrete year at UTC midnight. Anchoring
// "02-29" to a non-leap year normalizes to March 1, so callers that care
// must pick a leap anchor year first.
func (md MonthDay) InYear(year int) time.Time {
	t, err := time.Parse(monthDayLayout, string(md))
	if err != nil {
		return time.Time{}
	}
	return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (md MonthDay) String() string { return string(md) }

// IsLeapYear reports whether year has a February 29.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
