// Package dateutil handles the ISO calendar dates used as count-series keys.
//
// Dates are plain "YYYY-MM-DD" strings in a fixed UTC Gregorian calendar.
// Valid ISO date strings sort lexicographically in calendar order, so the
// rest of the system compares them with ordinary string operators; this
// package provides parsing, validation, and day-level stepping.
package dateutil

import (
	"fmt"
	"time"
)

// Layout is the ISO 8601 calendar date layout used throughout the service.
const Layout = "2006-01-02"

// Parse converts an ISO date string to a UTC time at midnight.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Valid reports whether s is a well-formed ISO calendar date.
func Valid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

// Format renders a time as an ISO calendar date in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// NextDay returns the ISO date one calendar day after s.
// Returns s unchanged if it does not parse.
func NextDay(s string) string {
	t, err := Parse(s)
	if err != nil {
		return s
	}
	return Format(t.AddDate(0, 0, 1))
}

// PrevDay returns the ISO date one calendar day before s.
// Returns s unchanged if it does not parse.
func PrevDay(s string) string {
	t, err := Parse(s)
	if err != nil {
		return s
	}
	return Format(t.AddDate(0, 0, -1))
}

// DaysInclusive returns the number of calendar days from 'from' to 'to',
// counting both endpoints. Returns 0 when either date is malformed or
// from sorts after to.
func DaysInclusive(from, to string) int {
	a, err := Parse(from)
	if err != nil {
		return 0
	}
	b, err := Parse(to)
	if err != nil {
		return 0
	}
	if a.After(b) {
		return 0
	}
	return int(b.Sub(a).Hours()/24) + 1
}
