package model

import (
	"fmt"
	"time"
)

// DayLayout is the wire layout of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar day in ISO-8601 form. The zero value means "no day".
//
// Days compare lexicographically, which matches chronological order for the
// fixed-width layout.
type Day string

// ParseDay validates s and returns it as a Day.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(DayLayout, s); err != nil {
		return "", fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day(s), nil
}

// MustDay is like ParseDay but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is unset.
func (d Day) IsZero() bool { return d == "" }

// After reports whether d is strictly later than o. An unset day is earlier
// than every set day.
func (d Day) After(o Day) bool { return d > o }

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int {
	switch {
	case d < o:
		return -1
	case d > o:
		return 1
	}
	return 0
}

func (d Day) String() string { return string(d) }
