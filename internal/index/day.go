package index

import (
	"fmt"
	"time"
)

// DayKey is a calendar day, independent of time-of-day. Keys compare by
// year, then month, then day, so ordering is correct across month and year
// boundaries.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// KeyOf returns the calendar day of t in loc. A nil loc uses t's own location.
func KeyOf(t time.Time, loc *time.Location) DayKey {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// Compare returns -1, 0 or +1.
func (k DayKey) Compare(o DayKey) int {
	switch {
	case k.Year != o.Year:
		return cmpInt(k.Year, o.Year)
	case k.Month != o.Month:
		return cmpInt(int(k.Month), int(o.Month))
	default:
		return cmpInt(k.Day, o.Day)
	}
}

// Before reports whether k is an earlier day than o.
func (k DayKey) Before(o DayKey) bool { return k.Compare(o) < 0 }

// String renders the key as YYYY-MM-DD.
func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// MarshalText lets a DayKey be used as a JSON object key or value.
func (k DayKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
