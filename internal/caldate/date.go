// Package caldate provides a calendar date with no time of day and no offset.
package caldate

import (
	"cmp"
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Date is a (year, month, day) triple ordered by year, then month, then day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the date for the given fields. It does not normalise them.
func New(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the local calendar date reported by now.
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return FromTime(now().Local())
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("caldate: parse %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	if c := cmp.Compare(d.Year, other.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.Month, other.Month); c != 0 {
		return c
	}
	return cmp.Compare(d.Day, other.Day)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Equal reports whether d and other are the same calendar day.
func (d Date) Equal(other Date) bool { return d == other }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// NullDate is a Date that may be absent, in the manner of sql.NullTime.
type NullDate struct {
	Date  Date
	Valid bool
}

// Some returns a present NullDate.
func Some(d Date) NullDate { return NullDate{Date: d, Valid: true} }

// None is the absent NullDate.
var None = NullDate{}

// Equal reports whether both values are absent or both hold the same date.
func (n NullDate) Equal(other NullDate) bool {
	if n.Valid != other.Valid {
		return false
	}
	return !n.Valid || n.Date.Equal(other.Date)
}

func (n NullDate) String() string {
	if !n.Valid {
		return "none"
	}
	return n.Date.String()
}
