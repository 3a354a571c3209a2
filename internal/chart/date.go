package chart

import (
	"time"
)

// Date is a calendar date, it is always stored at midnight UTC so that two Dates for the
// same day compare equal with ==.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day of t, using t's own location to decide the day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a date with the given time layout.
func ParseDate(layout, value string) (Date, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

const isoLayout = "2006-01-02"

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(value string) (Date, error) {
	return ParseDate(isoLayout, value)
}

func (d Date) Time() time.Time {
	return d.t
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) String() string {
	return d.t.Format(isoLayout)
}

func (d Date) Weekday() time.Weekday {
	return d.t.Weekday()
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Compare returns -1, 0 or 1 like strings.Compare.
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Range returns every date from start to end inclusive, it is empty when end is before start.
func Range(start, end Date) []Date {
	var out []Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Equal reports whether both dates are the same day, go-cmp picks this method up.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}
