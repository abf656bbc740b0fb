package model

import "time"

const dateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form. Dates compare correctly as strings.
type Date string

// DateOf returns the calendar day of t as observed in loc
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Date(t.In(loc).Format(dateLayout))
}

// ParseDate validates and normalises a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", ErrInvalidDate
	}
	return Date(t.Format(dateLayout)), nil
}

// Time returns midnight of the date in loc
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts the date by n calendar days
func (d Date) AddDays(n int) Date {
	return Date(d.Time(time.UTC).AddDate(0, 0, n).Format(dateLayout))
}

// Compact renders the date as YYYYMMDD
func (d Date) Compact() string {
	return d.Time(time.UTC).Format("20060102")
}

func (d Date) String() string {
	return string(d)
}
