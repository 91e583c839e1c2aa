package lifecycle

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the zone used to decide what "today" is.
const DefaultTimezone = "Europe/Ljubljana"

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type monthDay struct {
	month time.Month
	day   int
}

// Fixed Slovenian public holidays.
var slovenianHolidays = []monthDay{
	{time.January, 1},
	{time.January, 2},
	{time.February, 8},
	{time.April, 27},
	{time.May, 1},
	{time.May, 2},
	{time.June, 25},
	{time.August, 15},
	{time.October, 31},
	{time.November, 1},
	{time.December, 25},
	{time.December, 26},
}

// Calendar maps instants to civil dates and knows which days are working
// days. Civil dates are represented as midnight UTC.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the named zone.
func NewCalendar(timezone string) (Calendar, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Calendar{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return Calendar{loc: loc}, nil
}

// MustCalendar is NewCalendar for zones known to exist.
func MustCalendar(timezone string) Calendar {
	cal, err := NewCalendar(timezone)
	if err != nil {
		panic(err)
	}
	return cal
}

// Location returns the calendar zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Today returns the civil date of now in the calendar zone.
func (c Calendar) Today(now time.Time) time.Time {
	return Day(now.In(c.Location()))
}

// Day truncates t to its civil date, read in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Validation("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// IsWeekend reports whether the civil date is a Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether the civil date is a fixed public holiday.
func IsHoliday(date time.Time) bool {
	for _, h := range slovenianHolidays {
		if date.Month() == h.month && date.Day() == h.day {
			return true
		}
	}
	return false
}

// IsWorkingDay reports whether a sprint may start or end on the date.
func IsWorkingDay(date time.Time) bool {
	return !IsWeekend(date) && !IsHoliday(date)
}

// DaysInclusive counts calendar days from start to finish, both included.
func DaysInclusive(start, finish time.Time) int {
	return int(Day(finish).Sub(Day(start)).Hours()/24) + 1
}
