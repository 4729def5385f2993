package services

import "time"

// Clock returns the current time. Services read time only through their Clock.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

func (c Clock) orDefault() Clock {
	if c == nil {
		return defaultClock
	}
	return c
}

// calendarDate returns the calendar day of t in loc as midnight UTC, the form order
// dates are stored in.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// midnightIn reads the calendar day off date itself and returns its start in loc.
func midnightIn(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
