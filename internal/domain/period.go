package domain

import (
	"fmt"
	"time"
)

// Period is an inclusive time range. A zero Start or End leaves that side open.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod validates an inclusive timestamp range.
func NewPeriod(start, end time.Time) (Period, error) {
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return Period{}, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Period{Start: start, End: end}, nil
}

// NewDatePeriod covers whole calendar days: start at 00:00:00 of its date and end at the last
// instant of its date, both evaluated in loc. Zero inputs stay open.
func NewDatePeriod(start, end time.Time, loc *time.Location) (Period, error) {
	if !start.IsZero() {
		start = StartOfDay(start, loc)
	}
	if !end.IsZero() {
		end = EndOfDay(end, loc)
	}
	return NewPeriod(start, end)
}

// Contains reports whether t lies within the period, bounds included.
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set.
func (p Period) IsOpen() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// StartOfDay returns midnight of t's date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of t's date in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
