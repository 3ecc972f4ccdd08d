package core

import "time"

// DayFormat is the calendar-day layout used everywhere a date (as
// opposed to a timestamp) is stored.
const DayFormat = "2006-01-02"

// Window is the date range a budget is currently evaluated against.
// Both bounds are inclusive calendar days.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the calendar day (YYYY-MM-DD) falls inside
// the window. Unparseable days are outside every window.
func (w Window) Contains(day string) bool {
	d, err := time.ParseInLocation(DayFormat, day, w.From.Location())
	if err != nil {
		return false
	}
	return !d.Before(w.From) && !d.After(w.To)
}

// Days returns the window length in days, counting both bounds, never
// less than 1. A full April window is 30 days.
func (w Window) Days() float64 {
	d := w.To.Sub(w.From).Hours()/24 + 1
	if d < 1 {
		return 1
	}
	return d
}

// ElapsedDays returns days elapsed since the window start, clamped to a
// minimum of 1 so a period that just started never divides by ~0.
func (w Window) ElapsedDays(now time.Time) float64 {
	e := now.Sub(w.From).Hours() / 24
	if e < 1 {
		return 1
	}
	return e
}

// PeriodWindow computes the current window for a recurrence period:
// weekly is the Sunday-to-Saturday week containing now, biweekly is the
// 1st-15th or 16th-end half of the month, monthly is the calendar month.
func PeriodWindow(p Period, now time.Time) Window {
	y, m, d := now.Date()
	loc := now.Location()

	switch p {
	case PeriodWeekly:
		weekday := int(now.Weekday())
		return Window{
			From: time.Date(y, m, d-weekday, 0, 0, 0, 0, loc),
			To:   time.Date(y, m, d+(6-weekday), 0, 0, 0, 0, loc),
		}
	case PeriodBiweekly:
		lastDay := time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
		if d <= 15 {
			return Window{
				From: time.Date(y, m, 1, 0, 0, 0, 0, loc),
				To:   time.Date(y, m, 15, 0, 0, 0, 0, loc),
			}
		}
		return Window{
			From: time.Date(y, m, 16, 0, 0, 0, 0, loc),
			To:   time.Date(y, m, lastDay, 0, 0, 0, 0, loc),
		}
	default: // monthly
		lastDay := time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
		return Window{
			From: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			To:   time.Date(y, m, lastDay, 0, 0, 0, 0, loc),
		}
	}
}
