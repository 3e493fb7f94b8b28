// Package period derives calendar boundaries from a reference date. All
// results are midnight-UTC dates; callers must detect zero-length ranges
// before issuing billing queries.
package period

import "time"

// DateOf truncates t to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthPeriod returns the first day of today's month and today itself.
// On the 1st the range is zero-length: the month has no elapsed days and
// callers must skip the query and use a zero result.
func MonthPeriod(today time.Time) (start, end time.Time) {
	today = DateOf(today)
	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today
}

// MonthEnd returns the first day of the month after today's, rolling over
// December into January of the next year.
func MonthEnd(today time.Time) time.Time {
	start, _ := MonthPeriod(today)
	return start.AddDate(0, 1, 0)
}

// DaysInMonth returns the number of days in today's month.
func DaysInMonth(today time.Time) int {
	start, _ := MonthPeriod(today)
	return int(MonthEnd(today).Sub(start).Hours() / 24)
}

// DaysElapsed returns the number of whole days from the start of the month
// through today. Zero on the 1st.
func DaysElapsed(today time.Time) int {
	start, end := MonthPeriod(today)
	return int(end.Sub(start).Hours() / 24)
}

// WeekWindows returns this week's window (most recent Monday through today)
// and the matching window exactly one week earlier, covering the same number
// of elapsed days. On a Monday this week's window is zero-length and callers
// must short-circuit instead of querying.
func WeekWindows(today time.Time) (thisStart, thisEnd, lastStart, lastEnd time.Time) {
	today = DateOf(today)
	offset := mondayOffset(today.Weekday())
	thisStart = today.AddDate(0, 0, -offset)
	thisEnd = today
	lastStart = thisStart.AddDate(0, 0, -7)
	lastEnd = lastStart.AddDate(0, 0, offset)
	return thisStart, thisEnd, lastStart, lastEnd
}

// mondayOffset maps a weekday to its distance from the preceding Monday,
// using ISO numbering (Monday = 0).
func mondayOffset(d time.Weekday) int {
	return (int(d) + 6) % 7
}
