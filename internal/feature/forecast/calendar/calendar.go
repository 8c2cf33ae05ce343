// Package calendar builds the monthly period boundaries that forecasts attach to.
package calendar

import "time"

// LabelLayout formats calendar labels as day/month/year.
const LabelLayout = "02/01/2006"

// AddMonths advances t by months calendar months. When the target month is shorter than
// t's day, the day is clamped to the last day of that month (31 Jan + 1 month = 28/29 Feb).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// Extend returns months consecutive dates strictly after last, each one calendar month after
// the previous. Every date is computed from last so clamped days do not drift.
func Extend(last time.Time, months int) []time.Time {
	if months <= 0 {
		return []time.Time{}
	}
	out := make([]time.Time, months)
	for i := range out {
		out[i] = AddMonths(last, i+1)
	}
	return out
}

// MonthStart truncates t to midnight on the first day of its month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
