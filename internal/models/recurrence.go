package models

import "time"

type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = "none"
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceYearly  RecurrencePattern = "yearly"
)

func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Interval is the fixed offset between occurrences. Months are 30 days and
// years 365 days; occurrences drift against the calendar.
func (p RecurrencePattern) Interval() time.Duration {
	day := 24 * time.Hour
	switch p {
	case RecurrenceDaily:
		return day
	case RecurrenceWeekly:
		return 7 * day
	case RecurrenceMonthly:
		return 30 * day
	case RecurrenceYearly:
		return 365 * day
	}
	return 0
}

// NextDueDate computes the due date of the next occurrence. Tasks without a
// due date recur relative to now.
func NextDueDate(t *Task, now time.Time) (time.Time, bool) {
	step := t.RecurrencePattern.Interval()
	if step == 0 {
		return time.Time{}, false
	}
	if t.DueDate == nil {
		return now.Add(step), true
	}
	return t.DueDate.Add(step), true
}
