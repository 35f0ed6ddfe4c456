package calendar

import (
	"fmt"
	"time"
)

// DayStartHour is the local hour at which a logical day begins. Activity
// before 06:00 is credited to the previous calendar date.
const DayStartHour = 6

// DateLayout is the canonical logical-date string format used as ledger keys.
const DateLayout = "2006-01-02"

// LogicalDate returns the calendar date an instant belongs to, shifting the
// day boundary to DayStartHour. It is a pure function of its inputs.
func LogicalDate(instant time.Time, dayStartHour int) time.Time {
	local := instant
	if local.Hour() < dayStartHour {
		local = local.AddDate(0, 0, -1)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// LogicalDateString formats the logical date of an instant as a ledger key.
func LogicalDateString(instant time.Time, dayStartHour int) string {
	return LogicalDate(instant, dayStartHour).Format(DateLayout)
}

// WeekRange returns the Monday and Sunday of the week containing date.
func WeekRange(date time.Time) (time.Time, time.Time) {
	weekday := int(date.Weekday())
	// time.Weekday counts Sunday as 0; the week here runs Monday to Sunday.
	if weekday == 0 {
		weekday = 7
	}
	start := date.AddDate(0, 0, -(weekday - 1))
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	return start, start.AddDate(0, 0, 6)
}

// WeekKey returns the ISO week identifier of date, e.g. "2025-W01".
// ISO week numbering keeps the key stable across the year boundary.
func WeekKey(date time.Time) string {
	year, week := date.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey returns the year-month identifier of date, e.g. "2025-09".
// It is also the prefix of every logical-date string in that month.
func MonthKey(date time.Time) string {
	return fmt.Sprintf("%04d-%02d", date.Year(), int(date.Month()))
}

// ParseDate parses a logical-date string back into a date value.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
