package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogicalDateBoundary(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)

	before := time.Date(2025, 9, 1, 5, 59, 0, 0, loc)
	after := time.Date(2025, 9, 1, 6, 1, 0, 0, loc)

	assert.Equal(t, "2025-08-31", LogicalDateString(before, DayStartHour))
	assert.Equal(t, "2025-09-01", LogicalDateString(after, DayStartHour))
}

func TestLogicalDateMidnight(t *testing.T) {
	loc := time.UTC
	midnight := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)
	assert.Equal(t, "2025-02-28", LogicalDateString(midnight, DayStartHour))
}

func TestWeekRangeMondayToSunday(t *testing.T) {
	// 2025-09-03 is a Wednesday.
	wed := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)
	start, end := WeekRange(wed)
	assert.Equal(t, "2025-09-01", start.Format(DateLayout))
	assert.Equal(t, "2025-09-07", end.Format(DateLayout))

	// A Sunday belongs to the week that started the previous Monday.
	sun := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)
	start, end = WeekRange(sun)
	assert.Equal(t, "2025-09-01", start.Format(DateLayout))
	assert.Equal(t, "2025-09-07", end.Format(DateLayout))

	mon := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	start, _ = WeekRange(mon)
	assert.Equal(t, "2025-09-01", start.Format(DateLayout))
}

func TestWeekKeyYearBoundary(t *testing.T) {
	// 2024-12-30 and 2025-01-01 fall in the same ISO week (2025-W01).
	dec30 := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-W01", WeekKey(dec30))
	assert.Equal(t, WeekKey(dec30), WeekKey(jan1))

	// 2027-01-01 belongs to ISO week 53 of 2026.
	jan1n := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-W53", WeekKey(jan1n))
}

func TestMonthKey(t *testing.T) {
	d := time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-09", MonthKey(d))
	assert.Equal(t, "2025-01", MonthKey(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)))
}
