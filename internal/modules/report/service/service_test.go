package service

import (
	"context"
	"testing"
	"time"

	"github.com/dulgistudio/dulgi/internal/entity"
	ledgerFile "github.com/dulgistudio/dulgi/internal/ledger/file"
	accrual "github.com/dulgistudio/dulgi/internal/modules/accrual/service"
	"github.com/dulgistudio/dulgi/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wednesday; the surrounding week is 2025-09-08 (Mon) to 2025-09-14 (Sun)
var refDate = time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

func seeded(t *testing.T) (ReportService, accrual.AccrualService) {
	t.Helper()
	store, err := ledgerFile.New("")
	require.NoError(t, err)
	table := policy.Default()
	return NewReportService(store, table, nil), accrual.NewAccrualService(store, table, 0, nil)
}

func addOn(t *testing.T, svc accrual.AccrualService, uid string, day time.Time, channel string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		out, err := svc.AddActivity(context.Background(), uid, day, channel, true)
		require.NoError(t, err)
		require.True(t, out.Accepted)
	}
}

func TestWeeklyTotalSpansMondayToSunday(t *testing.T) {
	reports, events := seeded(t)

	monday := time.Date(2025, 9, 8, 12, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC)
	nextMonday := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

	addOn(t, events, "user-1", monday, "daily-drawing-report", 1) // 6
	addOn(t, events, "user-1", sunday, "finished-drawing", 1)     // 5
	addOn(t, events, "user-1", nextMonday, "free-chat", 2)        // next week

	total, err := reports.WeeklyTotal(context.Background(), "user-1", refDate)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
}

func TestWeeklyBreakdownIsSortedByChannel(t *testing.T) {
	reports, events := seeded(t)

	addOn(t, events, "user-1", refDate.Add(12*time.Hour), "free-chat", 3)
	addOn(t, events, "user-1", refDate.Add(12*time.Hour), "daily-drawing-report", 1)

	breakdown, err := reports.WeeklyBreakdown(context.Background(), "user-1", refDate)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "daily-drawing-report", breakdown[0].ChannelID)
	assert.Equal(t, "일일-그림보고", breakdown[0].Name)
	assert.Equal(t, 6, breakdown[0].Points)
	assert.Equal(t, "free-chat", breakdown[1].ChannelID)
	assert.Equal(t, 3, breakdown[1].Points)
}

func TestMonthlyTotal(t *testing.T) {
	reports, events := seeded(t)

	addOn(t, events, "user-1", time.Date(2025, 9, 2, 12, 0, 0, 0, time.UTC), "daily-drawing-report", 1)
	addOn(t, events, "user-1", time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC), "finished-drawing", 1)
	addOn(t, events, "user-1", time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC), "free-chat", 1)

	total, err := reports.MonthlyTotal(context.Background(), "user-1", 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 11, total)

	total, err = reports.MonthlyTotal(context.Background(), "user-1", 2025, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestLeaderboardOrderingAndTieBreak(t *testing.T) {
	reports, events := seeded(t)
	noon := refDate.Add(12 * time.Hour)

	addOn(t, events, "carol", noon, "free-chat", 2)
	addOn(t, events, "alice", noon, "free-chat", 4)
	addOn(t, events, "bob", noon, "free-chat", 4)

	entries, err := reports.Leaderboard(context.Background(), Week, refDate)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Ties break on user id so two runs of the same report agree.
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, "bob", entries[1].UserID)
	assert.Equal(t, 2, entries[1].Position)
	assert.Equal(t, "carol", entries[2].UserID)
	assert.Equal(t, 2, entries[2].Total)
}

func TestLeaderboardMonthGranularity(t *testing.T) {
	reports, events := seeded(t)

	addOn(t, events, "alice", time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC), "free-chat", 1)
	addOn(t, events, "alice", time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC), "free-chat", 1)

	entries, err := reports.Leaderboard(context.Background(), Month, refDate)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Total)
}

func TestDayTile(t *testing.T) {
	reports, events := seeded(t)
	noon := refDate.Add(12 * time.Hour)

	// 6 + 5 = 11 >= goal 10
	addOn(t, events, "user-1", noon, "daily-drawing-report", 1)
	met, err := reports.DayTile(context.Background(), "user-1", refDate, DefaultDailyGoal)
	require.NoError(t, err)
	assert.False(t, met)

	addOn(t, events, "user-1", noon, "finished-drawing", 1)
	met, err = reports.DayTile(context.Background(), "user-1", refDate, DefaultDailyGoal)
	require.NoError(t, err)
	assert.True(t, met)

	// A day with no record at all is simply not met.
	met, err = reports.DayTile(context.Background(), "user-1", refDate.AddDate(0, 0, 1), DefaultDailyGoal)
	require.NoError(t, err)
	assert.False(t, met)
}

func TestWeeklySummary(t *testing.T) {
	store, err := ledgerFile.New("")
	require.NoError(t, err)
	table := policy.Default()
	reports := NewReportService(store, table, nil)
	events := accrual.NewAccrualService(store, table, 0, nil)

	tuesday := time.Date(2025, 9, 9, 12, 0, 0, 0, time.UTC)
	addOn(t, events, "user-1", tuesday, "daily-drawing-report", 1)
	addOn(t, events, "user-1", tuesday, "finished-drawing", 1)
	addOn(t, events, "user-1", refDate.Add(12*time.Hour), "free-chat", 2)

	summary, err := reports.WeeklySummary(context.Background(), "user-1", refDate)
	require.NoError(t, err)

	assert.Equal(t, "2025-W37", summary.WeekKey)
	assert.Equal(t, "2025-09-08", summary.WeekStart)
	assert.Equal(t, "2025-09-14", summary.WeekEnd)
	assert.Equal(t, 13, summary.Total)
	assert.Equal(t, 60-13, summary.RemainingToBest)
	require.Len(t, summary.WeekTiles, 7)
	assert.False(t, summary.WeekTiles[0]) // Monday: nothing
	assert.True(t, summary.WeekTiles[1])  // Tuesday: 11 >= 10
	assert.False(t, summary.WeekTiles[2]) // Wednesday: 2 < 10
	require.Len(t, summary.MonthTiles, 20)
	assert.True(t, summary.MonthTiles[8]) // day 9 of the month
}

func TestWeeklySummaryRemainingClampsAtZero(t *testing.T) {
	store, err := ledgerFile.New("")
	require.NoError(t, err)
	table, err := policy.New([]policy.ChannelPolicy{
		{ChannelID: "studio", Name: "studio", Points: 40, DailyMax: 1000, Evidence: policy.EvidenceNone},
		{ChannelID: "attendance", Name: "attendance", Points: 4, DailyMax: 4, Evidence: policy.EvidenceNone},
	}, "attendance")
	require.NoError(t, err)
	reports := NewReportService(store, table, nil)
	events := accrual.NewAccrualService(store, table, 0, nil)

	addOn(t, events, "user-1", refDate.Add(12*time.Hour), "studio", 2) // 80 > 60

	summary, err := reports.WeeklySummary(context.Background(), "user-1", refDate)
	require.NoError(t, err)
	assert.Equal(t, 80, summary.Total)
	assert.Equal(t, 0, summary.RemainingToBest)
}

func TestWeeklySummaryCountsAttendance(t *testing.T) {
	store, err := ledgerFile.New("")
	require.NoError(t, err)
	reports := NewReportService(store, policy.Default(), nil)

	err = store.Update(context.Background(), "user-1", func(rec *entity.UserRecord) (bool, error) {
		// Two check-ins inside the week, one before it.
		rec.Attendance = append(rec.Attendance, "2025-09-05", "2025-09-08", "2025-09-10")
		return true, nil
	})
	require.NoError(t, err)

	summary, err := reports.WeeklySummary(context.Background(), "user-1", refDate)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.AttendanceCount)
}
