package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dulgistudio/dulgi/internal/calendar"
	"github.com/dulgistudio/dulgi/internal/ledger"
	accrual "github.com/dulgistudio/dulgi/internal/modules/accrual/service"
	"github.com/dulgistudio/dulgi/internal/modules/report/dto"
	"github.com/dulgistudio/dulgi/internal/policy"
	"github.com/redis/go-redis/v9"
)

// Granularity selects the aggregation window for leaderboards and admin
// reports.
type Granularity string

const (
	Week  Granularity = "week"
	Month Granularity = "month"
)

// DefaultDailyGoal is the day-tile target the community settled on.
const DefaultDailyGoal = 10

// monthGridDays caps the month tile grid at days 1..20, a 5x4 grid.
const monthGridDays = 20

const leaderboardCacheTTL = time.Minute

// ReportService exposes read-only aggregation over the ledger. Nothing here
// mutates state; queries may run concurrently with accruals.
type ReportService interface {
	WeeklyTotal(ctx context.Context, userID string, refDate time.Time) (int, error)
	WeeklyBreakdown(ctx context.Context, userID string, refDate time.Time) ([]dto.ChannelBreakdown, error)
	MonthlyTotal(ctx context.Context, userID string, year, month int) (int, error)
	Leaderboard(ctx context.Context, granularity Granularity, refDate time.Time) ([]dto.LeaderboardEntry, error)
	DayTile(ctx context.Context, userID string, date time.Time, dailyGoal int) (bool, error)
	WeeklySummary(ctx context.Context, userID string, refDate time.Time) (dto.WeeklySummary, error)
}

type reportService struct {
	store       ledger.Store
	policies    *policy.Table
	redisClient *redis.Client
}

func NewReportService(store ledger.Store, policies *policy.Table, redisClient *redis.Client) ReportService {
	return &reportService{
		store:       store,
		policies:    policies,
		redisClient: redisClient,
	}
}

func (s *reportService) WeeklyTotal(ctx context.Context, userID string, refDate time.Time) (int, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	start, end := weekBounds(refDate)
	total := 0
	for date, day := range rec.Activity {
		if date >= start && date <= end {
			total += day.Total
		}
	}
	return total, nil
}

func (s *reportService) WeeklyBreakdown(ctx context.Context, userID string, refDate time.Time) ([]dto.ChannelBreakdown, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	start, end := weekBounds(refDate)
	byChannel := map[string]int{}
	for date, day := range rec.Activity {
		if date < start || date > end {
			continue
		}
		for ch, pts := range day.ByChannel {
			byChannel[ch] += pts
		}
	}

	channels := make([]string, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	breakdown := make([]dto.ChannelBreakdown, 0, len(channels))
	for _, ch := range channels {
		breakdown = append(breakdown, dto.ChannelBreakdown{
			ChannelID: ch,
			Name:      s.policies.ChannelName(ch),
			Points:    byChannel[ch],
		})
	}
	return breakdown, nil
}

func (s *reportService) MonthlyTotal(ctx context.Context, userID string, year, month int) (int, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	total := 0
	for date, day := range rec.Activity {
		if len(date) >= len(prefix) && date[:len(prefix)] == prefix {
			total += day.Total
		}
	}
	return total, nil
}

func (s *reportService) Leaderboard(ctx context.Context, granularity Granularity, refDate time.Time) ([]dto.LeaderboardEntry, error) {
	var start, end, cacheKey string
	switch granularity {
	case Month:
		monthKey := calendar.MonthKey(refDate)
		start, end = monthKey+"-01", monthKey+"-31"
		cacheKey = "leaderboard:month:" + monthKey
	default:
		start, end = weekBounds(refDate)
		cacheKey = "leaderboard:week:" + calendar.WeekKey(refDate)
	}

	if cached, ok := s.cachedLeaderboard(ctx, cacheKey); ok {
		return cached, nil
	}

	totals, err := s.store.TotalsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(totals))
	for uid, total := range totals {
		entries = append(entries, dto.LeaderboardEntry{UserID: uid, Total: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}

	s.cacheLeaderboard(ctx, cacheKey, entries)
	return entries, nil
}

func (s *reportService) DayTile(ctx context.Context, userID string, date time.Time, dailyGoal int) (bool, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	day, ok := rec.Activity[date.Format(calendar.DateLayout)]
	if !ok {
		return false, nil
	}
	return day.Total >= dailyGoal, nil
}

func (s *reportService) WeeklySummary(ctx context.Context, userID string, refDate time.Time) (dto.WeeklySummary, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return dto.WeeklySummary{}, err
	}

	weekStart, weekEnd := calendar.WeekRange(refDate)
	start := weekStart.Format(calendar.DateLayout)
	end := weekEnd.Format(calendar.DateLayout)

	summary := dto.WeeklySummary{
		UserID:     userID,
		WeekKey:    calendar.WeekKey(refDate),
		WeekStart:  start,
		WeekEnd:    end,
		Breakdown:  []dto.ChannelBreakdown{},
		WeekTiles:  make([]bool, 7),
		MonthTiles: make([]bool, monthGridDays),
	}

	byChannel := map[string]int{}
	for date, day := range rec.Activity {
		if date < start || date > end {
			continue
		}
		summary.Total += day.Total
		for ch, pts := range day.ByChannel {
			byChannel[ch] += pts
		}
	}

	channels := make([]string, 0, len(byChannel))
	for ch := range byChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	for _, ch := range channels {
		summary.Breakdown = append(summary.Breakdown, dto.ChannelBreakdown{
			ChannelID: ch,
			Name:      s.policies.ChannelName(ch),
			Points:    byChannel[ch],
		})
	}

	for _, date := range rec.Attendance {
		if date >= start && date <= end {
			summary.AttendanceCount++
		}
	}

	summary.RemainingToBest = accrual.WeeklyBestThreshold - summary.Total
	if summary.RemainingToBest < 0 {
		summary.RemainingToBest = 0
	}

	for i := 0; i < 7; i++ {
		date := weekStart.AddDate(0, 0, i).Format(calendar.DateLayout)
		if day, ok := rec.Activity[date]; ok {
			summary.WeekTiles[i] = day.Total >= DefaultDailyGoal
		}
	}

	monthKey := calendar.MonthKey(refDate)
	for d := 1; d <= monthGridDays; d++ {
		date := fmt.Sprintf("%s-%02d", monthKey, d)
		if day, ok := rec.Activity[date]; ok {
			summary.MonthTiles[d-1] = day.Total >= DefaultDailyGoal
		}
	}

	return summary, nil
}

func weekBounds(refDate time.Time) (string, string) {
	start, end := calendar.WeekRange(refDate)
	return start.Format(calendar.DateLayout), end.Format(calendar.DateLayout)
}

func (s *reportService) cachedLeaderboard(ctx context.Context, key string) ([]dto.LeaderboardEntry, bool) {
	if s.redisClient == nil {
		return nil, false
	}
	raw, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var entries []dto.LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (s *reportService) cacheLeaderboard(ctx context.Context, key string, entries []dto.LeaderboardEntry) {
	if s.redisClient == nil {
		return
	}
	if raw, err := json.Marshal(entries); err == nil {
		s.redisClient.Set(ctx, key, raw, leaderboardCacheTTL)
	}
}
