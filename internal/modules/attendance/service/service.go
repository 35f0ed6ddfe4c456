package service

import (
	"context"
	"time"

	"github.com/dulgistudio/dulgi/internal/calendar"
	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/dulgistudio/dulgi/internal/ledger"
	accrual "github.com/dulgistudio/dulgi/internal/modules/accrual/service"
	"github.com/dulgistudio/dulgi/internal/policy"
)

// CheckInResult reports whether the check-in was recorded and what the
// routed accrual against the attendance channel produced.
type CheckInResult struct {
	Accepted bool            `json:"accepted"`
	Date     string          `json:"date"`
	Accrual  accrual.Outcome `json:"accrual"`
}

type AttendanceService interface {
	// CheckIn records attendance once per logical day and routes a single
	// accrual through the attendance channel. The attendance channel's daily
	// cap equals one event's points, so the points count exactly once even
	// though the attendance set is the primary dedup.
	CheckIn(ctx context.Context, userID string, instant time.Time) (CheckInResult, error)
}

type attendanceService struct {
	store          ledger.Store
	policies       *policy.Table
	globalDailyCap int
	notifier       accrual.Notifier
}

func NewAttendanceService(store ledger.Store, policies *policy.Table, globalDailyCap int, notifier accrual.Notifier) AttendanceService {
	return &attendanceService{
		store:          store,
		policies:       policies,
		globalDailyCap: globalDailyCap,
		notifier:       notifier,
	}
}

func (s *attendanceService) CheckIn(ctx context.Context, userID string, instant time.Time) (CheckInResult, error) {
	date := calendar.LogicalDateString(instant, calendar.DayStartHour)
	result := CheckInResult{Date: date}

	// Attendance append and the routed accrual share one atomic write, so a
	// recorded check-in can never lose its points to a crash in between.
	err := s.store.Update(ctx, userID, func(rec *entity.UserRecord) (bool, error) {
		if rec.HasAttendance(date) {
			return false, nil
		}
		rec.Attendance = append(rec.Attendance, date)
		result.Accepted = true
		result.Accrual = accrual.Apply(rec, s.policies, s.globalDailyCap, instant, s.policies.AttendanceChannelID(), true)
		return true, nil
	})
	if err != nil {
		return CheckInResult{Date: date}, err
	}

	if result.Accepted && s.notifier != nil {
		for _, value := range result.Accrual.Milestones {
			s.notifier.Deliver(ctx, &entity.Notification{
				UserID:      userID,
				Type:        entity.NotificationWeeklyMilestone,
				PeriodKey:   result.Accrual.WeekKey,
				Value:       value,
				PeriodTotal: result.Accrual.WeekTotal,
			})
		}
		for _, ev := range result.Accrual.Thresholds {
			s.notifier.Deliver(ctx, &entity.Notification{
				UserID:      userID,
				Type:        ev.Kind,
				PeriodKey:   ev.PeriodKey,
				Value:       ev.Threshold,
				PeriodTotal: ev.PeriodTotal,
			})
		}
	}
	return result, nil
}
