package service

import (
	"time"

	"github.com/dulgistudio/dulgi/internal/calendar"
	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/dulgistudio/dulgi/internal/policy"
)

const (
	// MilestoneStep is the fine-grained weekly milestone granularity.
	MilestoneStep = 50

	// WeeklyBestThreshold and MonthlyBestThreshold fire one congratulation
	// per period the first time the period total reaches them.
	WeeklyBestThreshold  = 60
	MonthlyBestThreshold = 200

	markerWeeklyBest  = "weekly_best:"
	markerMonthlyBest = "monthly_best:"
)

// ThresholdEvent reports a period-best threshold crossing.
type ThresholdEvent struct {
	Kind        string `json:"kind"`
	PeriodKey   string `json:"period_key"`
	Threshold   int    `json:"threshold"`
	PeriodTotal int    `json:"period_total"`
}

// Outcome is the result of applying one event to a user record.
type Outcome struct {
	Accepted   bool             `json:"accepted"`
	Date       string           `json:"date,omitempty"`
	WeekKey    string           `json:"week_key,omitempty"`
	WeekTotal  int              `json:"week_total,omitempty"`
	Milestones []int            `json:"milestones"`
	Thresholds []ThresholdEvent `json:"thresholds"`
}

func rejected() Outcome {
	return Outcome{Accepted: false, Milestones: []int{}, Thresholds: []ThresholdEvent{}}
}

// Apply runs the accrual algorithm against a user record: resolve policy,
// enforce evidence and caps, credit the day, then detect newly crossed
// milestones for the event's week and month. It mutates rec only when the
// event is accepted; callers persist the record afterwards as one write.
//
// Events with past or future instants are bucketed by their deterministic
// logical date rather than "today", so late deliveries land on the day they
// belong to.
func Apply(rec *entity.UserRecord, table *policy.Table, globalDailyCap int, instant time.Time, channelID string, evidenceQualified bool) Outcome {
	conf, known := table.Lookup(channelID)
	if !known {
		// Unknown source: a quiet no-op, not an error.
		return rejected()
	}
	if conf.Evidence != policy.EvidenceNone && !evidenceQualified {
		return rejected()
	}

	date := calendar.LogicalDate(instant, calendar.DayStartHour)
	dateStr := date.Format(calendar.DateLayout)

	day, hadDay := rec.Activity[dateStr]
	if !hadDay {
		day = entity.NewDailyRecord()
	}

	// Per-channel cap first, then the optional global cap; no partial credit.
	prevChannel := day.ByChannel[channelID]
	if prevChannel+conf.Points > conf.DailyMax {
		return rejected()
	}
	if globalDailyCap > 0 && day.Total+conf.Points > globalDailyCap {
		return rejected()
	}

	weekStart, weekEnd := calendar.WeekRange(date)
	startStr := weekStart.Format(calendar.DateLayout)
	endStr := weekEnd.Format(calendar.DateLayout)
	weekKey := calendar.WeekKey(date)
	monthKey := calendar.MonthKey(date)

	prevWeekTotal := weekTotal(rec, startStr, endStr)

	day.Add(channelID, conf.Points)
	rec.Activity[dateStr] = day

	newWeekTotal := weekTotal(rec, startStr, endStr)

	out := Outcome{
		Accepted:   true,
		Date:       dateStr,
		WeekKey:    weekKey,
		WeekTotal:  newWeekTotal,
		Milestones: []int{},
		Thresholds: []ThresholdEvent{},
	}

	// Fine-grained milestones: every MilestoneStep level crossed by this
	// event, minus anything already delivered for the week.
	prevLevel := prevWeekTotal / MilestoneStep
	newLevel := newWeekTotal / MilestoneStep
	for level := prevLevel + 1; level <= newLevel; level++ {
		value := level * MilestoneStep
		if rec.HasNotified(weekKey, value) {
			continue
		}
		rec.MarkNotified(weekKey, value)
		out.Milestones = append(out.Milestones, value)
	}

	// Period-best thresholds keep their own one-shot markers so they fire
	// once per period no matter how often the condition re-evaluates true.
	if newWeekTotal >= WeeklyBestThreshold {
		marker := markerWeeklyBest + weekKey
		if !rec.HasNotified(marker, WeeklyBestThreshold) {
			rec.MarkNotified(marker, WeeklyBestThreshold)
			out.Thresholds = append(out.Thresholds, ThresholdEvent{
				Kind:        entity.NotificationWeeklyBest,
				PeriodKey:   weekKey,
				Threshold:   WeeklyBestThreshold,
				PeriodTotal: newWeekTotal,
			})
		}
	}
	if monthTotalOf(rec, monthKey) >= MonthlyBestThreshold {
		marker := markerMonthlyBest + monthKey
		if !rec.HasNotified(marker, MonthlyBestThreshold) {
			rec.MarkNotified(marker, MonthlyBestThreshold)
			out.Thresholds = append(out.Thresholds, ThresholdEvent{
				Kind:        entity.NotificationMonthlyBest,
				PeriodKey:   monthKey,
				Threshold:   MonthlyBestThreshold,
				PeriodTotal: monthTotalOf(rec, monthKey),
			})
		}
	}

	return out
}

func weekTotal(rec *entity.UserRecord, start, end string) int {
	sum := 0
	for date, day := range rec.Activity {
		if date >= start && date <= end {
			sum += day.Total
		}
	}
	return sum
}

func monthTotalOf(rec *entity.UserRecord, monthKey string) int {
	sum := 0
	prefix := monthKey + "-"
	for date, day := range rec.Activity {
		if len(date) >= len(prefix) && date[:len(prefix)] == prefix {
			sum += day.Total
		}
	}
	return sum
}
