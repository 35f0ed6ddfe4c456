package service

import (
	"context"
	"log"
	"time"

	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/dulgistudio/dulgi/internal/ledger"
	"github.com/dulgistudio/dulgi/internal/policy"
)

// Notifier delivers structural milestone events to the outside world. The
// accrual service calls it only after the ledger write has durably landed.
type Notifier interface {
	Deliver(ctx context.Context, notification *entity.Notification)
}

type AccrualService interface {
	// AddActivity applies one qualified event. A false Accepted outcome is a
	// policy rejection, not an error; errors mean the event must be treated
	// as un-processed.
	AddActivity(ctx context.Context, userID string, instant time.Time, channelID string, evidenceQualified bool) (Outcome, error)
}

type accrualService struct {
	store          ledger.Store
	policies       *policy.Table
	globalDailyCap int
	notifier       Notifier
}

func NewAccrualService(store ledger.Store, policies *policy.Table, globalDailyCap int, notifier Notifier) AccrualService {
	return &accrualService{
		store:          store,
		policies:       policies,
		globalDailyCap: globalDailyCap,
		notifier:       notifier,
	}
}

func (s *accrualService) AddActivity(ctx context.Context, userID string, instant time.Time, channelID string, evidenceQualified bool) (Outcome, error) {
	var out Outcome

	err := s.store.Update(ctx, userID, func(rec *entity.UserRecord) (bool, error) {
		out = Apply(rec, s.policies, s.globalDailyCap, instant, channelID, evidenceQualified)
		return out.Accepted, nil
	})
	if err != nil {
		// The write did not land: no milestone may be reported.
		return rejected(), err
	}

	if out.Accepted {
		s.deliver(ctx, userID, out)
	}
	return out, nil
}

// deliver fans accepted milestone results out to the notifier. Delivery is
// best-effort; the ledger already holds the notified markers.
func (s *accrualService) deliver(ctx context.Context, userID string, out Outcome) {
	if s.notifier == nil {
		return
	}
	for _, value := range out.Milestones {
		s.notifier.Deliver(ctx, &entity.Notification{
			UserID:      userID,
			Type:        entity.NotificationWeeklyMilestone,
			PeriodKey:   out.WeekKey,
			Value:       value,
			PeriodTotal: out.WeekTotal,
		})
	}
	for _, ev := range out.Thresholds {
		s.notifier.Deliver(ctx, &entity.Notification{
			UserID:      userID,
			Type:        ev.Kind,
			PeriodKey:   ev.PeriodKey,
			Value:       ev.Threshold,
			PeriodTotal: ev.PeriodTotal,
		})
	}
	if len(out.Milestones) > 0 {
		log.Printf("🎉 user %s reached %v points this week (total %d)", userID, out.Milestones, out.WeekTotal)
	}
}
