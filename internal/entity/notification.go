package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationWeeklyMilestone = "weekly_milestone"
	NotificationWeeklyBest      = "weekly_best"
	NotificationMonthlyBest     = "monthly_best"
)

// Notification is a structural milestone event addressed to one user. Message
// wording is a presentation concern owned by the delivering collaborator.
type Notification struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string    `gorm:"size:64;not null;index" json:"user_id"`
	Type        string    `gorm:"size:32;not null" json:"type"`
	PeriodKey   string    `gorm:"size:32;not null" json:"period_key"`
	Value       int       `gorm:"not null" json:"value"`
	PeriodTotal int       `gorm:"not null" json:"period_total"`
	IsRead      bool      `gorm:"default:false" json:"is_read"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
