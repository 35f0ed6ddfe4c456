package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DailyRecord is one logical day of activity for one user. The invariant
// Total == sum(ByChannel) holds after every committed update; both fields
// change together inside a single atomic write.
type DailyRecord struct {
	Total     int            `json:"total"`
	ByChannel map[string]int `json:"by_channel"`
}

// NewDailyRecord returns an empty record for a day with no activity yet.
func NewDailyRecord() *DailyRecord {
	return &DailyRecord{Total: 0, ByChannel: map[string]int{}}
}

// Add credits points to a channel and the day total in one step.
func (r *DailyRecord) Add(channelID string, points int) {
	if r.ByChannel == nil {
		r.ByChannel = map[string]int{}
	}
	r.ByChannel[channelID] += points
	r.Total += points
}

// UserRecord is the full durable state of one user and the per-user unit of
// snapshot/restore. Field names form the snapshot wire format and must stay
// backward compatible; absent fields restore to their zero defaults.
type UserRecord struct {
	Attendance []string                `json:"attendance"`
	Activity   map[string]*DailyRecord `json:"activity"`
	Notified   map[string][]int        `json:"notified"`
}

// NewUserRecord returns the lazily-created state of a first-time user.
func NewUserRecord() *UserRecord {
	return &UserRecord{
		Attendance: []string{},
		Activity:   map[string]*DailyRecord{},
		Notified:   map[string][]int{},
	}
}

// Normalize fills nil maps/slices after decoding older snapshots that lack
// newer fields.
func (u *UserRecord) Normalize() {
	if u.Attendance == nil {
		u.Attendance = []string{}
	}
	if u.Activity == nil {
		u.Activity = map[string]*DailyRecord{}
	}
	if u.Notified == nil {
		u.Notified = map[string][]int{}
	}
	for _, rec := range u.Activity {
		if rec != nil && rec.ByChannel == nil {
			rec.ByChannel = map[string]int{}
		}
	}
}

// Clone deep-copies the record so a failed update can be discarded without
// touching the stored state.
func (u *UserRecord) Clone() *UserRecord {
	c := NewUserRecord()
	c.Attendance = append(c.Attendance, u.Attendance...)
	for date, rec := range u.Activity {
		cp := NewDailyRecord()
		cp.Total = rec.Total
		for ch, pts := range rec.ByChannel {
			cp.ByChannel[ch] = pts
		}
		c.Activity[date] = cp
	}
	for key, values := range u.Notified {
		c.Notified[key] = append([]int{}, values...)
	}
	return c
}

// Day returns the record for a logical date, creating it lazily.
func (u *UserRecord) Day(date string) *DailyRecord {
	rec, ok := u.Activity[date]
	if !ok {
		rec = NewDailyRecord()
		u.Activity[date] = rec
	}
	return rec
}

// HasAttendance reports whether the user already checked in on a logical date.
func (u *UserRecord) HasAttendance(date string) bool {
	for _, d := range u.Attendance {
		if d == date {
			return true
		}
	}
	return false
}

// HasNotified reports whether a milestone value was already delivered for a
// period key.
func (u *UserRecord) HasNotified(periodKey string, value int) bool {
	for _, v := range u.Notified[periodKey] {
		if v == value {
			return true
		}
	}
	return false
}

// MarkNotified records a delivered milestone for a period key.
func (u *UserRecord) MarkNotified(periodKey string, value int) {
	if u.HasNotified(periodKey, value) {
		return
	}
	u.Notified[periodKey] = append(u.Notified[periodKey], value)
}

// ChannelPoints stores a DailyRecord's per-channel map as a JSONB column.
type ChannelPoints map[string]int

func (c ChannelPoints) Value() (driver.Value, error) {
	if c == nil {
		c = ChannelPoints{}
	}
	return json.Marshal(c)
}

func (c *ChannelPoints) Scan(value interface{}) error {
	if value == nil {
		*c = ChannelPoints{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ChannelPoints", value)
	}
	return json.Unmarshal(raw, c)
}

// MilestoneList stores a notified-milestones array as a JSONB column.
type MilestoneList []int

func (m MilestoneList) Value() (driver.Value, error) {
	if m == nil {
		m = MilestoneList{}
	}
	return json.Marshal(m)
}

func (m *MilestoneList) Scan(value interface{}) error {
	if value == nil {
		*m = MilestoneList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for MilestoneList", value)
	}
	return json.Unmarshal(raw, m)
}

// LedgerUser is the users table row. Users are created lazily on first
// interaction and never deleted.
type LedgerUser struct {
	UID       string    `gorm:"primaryKey;size:64" json:"uid"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (LedgerUser) TableName() string { return "ledger_users" }

// AttendanceDay is one check-in on one logical date.
type AttendanceDay struct {
	UID  string `gorm:"primaryKey;size:64" json:"uid"`
	Date string `gorm:"primaryKey;size:10" json:"date"`
}

func (AttendanceDay) TableName() string { return "attendance_days" }

// ActivityDay is the persisted form of one DailyRecord.
type ActivityDay struct {
	UID       string        `gorm:"primaryKey;size:64" json:"uid"`
	Date      string        `gorm:"primaryKey;size:10;index:idx_activity_date" json:"date"`
	Total     int           `gorm:"not null;default:0" json:"total"`
	ByChannel ChannelPoints `gorm:"type:jsonb;not null;default:'{}'" json:"by_channel"`
}

func (ActivityDay) TableName() string { return "activity_days" }

// NotifiedPeriod holds the delivered milestone values for one period key.
type NotifiedPeriod struct {
	UID        string        `gorm:"primaryKey;size:64" json:"uid"`
	PeriodKey  string        `gorm:"primaryKey;size:32" json:"period_key"`
	Milestones MilestoneList `gorm:"type:jsonb;not null;default:'[]'" json:"milestones"`
}

func (NotifiedPeriod) TableName() string { return "notified_periods" }
