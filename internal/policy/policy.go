package policy

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// EvidenceRule is the predicate category an event must satisfy before it can
// earn points. The gateway judges the rule; the engine only consumes the
// resulting boolean.
type EvidenceRule string

const (
	EvidenceNone             EvidenceRule = "none"
	EvidenceImage            EvidenceRule = "image"
	EvidenceLinkOrAttachment EvidenceRule = "link_or_attachment"
)

// ChannelPolicy describes how one event source converts into points.
// Points > DailyMax means the source can never accrue more than one event
// per day; that is tolerated, not rejected.
type ChannelPolicy struct {
	ChannelID string       `json:"channel_id" validate:"required"`
	Name      string       `json:"name" validate:"required"`
	Points    int          `json:"points" validate:"gt=0"`
	DailyMax  int          `json:"daily_max" validate:"gt=0"`
	Evidence  EvidenceRule `json:"evidence" validate:"oneof=none image link_or_attachment"`
}

// Table is the immutable channel policy table, validated once at startup.
type Table struct {
	byChannel           map[string]ChannelPolicy
	attendanceChannelID string
}

type tableFile struct {
	Channels          []ChannelPolicy `json:"channels" validate:"required,min=1,dive"`
	AttendanceChannel string          `json:"attendance_channel" validate:"required"`
}

// Default mirrors the community's production point scheme.
func Default() *Table {
	t, err := New([]ChannelPolicy{
		{ChannelID: "daily-drawing-report", Name: "일일-그림보고", Points: 6, DailyMax: 6, Evidence: EvidenceImage},
		{ChannelID: "free-chat", Name: "자유채팅판", Points: 1, DailyMax: 4, Evidence: EvidenceNone},
		{ChannelID: "info-contest", Name: "정보-공모전", Points: 1, DailyMax: 1, Evidence: EvidenceNone},
		{ChannelID: "info-drawing-tips", Name: "정보-그림꿀팁", Points: 1, DailyMax: 1, Evidence: EvidenceNone},
		{ChannelID: "counseling", Name: "고민상담", Points: 1, DailyMax: 1, Evidence: EvidenceNone},
		{ChannelID: "attendance", Name: "출퇴근기록", Points: 4, DailyMax: 4, Evidence: EvidenceNone},
		{ChannelID: "finished-drawing", Name: "다-그렸어요", Points: 5, DailyMax: 5, Evidence: EvidenceLinkOrAttachment},
	}, "attendance")
	if err != nil {
		// The built-in table is a constant; a validation failure here is a bug.
		panic(err)
	}
	return t
}

// New builds and validates a policy table.
func New(channels []ChannelPolicy, attendanceChannelID string) (*Table, error) {
	v := validator.New()
	byChannel := make(map[string]ChannelPolicy, len(channels))
	for _, ch := range channels {
		if err := v.Struct(ch); err != nil {
			return nil, fmt.Errorf("invalid policy for channel %q: %w", ch.ChannelID, err)
		}
		if _, dup := byChannel[ch.ChannelID]; dup {
			return nil, fmt.Errorf("duplicate channel policy %q", ch.ChannelID)
		}
		byChannel[ch.ChannelID] = ch
	}
	if _, ok := byChannel[attendanceChannelID]; !ok {
		return nil, fmt.Errorf("attendance channel %q has no policy entry", attendanceChannelID)
	}
	return &Table{byChannel: byChannel, attendanceChannelID: attendanceChannelID}, nil
}

// LoadFile reads a policy table from a JSON file.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var f tableFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}

	return New(f.Channels, f.AttendanceChannel)
}

// Lookup returns the policy for a channel. ok is false for unknown sources,
// which the engine treats as a quiet no-op, not an error.
func (t *Table) Lookup(channelID string) (ChannelPolicy, bool) {
	p, ok := t.byChannel[channelID]
	return p, ok
}

// AttendanceChannelID is the source a check-in routes its accrual through.
func (t *Table) AttendanceChannelID() string {
	return t.attendanceChannelID
}

// ChannelName resolves a channel id to its display name, falling back to the
// raw id for sources that have since been removed from the table.
func (t *Table) ChannelName(channelID string) string {
	if p, ok := t.byChannel[channelID]; ok {
		return p.Name
	}
	return channelID
}
