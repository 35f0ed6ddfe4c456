package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()

	p, ok := tbl.Lookup("daily-drawing-report")
	require.True(t, ok)
	assert.Equal(t, 6, p.Points)
	assert.Equal(t, 6, p.DailyMax)
	assert.Equal(t, EvidenceImage, p.Evidence)

	_, ok = tbl.Lookup("no-such-channel")
	assert.False(t, ok)

	att, ok := tbl.Lookup(tbl.AttendanceChannelID())
	require.True(t, ok)
	// Single-counting guarantee: one check-in exhausts the daily cap.
	assert.Equal(t, att.Points, att.DailyMax)
}

func TestNewRejectsDuplicatesAndBadValues(t *testing.T) {
	_, err := New([]ChannelPolicy{
		{ChannelID: "a", Name: "A", Points: 1, DailyMax: 1, Evidence: EvidenceNone},
		{ChannelID: "a", Name: "A again", Points: 2, DailyMax: 2, Evidence: EvidenceNone},
	}, "a")
	assert.Error(t, err)

	_, err = New([]ChannelPolicy{
		{ChannelID: "a", Name: "A", Points: 0, DailyMax: 1, Evidence: EvidenceNone},
	}, "a")
	assert.Error(t, err)

	_, err = New([]ChannelPolicy{
		{ChannelID: "a", Name: "A", Points: 1, DailyMax: 1, Evidence: "sometimes"},
	}, "a")
	assert.Error(t, err)

	_, err = New([]ChannelPolicy{
		{ChannelID: "a", Name: "A", Points: 1, DailyMax: 1, Evidence: EvidenceNone},
	}, "missing")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	body := `{
		"attendance_channel": "checkin",
		"channels": [
			{"channel_id": "checkin", "name": "check-in", "points": 4, "daily_max": 4, "evidence": "none"},
			{"channel_id": "gallery", "name": "gallery", "points": 5, "daily_max": 5, "evidence": "link_or_attachment"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	tbl, err := LoadFile(path)
	require.NoError(t, err)

	p, ok := tbl.Lookup("gallery")
	require.True(t, ok)
	assert.Equal(t, EvidenceLinkOrAttachment, p.Evidence)
	assert.Equal(t, "checkin", tbl.AttendanceChannelID())
	assert.Equal(t, "gallery", tbl.ChannelName("gallery"))
	assert.Equal(t, "unknown", tbl.ChannelName("unknown"))

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
