package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRecordAddKeepsTotalInSync(t *testing.T) {
	day := NewDailyRecord()
	day.Add("free-chat", 1)
	day.Add("free-chat", 1)
	day.Add("finished-drawing", 5)

	assert.Equal(t, 7, day.Total)
	assert.Equal(t, 2, day.ByChannel["free-chat"])
	assert.Equal(t, 5, day.ByChannel["finished-drawing"])
}

func TestCloneIsIndependent(t *testing.T) {
	rec := NewUserRecord()
	rec.Attendance = append(rec.Attendance, "2025-09-10")
	rec.Day("2025-09-10").Add("free-chat", 2)
	rec.MarkNotified("2025-W37", 50)

	clone := rec.Clone()
	clone.Attendance = append(clone.Attendance, "2025-09-11")
	clone.Day("2025-09-10").Add("free-chat", 100)
	clone.MarkNotified("2025-W37", 100)

	assert.Len(t, rec.Attendance, 1)
	assert.Equal(t, 2, rec.Activity["2025-09-10"].Total)
	assert.False(t, rec.HasNotified("2025-W37", 100))
}

func TestMarkNotifiedIsIdempotent(t *testing.T) {
	rec := NewUserRecord()

	rec.MarkNotified("2025-W37", 50)
	rec.MarkNotified("2025-W37", 50)
	rec.MarkNotified("2025-W37", 100)

	assert.Equal(t, []int{50, 100}, rec.Notified["2025-W37"])
	assert.True(t, rec.HasNotified("2025-W37", 50))
	assert.False(t, rec.HasNotified("2025-W38", 50))
}

func TestNormalizeFillsMissingFields(t *testing.T) {
	var rec UserRecord
	require.NoError(t, json.Unmarshal([]byte(`{"activity":{"2025-09-10":{"total":3}}}`), &rec))

	rec.Normalize()

	assert.NotNil(t, rec.Attendance)
	assert.NotNil(t, rec.Notified)
	assert.NotNil(t, rec.Activity["2025-09-10"].ByChannel)
}

func TestUserRecordWireFormat(t *testing.T) {
	rec := NewUserRecord()
	rec.Attendance = append(rec.Attendance, "2025-09-10")
	rec.Day("2025-09-10").Add("attendance", 4)
	rec.MarkNotified("weekly_best:2025-W37", 60)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded UserRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, rec, &decoded)
}
