package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to MeetingStatus
		want     bool
	}{
		{MeetingStatusScheduled, MeetingStatusActive, true},
		{MeetingStatusScheduled, MeetingStatusEnded, true},
		{MeetingStatusActive, MeetingStatusEnded, true},
		{MeetingStatusActive, MeetingStatusScheduled, false},
		{MeetingStatusEnded, MeetingStatusActive, false},
		{MeetingStatusEnded, MeetingStatusScheduled, false},
		{MeetingStatusScheduled, MeetingStatusScheduled, false},
		{MeetingStatusActive, MeetingStatusActive, false},
		{MeetingStatusEnded, MeetingStatusEnded, false},
		{MeetingStatus("bogus"), MeetingStatusActive, false},
		{MeetingStatusScheduled, MeetingStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMeetingStatusValid(t *testing.T) {
	assert.True(t, MeetingStatusScheduled.Valid())
	assert.True(t, MeetingStatusActive.Valid())
	assert.True(t, MeetingStatusEnded.Valid())
	assert.False(t, MeetingStatus("").Valid())
	assert.False(t, MeetingStatus("cancelled").Valid())
}

func validMeeting() *Meeting {
	now := time.Now()
	return &Meeting{
		ID:        uuid.Must(uuid.NewV7()),
		Title:     "Standup",
		Status:    MeetingStatusScheduled,
		StartTime: now,
		EndTime:   now.Add(time.Hour),
		RoomName:  "standup-x7k2",
	}
}

func TestMeetingValidate(t *testing.T) {
	require.NoError(t, validMeeting().Validate())

	t.Run("missing title", func(t *testing.T) {
		m := validMeeting()
		m.Title = ""
		assert.Error(t, m.Validate())
	})

	t.Run("missing room name", func(t *testing.T) {
		m := validMeeting()
		m.RoomName = ""
		assert.Error(t, m.Validate())
	})

	t.Run("unknown status", func(t *testing.T) {
		m := validMeeting()
		m.Status = "cancelled"
		assert.Error(t, m.Validate())
	})

	t.Run("created ended", func(t *testing.T) {
		m := validMeeting()
		m.Status = MeetingStatusEnded
		assert.Error(t, m.Validate())
	})

	t.Run("end before start", func(t *testing.T) {
		m := validMeeting()
		m.EndTime = m.StartTime.Add(-time.Minute)
		assert.Error(t, m.Validate())
	})

	t.Run("zero-length window", func(t *testing.T) {
		m := validMeeting()
		m.EndTime = m.StartTime
		assert.Error(t, m.Validate())
	})
}

func TestMeetingProtected(t *testing.T) {
	m := validMeeting()
	assert.False(t, m.Protected())

	m.AccessCode = "s3cret"
	assert.True(t, m.Protected())
}

func TestMeetingAccessCodeNeverSerialized(t *testing.T) {
	m := validMeeting()
	m.AccessCode = "s3cret"

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
}
