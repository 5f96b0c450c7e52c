package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MeetingStatus represents where a meeting is in its lifecycle.
// Transitions only move forward: scheduled -> active -> ended.
type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusActive    MeetingStatus = "active"
	MeetingStatusEnded     MeetingStatus = "ended"
)

// rank orders statuses for forward-only transition checks.
func (s MeetingStatus) rank() int {
	switch s {
	case MeetingStatusScheduled:
		return 0
	case MeetingStatusActive:
		return 1
	case MeetingStatusEnded:
		return 2
	}
	return -1
}

// Valid reports whether the status is one of the known lifecycle states.
func (s MeetingStatus) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Ended is terminal and a meeting never moves backward.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

// Meeting is a scheduled or instant real-time session backed by a media room.
// Status is mutated only by the lifecycle reconciler or an administrative
// status update; the room name is globally unique.
type Meeting struct {
	ID         uuid.UUID     `json:"id"`
	Title      string        `json:"title"`
	Status     MeetingStatus `json:"status"`
	StartTime  time.Time     `json:"startTime"`
	EndTime    time.Time     `json:"endTime"`
	RoomName   string        `json:"roomName"`
	Public     bool          `json:"public"`
	AccessCode string        `json:"-"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Validate checks the invariants enforced at creation time.
func (m *Meeting) Validate() error {
	if m.Title == "" {
		return fmt.Errorf("meeting title is required")
	}
	if m.RoomName == "" {
		return fmt.Errorf("meeting room name is required")
	}
	if !m.Status.Valid() {
		return fmt.Errorf("invalid meeting status %q", m.Status)
	}
	if m.Status == MeetingStatusEnded {
		return fmt.Errorf("meeting cannot be created in the ended state")
	}
	if !m.EndTime.After(m.StartTime) {
		return fmt.Errorf("meeting end time must be after start time")
	}
	return nil
}

// Protected reports whether joining requires an access code.
func (m *Meeting) Protected() bool {
	return m.AccessCode != ""
}
