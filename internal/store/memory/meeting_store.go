package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/store"
)

// MeetingStore implements store.MeetingStore using in-memory storage.
// Useful for tests and local development - data is lost on restart.
type MeetingStore struct {
	mu sync.RWMutex

	meetings map[uuid.UUID]*models.Meeting // meeting_id -> Meeting
	byRoom   map[string]uuid.UUID          // room_name -> meeting_id
}

// NewMeetingStore creates a new in-memory meeting store.
func NewMeetingStore() *MeetingStore {
	return &MeetingStore{
		meetings: make(map[uuid.UUID]*models.Meeting),
		byRoom:   make(map[string]uuid.UUID),
	}
}

// Create adds a new meeting.
func (s *MeetingStore) Create(ctx context.Context, meeting *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byRoom[meeting.RoomName]; taken {
		return store.ErrRoomNameTaken
	}

	// Clone to avoid external modifications
	clone := *meeting
	s.meetings[meeting.ID] = &clone
	s.byRoom[meeting.RoomName] = meeting.ID

	return nil
}

// Get retrieves a meeting by ID.
func (s *MeetingStore) Get(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meeting, exists := s.meetings[id]
	if !exists {
		return nil, store.ErrMeetingNotFound
	}

	clone := *meeting
	return &clone, nil
}

// GetByRoomName retrieves a meeting by its room name.
func (s *MeetingStore) GetByRoomName(ctx context.Context, roomName string) (*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byRoom[roomName]
	if !exists {
		return nil, store.ErrMeetingNotFound
	}

	clone := *s.meetings[id]
	return &clone, nil
}

// List returns all meetings ordered by start time.
func (s *MeetingStore) List(ctx context.Context) ([]*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meetings := make([]*models.Meeting, 0, len(s.meetings))
	for _, meeting := range s.meetings {
		clone := *meeting
		meetings = append(meetings, &clone)
	}

	sort.Slice(meetings, func(i, j int) bool {
		return meetings[i].StartTime.Before(meetings[j].StartTime)
	})

	return meetings, nil
}

// SetStatus applies an administrative status change, forward-only.
func (s *MeetingStore) SetStatus(ctx context.Context, id uuid.UUID, status models.MeetingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meeting, exists := s.meetings[id]
	if !exists {
		return store.ErrMeetingNotFound
	}

	if !meeting.Status.CanTransitionTo(status) {
		return store.ErrInvalidTransition
	}

	meeting.Status = status
	meeting.UpdatedAt = time.Now()

	return nil
}

// ActivateDue transitions scheduled meetings whose start time has passed.
// The status check and the write happen under one lock acquisition, giving
// the same guarded-batch semantics as the SQL predicate in the postgres store.
func (s *MeetingStore) ActivateDue(ctx context.Context, now time.Time) ([]*models.Meeting, error) {
	return s.transitionDue(now, models.MeetingStatusScheduled, models.MeetingStatusActive,
		func(m *models.Meeting) bool { return !m.StartTime.After(now) })
}

// EndDue transitions active meetings whose end time has passed.
func (s *MeetingStore) EndDue(ctx context.Context, now time.Time) ([]*models.Meeting, error) {
	return s.transitionDue(now, models.MeetingStatusActive, models.MeetingStatusEnded,
		func(m *models.Meeting) bool { return !m.EndTime.After(now) })
}

func (s *MeetingStore) transitionDue(now time.Time, from, to models.MeetingStatus, due func(*models.Meeting) bool) ([]*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved []*models.Meeting
	for _, meeting := range s.meetings {
		if meeting.Status != from || !due(meeting) {
			continue
		}
		meeting.Status = to
		meeting.UpdatedAt = now
		clone := *meeting
		moved = append(moved, &clone)
	}

	sort.Slice(moved, func(i, j int) bool {
		return moved[i].StartTime.Before(moved[j].StartTime)
	})

	return moved, nil
}

// RoomNameExists reports whether the room name is already taken.
func (s *MeetingStore) RoomNameExists(ctx context.Context, roomName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.byRoom[roomName]
	return exists, nil
}
