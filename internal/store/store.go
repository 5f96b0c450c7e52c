package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huddlehq/huddle/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrMeetingNotFound   = errors.New("meeting not found")
	ErrRoomNameTaken     = errors.New("room name already in use")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MeetingStore defines the interface for meeting storage operations.
//
// ActivateDue and EndDue are the reconciler's batch transitions. Both are
// status-guarded writes: the status check is part of the write predicate, so
// a meeting already moved by a concurrent cycle is silently excluded rather
// than double-processed. Each returns only the meetings it actually moved.
type MeetingStore interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	Get(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	GetByRoomName(ctx context.Context, roomName string) (*models.Meeting, error)
	List(ctx context.Context) ([]*models.Meeting, error)

	// SetStatus applies an administrative status change. Transitions are
	// forward-only; ended is terminal. Returns ErrInvalidTransition otherwise.
	SetStatus(ctx context.Context, id uuid.UUID, status models.MeetingStatus) error

	// ActivateDue transitions every scheduled meeting with startTime <= now
	// to active in one batch write.
	ActivateDue(ctx context.Context, now time.Time) ([]*models.Meeting, error)

	// EndDue transitions every active meeting with endTime <= now to ended
	// in one batch write.
	EndDue(ctx context.Context, now time.Time) ([]*models.Meeting, error)

	// RoomNameExists reports whether a meeting already owns the room name.
	// Used as the uniqueness predicate for room name generation.
	RoomNameExists(ctx context.Context, roomName string) (bool, error)
}
