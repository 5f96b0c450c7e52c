// Package media is the boundary to the external real-time media backend.
// The backend owns rooms and validates access tokens; this package only
// covers the narrow admin surface the service consumes.
package media

import (
	"context"
	"errors"
)

// ErrRoomNotFound is returned when the backend reports the room does not
// exist. Callers deleting rooms treat this as success.
var ErrRoomNotFound = errors.New("media room not found")

// RoomService is the admin operation set consumed by the lifecycle
// reconciler. DeleteRoom must be safe to call on a room that no longer
// exists.
type RoomService interface {
	DeleteRoom(ctx context.Context, roomName string) error
}

// NopService is a RoomService that does nothing. Used in development when
// no media backend is configured.
type NopService struct{}

func (NopService) DeleteRoom(ctx context.Context, roomName string) error {
	return nil
}
