package clientstate

import "context"

// ErrMiss signals an absent key in a typed way.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "clientstate: key not found" }

// Store is the injectable key-value persistence the manager runs on. Two
// tiers are wired in: a durable one that survives restarts and an
// ephemeral one scoped to the current process, with the durable tier
// authoritative and the ephemeral tier a lazily populated fast path.
type Store interface {
	// Get fetches the value for key, returning ErrMiss when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key.
	Set(ctx context.Context, key string, value string) error

	// Del removes the key. Removing an absent key is not an error.
	Del(ctx context.Context, key string) error
}

// Key layout: three logical records per meeting/room.
const (
	credentialsKeyPrefix = "credentials:"
	sessionKeyPrefix     = "session:"
	roomIndexKeyPrefix   = "room-index:"
)

func credentialsKey(meetingID string) string { return credentialsKeyPrefix + meetingID }
func sessionKey(meetingID string) string     { return sessionKeyPrefix + meetingID }
func roomIndexKey(roomName string) string    { return roomIndexKeyPrefix + roomName }
