// Package reconciler advances meetings through their lifecycle relative to
// a given timestamp and retires the backing media room when a meeting ends.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/media"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/store"
	"github.com/huddlehq/huddle/internal/telemetry"
)

// CycleResult reports what one reconciliation cycle changed. A meeting
// whose start and end times have both passed appears in both lists and
// finishes the cycle ended.
type CycleResult struct {
	Timestamp time.Time         `json:"timestamp"`
	Activated []*models.Meeting `json:"activated"`
	Ended     []*models.Meeting `json:"ended"`
}

// Reconciler runs idempotent lifecycle cycles against the meeting store.
//
// It is stateless between invocations and holds no lock; correctness under
// concurrent cycles comes entirely from the store's status-guarded batch
// writes plus idempotent room deletion. Two overlapping cycles may select
// the same meeting, but only one write wins the transition.
type Reconciler struct {
	meetings store.MeetingStore
	rooms    media.RoomService
}

// New creates a reconciler over the given store and media backend.
func New(meetings store.MeetingStore, rooms media.RoomService) *Reconciler {
	return &Reconciler{meetings: meetings, rooms: rooms}
}

// RunCycle advances meeting statuses relative to now.
//
// Phase A activates every scheduled meeting whose start time has passed.
// Phase B then re-reads status and ends every active meeting whose end time
// has passed, so a meeting created late (or a stale previous invocation)
// is activated and ended within the same cycle rather than being left
// active for another interval.
//
// For every meeting newly ended, the backing media room is deleted. A
// "room not found" response is swallowed; any other deletion failure is
// logged and does not abort processing of the remaining meetings.
func (r *Reconciler) RunCycle(ctx context.Context, now time.Time) (*CycleResult, error) {
	m := telemetry.GetMetrics()
	m.CyclesTotal.Add(ctx, 1)

	activated, err := r.meetings.ActivateDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("activation phase: %w", err)
	}
	if activated == nil {
		activated = []*models.Meeting{}
	}

	for _, meeting := range activated {
		log.Info().
			Str("meeting_id", meeting.ID.String()).
			Str("room_name", meeting.RoomName).
			Time("start_time", meeting.StartTime).
			Msg("Meeting activated")
	}
	m.MeetingsActivatedTotal.Add(ctx, int64(len(activated)))

	ended, err := r.meetings.EndDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("expiry phase: %w", err)
	}
	if ended == nil {
		ended = []*models.Meeting{}
	}

	for _, meeting := range ended {
		log.Info().
			Str("meeting_id", meeting.ID.String()).
			Str("room_name", meeting.RoomName).
			Time("end_time", meeting.EndTime).
			Msg("Meeting ended")

		r.deleteRoom(ctx, meeting)
	}
	m.MeetingsEndedTotal.Add(ctx, int64(len(ended)))

	return &CycleResult{
		Timestamp: now,
		Activated: activated,
		Ended:     ended,
	}, nil
}

// deleteRoom retires a single meeting's media room. Failures are isolated
// per meeting: the meeting stays ended either way, so a failed deletion is
// logged for manual remediation rather than propagated.
func (r *Reconciler) deleteRoom(ctx context.Context, meeting *models.Meeting) {
	err := r.rooms.DeleteRoom(ctx, meeting.RoomName)
	if err == nil {
		return
	}

	if errors.Is(err, media.ErrRoomNotFound) {
		log.Debug().
			Str("room_name", meeting.RoomName).
			Msg("Media room already gone")
		return
	}

	telemetry.GetMetrics().RoomDeleteFailuresTotal.Add(ctx, 1)
	log.Error().Err(err).
		Str("meeting_id", meeting.ID.String()).
		Str("room_name", meeting.RoomName).
		Msg("Failed to delete media room")
}
