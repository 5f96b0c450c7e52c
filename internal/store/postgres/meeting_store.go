package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/store"
)

const meetingColumns = `
	meeting_id, title, status, start_time, end_time,
	room_name, public, access_code, created_at, updated_at
`

// MeetingStore implements store.MeetingStore using PostgreSQL.
//
// The lifecycle batch transitions (ActivateDue, EndDue) are single UPDATE
// statements whose WHERE clause re-checks the current status, so concurrent
// reconciler cycles racing over the same rows are resolved at commit time:
// one write wins, the other matches zero rows.
type MeetingStore struct {
	pool *pgxpool.Pool
}

// NewMeetingStore creates a new PostgreSQL-backed meeting store, running
// pending migrations when cfg.AutoMigrate is set.
func NewMeetingStore(ctx context.Context, cfg *PoolConfig) (*MeetingStore, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Msg("Connected to PostgreSQL")

	if cfg.AutoMigrate {
		if err := runMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Database migrations completed")
	}

	return &MeetingStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *MeetingStore) Close() {
	s.pool.Close()
}

// Create inserts a new meeting.
func (s *MeetingStore) Create(ctx context.Context, meeting *models.Meeting) error {
	query := `
		INSERT INTO meetings (
			meeting_id, title, status, start_time, end_time,
			room_name, public, access_code, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		meeting.ID,
		meeting.Title,
		string(meeting.Status),
		meeting.StartTime,
		meeting.EndTime,
		meeting.RoomName,
		meeting.Public,
		meeting.AccessCode,
		meeting.CreatedAt,
		meeting.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("meeting_id", meeting.ID.String()).
		Str("room_name", meeting.RoomName).
		Str("status", string(meeting.Status)).
		Msg("Created meeting")

	return nil
}

// Get retrieves a meeting by ID.
func (s *MeetingStore) Get(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE meeting_id = $1`

	meeting, err := scanMeeting(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMeetingNotFound
		}
		return nil, mapPostgresError(err)
	}

	return meeting, nil
}

// GetByRoomName retrieves a meeting by its room name.
func (s *MeetingStore) GetByRoomName(ctx context.Context, roomName string) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE room_name = $1`

	meeting, err := scanMeeting(s.pool.QueryRow(ctx, query, roomName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMeetingNotFound
		}
		return nil, mapPostgresError(err)
	}

	return meeting, nil
}

// List returns all meetings ordered by start time.
func (s *MeetingStore) List(ctx context.Context) ([]*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings ORDER BY start_time`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// SetStatus applies an administrative status change. The allowed source
// statuses are part of the WHERE clause, so a backward transition matches
// zero rows and is rejected without a read-modify-write race.
func (s *MeetingStore) SetStatus(ctx context.Context, id uuid.UUID, status models.MeetingStatus) error {
	if !status.Valid() || status == models.MeetingStatusScheduled {
		return store.ErrInvalidTransition
	}

	var from []string
	switch status {
	case models.MeetingStatusActive:
		from = []string{string(models.MeetingStatusScheduled)}
	case models.MeetingStatusEnded:
		from = []string{string(models.MeetingStatusScheduled), string(models.MeetingStatusActive)}
	}

	query := `
		UPDATE meetings
		SET status = $2, updated_at = now()
		WHERE meeting_id = $1 AND status = ANY($3)
	`

	result, err := s.pool.Exec(ctx, query, id, string(status), from)
	if err != nil {
		return mapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing meeting from a disallowed transition.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return store.ErrInvalidTransition
	}

	log.Debug().
		Str("meeting_id", id.String()).
		Str("status", string(status)).
		Msg("Updated meeting status")

	return nil
}

// ActivateDue transitions every scheduled meeting whose start time has
// passed to active, returning the rows the write actually moved.
func (s *MeetingStore) ActivateDue(ctx context.Context, now time.Time) ([]*models.Meeting, error) {
	query := `
		UPDATE meetings
		SET status = 'active', updated_at = $1
		WHERE status = 'scheduled' AND start_time <= $1
		RETURNING ` + meetingColumns

	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// EndDue transitions every active meeting whose end time has passed to
// ended, returning the rows the write actually moved.
func (s *MeetingStore) EndDue(ctx context.Context, now time.Time) ([]*models.Meeting, error) {
	query := `
		UPDATE meetings
		SET status = 'ended', updated_at = $1
		WHERE status = 'active' AND end_time <= $1
		RETURNING ` + meetingColumns

	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	return collectMeetings(rows)
}

// RoomNameExists reports whether a meeting already owns the room name.
func (s *MeetingStore) RoomNameExists(ctx context.Context, roomName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM meetings WHERE room_name = $1)`, roomName,
	).Scan(&exists)
	if err != nil {
		return false, mapPostgresError(err)
	}

	return exists, nil
}

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var meeting models.Meeting
	var status string

	err := row.Scan(
		&meeting.ID,
		&meeting.Title,
		&status,
		&meeting.StartTime,
		&meeting.EndTime,
		&meeting.RoomName,
		&meeting.Public,
		&meeting.AccessCode,
		&meeting.CreatedAt,
		&meeting.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	meeting.Status = models.MeetingStatus(status)
	return &meeting, nil
}

func collectMeetings(rows pgx.Rows) ([]*models.Meeting, error) {
	var meetings []*models.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError(err)
	}

	return meetings, nil
}
