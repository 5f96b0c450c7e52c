package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/roomname"
	"github.com/huddlehq/huddle/internal/store"
)

type createMeetingRequest struct {
	Title      string    `json:"title" binding:"required"`
	StartTime  time.Time `json:"startTime" binding:"required"`
	EndTime    time.Time `json:"endTime" binding:"required"`
	StartNow   bool      `json:"startNow"`
	Public     bool      `json:"public"`
	AccessCode string    `json:"accessCode"`
}

// createMeeting creates a meeting with a generated, store-unique room name.
// StartNow creates it directly in the active state.
func (s *Server) createMeeting(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	name, err := roomname.Generate(ctx, req.Title, s.meetings.RoomNameExists)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate room name")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to generate room name"})
		return
	}

	status := models.MeetingStatusScheduled
	if req.StartNow {
		status = models.MeetingStatusActive
	}

	now := time.Now()
	meeting := &models.Meeting{
		ID:         uuid.Must(uuid.NewV7()),
		Title:      req.Title,
		Status:     status,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		RoomName:   name,
		Public:     req.Public,
		AccessCode: req.AccessCode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := meeting.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_meeting", "error": err.Error()})
		return
	}

	if err := s.meetings.Create(ctx, meeting); err != nil {
		if errors.Is(err, store.ErrRoomNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"code": "room_taken", "error": "room name already in use"})
			return
		}
		log.Error().Err(err).Msg("Failed to create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to create meeting"})
		return
	}

	c.JSON(http.StatusCreated, meeting)
}

func (s *Server) listMeetings(c *gin.Context) {
	meetings, err := s.meetings.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list meetings")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to list meetings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

func (s *Server) getMeeting(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": "invalid meeting id"})
		return
	}

	meeting, err := s.meetings.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrMeetingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "meeting not found"})
			return
		}
		log.Error().Err(err).Str("meeting_id", id.String()).Msg("Failed to get meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to get meeting"})
		return
	}

	c.JSON(http.StatusOK, meeting)
}

type updateStatusRequest struct {
	Status models.MeetingStatus `json:"status" binding:"required"`
}

// updateMeetingStatus is the administrative path for directly starting or
// ending a meeting. Transitions are forward-only.
func (s *Server) updateMeetingStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": "invalid meeting id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": err.Error()})
		return
	}

	err = s.meetings.SetStatus(c.Request.Context(), id, req.Status)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrMeetingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "meeting not found"})
		return
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"code": "invalid_transition", "error": "status cannot move backward"})
		return
	default:
		log.Error().Err(err).Str("meeting_id", id.String()).Msg("Failed to update meeting status")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to update status"})
		return
	}

	meeting, err := s.meetings.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to load meeting"})
		return
	}

	c.JSON(http.StatusOK, meeting)
}
