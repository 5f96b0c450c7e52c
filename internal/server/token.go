package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/accesstoken"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/store"
	"github.com/huddlehq/huddle/internal/telemetry"
)

type tokenRequest struct {
	Identity    string `json:"identity" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
	RoomName    string `json:"roomName" binding:"required"`
	AccessCode  string `json:"accessCode"`
	TTLSeconds  int    `json:"ttlSeconds"`
	Metadata    string `json:"metadata"`
}

type tokenMeeting struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type tokenResponse struct {
	Token    string       `json:"token"`
	MediaURL string       `json:"mediaUrl"`
	RoomName string       `json:"roomName"`
	Meeting  tokenMeeting `json:"meeting"`
}

// issueToken mints an access token for a participant joining a room.
// Validation and authorization failures are typed errors for the client to
// surface; there is nothing here worth retrying automatically.
func (s *Server) issueToken(c *gin.Context) {
	m := telemetry.GetMetrics()

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		m.TokenIssueFailuresTotal.Add(c.Request.Context(), 1)
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	meeting, err := s.meetings.GetByRoomName(ctx, req.RoomName)
	if err != nil {
		if errors.Is(err, store.ErrMeetingNotFound) {
			m.TokenIssueFailuresTotal.Add(ctx, 1)
			c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "no meeting for this room"})
			return
		}
		log.Error().Err(err).Str("room_name", req.RoomName).Msg("Failed to look up meeting for token")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to look up meeting"})
		return
	}

	if meeting.Status == models.MeetingStatusEnded {
		m.TokenIssueFailuresTotal.Add(ctx, 1)
		c.JSON(http.StatusGone, gin.H{"code": "meeting_ended", "error": "this meeting has ended"})
		return
	}

	if meeting.Protected() {
		if subtle.ConstantTimeCompare([]byte(meeting.AccessCode), []byte(req.AccessCode)) != 1 {
			m.TokenIssueFailuresTotal.Add(ctx, 1)
			c.JSON(http.StatusForbidden, gin.H{"code": "access_denied", "error": "invalid access code"})
			return
		}
	}

	token, _, err := s.issuer.Issue(accesstoken.Params{
		Identity:    req.Identity,
		DisplayName: req.DisplayName,
		RoomName:    meeting.RoomName,
		Metadata:    req.Metadata,
		TTL:         time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		log.Error().Err(err).Str("room_name", req.RoomName).Msg("Failed to issue access token")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to issue token"})
		return
	}

	m.TokensIssuedTotal.Add(ctx, 1)
	log.Debug().
		Str("identity", req.Identity).
		Str("room_name", meeting.RoomName).
		Str("meeting_id", meeting.ID.String()).
		Msg("Issued access token")

	c.JSON(http.StatusOK, tokenResponse{
		Token:    token,
		MediaURL: s.cfg.MediaURL,
		RoomName: meeting.RoomName,
		Meeting: tokenMeeting{
			ID:     meeting.ID.String(),
			Title:  meeting.Title,
			Status: string(meeting.Status),
		},
	})
}

// reconcile triggers one reconciliation cycle. Safe to call on any
// cadence, including concurrently with the background runner.
func (s *Server) reconcile(c *gin.Context) {
	result, err := s.reconciler.RunCycle(c.Request.Context(), time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Reconciliation cycle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
