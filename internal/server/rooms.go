package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/cache/port"
	"github.com/huddlehq/huddle/internal/store"
)

const roomCacheKeyPrefix = "room-index:"

// getRoom resolves a room name to its meeting, going through the room
// index cache first. Cache failures degrade to a store read.
func (s *Server) getRoom(c *gin.Context) {
	roomName := c.Param("room")
	ctx := c.Request.Context()

	if id, ok := s.cachedMeetingID(c, roomName); ok {
		meeting, err := s.meetings.Get(ctx, id)
		if err == nil {
			c.JSON(http.StatusOK, meeting)
			return
		}
		// Stale cache entry, fall through to the store lookup.
		_, _ = s.rooms.Del(ctx, roomCacheKeyPrefix+roomName)
	}

	meeting, err := s.meetings.GetByRoomName(ctx, roomName)
	if err != nil {
		if errors.Is(err, store.ErrMeetingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "room not found"})
			return
		}
		log.Error().Err(err).Str("room_name", roomName).Msg("Failed to resolve room")
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "failed to resolve room"})
		return
	}

	if err := s.rooms.Set(ctx, roomCacheKeyPrefix+roomName, meeting.ID.String(), s.cfg.RoomCacheTTL); err != nil {
		log.Debug().Err(err).Str("room_name", roomName).Msg("room cache write failed")
	}

	c.JSON(http.StatusOK, meeting)
}

func (s *Server) cachedMeetingID(c *gin.Context, roomName string) (uuid.UUID, bool) {
	value, err := s.rooms.Get(c.Request.Context(), roomCacheKeyPrefix+roomName)
	if err != nil {
		if err != port.ErrMiss {
			log.Debug().Err(err).Str("room_name", roomName).Msg("room cache read failed")
		}
		return uuid.UUID{}, false
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}
