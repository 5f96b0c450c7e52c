// Package server exposes the HTTP API: meeting management, access token
// issuance, room resolution and the reconciliation trigger.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/accesstoken"
	"github.com/huddlehq/huddle/internal/cache/port"
	"github.com/huddlehq/huddle/internal/logger"
	"github.com/huddlehq/huddle/internal/reconciler"
	"github.com/huddlehq/huddle/internal/store"
)

// Config configures the API server.
type Config struct {
	// MediaURL is the media backend URL handed to clients in token
	// responses.
	MediaURL string

	// RoomCacheTTL bounds room index cache entries. Default: 5 minutes.
	RoomCacheTTL time.Duration

	// Debug enables gin's debug mode and request logging.
	Debug bool
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.RoomCacheTTL == 0 {
		c.RoomCacheTTL = 5 * time.Minute
	}
}

// Server wires the stores and services into HTTP handlers.
type Server struct {
	cfg        *Config
	meetings   store.MeetingStore
	issuer     *accesstoken.Issuer
	reconciler *reconciler.Reconciler
	rooms      port.Cache
}

// New creates the API server.
func New(cfg *Config, meetings store.MeetingStore, issuer *accesstoken.Issuer, rec *reconciler.Reconciler, rooms port.Cache) *Server {
	cfg.ApplyDefaults()
	return &Server{
		cfg:        cfg,
		meetings:   meetings,
		issuer:     issuer,
		reconciler: rec,
		rooms:      rooms,
	}
}

// Handler builds the full HTTP handler: the gin engine wrapped in CORS.
func (s *Server) Handler() http.Handler {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.Requests(log.Logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/meetings", s.createMeeting)
		api.GET("/meetings", s.listMeetings)
		api.GET("/meetings/:id", s.getMeeting)
		api.PATCH("/meetings/:id/status", s.updateMeetingStatus)
		api.GET("/rooms/:room", s.getRoom)
		api.POST("/token", s.issueToken)
		api.POST("/reconcile", s.reconcile)
	}

	return cors.Default().Handler(r)
}
