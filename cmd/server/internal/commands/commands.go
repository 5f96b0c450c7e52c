package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/logger"
	"github.com/huddlehq/huddle/internal/media"
	"github.com/huddlehq/huddle/internal/store"
	"github.com/huddlehq/huddle/internal/store/memory"
	"github.com/huddlehq/huddle/internal/store/postgres"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureLogging(globals *Globals) {
	log.Logger = logger.Setup(globals.Debug)
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// StoreFlags selects and configures the meeting store backend.
type StoreFlags struct {
	Store       string `help:"Meeting store backend (postgres or memory)" enum:"postgres,memory" default:"postgres"`
	DatabaseURL string `help:"PostgreSQL connection string" env:"DATABASE_URL"`
	AutoMigrate bool   `help:"Run pending migrations on startup" default:"true"`
}

func (f *StoreFlags) openStore(ctx context.Context) (store.MeetingStore, func(), error) {
	if f.Store == "memory" {
		log.Warn().Msg("Using in-memory meeting store, data is lost on restart")
		return memory.NewMeetingStore(), func() {}, nil
	}

	pg, err := postgres.NewMeetingStore(ctx, &postgres.PoolConfig{
		ConnString:  f.DatabaseURL,
		AutoMigrate: f.AutoMigrate,
	})
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// MediaFlags configures the media backend admin client.
type MediaFlags struct {
	MediaURL        string `help:"Media backend URL handed to clients" env:"MEDIA_URL" default:"wss://media.local"`
	MediaAdminURL   string `help:"Media backend admin API URL; empty disables room teardown" env:"MEDIA_ADMIN_URL"`
	MediaAdminToken string `help:"Media backend admin token" env:"MEDIA_ADMIN_TOKEN"`
}

func (f *MediaFlags) roomService() (media.RoomService, error) {
	if f.MediaAdminURL == "" {
		log.Warn().Msg("No media admin URL configured, room teardown is disabled")
		return media.NopService{}, nil
	}

	return media.NewClient(&media.ClientConfig{
		AdminURL:   f.MediaAdminURL,
		AdminToken: f.MediaAdminToken,
	})
}
