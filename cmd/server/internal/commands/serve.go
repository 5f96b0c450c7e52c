package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/accesstoken"
	"github.com/huddlehq/huddle/internal/cache/adapter"
	"github.com/huddlehq/huddle/internal/cache/port"
	"github.com/huddlehq/huddle/internal/reconciler"
	"github.com/huddlehq/huddle/internal/server"
)

type ServeCmd struct {
	Listen            string        `help:"listen address" default:"localhost:8080"`
	ReconcileInterval time.Duration `help:"Interval between reconciliation cycles" default:"1m"`
	RedisURL          string        `help:"Redis URL for the room lookup cache; empty uses an in-process cache" env:"REDIS_URL"`
	MediaAPIKey       string        `help:"Media backend API key for token signing" env:"MEDIA_API_KEY" required:""`
	MediaAPISecret    string        `help:"Media backend API secret for token signing" env:"MEDIA_API_SECRET" required:""`

	StoreFlags
	MediaFlags
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	configureLogging(globals)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Msg("Starting huddle server")

	meetings, closeStore, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rooms, err := s.roomService()
	if err != nil {
		return err
	}

	issuer, err := accesstoken.NewIssuer(s.MediaAPIKey, s.MediaAPISecret)
	if err != nil {
		return err
	}

	var roomCache port.Cache
	if s.RedisURL != "" {
		roomCache, err = adapter.NewRedisCache(ctx, s.RedisURL)
		if err != nil {
			return err
		}
	} else {
		roomCache = adapter.NewMemoryCache()
	}
	defer func() { _ = roomCache.Close() }()

	rec := reconciler.New(meetings, rooms)

	runner := reconciler.NewRunner(rec, s.ReconcileInterval)
	runner.Start(ctx)
	defer runner.Stop()

	api := server.New(&server.Config{
		MediaURL: s.MediaURL,
		Debug:    globals.Debug,
	}, meetings, issuer, rec, roomCache)

	httpServer := configureHTTPServer(s.Listen, api.Handler())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", s.Listen).Msg("Listening for HTTP connections")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
