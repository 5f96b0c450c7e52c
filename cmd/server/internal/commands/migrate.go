package commands

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/huddlehq/huddle/internal/store/postgres"
)

type MigrateCmd struct {
	DatabaseURL string `help:"PostgreSQL connection string" env:"DATABASE_URL" required:""`
}

func (m *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	configureLogging(globals)

	pg, err := postgres.NewMeetingStore(ctx, &postgres.PoolConfig{
		ConnString:  m.DatabaseURL,
		AutoMigrate: true,
	})
	if err != nil {
		return err
	}
	pg.Close()

	log.Info().Msg("Migrations complete")
	return nil
}
