package main

import (
	"context"
	"log"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/huddlehq/huddle/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Serve     commands.ServeCmd     `cmd:"" help:"Start the API server and reconciler"`
		Reconcile commands.ReconcileCmd `cmd:"" help:"Run a single reconciliation cycle"`
		Migrate   commands.MigrateCmd   `cmd:"" help:"Run database migrations and exit"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
