package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/huddlehq/huddle/cmd/huddle/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Join    commands.JoinCmd   `cmd:"" help:"Join a meeting room and print an access session"`
		Resume  commands.ResumeCmd `cmd:"" help:"Resume a previously joined room"`
		Leave   commands.LeaveCmd  `cmd:"" help:"Drop the stored session for a room, keeping credentials"`
		Logout  commands.LogoutCmd `cmd:"" help:"Forget a room entirely"`
		Debug   bool               `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
