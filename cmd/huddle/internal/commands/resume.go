package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/huddlehq/huddle/internal/clientstate"
)

type ResumeCmd struct {
	Room string `arg:"" help:"Room name to resume"`

	ClientFlags
}

func (r *ResumeCmd) Run(ctx context.Context, globals *Globals) error {
	configureLogging(globals)

	manager, err := r.newManager()
	if err != nil {
		return err
	}

	session, creds, err := manager.Resume(ctx, r.Room)
	if err != nil {
		if errors.Is(err, clientstate.ErrUnknownRoom) || errors.Is(err, clientstate.ErrNoCredentials) {
			return fmt.Errorf("room %q was never joined here, use join instead", r.Room)
		}
		return err
	}

	if creds != nil && creds.MeetingTitle != "" {
		fmt.Printf("Resuming %q as %s\n", creds.MeetingTitle, creds.DisplayName)
	}

	return printJSON(session)
}
