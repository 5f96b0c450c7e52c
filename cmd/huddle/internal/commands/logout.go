package commands

import (
	"context"
	"fmt"
)

type LogoutCmd struct {
	Room string `arg:"" help:"Room name to forget"`

	ClientFlags
}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	configureLogging(globals)

	manager, err := l.newManager()
	if err != nil {
		return err
	}

	meetingID, err := manager.MeetingIDForRoom(ctx, l.Room)
	if err != nil {
		return fmt.Errorf("room %q was never joined here", l.Room)
	}

	manager.Logout(ctx, meetingID)

	fmt.Printf("Forgot room %s\n", l.Room)
	return nil
}
