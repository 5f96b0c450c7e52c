package commands

import (
	"context"
	"fmt"
)

type LeaveCmd struct {
	Room string `arg:"" help:"Room name to leave"`

	ClientFlags
}

func (l *LeaveCmd) Run(ctx context.Context, globals *Globals) error {
	configureLogging(globals)

	manager, err := l.newManager()
	if err != nil {
		return err
	}

	meetingID, err := manager.MeetingIDForRoom(ctx, l.Room)
	if err != nil {
		return fmt.Errorf("room %q was never joined here", l.Room)
	}

	// Session-only invalidation: credentials stay for a quick rejoin.
	manager.ClearSession(ctx, meetingID)

	fmt.Printf("Left room %s\n", l.Room)
	return nil
}
