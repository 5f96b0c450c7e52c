package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/huddlehq/huddle/internal/clientstate"
)

type JoinCmd struct {
	Room       string `arg:"" help:"Room name to join"`
	Name       string `help:"Display name" required:""`
	Email      string `help:"Email address"`
	AccessCode string `help:"Access code for protected meetings"`

	ClientFlags
}

func (j *JoinCmd) Run(ctx context.Context, globals *Globals) error {
	configureLogging(globals)

	manager, err := j.newManager()
	if err != nil {
		return err
	}

	meeting, err := fetchRoomMeeting(ctx, j.ServerURL, j.Room)
	if err != nil {
		return err
	}

	err = manager.SaveCredentials(ctx, &clientstate.JoinCredentials{
		MeetingID:    meeting.ID,
		RoomName:     j.Room,
		DisplayName:  j.Name,
		Email:        j.Email,
		AccessCode:   j.AccessCode,
		MeetingTitle: meeting.Title,
	})
	if err != nil {
		return err
	}

	session, err := manager.Session(ctx, meeting.ID)
	if err != nil {
		return err
	}

	return printJSON(session)
}

type roomMeeting struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// fetchRoomMeeting resolves a room name to its meeting via the server, for
// the first join when the local room index has no entry yet.
func fetchRoomMeeting(ctx context.Context, serverURL, room string) (*roomMeeting, error) {
	endpoint := fmt.Sprintf("%s/api/rooms/%s", serverURL, url.PathEscape(room))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("room lookup failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no meeting found for room %q", room)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("room lookup returned %d", resp.StatusCode)
	}

	var meeting roomMeeting
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return nil, fmt.Errorf("failed to decode room lookup response: %w", err)
	}

	return &meeting, nil
}
