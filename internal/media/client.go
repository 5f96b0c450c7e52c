package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// ClientConfig holds configuration for the media backend admin client.
type ClientConfig struct {
	// AdminURL is the base URL of the media backend's admin API.
	AdminURL string

	// AdminToken authenticates admin requests.
	AdminToken string

	// RequestTimeout is the per-request timeout. Default: 10s.
	RequestTimeout time.Duration

	// MaxRetries bounds retry attempts for transient failures. Default: 3.
	MaxRetries uint
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks that the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.AdminURL == "" {
		return fmt.Errorf("media admin URL is required")
	}
	if _, err := url.Parse(c.AdminURL); err != nil {
		return fmt.Errorf("invalid media admin URL: %w", err)
	}
	return nil
}

// Client talks to the media backend's admin API over HTTP. Transient
// failures (network errors, 5xx) are retried with exponential backoff
// before surfacing; 404 maps to ErrRoomNotFound.
type Client struct {
	cfg  *ClientConfig
	http *http.Client
}

// NewClient creates a media backend admin client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid media client config: %w", err)
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

var _ RoomService = (*Client)(nil)

// DeleteRoom removes a room from the media backend. Deleting a room that
// no longer exists returns ErrRoomNotFound.
func (c *Client) DeleteRoom(ctx context.Context, roomName string) error {
	endpoint := fmt.Sprintf("%s/rooms/%s", c.cfg.AdminURL, url.PathEscape(roomName))

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AdminToken)

		resp, err := c.http.Do(req)
		if err != nil {
			// Network errors are worth a retry.
			return struct{}{}, err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return struct{}{}, backoff.Permanent(ErrRoomNotFound)
		case resp.StatusCode >= 500:
			return struct{}{}, fmt.Errorf("media backend returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return struct{}{}, backoff.Permanent(fmt.Errorf("media backend rejected delete: %d", resp.StatusCode))
		}

		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.cfg.MaxRetries),
	)
	if err != nil {
		return err
	}

	log.Debug().Str("room_name", roomName).Msg("Deleted media room")

	return nil
}
