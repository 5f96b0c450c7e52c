package clientstate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenRequest is the payload sent to the token issuance endpoint.
type TokenRequest struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	RoomName    string `json:"roomName"`
	AccessCode  string `json:"accessCode,omitempty"`
	TTLSeconds  int    `json:"ttlSeconds,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// TokenMeeting is the meeting summary embedded in a token response.
type TokenMeeting struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// TokenResponse is a successful token issuance.
type TokenResponse struct {
	Token    string       `json:"token"`
	MediaURL string       `json:"mediaUrl"`
	RoomName string       `json:"roomName"`
	Meeting  TokenMeeting `json:"meeting"`
}

// APIError is a token issuance rejection (validation, authorization). It is
// surfaced to the caller as-is; the manager never retries it automatically.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("token request rejected (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("token request rejected (%d)", e.Status)
}

// TokenIssuer is the network boundary the session manager refreshes
// through.
type TokenIssuer interface {
	IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error)
}

// HTTPIssuer requests tokens from the service's HTTP API.
type HTTPIssuer struct {
	// BaseURL is the service root, e.g. https://meet.example.com
	BaseURL string

	// Client defaults to a 15s-timeout client when nil.
	Client *http.Client
}

var _ TokenIssuer = (*HTTPIssuer)(nil)

func (h *HTTPIssuer) IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.BaseURL+"/api/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		// A non-JSON error body still yields a usable APIError.
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(apiErr)
		return nil, apiErr
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResp, nil
}
