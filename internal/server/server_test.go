package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/huddlehq/huddle/internal/accesstoken"
	"github.com/huddlehq/huddle/internal/cache/adapter"
	"github.com/huddlehq/huddle/internal/clientstate"
	"github.com/huddlehq/huddle/internal/media"
	"github.com/huddlehq/huddle/internal/models"
	"github.com/huddlehq/huddle/internal/reconciler"
	"github.com/huddlehq/huddle/internal/store/memory"
)

type serverFixture struct {
	server   *httptest.Server
	meetings *memory.MeetingStore
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	meetings := memory.NewMeetingStore()
	issuer, err := accesstoken.NewIssuer("test-key", "test-secret")
	require.NoError(t, err)

	rec := reconciler.New(meetings, media.NopService{})

	srv := New(&Config{MediaURL: "wss://media.example.com"},
		meetings, issuer, rec, adapter.NewMemoryCache())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &serverFixture{server: ts, meetings: meetings}
}

func (fx *serverFixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, fx.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	return resp, buf.Bytes()
}

func (fx *serverFixture) createMeeting(t *testing.T, body map[string]any) *models.Meeting {
	t.Helper()

	resp, data := fx.do(t, http.MethodPost, "/api/meetings", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", data)

	var meeting models.Meeting
	require.NoError(t, json.Unmarshal(data, &meeting))
	return &meeting
}

func TestHealthz(t *testing.T) {
	fx := newServerFixture(t)

	resp, _ := fx.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateMeeting(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":     "Team Standup",
		"startTime": now.Add(time.Hour),
		"endTime":   now.Add(2 * time.Hour),
	})

	assert.NotEqual(t, uuid.UUID{}, meeting.ID)
	assert.Equal(t, "Team Standup", meeting.Title)
	assert.Equal(t, models.MeetingStatusScheduled, meeting.Status)
	assert.Contains(t, meeting.RoomName, "team-standup-")
}

func TestCreateMeetingStartNow(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":     "Instant",
		"startTime": now,
		"endTime":   now.Add(time.Hour),
		"startNow":  true,
	})

	assert.Equal(t, models.MeetingStatusActive, meeting.Status)
}

func TestCreateMeetingValidation(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	t.Run("missing title", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodPost, "/api/meetings", map[string]any{
			"startTime": now,
			"endTime":   now.Add(time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("end before start", func(t *testing.T) {
		resp, data := fx.do(t, http.MethodPost, "/api/meetings", map[string]any{
			"title":     "Backwards",
			"startTime": now.Add(time.Hour),
			"endTime":   now,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(data), "invalid_meeting")
	})

	t.Run("not JSON", func(t *testing.T) {
		resp, err := http.Post(fx.server.URL+"/api/meetings", "application/json",
			bytes.NewReader([]byte("not json")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetMeeting(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":     "Retrieve Me",
		"startTime": now,
		"endTime":   now.Add(time.Hour),
	})

	resp, data := fx.do(t, http.MethodGet, "/api/meetings/"+meeting.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Meeting
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, meeting.ID, got.ID)

	t.Run("unknown id", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodGet, "/api/meetings/"+uuid.Must(uuid.NewV7()).String(), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodGet, "/api/meetings/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListMeetings(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	fx.createMeeting(t, map[string]any{
		"title": "One", "startTime": now, "endTime": now.Add(time.Hour),
	})
	fx.createMeeting(t, map[string]any{
		"title": "Two", "startTime": now.Add(time.Hour), "endTime": now.Add(2 * time.Hour),
	})

	resp, data := fx.do(t, http.MethodGet, "/api/meetings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Meetings []*models.Meeting `json:"meetings"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Len(t, body.Meetings, 2)
}

func TestUpdateMeetingStatus(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":     "Lifecycle",
		"startTime": now.Add(time.Hour),
		"endTime":   now.Add(2 * time.Hour),
	})
	path := fmt.Sprintf("/api/meetings/%s/status", meeting.ID)

	resp, data := fx.do(t, http.MethodPatch, path, map[string]any{"status": "active"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Meeting
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, models.MeetingStatusActive, got.Status)

	t.Run("backward rejected", func(t *testing.T) {
		resp, data := fx.do(t, http.MethodPatch, path, map[string]any{"status": "scheduled"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, string(data), "invalid_transition")
	})

	t.Run("unknown meeting", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodPatch,
			fmt.Sprintf("/api/meetings/%s/status", uuid.Must(uuid.NewV7())),
			map[string]any{"status": "active"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetRoom(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":     "Room Lookup",
		"startTime": now,
		"endTime":   now.Add(time.Hour),
	})

	// Twice: the second hit goes through the cache.
	for range 2 {
		resp, data := fx.do(t, http.MethodGet, "/api/rooms/"+meeting.RoomName, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got models.Meeting
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, meeting.ID, got.ID)
	}

	t.Run("unknown room", func(t *testing.T) {
		resp, _ := fx.do(t, http.MethodGet, "/api/rooms/no-such-room", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestIssueToken(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":     "Token Test",
		"startTime": now,
		"endTime":   now.Add(time.Hour),
		"startNow":  true,
	})

	resp, data := fx.do(t, http.MethodPost, "/api/token", map[string]any{
		"identity":    "alice",
		"displayName": "Alice",
		"roomName":    meeting.RoomName,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", data)

	var body tokenResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "wss://media.example.com", body.MediaURL)
	assert.Equal(t, meeting.RoomName, body.RoomName)
	assert.Equal(t, meeting.ID.String(), body.Meeting.ID)
	assert.Equal(t, "Token Test", body.Meeting.Title)

	// The embedded expiry is decodable by the client-side session manager.
	expiresAt, err := clientstate.DecodeExpiry(body.Token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(accesstoken.DefaultTTL), expiresAt, 10*time.Second)
}

func TestIssueTokenMissingFields(t *testing.T) {
	fx := newServerFixture(t)

	resp, data := fx.do(t, http.MethodPost, "/api/token", map[string]any{
		"identity": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "invalid_request")
}

func TestIssueTokenUnknownRoom(t *testing.T) {
	fx := newServerFixture(t)

	resp, _ := fx.do(t, http.MethodPost, "/api/token", map[string]any{
		"identity":    "alice",
		"displayName": "Alice",
		"roomName":    "no-such-room",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIssueTokenEndedMeeting(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":     "Over",
		"startTime": now,
		"endTime":   now.Add(time.Hour),
		"startNow":  true,
	})
	require.NoError(t, fx.meetings.SetStatus(context.Background(), meeting.ID, models.MeetingStatusEnded))

	resp, data := fx.do(t, http.MethodPost, "/api/token", map[string]any{
		"identity":    "alice",
		"displayName": "Alice",
		"roomName":    meeting.RoomName,
	})
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Contains(t, string(data), "meeting_ended")
}

func TestIssueTokenAccessCode(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":      "Protected",
		"startTime":  now,
		"endTime":    now.Add(time.Hour),
		"startNow":   true,
		"accessCode": "s3cret",
	})

	base := map[string]any{
		"identity":    "alice",
		"displayName": "Alice",
		"roomName":    meeting.RoomName,
	}

	t.Run("missing code", func(t *testing.T) {
		resp, data := fx.do(t, http.MethodPost, "/api/token", base)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Contains(t, string(data), "access_denied")
	})

	t.Run("wrong code", func(t *testing.T) {
		req := map[string]any{"accessCode": "wrong"}
		for k, v := range base {
			req[k] = v
		}
		resp, _ := fx.do(t, http.MethodPost, "/api/token", req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("correct code", func(t *testing.T) {
		req := map[string]any{"accessCode": "s3cret"}
		for k, v := range base {
			req[k] = v
		}
		resp, _ := fx.do(t, http.MethodPost, "/api/token", req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestProtectedMeetingSessionFlow(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	meeting := fx.createMeeting(t, map[string]any{
		"title":      "Protected Sync",
		"startTime":  now,
		"endTime":    now.Add(time.Hour),
		"startNow":   true,
		"accessCode": "s3cret",
	})

	newClient := func(t *testing.T, code string) *clientstate.Manager {
		t.Helper()
		manager, err := clientstate.NewManager(clientstate.Config{
			Durable: clientstate.NewMemStore(),
			Issuer:  &clientstate.HTTPIssuer{BaseURL: fx.server.URL},
		})
		require.NoError(t, err)
		require.NoError(t, manager.SaveCredentials(context.Background(), &clientstate.JoinCredentials{
			MeetingID:   meeting.ID.String(),
			RoomName:    meeting.RoomName,
			DisplayName: "alice",
			AccessCode:  code,
		}))
		return manager
	}

	t.Run("stored code grants a session", func(t *testing.T) {
		sess, err := newClient(t, "s3cret").Session(context.Background(), meeting.ID.String())
		require.NoError(t, err)
		assert.NotEmpty(t, sess.Token)
		assert.Equal(t, meeting.RoomName, sess.RoomName)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		_, err := newClient(t, "wrong").Session(context.Background(), meeting.ID.String())
		var apiErr *clientstate.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
	})
}

func TestReconcileEndpoint(t *testing.T) {
	fx := newServerFixture(t)
	now := time.Now()

	// One meeting due to activate, one past both times.
	fx.createMeeting(t, map[string]any{
		"title":     "Due",
		"startTime": now.Add(-time.Minute),
		"endTime":   now.Add(time.Hour),
	})
	fx.createMeeting(t, map[string]any{
		"title":     "Overdue",
		"startTime": now.Add(-10 * time.Minute),
		"endTime":   now.Add(-5 * time.Minute),
	})

	resp, data := fx.do(t, http.MethodPost, "/api/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result reconciler.CycleResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Activated, 2)
	assert.Len(t, result.Ended, 1)
}
