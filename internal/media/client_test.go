package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := NewClient(&ClientConfig{
		AdminURL:   ts.URL,
		AdminToken: "admin-token",
	})
	require.NoError(t, err)
	return client
}

func TestClientDeleteRoom(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.DeleteRoom(context.Background(), "standup-x7k2"))
	assert.Equal(t, "/rooms/standup-x7k2", gotPath)
	assert.Equal(t, "Bearer admin-token", gotAuth)
}

func TestClientDeleteRoomNotFound(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	err := client.DeleteRoom(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	// 404 is terminal, no retries.
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientDeleteRoomRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.DeleteRoom(context.Background(), "flaky"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDeleteRoomGivesUp(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.DeleteRoom(context.Background(), "down")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDeleteRoomClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))

	err := client.DeleteRoom(context.Background(), "denied")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientConfigValidate(t *testing.T) {
	_, err := NewClient(&ClientConfig{})
	require.Error(t, err)
}

func TestNopService(t *testing.T) {
	assert.NoError(t, NopService{}.DeleteRoom(context.Background(), "anything"))
}
