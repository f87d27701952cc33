package syncapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoClientURL)
}

func TestState_ParsesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sync/state", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"path": "alice@example.com/file.txt", "status": "synced", "timestamp": "2025-06-01T10:00:00Z"},
			{"path": "alice@example.com/queued.txt", "status": "queued", "timestamp": "2025-06-01T10:00:05.123Z"}
		]`))
	}))
	defer srv.Close()

	api, err := New(srv.URL)
	require.NoError(t, err)
	defer api.Close()

	records, err := api.State(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "alice@example.com/file.txt", records[0].Path)
	assert.Equal(t, "synced", records[0].Status)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), records[0].Timestamp)
	assert.Equal(t, "queued", records[1].Status)
}

func TestState_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	api, err := New(srv.URL)
	require.NoError(t, err)
	defer api.Close()

	records, err := api.State(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestState_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code": "E_DATASITE_NOT_READY", "error": "no active datasite"}`))
	}))
	defer srv.Close()

	api, err := New(srv.URL)
	require.NoError(t, err)
	defer api.Close()

	_, err = api.State(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_DATASITE_NOT_READY")
}

func TestState_TransportError(t *testing.T) {
	// a server that is immediately closed produces a connection error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	api, err := New(srv.URL)
	require.NoError(t, err)

	_, err = api.State(context.Background())
	assert.Error(t, err)
}
