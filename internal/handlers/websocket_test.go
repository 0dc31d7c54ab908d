package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/storage/memory"
)

func wsTestServer(t *testing.T) (*WebSocketHandler, *memory.Store, *httptest.Server) {
	t.Helper()
	store := memory.NewStore()
	h := NewWebSocketHandler(store, arbor.NewLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ws/", h.HandleWebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, store, srv
}

func wsDial(t *testing.T, srv *httptest.Server, jobID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/" + jobID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) (string, map[string]interface{}) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg.Type, msg.Payload
}

func TestWebSocket_UnknownJobRejected(t *testing.T) {
	_, _, srv := wsTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocket_InitialSnapshotAndUpdates(t *testing.T) {
	h, store, srv := wsTestServer(t)

	now := time.Now().UTC()
	job := &models.AnalysisJob{
		ID:        "job-1",
		Status:    models.JobStatusProcessing,
		Service:   "gemini",
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  5,
		Message:   "Starting analysis",
	}
	require.NoError(t, store.Add(job))

	conn := wsDial(t, srv, "job-1")

	msgType, payload := readUpdate(t, conn)
	assert.Equal(t, "job_update", msgType)
	assert.Equal(t, "job-1", payload["job_id"])
	assert.Equal(t, "processing", payload["status"])

	update := job.Clone()
	update.Progress = 60
	update.Message = "Analyzing python files"
	h.Publish(update)

	_, payload = readUpdate(t, conn)
	assert.Equal(t, float64(60), payload["progress"])
	assert.Equal(t, "Analyzing python files", payload["message"])
}

func TestWebSocket_TerminalUpdateClosesConnection(t *testing.T) {
	h, store, srv := wsTestServer(t)

	now := time.Now().UTC()
	require.NoError(t, store.Add(&models.AnalysisJob{
		ID:        "job-1",
		Status:    models.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	conn := wsDial(t, srv, "job-1")
	readUpdate(t, conn) // initial snapshot

	done := &models.AnalysisJob{
		ID:        "job-1",
		Status:    models.JobStatusCompleted,
		Progress:  100,
		Message:   "Analysis complete",
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.Publish(done)

	msgType, payload := readUpdate(t, conn)
	assert.Equal(t, "job_update", msgType)
	assert.Equal(t, "completed", payload["status"])

	// The server closes job streams after the terminal update
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_TerminalJobClosedAfterSnapshot(t *testing.T) {
	_, store, srv := wsTestServer(t)

	now := time.Now().UTC()
	completed := now
	require.NoError(t, store.Add(&models.AnalysisJob{
		ID:          "job-1",
		Status:      models.JobStatusCompleted,
		Progress:    100,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &completed,
	}))

	conn := wsDial(t, srv, "job-1")

	_, payload := readUpdate(t, conn)
	assert.Equal(t, "completed", payload["status"])

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
