package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/app"
	"github.com/ternarybob/scrutor/internal/common"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	application, err := app.New(common.NewDefaultConfig(), arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(application.Close)
	require.NoError(t, application.Start())
	return New(application)
}

func TestRoutes_Health(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRoutes_UnknownAPIEndpoint(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not exist")
}

func TestRoutes_SubmitAndPoll(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analyze/remote",
		strings.NewReader(`{"repo_url":"https://github.com/octo/widgets"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	jobID := body["job_id"].(string)
	require.NotEmpty(t, jobID)

	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/status/"+jobID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_JobDeleteMethodGuard(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/jobs/some-id", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	s := testServer(t)

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/jobs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
