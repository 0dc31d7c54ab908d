package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/services/llm"
)

type APIHandler struct {
	logger arbor.ILogger
	config *common.Config
}

func NewAPIHandler(config *common.Config, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		logger: logger,
		config: config,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler reports readiness of the analyzer and each external service.
// Unconfigured providers are reported, not failed; the process is healthy as
// long as it can accept submissions.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	available := llm.Available(h.config)

	services := map[string]string{
		"analyzer":   "ok",
		"github_api": configured(h.config.GitHub.Token != ""),
		"claude":     configured(available["claude"]),
		"gemini":     configured(available["gemini"]),
		"notion":     configured(h.config.NotionEnabled()),
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"services":   services,
		"goroutines": common.GetGoroutineCount(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func configured(ok bool) string {
	if ok {
		return "ok"
	}
	return "unconfigured"
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
