package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// StatusHandler serves job progress snapshots
type StatusHandler struct {
	logger arbor.ILogger
	store  interfaces.JobStore
}

func NewStatusHandler(store interfaces.JobStore, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{logger: logger, store: store}
}

// GetStatusHandler handles GET /api/status/{job_id}.
// ?include_details=true adds the summary, issue list, and failure detail.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := PathParam(r, "/api/status/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job := h.store.Get(jobID)
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	includeDetails, _ := strconv.ParseBool(r.URL.Query().Get("include_details"))
	WriteJSON(w, http.StatusOK, statusResponse(job, includeDetails))
}

func statusResponse(job *models.AnalysisJob, includeDetails bool) map[string]interface{} {
	resp := map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"service":    job.Service,
		"progress":   job.Progress,
		"message":    job.Message,
		"created_at": job.CreatedAt.Format(time.RFC3339),
		"updated_at": job.UpdatedAt.Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		resp["completed_at"] = job.CompletedAt.Format(time.RFC3339)
	}
	if len(job.StageErrors) > 0 {
		resp["stage_errors"] = job.StageErrors
	}

	if includeDetails {
		if job.Summary != nil {
			resp["summary"] = job.Summary
		}
		if len(job.Issues) > 0 {
			resp["issues"] = job.Issues
		}
		if job.Error != "" {
			resp["error"] = job.Error
			resp["error_kind"] = job.ErrorKind
		}
	}
	return resp
}

// PathParam extracts the single path segment after prefix, or "" when absent
func PathParam(r *http.Request, prefix string) string {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	if path == r.URL.Path {
		return ""
	}
	return strings.Trim(path, "/")
}
