package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/services/pipeline"
)

// JobsHandler serves job listings and deletion
type JobsHandler struct {
	logger arbor.ILogger
	store  interfaces.JobStore
	pool   *pipeline.WorkerPool
}

func NewJobsHandler(store interfaces.JobStore, pool *pipeline.WorkerPool, logger arbor.ILogger) *JobsHandler {
	return &JobsHandler{logger: logger, store: store, pool: pool}
}

// ListJobsHandler handles GET /api/jobs
func (h *JobsHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobs := h.store.List()
	items := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, statusResponse(job, false))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  items,
		"count": len(items),
	})
}

// DeleteJobHandler handles DELETE /api/jobs/{job_id}. An in-flight job is
// cancelled before its record is removed.
func (h *JobsHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	jobID := PathParam(r, "/api/jobs/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job := h.store.Get(jobID)
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	if !job.Status.IsTerminal() {
		if h.pool.Cancel(jobID) {
			h.logger.Info().Str("job_id", jobID).Msg("Cancelled in-flight job before deletion")
		}
	}
	h.store.Delete(jobID)

	WriteSuccess(w, "Job deleted")
}
