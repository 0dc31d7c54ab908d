package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// GraphHandler serves dependency graphs for completed jobs
type GraphHandler struct {
	logger arbor.ILogger
	store  interfaces.JobStore
}

func NewGraphHandler(store interfaces.JobStore, logger arbor.ILogger) *GraphHandler {
	return &GraphHandler{logger: logger, store: store}
}

// GetGraphHandler handles GET /api/graph/{job_id}. The graph is only
// available once the job has completed.
func (h *GraphHandler) GetGraphHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := PathParam(r, "/api/graph/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job := h.store.Get(jobID)
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.Status != models.JobStatusCompleted {
		WriteError(w, http.StatusBadRequest, "Analysis is not complete")
		return
	}

	graph := job.DependencyGraph
	if graph == nil {
		graph = &models.DependencyGraph{Nodes: []models.GraphNode{}, Links: []models.GraphLink{}}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":           job.ID,
		"dependency_graph": graph,
	})
}
