package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/render"
)

// ReportHandler renders completed jobs into downloadable report formats
type ReportHandler struct {
	logger   arbor.ILogger
	store    interfaces.JobStore
	validate *validator.Validate
}

func NewReportHandler(store interfaces.JobStore, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		logger:   logger,
		store:    store,
		validate: validator.New(),
	}
}

type reportRequest struct {
	JobID  string `json:"job_id" validate:"required"`
	Format string `json:"format" validate:"required,oneof=json html md"`
}

// GenerateReportHandler handles POST /api/report. The body selects a
// completed job and one of the supported formats (json, html, md); the
// response body is the rendered report itself.
func (h *ReportHandler) GenerateReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	job := h.store.Get(req.JobID)
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.Status != models.JobStatusCompleted {
		WriteError(w, http.StatusBadRequest, "Analysis is not complete")
		return
	}

	var body []byte
	var contentType string
	switch req.Format {
	case "json":
		body = render.JSON(job)
		contentType = "application/json"
	case "html":
		body = render.HTML(job)
		contentType = "text/html; charset=utf-8"
	case "md":
		body = render.Markdown(job)
		contentType = "text/markdown; charset=utf-8"
	}

	h.logger.Debug().
		Str("job_id", job.ID).
		Str("format", req.Format).
		Int("bytes", len(body)).
		Msg("Report generated")

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
