package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/fetcher"
	"github.com/ternarybob/scrutor/internal/services/pipeline"
)

// maxFieldBytes bounds a non-file multipart form field
const maxFieldBytes = 4 << 10

// AnalyzeHandler accepts analysis submissions and hands them to the worker
// pool. Submissions return immediately; progress is observed via the status
// endpoint or the job websocket.
type AnalyzeHandler struct {
	logger   arbor.ILogger
	config   *common.Config
	store    interfaces.JobStore
	pool     *pipeline.WorkerPool
	validate *validator.Validate
}

func NewAnalyzeHandler(config *common.Config, store interfaces.JobStore, pool *pipeline.WorkerPool, logger arbor.ILogger) *AnalyzeHandler {
	return &AnalyzeHandler{
		logger:   logger,
		config:   config,
		store:    store,
		pool:     pool,
		validate: validator.New(),
	}
}

type remoteAnalyzeRequest struct {
	RepoURL               string   `json:"repo_url" validate:"required,url"`
	Service               string   `json:"service" validate:"omitempty,oneof=claude gemini"`
	IncludeExternalReport bool     `json:"include_external_report"`
	MaxFiles              int      `json:"max_files" validate:"omitempty,gte=1"`
	IncludePatterns       []string `json:"include_patterns"`
}

// RemoteHandler handles POST /api/analyze/remote
func (h *AnalyzeHandler) RemoteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req remoteAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	job := h.newJob(req.Service, req.IncludeExternalReport)
	job.RepoURL = req.RepoURL
	job.IncludePatterns = req.IncludePatterns
	job.MaxFiles = clampFileCap(req.MaxFiles, h.config.Analysis.MaxFilesRemote)

	h.submit(w, job, nil)
}

// UploadHandler handles POST /api/analyze/upload (multipart form)
func (h *AnalyzeHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	form, uploads, err := h.readParts(reader)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	service := form["service"]
	if service != "" && service != "claude" && service != "gemini" {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown service %q: must be 'claude' or 'gemini'", service))
		return
	}
	includeReport, _ := strconv.ParseBool(form["include_external_report"])

	maxFiles := h.config.Analysis.MaxFilesUpload
	if v := form["max_files"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxFiles = clampFileCap(n, h.config.Analysis.MaxFilesUpload)
		}
	}

	if len(uploads) > maxFiles {
		tooMany := &uploadTooLargeError{count: len(uploads), limit: maxFiles}
		WriteError(w, http.StatusRequestEntityTooLarge, tooMany.Error())
		return
	}

	files, err := fetcher.MaterializeUpload(uploads, maxFiles)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := h.newJob(service, includeReport)
	job.MaxFiles = maxFiles

	h.submit(w, job, files)
}

// uploadTooLargeError marks a bundle that exceeds the file cap
type uploadTooLargeError struct {
	count, limit int
}

func (e *uploadTooLargeError) Error() string {
	return fmt.Sprintf("upload contains %d files, limit is %d", e.count, e.limit)
}

// readParts drains the multipart stream, separating form fields from file
// parts. Filenames are taken verbatim from the Content-Disposition header:
// Part.FileName strips directories, which would flatten bundle paths and hide
// traversal attempts before the materializer can reject them.
func (h *AnalyzeHandler) readParts(reader *multipart.Reader) (map[string]string, map[string][]byte, error) {
	form := make(map[string]string)
	uploads := make(map[string][]byte)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
		}

		name := rawFileName(part)
		if name == "" {
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			part.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read form field %q: %w", part.FormName(), err)
			}
			form[part.FormName()] = string(value)
			continue
		}

		content, err := io.ReadAll(io.LimitReader(part, int64(h.config.Analysis.MaxFileBytes)+1))
		part.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read uploaded file %q: %w", name, err)
		}
		if len(content) > h.config.Analysis.MaxFileBytes {
			return nil, nil, fmt.Errorf("file %q exceeds the %d byte limit", name, h.config.Analysis.MaxFileBytes)
		}
		uploads[name] = content
	}

	if len(uploads) == 0 {
		return nil, nil, fmt.Errorf("no files in upload")
	}
	return form, uploads, nil
}

// rawFileName returns the filename parameter exactly as supplied in the
// part's Content-Disposition header, empty for non-file fields
func rawFileName(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

func (h *AnalyzeHandler) newJob(service string, includeReport bool) *models.AnalysisJob {
	if service == "" {
		service = string(h.config.LLM.DefaultProvider)
	}
	now := time.Now().UTC()
	return &models.AnalysisJob{
		ID:            uuid.New().String(),
		Status:        models.JobStatusPending,
		Service:       service,
		IncludeNotion: includeReport,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (h *AnalyzeHandler) submit(w http.ResponseWriter, job *models.AnalysisJob, files []models.WorkingFile) {
	if err := h.store.Add(job); err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record analysis job")
		WriteError(w, http.StatusInternalServerError, "Failed to record analysis job")
		return
	}

	if err := h.pool.Submit(pipeline.Submission{JobID: job.ID, Files: files}); err != nil {
		h.store.Delete(job.ID)
		h.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Analysis queue rejected submission")
		WriteError(w, http.StatusServiceUnavailable, "Analysis queue is full, retry later")
		return
	}

	h.logger.Info().
		Str("job_id", job.ID).
		Str("service", job.Service).
		Int("files", len(files)).
		Msg("Analysis job submitted")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"created_at": job.CreatedAt.Format(time.RFC3339),
	})
}

// clampFileCap bounds a requested file cap to the configured maximum
func clampFileCap(requested, limit int) int {
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}
