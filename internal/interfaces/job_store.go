package interfaces

import (
	"github.com/ternarybob/scrutor/internal/models"
)

// JobUpdate is a partial job mutation applied by JobStore.Update.
// Nil fields are left untouched; the store stamps UpdatedAt on every call.
type JobUpdate struct {
	Status          *models.JobStatus
	Progress        *float64
	Message         *string
	Error           *string
	ErrorKind       *models.ErrorKind
	CompletedNow    bool
	StageError      *string
	Summary         *models.AnalysisSummary
	Issues          []models.CodeIssue
	Metrics         []models.FileMetrics
	DependencyGraph *models.DependencyGraph
	FileMetadata    map[string]models.FileMetadata
	AIReview        *models.ReviewEnvelope
}

// JobStore is the shared record of every submitted analysis job. All
// operations are atomic per job ID; readers always observe a consistent
// snapshot. Implementations must never hold their lock across I/O.
type JobStore interface {
	// Add inserts or replaces a job record. Replacing a terminal job with a
	// different terminal status is rejected.
	Add(job *models.AnalysisJob) error

	// Get returns a snapshot of the job, or nil if unknown
	Get(id string) *models.AnalysisJob

	// Update shallow-merges the partial update into the job record
	Update(id string, update JobUpdate) error

	// Delete removes a job unconditionally
	Delete(id string)

	// List returns a snapshot of all jobs for diagnostics
	List() []*models.AnalysisJob
}
