package interfaces

import (
	"context"

	"github.com/ternarybob/scrutor/internal/models"
)

// ArchiveStorage persists completed-job snapshots and dependency-graph audit
// artifacts. The primary job store stays in-memory; the archive is a
// write-behind sidecar and must never block the pipeline on failure.
type ArchiveStorage interface {
	// SaveJob stores a terminal job snapshot
	SaveJob(ctx context.Context, job *models.AnalysisJob) error

	// GetJob loads an archived job, or nil if absent
	GetJob(ctx context.Context, id string) (*models.AnalysisJob, error)

	// SaveGraph stores the dependency-graph audit artifact for a job
	SaveGraph(ctx context.Context, jobID string, graph *models.DependencyGraph) error

	// Close releases the underlying store
	Close() error
}
