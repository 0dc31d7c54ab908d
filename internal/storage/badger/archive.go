// Package badger persists completed-job snapshots and dependency-graph audit
// artifacts. The in-memory store remains the source of truth; this archive is
// a write-behind sidecar and never blocks the pipeline.
package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// archivedJob is the stored snapshot record
type archivedJob struct {
	ID         string `badgerhold:"key"`
	ArchivedAt time.Time
	Job        *models.AnalysisJob
}

// graphArtifact is the stored dependency-graph audit record
type graphArtifact struct {
	JobID      string `badgerhold:"key"`
	ArchivedAt time.Time
	Graph      *models.DependencyGraph
}

// Archive implements interfaces.ArchiveStorage on badgerhold
type Archive struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewArchive(db *BadgerDB, logger arbor.ILogger) interfaces.ArchiveStorage {
	return &Archive{db: db, logger: logger}
}

// SaveJob stores a terminal job snapshot, replacing any previous snapshot
// for the same id
func (a *Archive) SaveJob(ctx context.Context, job *models.AnalysisJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	record := archivedJob{
		ID:         job.ID,
		ArchivedAt: time.Now().UTC(),
		Job:        job.Clone(),
	}
	if err := a.db.Store().Upsert(job.ID, &record); err != nil {
		return fmt.Errorf("failed to archive job: %w", err)
	}

	a.logger.Debug().Str("job_id", job.ID).Msg("Job snapshot archived")
	return nil
}

// GetJob loads an archived job snapshot, or nil when absent
func (a *Archive) GetJob(ctx context.Context, id string) (*models.AnalysisJob, error) {
	var record archivedJob
	if err := a.db.Store().Get(id, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load archived job: %w", err)
	}
	return record.Job, nil
}

// SaveGraph stores the dependency-graph audit artifact for a job
func (a *Archive) SaveGraph(ctx context.Context, jobID string, graph *models.DependencyGraph) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if graph == nil {
		return fmt.Errorf("graph is required")
	}

	record := graphArtifact{
		JobID:      jobID,
		ArchivedAt: time.Now().UTC(),
		Graph:      graph,
	}
	if err := a.db.Store().Upsert(jobID, &record); err != nil {
		return fmt.Errorf("failed to archive graph: %w", err)
	}

	a.logger.Debug().Str("job_id", jobID).Msg("Dependency graph archived")
	return nil
}

// Close closes the underlying database
func (a *Archive) Close() error {
	return a.db.Close()
}
