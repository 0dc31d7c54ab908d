// Package memory implements the in-memory job store. It is the source of
// truth for job state; the badger archive is a write-behind sidecar.
package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// Store holds every submitted job keyed by id. All operations are atomic
// per id; the mutex is never held across I/O or LLM calls.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*models.AnalysisJob
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*models.AnalysisJob)}
}

// Add inserts or replaces a job record. Replacing a terminal job with a
// different terminal status is rejected so a finished job can never flip
// between completed and failed.
func (s *Store) Add(job *models.AnalysisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[job.ID]; ok {
		if existing.Status.IsTerminal() && job.Status.IsTerminal() && existing.Status != job.Status {
			return fmt.Errorf("job %s is already %s", job.ID, existing.Status)
		}
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a snapshot of the job, or nil when unknown. Callers may mutate
// the returned value freely.
func (s *Store) Get(id string) *models.AnalysisJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	return job.Clone()
}

// Update shallow-merges the partial update into the job record. Nil fields
// are untouched; UpdatedAt is stamped on every call.
func (s *Store) Update(id string, update interfaces.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}

	if update.Status != nil {
		if job.Status.IsTerminal() && *update.Status != job.Status {
			return fmt.Errorf("job %s is already %s", id, job.Status)
		}
		job.Status = *update.Status
	}
	if update.Progress != nil {
		job.Progress = *update.Progress
	}
	if update.Message != nil {
		job.Message = *update.Message
	}
	if update.Error != nil {
		job.Error = *update.Error
	}
	if update.ErrorKind != nil {
		job.ErrorKind = *update.ErrorKind
	}
	if update.StageError != nil {
		job.StageErrors = append(job.StageErrors, *update.StageError)
	}
	if update.Summary != nil {
		job.Summary = update.Summary
	}
	if update.Issues != nil {
		job.Issues = append([]models.CodeIssue(nil), update.Issues...)
	}
	if update.Metrics != nil {
		job.Metrics = append([]models.FileMetrics(nil), update.Metrics...)
	}
	if update.DependencyGraph != nil {
		job.DependencyGraph = update.DependencyGraph
	}
	if update.FileMetadata != nil {
		job.FileMetadata = make(map[string]models.FileMetadata, len(update.FileMetadata))
		for k, v := range update.FileMetadata {
			job.FileMetadata[k] = v
		}
	}
	if update.AIReview != nil {
		job.AIReview = update.AIReview
	}

	now := time.Now().UTC()
	job.UpdatedAt = now
	if update.CompletedNow {
		job.CompletedAt = &now
	}
	return nil
}

// Delete removes a job unconditionally
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// List returns snapshots of all jobs, newest first
func (s *Store) List() []*models.AnalysisJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.AnalysisJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}

// DeleteOlderThan removes terminal jobs whose completion time is before the
// cutoff. Returns the number removed. Used by the retention cleanup job.
func (s *Store) DeleteOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if !job.Status.IsTerminal() {
			continue
		}
		completed := job.UpdatedAt
		if job.CompletedAt != nil {
			completed = *job.CompletedAt
		}
		if completed.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
