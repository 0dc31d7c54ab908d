package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/models"
)

// Submission is one queued analysis job. Files are pre-materialized for
// upload jobs and empty for remote jobs, which fetch inside the workflow.
type Submission struct {
	JobID string
	Files []models.WorkingFile
}

// WorkerPool runs submitted jobs on a fixed set of long-lived workers.
// Exactly one worker processes a given job; a submission is dequeued once.
type WorkerPool struct {
	workflow   *Workflow
	logger     arbor.ILogger
	numWorkers int
	queue      chan Submission

	mu      sync.Mutex
	running map[string]context.CancelFunc

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorkerPool(workflow *Workflow, logger arbor.ILogger, numWorkers int) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workflow:   workflow,
		logger:     logger,
		numWorkers: numWorkers,
		queue:      make(chan Submission, numWorkers*4),
		running:    make(map[string]context.CancelFunc),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker goroutines
func (wp *WorkerPool) Start() {
	wp.logger.Info().
		Int("num_workers", wp.numWorkers).
		Msg("Starting analysis worker pool")

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop cancels all in-flight jobs and waits for the workers to drain
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Msg("Stopping analysis worker pool...")
	wp.cancel()
	wp.wg.Wait()
	wp.logger.Info().Msg("Analysis worker pool stopped")
}

// Submit enqueues a job without blocking. Returns an error when the queue is
// full or the pool is shutting down.
func (wp *WorkerPool) Submit(sub Submission) error {
	// Checked first on its own: in a combined select a ready queue send
	// races the closed Done channel, letting post-shutdown submissions
	// through with no worker left to drain them.
	select {
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
	}

	select {
	case wp.queue <- sub:
		return nil
	default:
		return fmt.Errorf("job queue is full")
	}
}

// Cancel aborts a running job. Returns false when the job is not currently
// being processed.
func (wp *WorkerPool) Cancel(jobID string) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	cancel, ok := wp.running[jobID]
	if ok {
		cancel()
	}
	return ok
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	wp.logger.Debug().
		Int("worker_id", workerID).
		Msg("Analysis worker started")

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Analysis worker stopping")
			return
		case sub := <-wp.queue:
			wp.process(workerID, sub)
		}
	}
}

func (wp *WorkerPool) process(workerID int, sub Submission) {
	jobCtx, cancel := context.WithCancel(wp.ctx)
	defer cancel()

	wp.mu.Lock()
	wp.running[sub.JobID] = cancel
	wp.mu.Unlock()

	defer func() {
		wp.mu.Lock()
		delete(wp.running, sub.JobID)
		wp.mu.Unlock()
	}()

	wp.logger.Info().
		Int("worker_id", workerID).
		Str("job_id", sub.JobID).
		Msg("Processing analysis job")

	wp.workflow.Run(jobCtx, sub.JobID, sub.Files)
}
