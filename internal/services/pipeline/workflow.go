package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/analyzers"
	"github.com/ternarybob/scrutor/internal/services/discovery"
	"github.com/ternarybob/scrutor/internal/services/enhancer"
	"github.com/ternarybob/scrutor/internal/services/graph"
	"github.com/ternarybob/scrutor/internal/services/review"
)

// Workflow runs the full analysis pipeline for one job. The worker that
// calls Run owns the job's mutation rights for its entire lifetime; handlers
// only ever read snapshots from the store.
type Workflow struct {
	store     interfaces.JobStore
	fetcher   interfaces.SourceFetcher
	discovery *discovery.Service
	enhancer  *enhancer.Service
	reviewer  *review.Service
	graph     *graph.Builder
	reporter  interfaces.ExternalReporter
	archive   interfaces.ArchiveStorage
	config    *common.AnalysisConfig
	logger    arbor.ILogger

	selectStages func(service string) *StageServices
	notify       func(job *models.AnalysisJob)
}

// StageServices bundles the LLM-backed stage services for one provider
type StageServices struct {
	Discovery *discovery.Service
	Enhancer  *enhancer.Service
	Reviewer  *review.Service
	Reporter  interfaces.ExternalReporter
}

// WorkflowDeps bundles the services a workflow needs
type WorkflowDeps struct {
	Store     interfaces.JobStore
	Fetcher   interfaces.SourceFetcher
	Discovery *discovery.Service
	Enhancer  *enhancer.Service
	Reviewer  *review.Service
	Graph     *graph.Builder
	Reporter  interfaces.ExternalReporter
	Archive   interfaces.ArchiveStorage
	Config    *common.AnalysisConfig
	Logger    arbor.ILogger

	// SelectStages resolves the stage services for a job's requested provider.
	// Optional; when nil, or when it returns nil, the defaults above are used.
	SelectStages func(service string) *StageServices

	// Notify is called with a job snapshot after every store write. Optional;
	// used to fan out status updates to websocket subscribers.
	Notify func(job *models.AnalysisJob)
}

func NewWorkflow(deps WorkflowDeps) *Workflow {
	return &Workflow{
		store:     deps.Store,
		fetcher:   deps.Fetcher,
		discovery: deps.Discovery,
		enhancer:  deps.Enhancer,
		reviewer:  deps.Reviewer,
		graph:     deps.Graph,
		reporter:  deps.Reporter,
		archive:   deps.Archive,
		config:    deps.Config,
		logger:    deps.Logger,

		selectStages: deps.SelectStages,
		notify:       deps.Notify,
	}
}

// Run executes the pipeline for jobID. Files may be pre-materialized (upload
// jobs); otherwise the job's repository URL is fetched. Only fetch failures,
// cancellation, and unclassified panics fail the job; every other stage
// failure is recorded and the job proceeds to completion.
func (w *Workflow) Run(ctx context.Context, jobID string, files []models.WorkingFile) {
	job := w.store.Get(jobID)
	if job == nil {
		w.logger.Warn().Str("job_id", jobID).Msg("Job vanished before processing started")
		return
	}

	// The submission picked a provider; run with that provider's stages
	if w.selectStages != nil {
		if s := w.selectStages(job.Service); s != nil {
			run := *w
			run.discovery = s.Discovery
			run.enhancer = s.Enhancer
			run.reviewer = s.Reviewer
			if s.Reporter != nil {
				run.reporter = s.Reporter
			}
			w = &run
		}
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Str("job_id", jobID).Msgf("Pipeline panic: %v", r)
			w.fail(jobID, models.ErrorKindUnexpected, fmt.Sprintf("internal error: %v", r))
		}
	}()

	w.update(jobID, processingUpdate(5, "Starting analysis"))

	// Fetch stage (remote jobs only); a fetch failure is fatal
	if len(files) == 0 && job.RepoURL != "" {
		var err error
		files, err = w.fetcher.Fetch(ctx, job.RepoURL, interfaces.FetchOptions{
			MaxFiles:        job.MaxFiles,
			MaxFileBytes:    w.config.MaxFileBytes,
			MaxFileLines:    w.config.MaxFileLines,
			IncludePatterns: job.IncludePatterns,
		})
		if err != nil {
			if ctx.Err() != nil {
				w.fail(jobID, models.ErrorKindCancelled, "analysis cancelled")
				return
			}
			w.fail(jobID, models.ErrorKindRemoteFetch, fmt.Sprintf("repository fetch failed: %s", err))
			return
		}
	}

	if w.cancelled(ctx, jobID) {
		return
	}

	// Discovery
	w.update(jobID, processingUpdate(stageProgress(StageDiscovery, 0, 0), "Discovering analyzable files"))
	set := w.discovery.Discover(files, job.MaxFiles)
	hint := w.discovery.Strategy(ctx, set)

	plan := PlanStages(set, hint, job.IncludeNotion)
	w.logger.Info().
		Str("job_id", jobID).
		Int("files", set.TotalFiles()).
		Str("priority", hint.PriorityLanguage).
		Msg("Analysis plan ready")

	fileIndex := indexFiles(files)
	var (
		issues   []models.CodeIssue
		metrics  []models.FileMetrics
		metadata map[string]models.FileMetadata
		depGraph *models.DependencyGraph
		aiReview *models.ReviewEnvelope
	)

	analyzerCount := 0
	for _, s := range plan {
		if languageFor(s) != "" {
			analyzerCount++
		}
	}

	analyzerIndex := 0
	for _, stage := range plan {
		if w.cancelled(ctx, jobID) {
			return
		}

		switch stage {
		case StageNoFiles:
			w.complete(jobID, interfaces.JobUpdate{
				Summary: models.NewAnalysisSummary(0, nil),
				Message: strPtr("No analyzable files found"),
			})
			return

		case StagePython, StageJavaScript, StageDocker:
			lang := languageFor(stage)
			w.update(jobID, processingUpdate(
				stageProgress(stage, analyzerIndex, analyzerCount),
				fmt.Sprintf("Analyzing %s files", lang)))
			analyzerIndex++

			stageIssues, stageMetrics := w.analyzeLanguage(ctx, jobID, lang, set[lang], fileIndex)
			issues = append(issues, stageIssues...)
			metrics = append(metrics, stageMetrics...)

		case StageEnhance:
			w.update(jobID, processingUpdate(stageProgress(stage, 0, 0), "Enhancing findings"))
			metadata = w.enhanceFiles(ctx, set, fileIndex, issues)

		case StageReview:
			w.update(jobID, processingUpdate(stageProgress(stage, 0, 0), "Running AI review"))
			analyzed := workingSubset(set, fileIndex)
			aiReview, issues = w.reviewer.Review(ctx, analyzed, issues, metadata)
			if aiReview != nil && aiReview.Error != "" {
				w.stageError(jobID, fmt.Sprintf("ai review degraded: %s", aiReview.Error))
			}

		case StageGraph:
			w.update(jobID, processingUpdate(stageProgress(stage, 0, 0), "Building dependency graph"))
			depGraph = w.graph.Build(workingSubset(set, fileIndex))

		case StageReport:
			w.update(jobID, processingUpdate(stageProgress(stage, 0, 0), "Publishing external report"))
			w.pushReport(ctx, jobID, set, issues, metadata, aiReview, depGraph)

		case StageDone:
			// handled after the loop
		}
	}

	summary := models.NewAnalysisSummary(set.TotalFiles(), issues)
	w.complete(jobID, interfaces.JobUpdate{
		Summary:         summary,
		Issues:          issues,
		Metrics:         metrics,
		DependencyGraph: depGraph,
		FileMetadata:    metadata,
		AIReview:        aiReview,
		Message:         strPtr("Analysis complete"),
	})

	w.archiveJob(ctx, jobID)
}

// analyzeLanguage fans file analysis out across config.FileConcurrency
// goroutines. Each goroutine owns its analyzer instance; analyzers keep
// per-run parser state and are not shared. A panic while analyzing one file
// discards that file's findings and the stage continues.
func (w *Workflow) analyzeLanguage(ctx context.Context, jobID, lang string, paths []string, fileIndex map[string]models.WorkingFile) ([]models.CodeIssue, []models.FileMetrics) {
	concurrency := w.config.FileConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	work := make(chan string)
	results := make(chan fileResult, len(paths))
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			analyzer := analyzers.ForLanguage(lang)
			if analyzer == nil {
				return
			}
			for path := range work {
				w.analyzeFile(jobID, analyzer, path, fileIndex[path].Content, results)
			}
		}()
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		work <- path
	}
	close(work)
	wg.Wait()
	close(results)

	byPath := map[string]fileResult{}
	for r := range results {
		byPath[r.path] = r
	}

	// Deterministic output order regardless of goroutine scheduling
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	var issues []models.CodeIssue
	var metrics []models.FileMetrics
	for _, path := range sorted {
		r, ok := byPath[path]
		if !ok {
			continue
		}
		issues = append(issues, r.issues...)
		metrics = append(metrics, r.metrics)
	}
	return issues, metrics
}

// fileResult carries one file's findings out of the analyzer fan-out
type fileResult struct {
	path    string
	issues  []models.CodeIssue
	metrics models.FileMetrics
}

// analyzeFile isolates a single file analysis so one panicking file cannot
// take down the worker goroutine
func (w *Workflow) analyzeFile(jobID string, analyzer analyzers.Analyzer, path string, content []byte, results chan<- fileResult) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Str("job_id", jobID).
				Str("file", path).
				Msgf("Analyzer crashed: %v", r)
			w.stageError(jobID, fmt.Sprintf("analyzer crashed on %s", path))
		}
	}()

	fileIssues, fileMetrics := analyzer.Analyze(path, content)
	results <- fileResult{path, fileIssues, fileMetrics}
}

// enhanceFiles runs the per-file LLM enrichment for every analyzed file that
// produced issues. Enhancement failures degrade silently inside the enhancer.
func (w *Workflow) enhanceFiles(ctx context.Context, set discovery.DiscoveredSet, fileIndex map[string]models.WorkingFile, issues []models.CodeIssue) map[string]models.FileMetadata {
	issuesByFile := map[string][]int{}
	for i, issue := range issues {
		issuesByFile[issue.FilePath] = append(issuesByFile[issue.FilePath], i)
	}

	metadata := map[string]models.FileMetadata{}
	for _, lang := range set.Languages() {
		for _, path := range set[lang] {
			if ctx.Err() != nil {
				return metadata
			}
			indices := issuesByFile[path]
			if len(indices) == 0 {
				continue
			}
			fileIssues := make([]models.CodeIssue, len(indices))
			for i, idx := range indices {
				fileIssues[i] = issues[idx]
			}
			meta := w.enhancer.EnhanceFile(ctx, fileIndex[path], fileIssues)
			metadata[path] = meta
			for i, idx := range indices {
				issues[idx] = fileIssues[i]
			}
		}
	}
	return metadata
}

// pushReport publishes the external block document. Failure marks the
// reporting step failed without failing the job.
func (w *Workflow) pushReport(ctx context.Context, jobID string, set discovery.DiscoveredSet, issues []models.CodeIssue, metadata map[string]models.FileMetadata, aiReview *models.ReviewEnvelope, depGraph *models.DependencyGraph) {
	if w.reporter == nil || !w.reporter.Enabled() {
		return
	}

	snapshot := w.store.Get(jobID)
	if snapshot == nil {
		return
	}
	snapshot.Issues = issues
	snapshot.FileMetadata = metadata
	snapshot.AIReview = aiReview
	snapshot.DependencyGraph = depGraph
	snapshot.Summary = models.NewAnalysisSummary(set.TotalFiles(), issues)

	if err := w.reporter.PushReport(ctx, snapshot); err != nil {
		w.logger.Warn().Err(err).Str("job_id", jobID).Msg("External report push failed")
		w.stageError(jobID, fmt.Sprintf("external report failed: %s", err))
	}
}

// archiveJob persists the terminal snapshot and graph artifact. Best effort;
// archive failures are logged and never surface on the job.
func (w *Workflow) archiveJob(ctx context.Context, jobID string) {
	if w.archive == nil {
		return
	}
	job := w.store.Get(jobID)
	if job == nil {
		return
	}
	if err := w.archive.SaveJob(ctx, job); err != nil {
		w.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to archive job snapshot")
	}
	if job.DependencyGraph != nil {
		if err := w.archive.SaveGraph(ctx, jobID, job.DependencyGraph); err != nil {
			w.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to archive dependency graph")
		}
	}
}

// cancelled checks the context and fails the job when cancellation has been
// requested. Called at every suspension point.
func (w *Workflow) cancelled(ctx context.Context, jobID string) bool {
	if ctx.Err() == nil {
		return false
	}
	w.fail(jobID, models.ErrorKindCancelled, "analysis cancelled")
	return true
}

func (w *Workflow) update(jobID string, update interfaces.JobUpdate) {
	if err := w.store.Update(jobID, update); err != nil {
		w.logger.Warn().Err(err).Str("job_id", jobID).Msg("Job update rejected")
		return
	}
	w.publish(jobID)
}

func (w *Workflow) stageError(jobID, msg string) {
	if err := w.store.Update(jobID, interfaces.JobUpdate{StageError: &msg}); err != nil {
		w.logger.Warn().Err(err).Str("job_id", jobID).Msg("Stage error update rejected")
	}
}

func (w *Workflow) complete(jobID string, update interfaces.JobUpdate) {
	status := models.JobStatusCompleted
	progress := 100.0
	update.Status = &status
	update.Progress = &progress
	update.CompletedNow = true
	w.update(jobID, update)

	w.logger.Info().Str("job_id", jobID).Msg("Analysis job completed")
}

func (w *Workflow) fail(jobID string, kind models.ErrorKind, msg string) {
	status := models.JobStatusFailed
	w.update(jobID, interfaces.JobUpdate{
		Status:       &status,
		Error:        &msg,
		ErrorKind:    &kind,
		CompletedNow: true,
	})

	w.logger.Error().
		Str("job_id", jobID).
		Str("kind", string(kind)).
		Msg(msg)
}

func (w *Workflow) publish(jobID string) {
	if w.notify == nil {
		return
	}
	if job := w.store.Get(jobID); job != nil {
		w.notify(job)
	}
}

func processingUpdate(progress float64, message string) interfaces.JobUpdate {
	status := models.JobStatusProcessing
	return interfaces.JobUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	}
}

func indexFiles(files []models.WorkingFile) map[string]models.WorkingFile {
	index := make(map[string]models.WorkingFile, len(files))
	for _, f := range files {
		index[f.Path] = f
	}
	return index
}

// workingSubset returns the discovered files in deterministic order
func workingSubset(set discovery.DiscoveredSet, fileIndex map[string]models.WorkingFile) []models.WorkingFile {
	var paths []string
	for _, lang := range set.Languages() {
		paths = append(paths, set[lang]...)
	}
	sort.Strings(paths)

	files := make([]models.WorkingFile, 0, len(paths))
	for _, p := range paths {
		if f, ok := fileIndex[p]; ok {
			files = append(files, f)
		}
	}
	return files
}

func strPtr(s string) *string { return &s }
