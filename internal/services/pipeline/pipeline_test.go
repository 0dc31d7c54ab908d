package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/discovery"
	"github.com/ternarybob/scrutor/internal/services/enhancer"
	"github.com/ternarybob/scrutor/internal/services/graph"
	"github.com/ternarybob/scrutor/internal/services/review"
	"github.com/ternarybob/scrutor/internal/storage/memory"
)

type fakeFetcher struct {
	files []models.WorkingFile
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, repoURL string, opts interfaces.FetchOptions) ([]models.WorkingFile, error) {
	f.calls++
	return f.files, f.err
}

type fakeReporter struct {
	enabled bool
	err     error
	pushed  int
}

func (r *fakeReporter) Enabled() bool { return r.enabled }

func (r *fakeReporter) PushReport(ctx context.Context, job *models.AnalysisJob) error {
	r.pushed++
	return r.err
}

func testWorkflow(store interfaces.JobStore, fetcher interfaces.SourceFetcher, reporter interfaces.ExternalReporter) *Workflow {
	logger := arbor.NewLogger()
	cfg := common.NewDefaultConfig().Analysis
	return NewWorkflow(WorkflowDeps{
		Store:     store,
		Fetcher:   fetcher,
		Discovery: discovery.NewService(nil, logger),
		Enhancer:  enhancer.NewService(nil, logger),
		Reviewer:  review.NewService(nil, logger),
		Graph:     graph.NewBuilder(logger),
		Reporter:  reporter,
		Config:    &cfg,
		Logger:    logger,
	})
}

func pendingJob(id string) *models.AnalysisJob {
	return &models.AnalysisJob{
		ID:        id,
		Status:    models.JobStatusPending,
		Service:   "claude",
		MaxFiles:  12,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPlanStages_EmptySetRoutesToNoFiles(t *testing.T) {
	plan := PlanStages(discovery.DiscoveredSet{}, models.StrategyHint{}, false)
	assert.Equal(t, []Stage{StageNoFiles}, plan)
}

func TestPlanStages_DefaultOrderIsPythonFirst(t *testing.T) {
	set := discovery.DiscoveredSet{
		"docker":     {"Dockerfile"},
		"javascript": {"app.js"},
		"python":     {"main.py"},
	}

	plan := PlanStages(set, models.StrategyHint{}, false)
	assert.Equal(t, []Stage{
		StagePython, StageJavaScript, StageDocker,
		StageEnhance, StageReview, StageGraph, StageDone,
	}, plan)
}

func TestPlanStages_PriorityLanguageRunsFirst(t *testing.T) {
	set := discovery.DiscoveredSet{
		"javascript": {"app.js"},
		"python":     {"main.py"},
	}

	plan := PlanStages(set, models.StrategyHint{PriorityLanguage: "javascript"}, false)
	assert.Equal(t, StageJavaScript, plan[0])
	assert.Equal(t, StagePython, plan[1])
}

func TestPlanStages_ReportStageGatedOnFlag(t *testing.T) {
	set := discovery.DiscoveredSet{"python": {"main.py"}}

	without := PlanStages(set, models.StrategyHint{}, false)
	assert.NotContains(t, without, StageReport)

	with := PlanStages(set, models.StrategyHint{}, true)
	assert.Contains(t, with, StageReport)
	assert.Equal(t, StageDone, with[len(with)-1])
}

func TestWorkflow_UploadJobCompletes(t *testing.T) {
	store := memory.NewStore()
	job := pendingJob("job-upload")
	require.NoError(t, store.Add(job))

	files := []models.WorkingFile{
		{Path: "config.py", Content: []byte("API_KEY = \"sk-0123456789abcdef0123456789abcdef\"\n"), Origin: models.OriginUploaded},
		{Path: "main.py", Content: []byte("import config\n\ndef run():\n    pass\n"), Origin: models.OriginUploaded},
	}

	w := testWorkflow(store, &fakeFetcher{}, nil)
	w.Run(context.Background(), "job-upload", files)

	got := store.Get("job-upload")
	require.NotNil(t, got)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.Progress)
	require.NotNil(t, got.CompletedAt)

	require.NotNil(t, got.Summary)
	assert.Equal(t, 2, got.Summary.TotalFiles)
	assert.Equal(t, got.Summary.TotalIssues, len(got.Issues))
	assert.NotEmpty(t, got.Issues)

	require.NotNil(t, got.DependencyGraph)
	assert.Len(t, got.DependencyGraph.Nodes, 2)
	require.Len(t, got.DependencyGraph.Links, 1)
	assert.Equal(t, "main.py", got.DependencyGraph.Links[0].Source)

	assert.Len(t, got.Metrics, 2)
}

func TestWorkflow_IssueFilePathsComeFromWorkingSet(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Add(pendingJob("job-paths")))

	files := []models.WorkingFile{
		{Path: "src/app.js", Content: []byte("var x = 1;\neval(x);\n")},
	}

	w := testWorkflow(store, &fakeFetcher{}, nil)
	w.Run(context.Background(), "job-paths", files)

	got := store.Get("job-paths")
	require.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotEmpty(t, got.Issues)
	for _, issue := range got.Issues {
		assert.Equal(t, "src/app.js", issue.FilePath)
	}
}

func TestWorkflow_RemoteJobFetches(t *testing.T) {
	store := memory.NewStore()
	job := pendingJob("job-remote")
	job.RepoURL = "https://github.com/acme/widgets"
	require.NoError(t, store.Add(job))

	fetcher := &fakeFetcher{files: []models.WorkingFile{
		{Path: "main.py", Content: []byte("print('ok')\n"), Origin: models.OriginRemote},
	}}

	w := testWorkflow(store, fetcher, nil)
	w.Run(context.Background(), "job-remote", nil)

	assert.Equal(t, 1, fetcher.calls)
	got := store.Get("job-remote")
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Summary.TotalFiles)
}

func TestWorkflow_FetchFailureFailsJob(t *testing.T) {
	store := memory.NewStore()
	job := pendingJob("job-fetch-fail")
	job.RepoURL = "https://github.com/acme/widgets"
	require.NoError(t, store.Add(job))

	w := testWorkflow(store, &fakeFetcher{err: fmt.Errorf("api rate limited")}, nil)
	w.Run(context.Background(), "job-fetch-fail", nil)

	got := store.Get("job-fetch-fail")
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, models.ErrorKindRemoteFetch, got.ErrorKind)
	assert.Contains(t, got.Error, "repository fetch failed")
}

func TestWorkflow_NoAnalyzableFiles(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Add(pendingJob("job-empty")))

	files := []models.WorkingFile{
		{Path: "README.md", Content: []byte("# readme\n")},
	}

	w := testWorkflow(store, &fakeFetcher{}, nil)
	w.Run(context.Background(), "job-empty", files)

	got := store.Get("job-empty")
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, "No analyzable files found", got.Message)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 0, got.Summary.TotalIssues)
	assert.Empty(t, got.Issues)
}

func TestWorkflow_CancelledBeforeStart(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Add(pendingJob("job-cancelled")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := testWorkflow(store, &fakeFetcher{}, nil)
	w.Run(ctx, "job-cancelled", []models.WorkingFile{
		{Path: "main.py", Content: []byte("print('ok')\n")},
	})

	got := store.Get("job-cancelled")
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, models.ErrorKindCancelled, got.ErrorKind)
}

func TestWorkflow_ReporterFailureIsNonFatal(t *testing.T) {
	store := memory.NewStore()
	job := pendingJob("job-report")
	job.IncludeNotion = true
	require.NoError(t, store.Add(job))

	reporter := &fakeReporter{enabled: true, err: fmt.Errorf("page rejected content")}
	w := testWorkflow(store, &fakeFetcher{}, reporter)
	w.Run(context.Background(), "job-report", []models.WorkingFile{
		{Path: "main.py", Content: []byte("print('ok')\n")},
	})

	got := store.Get("job-report")
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, reporter.pushed)

	found := false
	for _, e := range got.StageErrors {
		if strings.Contains(e, "external report failed") {
			found = true
		}
	}
	assert.True(t, found, "expected a reporter stage error, got %v", got.StageErrors)
}

func TestWorkflow_ReporterSkippedWhenDisabled(t *testing.T) {
	store := memory.NewStore()
	job := pendingJob("job-no-report")
	job.IncludeNotion = true
	require.NoError(t, store.Add(job))

	reporter := &fakeReporter{enabled: false}
	w := testWorkflow(store, &fakeFetcher{}, reporter)
	w.Run(context.Background(), "job-no-report", []models.WorkingFile{
		{Path: "main.py", Content: []byte("print('ok')\n")},
	})

	assert.Equal(t, 0, reporter.pushed)
	assert.Equal(t, models.JobStatusCompleted, store.Get("job-no-report").Status)
}

func TestWorkflow_NotifyReceivesSnapshots(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Add(pendingJob("job-notify")))

	var statuses []models.JobStatus
	w := testWorkflow(store, &fakeFetcher{}, nil)
	w.notify = func(job *models.AnalysisJob) {
		statuses = append(statuses, job.Status)
	}

	w.Run(context.Background(), "job-notify", []models.WorkingFile{
		{Path: "main.py", Content: []byte("print('ok')\n")},
	})

	require.NotEmpty(t, statuses)
	assert.Equal(t, models.JobStatusProcessing, statuses[0])
	assert.Equal(t, models.JobStatusCompleted, statuses[len(statuses)-1])
}

func TestWorkerPool_ProcessesSubmission(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Add(pendingJob("job-pool")))

	w := testWorkflow(store, &fakeFetcher{}, nil)
	pool := NewWorkerPool(w, arbor.NewLogger(), 2)
	pool.Start()
	defer pool.Stop()

	require.NoError(t, pool.Submit(Submission{
		JobID: "job-pool",
		Files: []models.WorkingFile{{Path: "main.py", Content: []byte("print('ok')\n")}},
	}))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job := store.Get("job-pool"); job != nil && job.Status.IsTerminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, models.JobStatusCompleted, store.Get("job-pool").Status)
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	store := memory.NewStore()
	w := testWorkflow(store, &fakeFetcher{}, nil)
	pool := NewWorkerPool(w, arbor.NewLogger(), 1)
	pool.Start()
	pool.Stop()

	assert.Error(t, pool.Submit(Submission{JobID: "late"}))
}
