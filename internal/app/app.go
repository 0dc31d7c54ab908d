package app

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/handlers"
	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/services/discovery"
	"github.com/ternarybob/scrutor/internal/services/enhancer"
	"github.com/ternarybob/scrutor/internal/services/fetcher"
	"github.com/ternarybob/scrutor/internal/services/graph"
	"github.com/ternarybob/scrutor/internal/services/llm"
	"github.com/ternarybob/scrutor/internal/services/pipeline"
	"github.com/ternarybob/scrutor/internal/services/render"
	"github.com/ternarybob/scrutor/internal/services/retention"
	"github.com/ternarybob/scrutor/internal/services/review"
	"github.com/ternarybob/scrutor/internal/storage"
	"github.com/ternarybob/scrutor/internal/storage/memory"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	// Job state
	JobStore *memory.Store
	Archive  interfaces.ArchiveStorage

	// Pipeline
	Fetcher   *fetcher.GitHubFetcher
	Workflow  *pipeline.Workflow
	Pool      *pipeline.WorkerPool
	Retention *retention.Scheduler

	// Per-provider LLM services, closed on shutdown
	llms []interfaces.LLMService

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	AnalyzeHandler *handlers.AnalyzeHandler
	StatusHandler  *handlers.StatusHandler
	GraphHandler   *handlers.GraphHandler
	ReportHandler  *handlers.ReportHandler
	JobsHandler    *handlers.JobsHandler
	WSHandler      *handlers.WebSocketHandler
}

// New wires the application together. The returned app is not yet running;
// call Start to bring up the worker pool and retention scheduler.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		Config:    config,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	a.JobStore = memory.NewStore()

	archive, err := storage.NewArchive(logger, config)
	if err != nil {
		cancel()
		return nil, err
	}
	a.Archive = archive

	a.Fetcher = fetcher.NewGitHubFetcher(config.GitHub.Token, logger)

	// One stage set per provider with credentials. Jobs pick their provider
	// at submission; unconfigured providers fall back to the degraded
	// defaults below.
	stageSets := make(map[string]*pipeline.StageServices)
	for provider, ok := range llm.Available(config) {
		if !ok {
			continue
		}
		svc, err := llm.NewLLMService(config, provider, logger)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("LLM provider unavailable")
			continue
		}
		a.llms = append(a.llms, svc)
		stageSets[provider] = &pipeline.StageServices{
			Discovery: discovery.NewService(svc, logger),
			Enhancer:  enhancer.NewService(svc, logger),
			Reviewer:  review.NewService(svc, logger),
			Reporter:  render.NewNotionReporter(&config.Notion, svc, logger),
		}
	}
	if len(stageSets) == 0 {
		logger.Warn().Msg("No LLM provider configured; enhancement and AI review will be skipped")
	}

	// Degraded defaults with no LLM; every stage handles a nil model
	graphBuilder := graph.NewBuilder(logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.JobStore, logger)

	a.Workflow = pipeline.NewWorkflow(pipeline.WorkflowDeps{
		Store:     a.JobStore,
		Fetcher:   a.Fetcher,
		Discovery: discovery.NewService(nil, logger),
		Enhancer:  enhancer.NewService(nil, logger),
		Reviewer:  review.NewService(nil, logger),
		Graph:     graphBuilder,
		Reporter:  render.NewNotionReporter(&config.Notion, nil, logger),
		Archive:   archive,
		Config:    &config.Analysis,
		Logger:    logger,
		SelectStages: func(service string) *pipeline.StageServices {
			return stageSets[service]
		},
		Notify: a.WSHandler.Publish,
	})

	a.Pool = pipeline.NewWorkerPool(a.Workflow, logger, config.Analysis.Workers)

	if config.Retention.Enabled {
		sched, err := retention.NewScheduler(a.JobStore, &config.Retention, logger)
		if err != nil {
			cancel()
			return nil, err
		}
		a.Retention = sched
	}

	a.APIHandler = handlers.NewAPIHandler(config, logger)
	a.AnalyzeHandler = handlers.NewAnalyzeHandler(config, a.JobStore, a.Pool, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.JobStore, logger)
	a.GraphHandler = handlers.NewGraphHandler(a.JobStore, logger)
	a.ReportHandler = handlers.NewReportHandler(a.JobStore, logger)
	a.JobsHandler = handlers.NewJobsHandler(a.JobStore, a.Pool, logger)

	return a, nil
}

// Start brings up the background components
func (a *App) Start() error {
	a.Pool.Start()

	if a.Retention != nil {
		if err := a.Retention.Start(); err != nil {
			return err
		}
	}

	a.Logger.Info().
		Int("workers", a.Config.Analysis.Workers).
		Bool("archive", a.Archive != nil).
		Msg("Application started")
	return nil
}

// Close shuts down background components and releases resources
func (a *App) Close() {
	a.cancelCtx()

	if a.Retention != nil {
		a.Retention.Stop()
	}
	a.Pool.Stop()

	for _, svc := range a.llms {
		if err := svc.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close job archive")
		}
	}

	a.Logger.Info().Msg("Application stopped")
}
