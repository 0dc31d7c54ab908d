package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (job-scoped progress stream)
	mux.HandleFunc("/api/ws/", s.app.WSHandler.HandleWebSocket)

	// API routes - Analysis submission
	mux.HandleFunc("/api/analyze/remote", s.app.AnalyzeHandler.RemoteHandler)
	mux.HandleFunc("/api/analyze/upload", s.app.AnalyzeHandler.UploadHandler)

	// API routes - Progress and results
	mux.HandleFunc("/api/status/", s.app.StatusHandler.GetStatusHandler) // GET /{job_id}
	mux.HandleFunc("/api/graph/", s.app.GraphHandler.GetGraphHandler)    // GET /{job_id}
	mux.HandleFunc("/api/report", s.app.ReportHandler.GenerateReportHandler)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.JobsHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // Handles /api/jobs/{id}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes /api/jobs/{id} requests
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"DELETE": s.app.JobsHandler.DeleteJobHandler,
	})
}
