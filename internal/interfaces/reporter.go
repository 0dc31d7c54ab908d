package interfaces

import (
	"context"

	"github.com/ternarybob/scrutor/internal/models"
)

// ExternalReporter pushes rendered analysis results to an external page
// system. Failures mark the reporting step failed without failing the job.
type ExternalReporter interface {
	// Enabled reports whether the reporter is fully configured
	Enabled() bool

	// PushReport publishes the comprehensive block document for a job
	PushReport(ctx context.Context, job *models.AnalysisJob) error
}
