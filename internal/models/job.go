package models

import (
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of an analysis job.
// Transitions are monotonic: pending -> processing -> completed|failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is an end state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ErrorKind classifies pipeline failures recorded on a job
type ErrorKind string

const (
	ErrorKindInputValidation  ErrorKind = "input_validation"
	ErrorKindRemoteFetch      ErrorKind = "remote_api"
	ErrorKindParseFailure     ErrorKind = "parse_failure"
	ErrorKindAnalyzerInternal ErrorKind = "analyzer_internal"
	ErrorKindLLMFailure       ErrorKind = "llm_failure"
	ErrorKindReporterFailure  ErrorKind = "reporter_failure"
	ErrorKindCancelled        ErrorKind = "cancelled"
	ErrorKindUnexpected       ErrorKind = "unexpected"
)

// WorkingFileOrigin marks where a working file came from
type WorkingFileOrigin string

const (
	OriginUploaded WorkingFileOrigin = "uploaded"
	OriginRemote   WorkingFileOrigin = "remote"
)

// WorkingFile is a single materialized source file. Immutable once collected.
type WorkingFile struct {
	Path    string            `json:"path"`
	Content []byte            `json:"-"`
	Origin  WorkingFileOrigin `json:"origin"`
}

// FileMetadata carries LLM-derived enrichment for one file
type FileMetadata struct {
	Truncated            bool              `json:"truncated"`
	Description          string            `json:"description,omitempty"`
	EnhancedSuggestions  map[string]string `json:"enhanced_suggestions,omitempty"`
	BusinessImpact       string            `json:"business_impact,omitempty"`
	ArchitecturalConcerns []string         `json:"architectural_concerns,omitempty"`
}

// AnalysisJob is the job-store record for one submission. Created by a
// submission handler, mutated only by the worker that owns the job, read by
// status/graph/report handlers.
type AnalysisJob struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Service     string    `json:"service"`
	RepoURL     string    `json:"repo_url,omitempty"`
	IncludeNotion   bool     `json:"include_notion"`
	MaxFiles        int      `json:"max_files"`
	IncludePatterns []string `json:"include_patterns,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Progress float64 `json:"progress,omitempty"`
	Message  string  `json:"message,omitempty"`

	// Error is set only when Status is failed
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// StageErrors collects non-fatal stage failures; a completed job may
	// carry a non-empty list.
	StageErrors []string `json:"stage_errors,omitempty"`

	Summary         *AnalysisSummary        `json:"summary,omitempty"`
	Issues          []CodeIssue             `json:"issues,omitempty"`
	Metrics         []FileMetrics           `json:"metrics,omitempty"`
	DependencyGraph *DependencyGraph        `json:"dependency_graph,omitempty"`
	FileMetadata    map[string]FileMetadata `json:"file_metadata,omitempty"`
	AIReview        *ReviewEnvelope         `json:"ai_review,omitempty"`
}

// Clone returns a deep-enough copy for handler snapshots. Slices and maps are
// copied so readers never observe worker mutations mid-flight.
func (j *AnalysisJob) Clone() *AnalysisJob {
	c := *j
	if j.IncludePatterns != nil {
		c.IncludePatterns = append([]string(nil), j.IncludePatterns...)
	}
	if j.StageErrors != nil {
		c.StageErrors = append([]string(nil), j.StageErrors...)
	}
	if j.Issues != nil {
		c.Issues = append([]CodeIssue(nil), j.Issues...)
	}
	if j.Metrics != nil {
		c.Metrics = append([]FileMetrics(nil), j.Metrics...)
	}
	if j.FileMetadata != nil {
		c.FileMetadata = make(map[string]FileMetadata, len(j.FileMetadata))
		for k, v := range j.FileMetadata {
			c.FileMetadata[k] = v
		}
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// SeverityCount holds count and percentage for one severity bucket
type SeverityCount struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SeverityDistribution is the full four-bucket severity table
type SeverityDistribution struct {
	Critical SeverityCount `json:"CRITICAL"`
	High     SeverityCount `json:"HIGH"`
	Medium   SeverityCount `json:"MEDIUM"`
	Low      SeverityCount `json:"LOW"`
}

// AnalysisSummary summarizes a completed job
type AnalysisSummary struct {
	TotalFiles           int                  `json:"total_files"`
	TotalIssues          int                  `json:"total_issues"`
	SeverityDistribution SeverityDistribution `json:"severity_distribution"`
}

// NewAnalysisSummary computes the summary for a final issue list.
// Percentages are all zero when there are no issues.
func NewAnalysisSummary(totalFiles int, issues []CodeIssue) *AnalysisSummary {
	counts := map[Severity]int{}
	for _, issue := range issues {
		counts[NormalizeSeverity(issue.Severity)]++
	}
	total := len(issues)
	pct := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100.0
	}
	return &AnalysisSummary{
		TotalFiles:  totalFiles,
		TotalIssues: total,
		SeverityDistribution: SeverityDistribution{
			Critical: SeverityCount{Count: counts[SeverityCritical], Percentage: pct(counts[SeverityCritical])},
			High:     SeverityCount{Count: counts[SeverityHigh], Percentage: pct(counts[SeverityHigh])},
			Medium:   SeverityCount{Count: counts[SeverityMedium], Percentage: pct(counts[SeverityMedium])},
			Low:      SeverityCount{Count: counts[SeverityLow], Percentage: pct(counts[SeverityLow])},
		},
	}
}

// NormalizeSeverity lowercases a severity and maps unknown values to low
func NormalizeSeverity(s Severity) Severity {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
