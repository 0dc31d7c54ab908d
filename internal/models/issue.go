package models

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Severity classifies how urgent an issue is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Category classifies what kind of problem an issue describes
type Category string

const (
	CategorySecurity        Category = "security"
	CategoryPerformance     Category = "performance"
	CategoryDuplication     Category = "duplication"
	CategoryComplexity      Category = "complexity"
	CategoryTesting         Category = "testing"
	CategoryDocumentation   Category = "documentation"
	CategoryStyle           Category = "style"
	CategoryCorrectness     Category = "correctness"
	CategoryMaintainability Category = "maintainability"
)

// severityRank orders severities from most to least urgent
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank returns the sort position of a severity (critical first).
// Unknown severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[Severity(strings.ToLower(string(s)))]; ok {
		return r
	}
	return 4
}

// CodeIssue is a single finding emitted by an analyzer or the AI review.
// Analyzer-produced issues carry a deterministic ID derived from file, line,
// and title; AI-produced issues carry a namespaced ID assigned by the model.
type CodeIssue struct {
	ID              string   `json:"id"`
	Category        Category `json:"category"`
	Severity        Severity `json:"severity"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	FilePath        string   `json:"file_path"`
	LineNumber      int      `json:"line_number,omitempty"`
	Column          int      `json:"column,omitempty"`
	CodeSnippet     string   `json:"code_snippet,omitempty"`
	Suggestion      string   `json:"suggestion,omitempty"`
	ImpactScore     float64  `json:"impact_score"`
	AIReviewContext string   `json:"ai_review_context,omitempty"`
}

// IssueID builds the stable analyzer issue ID from file path, line, and title.
// The same finding on identical input must always yield an identical ID.
func IssueID(filePath string, line int, title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return fmt.Sprintf("%s-%d-%s", filepath.Base(filePath), line, b.String())
}

// SortIssues orders issues by severity (critical first), then file path,
// then line number, for deterministic output.
func SortIssues(issues []CodeIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		ri, rj := issues[i].Severity.Rank(), issues[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		if issues[i].FilePath != issues[j].FilePath {
			return issues[i].FilePath < issues[j].FilePath
		}
		return issues[i].LineNumber < issues[j].LineNumber
	})
}

// FileMetrics holds per-file measurements produced alongside issues
type FileMetrics struct {
	FilePath              string  `json:"file_path"`
	Language              string  `json:"language"`
	LinesOfCode           int     `json:"lines_of_code"`
	ComplexityScore       float64 `json:"complexity_score"`
	DuplicationPercentage float64 `json:"duplication_percentage"`
	TestCoverage          float64 `json:"test_coverage,omitempty"`
}
