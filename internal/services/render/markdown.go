package render

import (
	"fmt"
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

var severityEmoji = map[string]string{
	"CRITICAL": "🔴",
	"HIGH":     "🟠",
	"MEDIUM":   "🟡",
	"LOW":      "🟢",
}

// Markdown renders the report as a flat Markdown document
func Markdown(job *models.AnalysisJob) []byte {
	var b strings.Builder

	summary := job.Summary
	if summary == nil {
		summary = models.NewAnalysisSummary(0, job.Issues)
	}

	b.WriteString("# Code Analysis Report\n\n")
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- **Total Files**: %d\n", summary.TotalFiles)
	fmt.Fprintf(&b, "- **Total Issues**: %d\n\n", summary.TotalIssues)

	b.WriteString("### Severity Distribution\n")
	dist := summary.SeverityDistribution
	fmt.Fprintf(&b, "- **CRITICAL**: %d (%.1f%%)\n", dist.Critical.Count, dist.Critical.Percentage)
	fmt.Fprintf(&b, "- **HIGH**: %d (%.1f%%)\n", dist.High.Count, dist.High.Percentage)
	fmt.Fprintf(&b, "- **MEDIUM**: %d (%.1f%%)\n", dist.Medium.Count, dist.Medium.Percentage)
	fmt.Fprintf(&b, "- **LOW**: %d (%.1f%%)\n\n", dist.Low.Count, dist.Low.Percentage)

	if job.AIReview != nil && job.AIReview.ExecutiveSummary != "" {
		b.WriteString("## Executive Summary\n\n")
		b.WriteString(job.AIReview.ExecutiveSummary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Issues\n")

	issues := append([]models.CodeIssue(nil), job.Issues...)
	models.SortIssues(issues)
	for _, issue := range issues {
		severity := strings.ToUpper(string(issue.Severity))
		emoji, ok := severityEmoji[severity]
		if !ok {
			emoji = "⚪"
		}

		fmt.Fprintf(&b, "\n### %s %s\n\n", emoji, issue.Title)
		fmt.Fprintf(&b, "- **File**: `%s`\n", issue.FilePath)
		fmt.Fprintf(&b, "- **Line**: %d\n", issue.LineNumber)
		fmt.Fprintf(&b, "- **Severity**: %s\n", severity)
		fmt.Fprintf(&b, "- **Category**: %s\n\n", issue.Category)

		if issue.Suggestion != "" {
			fmt.Fprintf(&b, "**Suggestion**:\n```\n%s\n```\n", issue.Suggestion)
		}
		if issue.CodeSnippet != "" {
			fmt.Fprintf(&b, "**Code Snippet**:\n```\n%s\n```\n", issue.CodeSnippet)
		}
		b.WriteString("\n---\n")
	}

	return []byte(b.String())
}
