package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/ternarybob/scrutor/internal/models"
)

var markdown = goldmark.New()

// HTML renders a self-contained report document: summary, severity
// distribution, and issue blocks sorted by severity. The AI executive
// summary, when present, is rendered from Markdown.
func HTML(job *models.AnalysisJob) []byte {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html>
<html>
<head>
    <title>Code Analysis Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; }
        .container { max-width: 1200px; margin: 0 auto; }
        h1 { color: #333; }
        .summary { background-color: #f5f5f5; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .ai-summary { background-color: #f0f4ff; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .issues { margin-top: 30px; }
        .issue { border-left: 4px solid #ccc; padding: 10px; margin-bottom: 10px; }
        .critical { border-color: #ff0000; }
        .high { border-color: #ff9900; }
        .medium { border-color: #ffcc00; }
        .low { border-color: #00cc00; }
        .file-path { color: #666; font-family: monospace; }
        .suggestion { background-color: #eef; padding: 10px; font-family: monospace; white-space: pre-wrap; }
        .ai-insights { background-color: #ffd; padding: 10px; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Code Analysis Report</h1>
`)

	summary := job.Summary
	if summary == nil {
		summary = models.NewAnalysisSummary(0, job.Issues)
	}

	b.WriteString(`        <div class="summary">
            <h2>Summary</h2>
`)
	fmt.Fprintf(&b, "            <p>Total Files: %d</p>\n", summary.TotalFiles)
	fmt.Fprintf(&b, "            <p>Total Issues: %d</p>\n", summary.TotalIssues)
	b.WriteString("            <h3>Severity Distribution</h3>\n            <ul>\n")
	dist := summary.SeverityDistribution
	fmt.Fprintf(&b, "                <li>CRITICAL: %d (%.1f%%)</li>\n", dist.Critical.Count, dist.Critical.Percentage)
	fmt.Fprintf(&b, "                <li>HIGH: %d (%.1f%%)</li>\n", dist.High.Count, dist.High.Percentage)
	fmt.Fprintf(&b, "                <li>MEDIUM: %d (%.1f%%)</li>\n", dist.Medium.Count, dist.Medium.Percentage)
	fmt.Fprintf(&b, "                <li>LOW: %d (%.1f%%)</li>\n", dist.Low.Count, dist.Low.Percentage)
	b.WriteString("            </ul>\n        </div>\n")

	if job.AIReview != nil && job.AIReview.ExecutiveSummary != "" {
		b.WriteString(`        <div class="ai-summary">
            <h2>Executive Summary</h2>
`)
		b.WriteString(renderMarkdown(job.AIReview.ExecutiveSummary))
		b.WriteString("        </div>\n")
	}

	b.WriteString(`        <div class="issues">
            <h2>Issues</h2>
`)

	issues := append([]models.CodeIssue(nil), job.Issues...)
	models.SortIssues(issues)
	for _, issue := range issues {
		severityClass := strings.ToLower(string(models.NormalizeSeverity(issue.Severity)))
		fmt.Fprintf(&b, "            <div class=\"issue %s\">\n", severityClass)
		fmt.Fprintf(&b, "                <h3>%s</h3>\n", html.EscapeString(issue.Title))
		fmt.Fprintf(&b, "                <p class=\"file-path\">%s:%d</p>\n", html.EscapeString(issue.FilePath), issue.LineNumber)
		fmt.Fprintf(&b, "                <p>Severity: %s</p>\n", strings.ToUpper(string(issue.Severity)))
		fmt.Fprintf(&b, "                <p>Category: %s</p>\n", html.EscapeString(string(issue.Category)))
		if issue.Suggestion != "" {
			fmt.Fprintf(&b, "                <div class=\"suggestion\">%s</div>\n", html.EscapeString(issue.Suggestion))
		}
		if issue.AIReviewContext != "" {
			fmt.Fprintf(&b, "                <div class=\"ai-insights\">%s</div>\n", html.EscapeString(issue.AIReviewContext))
		}
		if issue.CodeSnippet != "" {
			fmt.Fprintf(&b, "                <pre>%s</pre>\n", html.EscapeString(issue.CodeSnippet))
		}
		b.WriteString("            </div>\n")
	}

	b.WriteString(`        </div>
    </div>
</body>
</html>
`)
	return []byte(b.String())
}

// renderMarkdown converts model-authored Markdown to HTML, falling back to
// an escaped paragraph when conversion fails
func renderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "<p>" + html.EscapeString(source) + "</p>\n"
	}
	return buf.String()
}
