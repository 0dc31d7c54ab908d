package analyzers

import (
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

// secretStyle selects the pattern set and comment syntax for a language
type secretStyle int

const (
	secretStylePython secretStyle = iota
	secretStyleJS
)

// scanSecrets runs the hardcoded-secret detectors over every line of a file.
// At most one issue is reported per line. Matches on comment lines, lines
// carrying a test indicator, and environment-variable dereferences are
// suppressed to keep the false-positive rate down.
func scanSecrets(path, content string, style secretStyle) []models.CodeIssue {
	rs := loadRules()
	var patterns []secretRule
	switch style {
	case secretStyleJS:
		patterns = rs.SecretPatterns.JavaScript
	default:
		patterns = rs.SecretPatterns.Python
	}

	var issues []models.CodeIssue
	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1
		stripped := strings.TrimSpace(line)
		if stripped == "" || isComment(stripped, style) {
			continue
		}

		for _, rule := range patterns {
			if !rule.re.MatchString(line) {
				continue
			}
			if !rule.Format && !isLikelySecret(line, style) {
				continue
			}

			severity := models.SeverityHigh
			impact := 7.0
			switch rule.Severity {
			case "critical":
				severity = models.SeverityCritical
				impact = 9.0
			case "medium":
				severity = models.SeverityMedium
			}

			title := "Hardcoded " + rule.Type + " Detected"
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, lineNo, title),
				Category:    models.CategorySecurity,
				Severity:    severity,
				Title:       title,
				Description: "Found hardcoded " + strings.ToLower(rule.Type) + " in source code",
				FilePath:    path,
				LineNumber:  lineNo,
				CodeSnippet: stripped,
				Suggestion:  "Move " + strings.ToLower(rule.Type) + " to environment variables or secure configuration",
				ImpactScore: impact,
			})
			break // one issue per line
		}
	}
	return issues
}

func isComment(stripped string, style secretStyle) bool {
	if style == secretStyleJS {
		return strings.HasPrefix(stripped, "//") || strings.HasPrefix(stripped, "/*")
	}
	return strings.HasPrefix(stripped, "#")
}

// isLikelySecret filters out test values and environment lookups
func isLikelySecret(line string, style secretStyle) bool {
	lower := strings.ToLower(line)
	for _, indicator := range loadRules().TestIndicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}
	if style == secretStyleJS {
		// Reading process.env is fine; assigning into it is what the
		// dedicated pattern catches.
		if idx := strings.Index(line, "process.env"); idx >= 0 && !strings.Contains(line[:idx], "=") {
			return false
		}
	} else {
		if strings.Contains(line, "os.getenv") || strings.Contains(line, "environ") {
			return false
		}
	}
	return true
}
