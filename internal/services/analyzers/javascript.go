package analyzers

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

var (
	jsImportRe  = regexp.MustCompile(`import\s+.*\s+from\s+['"](.+?)['"]`)
	jsRequireRe = regexp.MustCompile(`require\(\s*['"](.+?)['"]\s*\)`)
)

// JavaScriptAnalyzer inspects JS/TS files with line-scan heuristics:
// console statements, var declarations, DOM queries inside loops, unsafe
// sinks, long functions, and hardcoded secrets.
type JavaScriptAnalyzer struct{}

// NewJavaScriptAnalyzer creates a JavaScript analyzer
func NewJavaScriptAnalyzer() *JavaScriptAnalyzer { return &JavaScriptAnalyzer{} }

// Language implements Analyzer
func (a *JavaScriptAnalyzer) Language() string { return LangJavaScript }

// Analyze implements Analyzer
func (a *JavaScriptAnalyzer) Analyze(path string, content []byte) ([]models.CodeIssue, models.FileMetrics) {
	text := string(content)
	lines := strings.Split(text, "\n")

	var issues []models.CodeIssue
	issues = append(issues, jsStyleIssues(path, lines)...)
	issues = append(issues, jsPerformanceIssues(path, lines)...)
	issues = append(issues, jsSecurityIssues(path, lines)...)
	issues = append(issues, jsLongFunctionIssues(path, lines)...)
	issues = append(issues, scanSecrets(path, text, secretStyleJS)...)

	return issues, jsMetrics(path, text, lines)
}

func jsStyleIssues(path string, lines []string) []models.CodeIssue {
	var issues []models.CodeIssue
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNo := i + 1

		if strings.Contains(line, "console.log") && !strings.HasPrefix(line, "//") {
			title := "Console statement found"
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, lineNo, title),
				Category:    models.CategoryStyle,
				Severity:    models.SeverityLow,
				Title:       title,
				Description: "Console.log statement should be removed in production",
				FilePath:    path,
				LineNumber:  lineNo,
				CodeSnippet: line,
				Suggestion:  "Remove console.log or use proper logging",
				ImpactScore: 2.0,
			})
		}

		if strings.HasPrefix(line, "var ") {
			title := "Use of 'var' keyword"
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, lineNo, title),
				Category:    models.CategoryStyle,
				Severity:    models.SeverityLow,
				Title:       title,
				Description: "'var' has function scope, consider using 'let' or 'const'",
				FilePath:    path,
				LineNumber:  lineNo,
				CodeSnippet: line,
				Suggestion:  "Replace 'var' with 'let' or 'const'",
				ImpactScore: 3.0,
			})
		}
	}
	return issues
}

// jsPerformanceIssues flags DOM queries with a loop keyword in the
// surrounding three-line window
func jsPerformanceIssues(path string, lines []string) []models.CodeIssue {
	var issues []models.CodeIssue
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNo := i + 1

		if !strings.Contains(line, "document.getElementById") && !strings.Contains(line, "document.querySelector") {
			continue
		}

		start := i - 3
		if start < 0 {
			start = 0
		}
		end := i + 3
		if end > len(lines) {
			end = len(lines)
		}
		window := strings.Join(lines[start:end], "\n")

		if strings.Contains(window, "for") || strings.Contains(window, "while") {
			title := "DOM query in loop"
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, lineNo, title),
				Category:    models.CategoryPerformance,
				Severity:    models.SeverityMedium,
				Title:       title,
				Description: "DOM queries inside loops can impact performance",
				FilePath:    path,
				LineNumber:  lineNo,
				CodeSnippet: line,
				Suggestion:  "Cache DOM elements outside the loop",
				ImpactScore: 6.0,
			})
		}
	}
	return issues
}

func jsSecurityIssues(path string, lines []string) []models.CodeIssue {
	sinks := []struct {
		pattern    string
		title      string
		suggestion string
	}{
		{"eval(", "Use of eval() function", "Avoid eval() as it can execute arbitrary code"},
		{"innerHTML", "Use of innerHTML", "Consider using textContent or proper sanitization"},
		{"document.write", "Use of document.write", "Use modern DOM manipulation methods"},
	}

	var issues []models.CodeIssue
	for i, raw := range lines {
		lineNo := i + 1
		stripped := strings.TrimSpace(raw)
		if strings.HasPrefix(stripped, "//") {
			continue
		}
		for _, sink := range sinks {
			if !strings.Contains(raw, sink.pattern) {
				continue
			}
			severity := models.SeverityMedium
			impact := 5.0
			if sink.pattern == "eval(" {
				severity = models.SeverityHigh
				impact = 8.0
			}
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, lineNo, sink.title),
				Category:    models.CategorySecurity,
				Severity:    severity,
				Title:       sink.title,
				Description: fmt.Sprintf("Potentially unsafe use of %s", sink.pattern),
				FilePath:    path,
				LineNumber:  lineNo,
				CodeSnippet: stripped,
				Suggestion:  sink.suggestion,
				ImpactScore: impact,
			})
		}
	}
	return issues
}

// jsLongFunctionIssues tracks brace balance from each function opening to
// find bodies longer than 50 lines. Heuristic only; nested declarations are
// attributed to the outermost open function.
func jsLongFunctionIssues(path string, lines []string) []models.CodeIssue {
	var issues []models.CodeIssue

	inFunction := false
	functionStart := 0
	braceCount := 0

	for i, raw := range lines {
		lineNo := i + 1
		stripped := strings.TrimSpace(raw)

		if strings.Contains(stripped, "function") || strings.Contains(stripped, "=>") {
			inFunction = true
			functionStart = lineNo
			braceCount = 0
		}

		if inFunction {
			braceCount += strings.Count(stripped, "{") - strings.Count(stripped, "}")
			if braceCount == 0 && lineNo > functionStart {
				length := lineNo - functionStart
				if length > 50 {
					title := "Long function detected"
					issues = append(issues, models.CodeIssue{
						ID:          models.IssueID(path, functionStart, title),
						Category:    models.CategoryComplexity,
						Severity:    models.SeverityMedium,
						Title:       title,
						Description: fmt.Sprintf("Function is %d lines long", length),
						FilePath:    path,
						LineNumber:  functionStart,
						Suggestion:  "Consider breaking this function into smaller functions",
						ImpactScore: 4.0,
					})
				}
				inFunction = false
			}
		}
	}
	return issues
}

func jsMetrics(path, content string, lines []string) models.FileMetrics {
	loc := 0
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped != "" && !strings.HasPrefix(stripped, "//") {
			loc++
		}
	}

	complexityKeywords := []string{"if", "else", "for", "while", "switch", "case", "catch"}
	complexity := 0
	for _, kw := range complexityKeywords {
		complexity += strings.Count(content, kw)
	}

	language := map[string]string{
		".js":  "javascript",
		".ts":  "typescript",
		".jsx": "jsx",
		".tsx": "tsx",
	}[strings.ToLower(filepath.Ext(path))]
	if language == "" {
		language = "javascript"
	}

	return models.FileMetrics{
		FilePath:        path,
		Language:        language,
		LinesOfCode:     loc,
		ComplexityScore: float64(complexity),
	}
}

// ExtractJSImports returns the import specifiers of a JS/TS file, from both
// ES module imports and require() calls. Used by the dependency-graph
// builder.
func ExtractJSImports(content []byte) []string {
	var imports []string
	for _, m := range jsImportRe.FindAllStringSubmatch(string(content), -1) {
		imports = append(imports, m[1])
	}
	for _, m := range jsRequireRe.FindAllStringSubmatch(string(content), -1) {
		imports = append(imports, m[1])
	}
	return imports
}
