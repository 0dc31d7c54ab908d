// Package analyzers contains the per-language static analyzers. Each
// analyzer is a pure function over (path, content): no network, no shared
// state, safe to run concurrently across files.
package analyzers

import (
	"path/filepath"
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

// Language tags used by discovery and the workflow router
const (
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangDocker     = "docker"
)

// Analyzer inspects one file and returns its issues and metrics
type Analyzer interface {
	// Analyze returns the findings for a single file. Implementations never
	// return an error for unparseable input; parse failures become issues.
	Analyze(path string, content []byte) ([]models.CodeIssue, models.FileMetrics)

	// Language returns the language tag this analyzer handles
	Language() string
}

// LanguageForPath classifies a file by extension and filename rules.
// Returns "" for unrecognized files.
func LanguageForPath(path string) string {
	base := filepath.Base(path)
	if base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.") {
		return LangDocker
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return LangPython
	case ".js", ".jsx", ".ts", ".tsx":
		return LangJavaScript
	}
	return ""
}

// ForLanguage returns the analyzer for a language tag, or nil
func ForLanguage(lang string) Analyzer {
	switch lang {
	case LangPython:
		return NewPythonAnalyzer()
	case LangJavaScript:
		return NewJavaScriptAnalyzer()
	case LangDocker:
		return NewDockerAnalyzer()
	}
	return nil
}

// countNonBlankLines counts lines that contain any non-whitespace character
func countNonBlankLines(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
