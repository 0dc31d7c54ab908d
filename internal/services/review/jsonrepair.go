package review

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/scrutor/internal/models"
)

// parseReviewEnvelope turns raw model output into a ReviewEnvelope through a
// ladder of increasingly aggressive steps:
//  1. strip code fences and parse directly
//  2. extract the outermost {...} and parse
//  3. apply mechanical repairs (dangling commas, unescaped newlines) and parse
//  4. extract whatever top-level string fields survive into a partial envelope
//
// Step 4 never fails; its envelope carries Error describing what went wrong.
func parseReviewEnvelope(response string) (*models.ReviewEnvelope, bool) {
	cleaned := stripFences(response)

	var env models.ReviewEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err == nil {
		return &env, true
	}

	if body, ok := outermostObject(cleaned); ok {
		if err := json.Unmarshal([]byte(body), &env); err == nil {
			return &env, true
		}

		repaired := repairJSON(body)
		if err := json.Unmarshal([]byte(repaired), &env); err == nil {
			return &env, true
		}
	}

	return partialEnvelope(cleaned), false
}

func stripFences(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// outermostObject returns the substring from the first '{' to its balanced
// closing brace, or to the last '}' when never balanced (truncated output)
func outermostObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	// unbalanced: truncate at the last closing brace we saw
	end := strings.LastIndex(s, "}")
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

var (
	danglingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
)

// repairJSON applies the mechanical fixes that cover the common model
// mistakes: trailing commas and raw control characters inside strings
func repairJSON(s string) string {
	repaired := danglingCommaRe.ReplaceAllString(s, "$1")
	repaired = controlCharRe.ReplaceAllString(repaired, " ")
	repaired = replaceRawNewlinesInStrings(repaired)
	return repaired
}

// replaceRawNewlinesInStrings escapes literal newlines that appear inside
// string values
func replaceRawNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			b.WriteByte(c)
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
			b.WriteByte(c)
		case '\n':
			if inString {
				b.WriteString(`\n`)
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var summaryFieldRe = regexp.MustCompile(`"executive_summary"\s*:\s*"((?:[^"\\]|\\.)*)"`)
var scoreFieldRe = regexp.MustCompile(`"overall_score"\s*:\s*([0-9.]+)`)

// partialEnvelope salvages what it can from unparseable output
func partialEnvelope(s string) *models.ReviewEnvelope {
	env := &models.ReviewEnvelope{
		EnhancedIssues: []models.ReviewIssue{},
		NewIssuesFound: []models.ReviewIssue{},
		Error:          "AI review response could not be parsed as JSON",
	}

	if m := summaryFieldRe.FindStringSubmatch(s); len(m) == 2 {
		var unescaped string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &unescaped); err == nil {
			env.ExecutiveSummary = unescaped
		} else {
			env.ExecutiveSummary = m[1]
		}
	}
	if m := scoreFieldRe.FindStringSubmatch(s); len(m) == 2 {
		var score float64
		if _, err := fmt.Sscanf(m[1], "%f", &score); err == nil {
			env.QualityMetrics = &models.QualityMetrics{OverallScore: score}
		}
	}
	return env
}
