// Package enhancer runs the per-file LLM enrichment pass: a compact prompt
// per analyzed file yielding a description, optional per-issue suggestion
// enhancements, and business/architecture notes. Every failure mode leaves
// the analyzer output unchanged.
package enhancer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

// contentWindow bounds the file excerpt included in the prompt
const contentWindow = 3000

// Service enriches analyzed files through the LLM
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates an enhancer. A nil LLM disables enrichment entirely.
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{llm: llm, logger: logger}
}

// envelope is the strict JSON document expected from the model
type envelope struct {
	Truncated             bool              `json:"truncated"`
	Description           string            `json:"description"`
	EnhancedSuggestions   map[string]string `json:"enhanced_suggestions"`
	BusinessImpact        string            `json:"business_impact"`
	ArchitecturalConcerns []string          `json:"architectural_concerns"`
}

// EnhanceFile asks the model about one file and applies the response:
// suggestions are appended to matching issues in place, and the returned
// FileMetadata carries the rest. On any LLM or parse failure the issues are
// left untouched and the metadata is zero-valued with Truncated preserved.
func (s *Service) EnhanceFile(ctx context.Context, file models.WorkingFile, issues []models.CodeIssue) models.FileMetadata {
	content := string(file.Content)
	truncated := len(content) > contentWindow
	if truncated {
		content = content[:contentWindow]
	}
	meta := models.FileMetadata{Truncated: truncated}

	if s.llm == nil || len(issues) == 0 {
		return meta
	}

	prompt := buildPrompt(file.Path, content, issues)
	response, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		s.logger.Warn().Err(err).Str("file", file.Path).Msg("File enhancement skipped")
		return meta
	}

	env, err := parseEnvelope(response)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", file.Path).Msg("File enhancement response unusable")
		return meta
	}

	for i := range issues {
		if extra, ok := env.EnhancedSuggestions[issues[i].ID]; ok && extra != "" {
			if issues[i].Suggestion != "" {
				issues[i].Suggestion += " " + extra
			} else {
				issues[i].Suggestion = extra
			}
		}
	}

	meta.Description = env.Description
	meta.EnhancedSuggestions = env.EnhancedSuggestions
	meta.BusinessImpact = env.BusinessImpact
	meta.ArchitecturalConcerns = env.ArchitecturalConcerns
	return meta
}

func buildPrompt(path, content string, issues []models.CodeIssue) string {
	var ids []string
	for _, issue := range issues {
		ids = append(ids, fmt.Sprintf("%s (%s: %s)", issue.ID, issue.Severity, issue.Title))
	}

	return fmt.Sprintf(`Analyze this source file and the issues already detected in it.

File: %s
Detected issues (%d):
%s

File content (may be truncated):
%s

Respond with ONLY a JSON object:
{
  "truncated": false,
  "description": "one-paragraph summary of what this file does",
  "enhanced_suggestions": {"<issue_id>": "improved remediation advice"},
  "business_impact": "short assessment",
  "architectural_concerns": ["optional concerns"]
}`, path, len(issues), strings.Join(ids, "\n"), content)
}

// parseEnvelope is deliberately forgiving: fences are stripped and the
// outermost JSON object is extracted before unmarshalling
func parseEnvelope(response string) (*envelope, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in enhancement response")
	}

	var env envelope
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &env); err != nil {
		return nil, fmt.Errorf("enhancement response is not valid JSON: %w", err)
	}
	return &env, nil
}
