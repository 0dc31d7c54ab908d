// Package review runs the cross-corpus AI review pass: one model call over
// the accumulated issues and a bounded view of the working set, with JSON
// repair, snippet line verification, and issue merging.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

const (
	// contentWindow bounds the per-file content included in the prompt.
	// Held constant across all callers.
	contentWindow = 3000

	// fullContentThreshold: corpora of this many files or fewer are included
	// in full regardless of the window
	fullContentThreshold = 5

	// gistLength is the excerpt length used for truncated files
	gistLength = 100
)

// Service performs the AI review pass
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a review service
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Review runs the cross-corpus pass and returns the envelope plus the final
// merged issue list. On model failure it returns a fallback envelope with
// Error set and the analyzer issues unchanged. The envelope always exists.
func (s *Service) Review(ctx context.Context, files []models.WorkingFile, issues []models.CodeIssue, metadata map[string]models.FileMetadata) (*models.ReviewEnvelope, []models.CodeIssue) {
	if s.llm == nil {
		env := &models.ReviewEnvelope{
			EnhancedIssues: []models.ReviewIssue{},
			NewIssuesFound: []models.ReviewIssue{},
			Error:          "AI review unavailable: no model configured",
		}
		return env, issues
	}

	prompt := s.buildPrompt(files, issues, metadata)

	env, ok := s.callModel(ctx, prompt, "")
	if !ok {
		s.logger.Warn().Msg("AI review returned malformed JSON, retrying once")
		env, _ = s.callModel(ctx, prompt, "Your previous JSON was malformed. Respond with ONLY a valid JSON object, no prose, no code fences.")
	}

	s.verifyLineNumbers(env, files)
	merged := MergeIssues(issues, env, s.logger)
	return env, merged
}

func (s *Service) callModel(ctx context.Context, prompt, preamble string) (*models.ReviewEnvelope, bool) {
	messages := []interfaces.Message{}
	if preamble != "" {
		messages = append(messages, interfaces.Message{Role: "system", Content: preamble})
	}
	messages = append(messages, interfaces.Message{Role: "user", Content: prompt})

	response, err := s.llm.Chat(ctx, messages)
	if err != nil {
		s.logger.Error().Err(err).Msg("AI review call failed")
		return &models.ReviewEnvelope{
			EnhancedIssues: []models.ReviewIssue{},
			NewIssuesFound: []models.ReviewIssue{},
			Error:          fmt.Sprintf("AI review call failed: %v", err),
		}, true // no point retrying a transport failure with a stricter preamble
	}
	return parseReviewEnvelope(response)
}

// verifyLineNumbers relocates AI-emitted issues whose snippet can be found
// in the target file; unlocatable snippets get line 0 (unknown) rather than
// a guess
func (s *Service) verifyLineNumbers(env *models.ReviewEnvelope, files []models.WorkingFile) {
	contents := make(map[string]string, len(files))
	for _, f := range files {
		contents[f.Path] = string(f.Content)
	}

	fix := func(issues []models.ReviewIssue) {
		for i := range issues {
			if issues[i].CodeSnippet == "" {
				continue
			}
			content, ok := contents[issues[i].FilePath]
			if !ok {
				continue
			}
			issues[i].LineNumber = locateSnippet(content, issues[i].CodeSnippet)
		}
	}
	fix(env.EnhancedIssues)
	fix(env.NewIssuesFound)
}

func (s *Service) buildPrompt(files []models.WorkingFile, issues []models.CodeIssue, metadata map[string]models.FileMetadata) string {
	var b strings.Builder

	b.WriteString("You are performing a comprehensive code review. Below are the issues already detected by static analysis, followed by the source files.\n\n")

	b.WriteString(fmt.Sprintf("## Detected issues (%d)\n", len(issues)))
	for _, issue := range issues {
		b.WriteString(fmt.Sprintf("- [%s] %s (%s) %s:%d: %s\n",
			issue.ID, issue.Title, issue.Severity, issue.FilePath, issue.LineNumber, issue.Description))
	}

	includeFull := len(files) <= fullContentThreshold
	b.WriteString("\n## Source files\n")
	for _, f := range files {
		meta := metadata[f.Path]
		if meta.Truncated && !includeFull {
			gist := string(f.Content)
			if len(gist) > gistLength {
				gist = gist[:gistLength]
			}
			b.WriteString(fmt.Sprintf("\n### %s (truncated)\nDescription: %s\nGist: %s\n", f.Path, meta.Description, gist))
			continue
		}
		content := string(f.Content)
		if !includeFull && len(content) > contentWindow {
			content = content[:contentWindow]
		}
		b.WriteString(fmt.Sprintf("\n### %s\n```\n%s\n```\n", f.Path, content))
	}

	schema := map[string]any{
		"executive_summary":     "string",
		"architecture_analysis": map[string]any{"design_patterns": []string{}, "anti_patterns": []string{}, "structure_assessment": "string", "modularity_score": 0.0},
		"enhanced_issues":       []map[string]any{{"id": "existing issue id", "severity": "critical|high|medium|low", "ai_analysis": "string", "fix_strategy": "string", "impact_score": 0.0}},
		"new_issues_found":      []map[string]any{{"id": "ai-review-{file}-{n}", "severity": "...", "category": "...", "title": "...", "description": "...", "file_path": "...", "code_snippet": "...", "fix_strategy": "..."}},
		"recommendations":       map[string]any{"immediate_actions": []string{}, "short_term": []string{}, "long_term": []string{}},
		"quality_metrics":       map[string]any{"overall_score": 0.0, "security_score": 0.0, "maintainability_score": 0.0, "performance_score": 0.0},
		"technical_debt":        map[string]any{"level": "low|medium|high", "main_sources": []string{}, "refactoring_priority": "string"},
	}
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")

	b.WriteString("\nRespond with ONLY a JSON object in exactly this shape:\n")
	b.Write(schemaJSON)
	b.WriteString("\nIssue ids in enhanced_issues MUST match ids listed above. New issues MUST use fresh ids prefixed with \"ai-review-\".\n")

	return b.String()
}
