package review

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/models"
)

// MergeIssues folds the AI envelope into the analyzer issue set:
//   - enhanced_issues whose ID matches an existing issue update
//     {suggestion, impact_score, ai_review_context, severity, description,
//     title}; unmatched enhancements are inserted as new issues
//   - new_issues_found are inserted iff their ID does not collide; collisions
//     are dropped with a diagnostic
//
// The result is sorted severity-descending then (file, line) ascending.
// Merging the same envelope twice is a no-op on the second pass.
func MergeIssues(existing []models.CodeIssue, env *models.ReviewEnvelope, logger arbor.ILogger) []models.CodeIssue {
	byID := make(map[string]int, len(existing))
	merged := append([]models.CodeIssue(nil), existing...)
	for i, issue := range merged {
		byID[issue.ID] = i
	}

	for _, enhanced := range env.EnhancedIssues {
		if enhanced.ID == "" {
			continue
		}
		if idx, ok := byID[enhanced.ID]; ok {
			applyEnhancement(&merged[idx], enhanced)
			continue
		}
		issue := reviewIssueToCodeIssue(enhanced)
		byID[issue.ID] = len(merged)
		merged = append(merged, issue)
	}

	for _, fresh := range env.NewIssuesFound {
		if fresh.ID == "" {
			continue
		}
		if _, ok := byID[fresh.ID]; ok {
			logger.Debug().Str("id", fresh.ID).Msg("Dropping AI issue with colliding id")
			continue
		}
		issue := reviewIssueToCodeIssue(fresh)
		byID[issue.ID] = len(merged)
		merged = append(merged, issue)
	}

	models.SortIssues(merged)
	return merged
}

func applyEnhancement(issue *models.CodeIssue, enhanced models.ReviewIssue) {
	if enhanced.FixStrategy != "" {
		issue.Suggestion = enhanced.FixStrategy
	}
	if enhanced.ImpactScore > 0 {
		issue.ImpactScore = enhanced.ImpactScore
	}
	if enhanced.AIAnalysis != "" {
		issue.AIReviewContext = enhanced.AIAnalysis
	}
	if enhanced.Severity != "" {
		issue.Severity = models.NormalizeSeverity(models.Severity(enhanced.Severity))
	}
	if enhanced.Description != "" {
		issue.Description = enhanced.Description
	}
	if enhanced.Title != "" {
		issue.Title = enhanced.Title
	}
}

func reviewIssueToCodeIssue(r models.ReviewIssue) models.CodeIssue {
	return models.CodeIssue{
		ID:              r.ID,
		Category:        models.Category(r.Category),
		Severity:        models.NormalizeSeverity(models.Severity(r.Severity)),
		Title:           r.Title,
		Description:     r.Description,
		FilePath:        r.FilePath,
		LineNumber:      r.LineNumber,
		CodeSnippet:     r.CodeSnippet,
		Suggestion:      r.FixStrategy,
		ImpactScore:     r.ImpactScore,
		AIReviewContext: r.AIAnalysis,
	}
}
