package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/models"
)

func baseIssues() []models.CodeIssue {
	return []models.CodeIssue{
		{
			ID:          "app.py-3-hardcodedapikeydetected",
			Severity:    models.SeverityHigh,
			Title:       "Hardcoded API Key Detected",
			FilePath:    "app.py",
			LineNumber:  3,
			Suggestion:  "Move to environment variables",
			ImpactScore: 7.0,
		},
		{
			ID:         "app.py-10-nestedloopsdetected",
			Severity:   models.SeverityMedium,
			Title:      "Nested loops detected",
			FilePath:   "app.py",
			LineNumber: 10,
		},
	}
}

func TestMergeIssues_EnhancesExisting(t *testing.T) {
	env := &models.ReviewEnvelope{
		EnhancedIssues: []models.ReviewIssue{{
			ID:          "app.py-3-hardcodedapikeydetected",
			Severity:    "critical",
			AIAnalysis:  "key grants production access",
			FixStrategy: "rotate immediately and use a secret manager",
			ImpactScore: 9.5,
		}},
	}

	merged := MergeIssues(baseIssues(), env, arbor.NewLogger())

	require.Len(t, merged, 2)
	enhanced := merged[0] // critical sorts first
	assert.Equal(t, "app.py-3-hardcodedapikeydetected", enhanced.ID)
	assert.Equal(t, models.SeverityCritical, enhanced.Severity)
	assert.Equal(t, "rotate immediately and use a secret manager", enhanced.Suggestion)
	assert.Equal(t, "key grants production access", enhanced.AIReviewContext)
	assert.InDelta(t, 9.5, enhanced.ImpactScore, 0.01)
}

func TestMergeIssues_UnmatchedEnhancementInserted(t *testing.T) {
	env := &models.ReviewEnvelope{
		EnhancedIssues: []models.ReviewIssue{{
			ID:       "ai-review-app.py-1",
			Severity: "medium",
			Title:    "Missing input validation",
			FilePath: "app.py",
		}},
	}

	merged := MergeIssues(baseIssues(), env, arbor.NewLogger())
	assert.Len(t, merged, 3)
}

func TestMergeIssues_NewIssueCollisionDropped(t *testing.T) {
	env := &models.ReviewEnvelope{
		NewIssuesFound: []models.ReviewIssue{
			{ID: "app.py-10-nestedloopsdetected", Title: "duplicate of an analyzer finding"},
			{ID: "ai-review-app.py-1", Severity: "low", Title: "genuinely new", FilePath: "app.py"},
		},
	}

	merged := MergeIssues(baseIssues(), env, arbor.NewLogger())

	require.Len(t, merged, 3)
	titles := map[string]bool{}
	for _, issue := range merged {
		titles[issue.Title] = true
	}
	assert.True(t, titles["genuinely new"])
	assert.False(t, titles["duplicate of an analyzer finding"])
}

func TestMergeIssues_Idempotent(t *testing.T) {
	env := &models.ReviewEnvelope{
		EnhancedIssues: []models.ReviewIssue{{
			ID:          "app.py-3-hardcodedapikeydetected",
			Severity:    "critical",
			FixStrategy: "rotate",
		}},
		NewIssuesFound: []models.ReviewIssue{{
			ID: "ai-review-app.py-1", Severity: "low", Title: "new", FilePath: "app.py",
		}},
	}

	once := MergeIssues(baseIssues(), env, arbor.NewLogger())
	twice := MergeIssues(once, env, arbor.NewLogger())

	assert.Equal(t, once, twice)
}

func TestMergeIssues_SortOrder(t *testing.T) {
	env := &models.ReviewEnvelope{
		NewIssuesFound: []models.ReviewIssue{{
			ID: "ai-review-zz.py-1", Severity: "critical", Title: "worst", FilePath: "zz.py", LineNumber: 1,
		}},
	}

	merged := MergeIssues(baseIssues(), env, arbor.NewLogger())

	require.Len(t, merged, 3)
	assert.Equal(t, models.SeverityCritical, merged[0].Severity)
	assert.Equal(t, models.SeverityHigh, merged[1].Severity)
	assert.Equal(t, models.SeverityMedium, merged[2].Severity)
}

func TestMergeIssues_IgnoresEmptyIDs(t *testing.T) {
	env := &models.ReviewEnvelope{
		EnhancedIssues: []models.ReviewIssue{{ID: "", Title: "no id"}},
		NewIssuesFound: []models.ReviewIssue{{ID: "", Title: "no id either"}},
	}

	merged := MergeIssues(baseIssues(), env, arbor.NewLogger())
	assert.Len(t, merged, 2)
}
