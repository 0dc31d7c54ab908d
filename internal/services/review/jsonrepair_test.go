package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReviewEnvelope_CleanJSON(t *testing.T) {
	env, ok := parseReviewEnvelope(`{"executive_summary": "looks fine", "enhanced_issues": [], "new_issues_found": []}`)
	require.True(t, ok)
	assert.Equal(t, "looks fine", env.ExecutiveSummary)
	assert.Empty(t, env.Error)
}

func TestParseReviewEnvelope_Fenced(t *testing.T) {
	env, ok := parseReviewEnvelope("```json\n{\"executive_summary\": \"fenced\", \"enhanced_issues\": [], \"new_issues_found\": []}\n```")
	require.True(t, ok)
	assert.Equal(t, "fenced", env.ExecutiveSummary)
}

func TestParseReviewEnvelope_ProseAroundObject(t *testing.T) {
	env, ok := parseReviewEnvelope(`Here is my review:
{"executive_summary": "embedded", "enhanced_issues": [], "new_issues_found": []}
Hope this helps!`)
	require.True(t, ok)
	assert.Equal(t, "embedded", env.ExecutiveSummary)
}

func TestParseReviewEnvelope_DanglingComma(t *testing.T) {
	env, ok := parseReviewEnvelope(`{"executive_summary": "trailing", "enhanced_issues": [], "new_issues_found": [],}`)
	require.True(t, ok)
	assert.Equal(t, "trailing", env.ExecutiveSummary)
}

func TestParseReviewEnvelope_PartialSalvage(t *testing.T) {
	env, ok := parseReviewEnvelope(`total garbage "executive_summary": "salvaged text" more garbage "overall_score": 6.5 tail`)
	assert.False(t, ok)
	assert.Equal(t, "salvaged text", env.ExecutiveSummary)
	require.NotNil(t, env.QualityMetrics)
	assert.InDelta(t, 6.5, env.QualityMetrics.OverallScore, 0.01)
	assert.NotEmpty(t, env.Error)
	assert.NotNil(t, env.EnhancedIssues)
	assert.NotNil(t, env.NewIssuesFound)
}

func TestParseReviewEnvelope_EmptyResponse(t *testing.T) {
	env, ok := parseReviewEnvelope("")
	assert.False(t, ok)
	assert.NotEmpty(t, env.Error)
}

func TestOutermostObject_Truncated(t *testing.T) {
	// model ran out of tokens mid-array; we truncate at the last brace
	body, ok := outermostObject(`{"executive_summary": "x", "quality_metrics": {"overall_score": 5} , "new_issues_found": [{"id":`)
	require.True(t, ok)
	assert.True(t, body[0] == '{')
	assert.Equal(t, byte('}'), body[len(body)-1])
}

func TestRepairJSON_NewlinesInStrings(t *testing.T) {
	repaired := repairJSON("{\"executive_summary\": \"line one\nline two\"}")
	env, ok := parseReviewEnvelope(repaired)
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", env.ExecutiveSummary)
}
