package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/models"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Enabled: true,
		Path:    t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewArchive(db, arbor.NewLogger()).(*Archive)
}

func TestArchive_SaveAndGetJob(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	now := time.Now().UTC()
	job := &models.AnalysisJob{
		ID:          "job-1",
		Status:      models.JobStatusCompleted,
		Service:     "gemini",
		CreatedAt:   now,
		CompletedAt: &now,
		Issues: []models.CodeIssue{
			{ID: "config.py-1-hardcodedapikeydetected", Severity: models.SeverityCritical, Title: "Hardcoded API Key Detected"},
		},
		Summary: models.NewAnalysisSummary(1, nil),
	}
	require.NoError(t, a.SaveJob(ctx, job))

	got, err := a.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, "Hardcoded API Key Detected", got.Issues[0].Title)
}

func TestArchive_GetJobAbsent(t *testing.T) {
	a := testArchive(t)

	got, err := a.GetJob(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestArchive_SaveJobRequiresID(t *testing.T) {
	a := testArchive(t)
	assert.Error(t, a.SaveJob(context.Background(), &models.AnalysisJob{}))
	assert.Error(t, a.SaveJob(context.Background(), nil))
}

func TestArchive_SaveJobOverwrites(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveJob(ctx, &models.AnalysisJob{ID: "job-1", Status: models.JobStatusProcessing}))
	require.NoError(t, a.SaveJob(ctx, &models.AnalysisJob{ID: "job-1", Status: models.JobStatusCompleted}))

	got, err := a.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
}

func TestArchive_SaveGraph(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	graph := &models.DependencyGraph{
		Nodes: []models.GraphNode{
			{ID: "main.py", Name: "main.py", Group: models.GraphGroupPython, Type: "python", Size: 120},
			{ID: "util.py", Name: "util.py", Group: models.GraphGroupPython, Type: "python", Size: 100},
		},
		Links: []models.GraphLink{
			{Source: "main.py", Target: "util.py", Value: 1},
		},
	}
	require.NoError(t, a.SaveGraph(ctx, "job-1", graph))

	assert.Error(t, a.SaveGraph(ctx, "", graph))
	assert.Error(t, a.SaveGraph(ctx, "job-1", nil))
}
