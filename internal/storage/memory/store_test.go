package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

func newJob(id string) *models.AnalysisJob {
	return &models.AnalysisJob{
		ID:        id,
		Status:    models.JobStatusPending,
		Service:   "claude",
		CreatedAt: time.Now().UTC(),
	}
}

func TestStore_AddAndGet(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(newJob("job-1")))

	got := s.Get("job-1")
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, models.JobStatusPending, got.Status)

	assert.Nil(t, s.Get("unknown"))
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	s := NewStore()
	job := newJob("job-1")
	job.Issues = []models.CodeIssue{{ID: "a", Title: "original"}}
	require.NoError(t, s.Add(job))

	snap := s.Get("job-1")
	snap.Issues[0].Title = "mutated"
	snap.Status = models.JobStatusFailed

	again := s.Get("job-1")
	assert.Equal(t, "original", again.Issues[0].Title)
	assert.Equal(t, models.JobStatusPending, again.Status)
}

func TestStore_UpdateMergesPartialFields(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(newJob("job-1")))

	status := models.JobStatusProcessing
	progress := 40.0
	msg := "Analyzing python files"
	require.NoError(t, s.Update("job-1", interfaces.JobUpdate{
		Status:   &status,
		Progress: &progress,
		Message:  &msg,
	}))

	got := s.Get("job-1")
	assert.Equal(t, models.JobStatusProcessing, got.Status)
	assert.Equal(t, 40.0, got.Progress)
	assert.Equal(t, "Analyzing python files", got.Message)

	// Untouched fields survive a later partial update
	newProgress := 60.0
	require.NoError(t, s.Update("job-1", interfaces.JobUpdate{Progress: &newProgress}))
	got = s.Get("job-1")
	assert.Equal(t, "Analyzing python files", got.Message)
	assert.Equal(t, 60.0, got.Progress)
}

func TestStore_UpdateStampsTimestamps(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(newJob("job-1")))

	before := s.Get("job-1").UpdatedAt
	time.Sleep(5 * time.Millisecond)

	status := models.JobStatusCompleted
	require.NoError(t, s.Update("job-1", interfaces.JobUpdate{Status: &status, CompletedNow: true}))

	got := s.Get("job-1")
	assert.True(t, got.UpdatedAt.After(before))
	require.NotNil(t, got.CompletedAt)
}

func TestStore_TerminalStatusIsImmutable(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(newJob("job-1")))

	completed := models.JobStatusCompleted
	require.NoError(t, s.Update("job-1", interfaces.JobUpdate{Status: &completed, CompletedNow: true}))

	failed := models.JobStatusFailed
	err := s.Update("job-1", interfaces.JobUpdate{Status: &failed})
	require.Error(t, err)
	assert.Equal(t, models.JobStatusCompleted, s.Get("job-1").Status)

	// Re-asserting the same terminal status is allowed
	require.NoError(t, s.Update("job-1", interfaces.JobUpdate{Status: &completed}))
}

func TestStore_AddRejectsTerminalFlip(t *testing.T) {
	s := NewStore()
	job := newJob("job-1")
	job.Status = models.JobStatusCompleted
	require.NoError(t, s.Add(job))

	replacement := newJob("job-1")
	replacement.Status = models.JobStatusFailed
	require.Error(t, s.Add(replacement))
}

func TestStore_StageErrorsAccumulate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(newJob("job-1")))

	first := "analyzer crashed on a.py"
	second := "external report failed"
	require.NoError(t, s.Update("job-1", interfaces.JobUpdate{StageError: &first}))
	require.NoError(t, s.Update("job-1", interfaces.JobUpdate{StageError: &second}))

	assert.Equal(t, []string{first, second}, s.Get("job-1").StageErrors)
}

func TestStore_UpdateUnknownJob(t *testing.T) {
	s := NewStore()
	progress := 10.0
	assert.Error(t, s.Update("missing", interfaces.JobUpdate{Progress: &progress}))
}

func TestStore_DeleteAndList(t *testing.T) {
	s := NewStore()
	older := newJob("job-old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Add(older))
	require.NoError(t, s.Add(newJob("job-new")))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "job-new", list[0].ID)

	s.Delete("job-new")
	assert.Nil(t, s.Get("job-new"))
	assert.Len(t, s.List(), 1)
}

func TestStore_DeleteOlderThan(t *testing.T) {
	s := NewStore()

	stale := newJob("job-stale")
	stale.Status = models.JobStatusCompleted
	old := time.Now().UTC().Add(-48 * time.Hour)
	stale.CompletedAt = &old
	require.NoError(t, s.Add(stale))

	active := newJob("job-active")
	active.Status = models.JobStatusProcessing
	require.NoError(t, s.Add(active))

	fresh := newJob("job-fresh")
	fresh.Status = models.JobStatusCompleted
	now := time.Now().UTC()
	fresh.CompletedAt = &now
	require.NoError(t, s.Add(fresh))

	removed := s.DeleteOlderThan(time.Now().UTC().Add(-24 * time.Hour))
	assert.Equal(t, 1, removed)
	assert.Nil(t, s.Get("job-stale"))
	assert.NotNil(t, s.Get("job-active"))
	assert.NotNil(t, s.Get("job-fresh"))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("job-%d", n)
			_ = s.Add(newJob(id))
			progress := float64(n)
			_ = s.Update(id, interfaces.JobUpdate{Progress: &progress})
			_ = s.Get(id)
			_ = s.List()
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.List(), 20)
}
