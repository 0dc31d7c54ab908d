package retention

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int
}

func (f *fakePruner) DeleteOlderThan(cutoff time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.removed
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestNewScheduler_RejectsBadMaxAge(t *testing.T) {
	_, err := NewScheduler(&fakePruner{}, &common.RetentionConfig{MaxAge: "not-a-duration"}, arbor.NewLogger())
	assert.Error(t, err)
}

func TestScheduler_RunNowPrunesWithMaxAgeCutoff(t *testing.T) {
	pruner := &fakePruner{removed: 3}
	s, err := NewScheduler(pruner, &common.RetentionConfig{
		Schedule: "0 0 * * * *",
		MaxAge:   "24h",
	}, arbor.NewLogger())
	require.NoError(t, err)

	s.RunNow()

	deadline := time.Now().Add(2 * time.Second)
	for pruner.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, pruner.calls())

	want := time.Now().UTC().Add(-24 * time.Hour)
	assert.WithinDuration(t, want, pruner.cutoffs[0], 5*time.Second)
}

func TestScheduler_RunNowAfterStopDoesNothing(t *testing.T) {
	pruner := &fakePruner{}
	s, err := NewScheduler(pruner, &common.RetentionConfig{
		Schedule: "0 0 * * * *",
		MaxAge:   "1h",
	}, arbor.NewLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	s.Stop()
	s.RunNow()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, pruner.calls())
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	s, err := NewScheduler(&fakePruner{}, &common.RetentionConfig{
		Schedule: "every now and then",
		MaxAge:   "1h",
	}, arbor.NewLogger())
	require.NoError(t, err)

	assert.Error(t, s.Start())
}

func TestScheduler_StartAndStop(t *testing.T) {
	s, err := NewScheduler(&fakePruner{}, &common.RetentionConfig{
		Schedule: "0 0 * * * *",
		MaxAge:   "1h",
	}, arbor.NewLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	s.Stop()
}
