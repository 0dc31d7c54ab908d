package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return s.response, s.err
}
func (s *stubLLM) HealthCheck(ctx context.Context) error { return s.err }
func (s *stubLLM) ProviderName() string                  { return "stub" }
func (s *stubLLM) Close() error                          { return nil }

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func workingFiles(paths ...string) []models.WorkingFile {
	files := make([]models.WorkingFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, models.WorkingFile{Path: p, Origin: models.OriginUploaded})
	}
	return files
}

func TestDiscover_ClassifiesByLanguage(t *testing.T) {
	svc := NewService(nil, testLogger())

	set := svc.Discover(workingFiles(
		"src/main.py",
		"web/app.js",
		"web/view.tsx",
		"Dockerfile",
		"README.md",
	), 0)

	assert.Equal(t, []string{"src/main.py"}, set["python"])
	assert.Equal(t, []string{"web/app.js", "web/view.tsx"}, set["javascript"])
	assert.Equal(t, []string{"Dockerfile"}, set["docker"])
	assert.Equal(t, 4, set.TotalFiles())
}

func TestDiscover_Deterministic(t *testing.T) {
	svc := NewService(nil, testLogger())
	files := workingFiles("b.py", "a.py", "c.js")

	first := svc.Discover(files, 0)
	second := svc.Discover(files, 0)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a.py", "b.py"}, first["python"])
}

func TestDiscover_RoundRobinCap(t *testing.T) {
	svc := NewService(nil, testLogger())

	var files []models.WorkingFile
	for i := 0; i < 6; i++ {
		files = append(files, models.WorkingFile{Path: fmt.Sprintf("py/%d.py", i)})
	}
	for i := 0; i < 6; i++ {
		files = append(files, models.WorkingFile{Path: fmt.Sprintf("js/%d.js", i)})
	}
	files = append(files, models.WorkingFile{Path: "Dockerfile"})

	set := svc.Discover(files, 5)

	require.Equal(t, 5, set.TotalFiles())
	// every present language keeps representation
	assert.NotEmpty(t, set["python"])
	assert.NotEmpty(t, set["javascript"])
	assert.NotEmpty(t, set["docker"])
}

func TestStrategy_HeuristicSingleLanguage(t *testing.T) {
	svc := NewService(nil, testLogger())
	set := DiscoveredSet{"python": {"a.py", "b.py"}}

	hint := svc.Strategy(context.Background(), set)

	assert.False(t, hint.ParallelProcessing)
	assert.Equal(t, "python", hint.PriorityLanguage)
	assert.Equal(t, "low", hint.EstimatedComplexity)
}

func TestStrategy_HeuristicMultiLanguage(t *testing.T) {
	svc := NewService(nil, testLogger())
	set := DiscoveredSet{
		"python":     {"a.py"},
		"javascript": {"a.js", "b.js", "c.js"},
	}

	hint := svc.Strategy(context.Background(), set)

	assert.True(t, hint.ParallelProcessing)
	assert.Equal(t, "javascript", hint.PriorityLanguage)
}

func TestStrategy_UsesModelHint(t *testing.T) {
	llm := &stubLLM{response: "```json\n{\"parallel_processing\": true, \"priority_language\": \"docker\", \"estimated_complexity\": \"high\"}\n```"}
	svc := NewService(llm, testLogger())
	set := DiscoveredSet{"python": {"a.py"}, "docker": {"Dockerfile"}}

	hint := svc.Strategy(context.Background(), set)

	assert.True(t, hint.ParallelProcessing)
	assert.Equal(t, "docker", hint.PriorityLanguage)
	assert.Equal(t, "high", hint.EstimatedComplexity)
}

func TestStrategy_FallsBackOnModelFailure(t *testing.T) {
	llm := &stubLLM{err: errors.New("unavailable")}
	svc := NewService(llm, testLogger())
	set := DiscoveredSet{"python": {"a.py"}}

	hint := svc.Strategy(context.Background(), set)

	assert.Equal(t, "python", hint.PriorityLanguage)
}

func TestStrategy_RejectsAbsentPriorityLanguage(t *testing.T) {
	llm := &stubLLM{response: `{"parallel_processing": false, "priority_language": "javascript", "estimated_complexity": "low"}`}
	svc := NewService(llm, testLogger())
	set := DiscoveredSet{"python": {"a.py"}}

	hint := svc.Strategy(context.Background(), set)

	// model named a language not present; heuristic takes over
	assert.Equal(t, "python", hint.PriorityLanguage)
}
