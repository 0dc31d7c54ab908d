package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrutor/internal/models"
)

func TestParseRepoURL(t *testing.T) {
	owner, repo, err := ParseRepoURL("https://github.com/ternarybob/scrutor")
	require.NoError(t, err)
	assert.Equal(t, "ternarybob", owner)
	assert.Equal(t, "scrutor", repo)

	owner, repo, err = ParseRepoURL("https://github.com/octo/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "widgets", repo)

	_, _, err = ParseRepoURL("https://gitlab.com/octo/widgets")
	assert.Error(t, err)

	_, _, err = ParseRepoURL("https://github.com/just-owner")
	assert.Error(t, err)
}

func TestIsAnalyzable(t *testing.T) {
	assert.True(t, isAnalyzable("src/app.py"))
	assert.True(t, isAnalyzable("config.toml"))
	assert.True(t, isAnalyzable("Dockerfile"))
	assert.True(t, isAnalyzable("deploy/Dockerfile.prod"))
	assert.False(t, isAnalyzable("logo.png"))
	assert.False(t, isAnalyzable("binary.exe"))
}

func TestInSkippedDir(t *testing.T) {
	assert.True(t, inSkippedDir("node_modules/react/index.js"))
	assert.True(t, inSkippedDir("backend/__pycache__/app.pyc"))
	assert.True(t, inSkippedDir(".git/hooks/pre-commit"))
	assert.False(t, inSkippedDir("src/environment/config.py"))
}

func TestSortTraversalOrder(t *testing.T) {
	paths := []string{
		"zeta.md",
		"docs/readme.md",
		"src/z.py",
		"src/a.py",
		"main.py",
		"frontend/app.js",
	}

	sortTraversalOrder(paths)

	// conventional source dirs come first, source files before docs
	assert.Equal(t, "frontend/app.js", paths[0])
	assert.Contains(t, []string{"src/a.py", "src/z.py"}, paths[1])
	assert.True(t, indexOf(paths, "main.py") < indexOf(paths, "zeta.md"))
	assert.True(t, indexOf(paths, "src/a.py") < indexOf(paths, "src/z.py"))
}

func indexOf(paths []string, target string) int {
	for i, p := range paths {
		if p == target {
			return i
		}
	}
	return -1
}

func TestMaterializeUpload(t *testing.T) {
	files, err := MaterializeUpload(map[string][]byte{
		"app/main.py": []byte("print('hi')\n"),
		"Dockerfile":  []byte("FROM alpine:3.19\n"),
	}, 12)
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Equal(t, models.OriginUploaded, f.Origin)
	}
}

func TestMaterializeUpload_RejectsTraversal(t *testing.T) {
	_, err := MaterializeUpload(map[string][]byte{
		"../etc/passwd": []byte("x"),
	}, 12)
	assert.Error(t, err)

	_, err = MaterializeUpload(map[string][]byte{
		"a/../../b.py": []byte("x"),
	}, 12)
	assert.Error(t, err)
}

func TestMaterializeUpload_EnforcesCap(t *testing.T) {
	uploads := map[string][]byte{}
	for _, name := range []string{"a.py", "b.py", "c.py"} {
		uploads[name] = []byte("pass\n")
	}

	_, err := MaterializeUpload(uploads, 2)
	assert.Error(t, err)
}

func TestMaterializeUpload_Empty(t *testing.T) {
	_, err := MaterializeUpload(nil, 12)
	assert.Error(t, err)
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, matchesAny("src/app.py", []string{"*.py"}))
	assert.True(t, matchesAny("src/app.py", []string{"src/*.py"}))
	assert.False(t, matchesAny("src/app.js", []string{"*.py"}))
}
