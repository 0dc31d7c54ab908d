package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/models"
)

func buildGraph(t *testing.T, files []models.WorkingFile) *models.DependencyGraph {
	t.Helper()
	return NewBuilder(arbor.NewLogger()).Build(files)
}

func TestBuild_PythonImports(t *testing.T) {
	files := []models.WorkingFile{
		{Path: "api/models.py", Content: []byte("import os\n")},
		{Path: "main.py", Content: []byte("import api.models\n")},
	}

	g := buildGraph(t, files)

	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Links, 1)
	assert.Equal(t, "main.py", g.Links[0].Source)
	assert.Equal(t, "api/models.py", g.Links[0].Target)
	assert.Equal(t, 1, g.Links[0].Value)
}

func TestBuild_JSImports(t *testing.T) {
	files := []models.WorkingFile{
		{Path: "web/utils.js", Content: []byte("export const x = 1;\n")},
		{Path: "web/app.js", Content: []byte("import { x } from './utils';\nconst api = require('react');\n")},
	}

	g := buildGraph(t, files)

	require.Len(t, g.Links, 1) // react is external, dropped
	assert.Equal(t, "web/app.js", g.Links[0].Source)
	assert.Equal(t, "web/utils.js", g.Links[0].Target)
}

func TestBuild_LinkEndpointsAlwaysInNodes(t *testing.T) {
	files := []models.WorkingFile{
		{Path: "a.py", Content: []byte("import b\nimport missing_module\n")},
		{Path: "b.py", Content: []byte("pass\n")},
	}

	g := buildGraph(t, files)

	ids := map[string]bool{}
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	for _, l := range g.Links {
		assert.True(t, ids[l.Source], "link source %s missing from nodes", l.Source)
		assert.True(t, ids[l.Target], "link target %s missing from nodes", l.Target)
	}
}

func TestBuild_NodeSizeGrowsWithOutDegree(t *testing.T) {
	files := []models.WorkingFile{
		{Path: "hub.py", Content: []byte("import spoke_one\nimport spoke_two\n")},
		{Path: "spoke_one.py", Content: []byte("pass\n")},
		{Path: "spoke_two.py", Content: []byte("pass\n")},
	}

	g := buildGraph(t, files)

	sizes := map[string]int{}
	for _, n := range g.Nodes {
		sizes[n.ID] = n.Size
	}
	assert.Equal(t, 140, sizes["hub.py"])
	assert.Equal(t, 100, sizes["spoke_one.py"])
}

func TestBuild_Groups(t *testing.T) {
	files := []models.WorkingFile{
		{Path: "a.py", Content: []byte("pass\n")},
		{Path: "b.js", Content: []byte(";\n")},
		{Path: "c.ts", Content: []byte(";\n")},
		{Path: "Dockerfile", Content: []byte("FROM alpine:3.19\n")},
		{Path: "config.toml", Content: []byte("[x]\n")},
	}

	g := buildGraph(t, files)

	groups := map[string]int{}
	for _, n := range g.Nodes {
		groups[n.ID] = n.Group
	}
	assert.Equal(t, models.GraphGroupPython, groups["a.py"])
	assert.Equal(t, models.GraphGroupJavaScript, groups["b.js"])
	assert.Equal(t, models.GraphGroupTypeScript, groups["c.ts"])
	assert.Equal(t, models.GraphGroupDocker, groups["Dockerfile"])
	assert.Equal(t, models.GraphGroupOther, groups["config.toml"])
}

func TestBuild_NoDuplicateLinks(t *testing.T) {
	files := []models.WorkingFile{
		{Path: "a.py", Content: []byte("import b\nimport b\n")},
		{Path: "b.py", Content: []byte("pass\n")},
	}

	g := buildGraph(t, files)
	assert.Len(t, g.Links, 1)
}

func TestBuild_EmptyWorkingSet(t *testing.T) {
	g := buildGraph(t, nil)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Links)
}

func TestResolveRef(t *testing.T) {
	paths := []string{"api/models.py", "web/utils.js", "shared/helpers.ts"}

	assert.Equal(t, "api/models.py", resolveRef("api.models", paths))
	assert.Equal(t, "web/utils.js", resolveRef("./utils", paths))
	assert.Equal(t, "shared/helpers.ts", resolveRef("../shared/helpers", paths))
	assert.Equal(t, "api/models.py", resolveRef("models", paths)) // basename fallback
	assert.Equal(t, "", resolveRef("os", paths))
	assert.Equal(t, "", resolveRef("docker:alpine:3.19", paths))
}
