// Package graph derives the file-level dependency graph from a working set:
// import statements become directed links, resolved against known file paths
// by suffix matching. Unresolved externals are dropped.
package graph

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/analyzers"
)

// Builder constructs dependency graphs
type Builder struct {
	logger arbor.ILogger
}

// NewBuilder creates a graph builder
func NewBuilder(logger arbor.ILogger) *Builder {
	return &Builder{logger: logger}
}

// Build extracts import references from every file and resolves them to
// nodes. Node size grows with out-degree; every link endpoint is guaranteed
// to exist in Nodes.
func (b *Builder) Build(files []models.WorkingFile) *models.DependencyGraph {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	sort.Strings(paths)

	outDegree := make(map[string]int, len(paths))
	seen := map[[2]string]bool{}
	var links []models.GraphLink

	for _, f := range files {
		for _, ref := range extractRefs(f) {
			target := resolveRef(ref, paths)
			if target == "" || target == f.Path {
				continue
			}
			key := [2]string{f.Path, target}
			if seen[key] {
				continue
			}
			seen[key] = true
			links = append(links, models.GraphLink{Source: f.Path, Target: target, Value: 1})
			outDegree[f.Path]++
		}
	}

	nodes := make([]models.GraphNode, 0, len(paths))
	for _, path := range paths {
		nodes = append(nodes, models.GraphNode{
			ID:    path,
			Name:  filepath.Base(path),
			Group: groupFor(path),
			Type:  typeFor(path),
			Size:  100 + 20*outDegree[path],
		})
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})

	b.logger.Debug().
		Int("nodes", len(nodes)).
		Int("links", len(links)).
		Msg("Dependency graph built")

	return &models.DependencyGraph{Nodes: nodes, Links: links}
}

func extractRefs(f models.WorkingFile) []string {
	switch analyzers.LanguageForPath(f.Path) {
	case analyzers.LangPython:
		return analyzers.ExtractPythonImports(f.Content)
	case analyzers.LangJavaScript:
		return analyzers.ExtractJSImports(f.Content)
	case analyzers.LangDocker:
		return analyzers.ExtractDockerRefs(f.Content)
	}
	return nil
}

// resolvable source extensions tried when a reference has no extension
var resolveExtensions = []string{".py", ".js", ".jsx", ".ts", ".tsx"}

// resolveRef maps a symbolic import target to a concrete file path. Dotted
// Python modules become slash paths; relative JS specifiers are reduced to
// their trailing segments. Matching tries, in order: exact suffix
// "/{target}", suffix with each known extension, then basename equality.
// Returns "" for externals.
func resolveRef(ref string, paths []string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "docker:") {
		return ""
	}

	candidate := strings.ReplaceAll(ref, ".", "/")
	if strings.Contains(ref, "/") {
		// JS-style specifier: strip the relative prefix, keep the path
		candidate = strings.TrimLeft(ref, "./")
	}
	candidate = strings.Trim(candidate, "/")
	if candidate == "" {
		return ""
	}

	for _, path := range paths {
		if path == candidate || strings.HasSuffix(path, "/"+candidate) {
			return path
		}
	}
	for _, ext := range resolveExtensions {
		withExt := candidate + ext
		for _, path := range paths {
			if path == withExt || strings.HasSuffix(path, "/"+withExt) {
				return path
			}
		}
	}

	base := candidate[strings.LastIndex(candidate, "/")+1:]
	for _, ext := range resolveExtensions {
		for _, path := range paths {
			if filepath.Base(path) == base+ext {
				return path
			}
		}
	}
	return ""
}

func groupFor(path string) int {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return models.GraphGroupPython
	case ".js", ".jsx":
		return models.GraphGroupJavaScript
	case ".ts", ".tsx":
		return models.GraphGroupTypeScript
	}
	if analyzers.LanguageForPath(path) == analyzers.LangDocker {
		return models.GraphGroupDocker
	}
	return models.GraphGroupOther
}

func typeFor(path string) string {
	if lang := analyzers.LanguageForPath(path); lang != "" {
		return lang
	}
	return "other"
}
