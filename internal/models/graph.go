package models

// GraphNode is a file-level node in the dependency graph
type GraphNode struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group int    `json:"group"`
	Type  string `json:"type"`
	Size  int    `json:"size"`
}

// GraphLink is a directed import edge between two nodes
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// DependencyGraph is the file-level import graph for a working set.
// Every link endpoint must reference a node ID present in Nodes.
type DependencyGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Node groups by language, matching the frontend color scheme
const (
	GraphGroupPython     = 1
	GraphGroupJavaScript = 2
	GraphGroupTypeScript = 3
	GraphGroupDocker     = 4
	GraphGroupOther      = 5
)
