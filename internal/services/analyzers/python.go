package analyzers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/ternarybob/scrutor/internal/models"
)

// PythonAnalyzer inspects Python source using a tree-sitter syntax tree.
// Checks: cyclomatic complexity per function, hardcoded secrets, duplicate
// function bodies, nested loops. A file that fails to parse yields a single
// high-severity syntax issue plus line-count-only metrics.
type PythonAnalyzer struct {
	parser *sitter.Parser
}

// NewPythonAnalyzer creates a Python analyzer with its own parser instance.
// Parsers are not safe for concurrent use, so callers analyzing files in
// parallel must create one analyzer per goroutine.
func NewPythonAnalyzer() *PythonAnalyzer {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonAnalyzer{parser: p}
}

// Language implements Analyzer
func (a *PythonAnalyzer) Language() string { return LangPython }

// Analyze implements Analyzer
func (a *PythonAnalyzer) Analyze(path string, content []byte) ([]models.CodeIssue, models.FileMetrics) {
	tree, err := a.parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return []models.CodeIssue{syntaxErrorIssue(path, 1, "file could not be parsed")},
			locOnlyMetrics(path, content)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		return []models.CodeIssue{syntaxErrorIssue(path, line, fmt.Sprintf("invalid syntax near line %d", line))},
			locOnlyMetrics(path, content)
	}

	var issues []models.CodeIssue

	functions := collectFunctions(root, content)

	// Complexity per function
	for _, fn := range functions {
		if fn.complexity > 10 {
			severity := models.SeverityMedium
			if fn.complexity > 15 {
				severity = models.SeverityHigh
			}
			title := fmt.Sprintf("High Complexity in %s", fn.name)
			impact := float64(fn.complexity) / 2
			if impact > 10 {
				impact = 10
			}
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, fn.line, title),
				Category:    models.CategoryComplexity,
				Severity:    severity,
				Title:       title,
				Description: fmt.Sprintf("Function/method has cyclomatic complexity of %d", fn.complexity),
				FilePath:    path,
				LineNumber:  fn.line,
				Suggestion:  "Consider breaking this function into smaller, more focused functions",
				ImpactScore: impact,
			})
		}
	}

	issues = append(issues, scanSecrets(path, string(content), secretStylePython)...)
	issues = append(issues, duplicateFunctionIssues(path, functions)...)
	issues = append(issues, nestedLoopIssues(path, root)...)

	// Average complexity across functions
	avg := 0.0
	if len(functions) > 0 {
		total := 0
		for _, fn := range functions {
			total += fn.complexity
		}
		avg = float64(total) / float64(len(functions))
	}

	metrics := models.FileMetrics{
		FilePath:        path,
		Language:        LangPython,
		LinesOfCode:     countNonBlankLines(string(content)),
		ComplexityScore: avg,
	}

	return issues, metrics
}

func syntaxErrorIssue(path string, line int, detail string) models.CodeIssue {
	title := "Syntax Error"
	return models.CodeIssue{
		ID:          models.IssueID(path, line, title),
		Category:    models.CategoryStyle,
		Severity:    models.SeverityHigh,
		Title:       title,
		Description: "Syntax error: " + detail,
		FilePath:    path,
		LineNumber:  line,
		Suggestion:  "Fix the syntax error to enable proper analysis",
		ImpactScore: 8.0,
	}
}

func locOnlyMetrics(path string, content []byte) models.FileMetrics {
	return models.FileMetrics{
		FilePath:    path,
		Language:    LangPython,
		LinesOfCode: len(strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")),
	}
}

// firstErrorLine returns the 1-based line of the first ERROR or missing node
func firstErrorLine(node *sitter.Node) int {
	if node.Type() == "ERROR" || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() {
			continue
		}
		if line := firstErrorLine(child); line > 0 {
			return line
		}
	}
	if node.HasError() {
		return int(node.StartPoint().Row) + 1
	}
	return 1
}

// pyFunction is the per-function view used by the complexity and
// duplication checks
type pyFunction struct {
	name       string
	line       int
	complexity int
	bodyHash   string
}

func collectFunctions(root *sitter.Node, content []byte) []pyFunction {
	var functions []pyFunction
	walk(root, func(node *sitter.Node) {
		if node.Type() != "function_definition" {
			return
		}
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = n.Content(content)
		}
		fn := pyFunction{
			name:       name,
			line:       int(node.StartPoint().Row) + 1,
			complexity: functionComplexity(node),
		}
		if body := node.ChildByFieldName("body"); body != nil && int(body.NamedChildCount()) > 0 {
			// Hash the first body statement, so trivially renamed copies of
			// the same implementation collide.
			first := body.NamedChild(0)
			sum := sha256.Sum256([]byte(first.Content(content)))
			fn.bodyHash = hex.EncodeToString(sum[:])
		}
		functions = append(functions, fn)
	})
	return functions
}

// decision-point node types counted toward cyclomatic complexity
var complexityNodeTypes = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"for_statement":          true,
	"while_statement":        true,
	"except_clause":          true,
	"boolean_operator":       true,
	"conditional_expression": true,
	"case_clause":            true,
}

func functionComplexity(fn *sitter.Node) int {
	complexity := 1
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node != fn && node.Type() == "function_definition" {
			return // nested defs are scored separately, skip their subtree
		}
		if complexityNodeTypes[node.Type()] {
			complexity++
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			if child := node.Child(i); child != nil {
				visit(child)
			}
		}
	}
	visit(fn)
	return complexity
}

func duplicateFunctionIssues(path string, functions []pyFunction) []models.CodeIssue {
	var issues []models.CodeIssue
	for i, f1 := range functions {
		for _, f2 := range functions[i+1:] {
			if f1.bodyHash != "" && f1.bodyHash == f2.bodyHash && f1.name != f2.name {
				title := "Duplicate code detected"
				issues = append(issues, models.CodeIssue{
					ID:          models.IssueID(path, f1.line, title),
					Category:    models.CategoryDuplication,
					Severity:    models.SeverityMedium,
					Title:       title,
					Description: fmt.Sprintf("Functions '%s' and '%s' have similar implementations", f1.name, f2.name),
					FilePath:    path,
					LineNumber:  f1.line,
					Suggestion:  "Consider extracting common functionality into a shared function",
					ImpactScore: 6.0,
				})
			}
		}
	}
	return issues
}

func nestedLoopIssues(path string, root *sitter.Node) []models.CodeIssue {
	var issues []models.CodeIssue
	walk(root, func(node *sitter.Node) {
		if node.Type() != "for_statement" {
			return
		}
		hasNested := false
		walk(node, func(child *sitter.Node) {
			if child != node && child.Type() == "for_statement" {
				hasNested = true
			}
		})
		if hasNested {
			title := "Nested loops detected"
			line := int(node.StartPoint().Row) + 1
			issues = append(issues, models.CodeIssue{
				ID:          models.IssueID(path, line, title),
				Category:    models.CategoryPerformance,
				Severity:    models.SeverityMedium,
				Title:       title,
				Description: "Nested loops can impact performance",
				FilePath:    path,
				LineNumber:  line,
				Suggestion:  "Consider optimizing the algorithm or using more efficient data structures",
				ImpactScore: 5.0,
			})
		}
	})
	return issues
}

// walk applies fn to node and all of its descendants
func walk(node *sitter.Node, fn func(*sitter.Node)) {
	fn(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			walk(child, fn)
		}
	}
}

// ExtractPythonImports returns the imported module names of a Python file.
// Used by the dependency-graph builder. Returns nil when the file does not
// parse.
func ExtractPythonImports(content []byte) []string {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	var imports []string
	walk(tree.RootNode(), func(node *sitter.Node) {
		switch node.Type() {
		case "import_statement":
			for i := 0; i < int(node.NamedChildCount()); i++ {
				child := node.NamedChild(i)
				switch child.Type() {
				case "dotted_name":
					imports = append(imports, child.Content(content))
				case "aliased_import":
					if name := child.ChildByFieldName("name"); name != nil {
						imports = append(imports, name.Content(content))
					}
				}
			}
		case "import_from_statement":
			if module := node.ChildByFieldName("module_name"); module != nil {
				imports = append(imports, module.Content(content))
			}
		}
	})
	return imports
}
