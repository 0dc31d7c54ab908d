package analyzers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scrutor/internal/models"
)

func findByTitle(issues []models.CodeIssue, title string) []models.CodeIssue {
	var out []models.CodeIssue
	for _, issue := range issues {
		if issue.Title == title {
			out = append(out, issue)
		}
	}
	return out
}

func TestJavaScriptAnalyzer_ConsoleAndVar(t *testing.T) {
	content := []byte(`var counter = 0;
console.log("boot");
`)

	analyzer := NewJavaScriptAnalyzer()
	issues, metrics := analyzer.Analyze("app.js", content)

	vars := findByTitle(issues, "Use of 'var' keyword")
	require.Len(t, vars, 1)
	assert.Equal(t, models.SeverityLow, vars[0].Severity)
	assert.Equal(t, 1, vars[0].LineNumber)

	logs := findByTitle(issues, "Console statement found")
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].LineNumber)

	assert.Equal(t, "javascript", metrics.Language)
}

func TestJavaScriptAnalyzer_DOMQueryInLoop(t *testing.T) {
	content := []byte(`for (let i = 0; i < 10; i++) {
  const el = document.getElementById("row-" + i);
  el.textContent = i;
}
`)

	analyzer := NewJavaScriptAnalyzer()
	issues, _ := analyzer.Analyze("render.js", content)

	dom := findByTitle(issues, "DOM query in loop")
	require.Len(t, dom, 1)
	assert.Equal(t, models.SeverityMedium, dom[0].Severity)
	assert.Equal(t, models.CategoryPerformance, dom[0].Category)
	assert.Equal(t, 2, dom[0].LineNumber)
}

func TestJavaScriptAnalyzer_SecuritySinks(t *testing.T) {
	content := []byte(`eval(userInput);
node.innerHTML = userInput;
`)

	analyzer := NewJavaScriptAnalyzer()
	issues, _ := analyzer.Analyze("unsafe.js", content)

	evals := findByTitle(issues, "Use of eval() function")
	require.Len(t, evals, 1)
	assert.Equal(t, models.SeverityHigh, evals[0].Severity)
	assert.Equal(t, models.CategorySecurity, evals[0].Category)

	sinks := findByTitle(issues, "Use of innerHTML")
	require.Len(t, sinks, 1)
	assert.Equal(t, models.SeverityMedium, sinks[0].Severity)
	assert.Equal(t, 2, sinks[0].LineNumber)
}

func TestJavaScriptAnalyzer_LongFunction(t *testing.T) {
	var b strings.Builder
	b.WriteString("function bigOne() {\n")
	for i := 0; i < 55; i++ {
		fmt.Fprintf(&b, "  doStep(%d);\n", i)
	}
	b.WriteString("}\n")

	analyzer := NewJavaScriptAnalyzer()
	issues, _ := analyzer.Analyze("big.js", []byte(b.String()))

	long := findByTitle(issues, "Long function detected")
	require.Len(t, long, 1)
	assert.Equal(t, models.SeverityMedium, long[0].Severity)
	assert.Equal(t, 1, long[0].LineNumber)
}

func TestJavaScriptAnalyzer_TypeScriptLanguage(t *testing.T) {
	analyzer := NewJavaScriptAnalyzer()
	_, metrics := analyzer.Analyze("service.ts", []byte("const total = 1;\n"))
	assert.Equal(t, "typescript", metrics.Language)
}

func TestExtractJSImports(t *testing.T) {
	content := []byte(`import { api } from './api/client';
import React from 'react';
const utils = require('../shared/utils');
`)

	imports := ExtractJSImports(content)

	assert.Contains(t, imports, "./api/client")
	assert.Contains(t, imports, "react")
	assert.Contains(t, imports, "../shared/utils")
}
