package pipeline

import (
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/analyzers"
	"github.com/ternarybob/scrutor/internal/services/discovery"
)

// Stage identifies one step of the analysis workflow. A job moves through
// stages strictly in plan order; analyzer stages are skipped for languages
// absent from the discovered set.
type Stage string

const (
	StageDiscovery  Stage = "discovery"
	StagePython     Stage = "python_analysis"
	StageJavaScript Stage = "javascript_analysis"
	StageDocker     Stage = "docker_analysis"
	StageNoFiles    Stage = "no_files"
	StageEnhance    Stage = "enhancement"
	StageReview     Stage = "ai_review"
	StageGraph      Stage = "dependency_graph"
	StageReport     Stage = "external_report"
	StageDone       Stage = "done"
)

// analyzerStageFor maps a language tag to its analyzer stage
func analyzerStageFor(lang string) (Stage, bool) {
	switch lang {
	case analyzers.LangPython:
		return StagePython, true
	case analyzers.LangJavaScript:
		return StageJavaScript, true
	case analyzers.LangDocker:
		return StageDocker, true
	}
	return "", false
}

// languageFor is the inverse of analyzerStageFor
func languageFor(s Stage) string {
	switch s {
	case StagePython:
		return analyzers.LangPython
	case StageJavaScript:
		return analyzers.LangJavaScript
	case StageDocker:
		return analyzers.LangDocker
	}
	return ""
}

// defaultLanguageOrder fixes the analyzer order when the strategy names no
// priority language
var defaultLanguageOrder = []string{
	analyzers.LangPython,
	analyzers.LangJavaScript,
	analyzers.LangDocker,
}

// PlanStages computes the stage sequence for a discovered set. The priority
// language from the strategy hint runs first; remaining languages follow the
// default order. An empty set routes straight to StageNoFiles.
func PlanStages(set discovery.DiscoveredSet, hint models.StrategyHint, includeReport bool) []Stage {
	if set.TotalFiles() == 0 {
		return []Stage{StageNoFiles}
	}

	present := map[string]bool{}
	for _, lang := range set.Languages() {
		present[lang] = true
	}

	var plan []Stage
	seen := map[string]bool{}
	if hint.PriorityLanguage != "" && present[hint.PriorityLanguage] {
		if s, ok := analyzerStageFor(hint.PriorityLanguage); ok {
			plan = append(plan, s)
			seen[hint.PriorityLanguage] = true
		}
	}
	for _, lang := range defaultLanguageOrder {
		if present[lang] && !seen[lang] {
			if s, ok := analyzerStageFor(lang); ok {
				plan = append(plan, s)
				seen[lang] = true
			}
		}
	}

	plan = append(plan, StageEnhance, StageReview, StageGraph)
	if includeReport {
		plan = append(plan, StageReport)
	}
	return append(plan, StageDone)
}

// stageProgress maps each stage to the job progress percentage reported when
// the stage begins. Analyzer stages share the 20-60 band.
func stageProgress(s Stage, index, analyzerCount int) float64 {
	switch s {
	case StageDiscovery:
		return 10
	case StagePython, StageJavaScript, StageDocker:
		if analyzerCount == 0 {
			return 20
		}
		return 20 + 40*float64(index)/float64(analyzerCount)
	case StageEnhance:
		return 60
	case StageReview:
		return 70
	case StageGraph:
		return 85
	case StageReport:
		return 90
	case StageDone, StageNoFiles:
		return 100
	}
	return 0
}
