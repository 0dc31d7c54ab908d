package models

// ReviewEnvelope is the strict JSON document expected from the AI review
// pass. Malformed model output is repaired or reduced to a partial envelope
// with Error set; the envelope itself never fails to exist.
type ReviewEnvelope struct {
	ExecutiveSummary     string                `json:"executive_summary"`
	ArchitectureAnalysis *ArchitectureAnalysis `json:"architecture_analysis,omitempty"`
	EnhancedIssues       []ReviewIssue         `json:"enhanced_issues"`
	NewIssuesFound       []ReviewIssue         `json:"new_issues_found"`
	FalsePositives       []string              `json:"false_positives,omitempty"`
	Recommendations      *Recommendations      `json:"recommendations,omitempty"`
	QualityMetrics       *QualityMetrics       `json:"quality_metrics,omitempty"`
	TechnicalDebt        *TechnicalDebt        `json:"technical_debt,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// ReviewIssue is an issue as emitted by the model: either an enhancement of
// an existing issue (matched by ID) or a genuinely new finding.
type ReviewIssue struct {
	ID             string  `json:"id"`
	Severity       string  `json:"severity,omitempty"`
	Category       string  `json:"category,omitempty"`
	Title          string  `json:"title,omitempty"`
	Description    string  `json:"description,omitempty"`
	FilePath       string  `json:"file_path,omitempty"`
	LineNumber     int     `json:"line_number,omitempty"`
	CodeSnippet    string  `json:"code_snippet,omitempty"`
	AIAnalysis     string  `json:"ai_analysis,omitempty"`
	BusinessImpact string  `json:"business_impact,omitempty"`
	FixStrategy    string  `json:"fix_strategy,omitempty"`
	CodeExample    string  `json:"code_example,omitempty"`
	Prevention     string  `json:"prevention,omitempty"`
	ImpactScore    float64 `json:"impact_score,omitempty"`
}

// ArchitectureAnalysis captures corpus-level structural observations
type ArchitectureAnalysis struct {
	DesignPatterns      []string `json:"design_patterns,omitempty"`
	AntiPatterns        []string `json:"anti_patterns,omitempty"`
	StructureAssessment string   `json:"structure_assessment,omitempty"`
	Dependencies        string   `json:"dependencies,omitempty"`
	ModularityScore     float64  `json:"modularity_score,omitempty"`
}

// Recommendations groups suggested follow-up work by horizon
type Recommendations struct {
	ImmediateActions []string `json:"immediate_actions,omitempty"`
	ShortTerm        []string `json:"short_term,omitempty"`
	LongTerm         []string `json:"long_term,omitempty"`
	ToolsSuggested   []string `json:"tools_suggested,omitempty"`
	BestPractices    []string `json:"best_practices,omitempty"`
}

// QualityMetrics are model-assessed scores on a 0-10 scale
type QualityMetrics struct {
	OverallScore           float64 `json:"overall_score,omitempty"`
	SecurityScore          float64 `json:"security_score,omitempty"`
	MaintainabilityScore   float64 `json:"maintainability_score,omitempty"`
	PerformanceScore       float64 `json:"performance_score,omitempty"`
	TestCoverageAssessment string  `json:"test_coverage_assessment,omitempty"`
}

// TechnicalDebt summarizes the model's debt assessment
type TechnicalDebt struct {
	Level               string   `json:"level,omitempty"`
	MainSources         []string `json:"main_sources,omitempty"`
	RefactoringPriority string   `json:"refactoring_priority,omitempty"`
}

// StrategyHint is the advisory analysis strategy produced by discovery
type StrategyHint struct {
	ParallelProcessing  bool   `json:"parallel_processing"`
	PriorityLanguage    string `json:"priority_language,omitempty"`
	EstimatedComplexity string `json:"estimated_complexity,omitempty"`
}
