// Package discovery classifies a working set by language, enforces the
// per-job file cap, and produces an advisory analysis strategy.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/interfaces"
	"github.com/ternarybob/scrutor/internal/models"
	"github.com/ternarybob/scrutor/internal/services/analyzers"
)

// DiscoveredSet maps a language tag to the ordered file paths selected for it
type DiscoveredSet map[string][]string

// TotalFiles returns the number of selected files across all languages
func (d DiscoveredSet) TotalFiles() int {
	n := 0
	for _, paths := range d {
		n += len(paths)
	}
	return n
}

// Languages returns the non-empty language tags in deterministic order
func (d DiscoveredSet) Languages() []string {
	var langs []string
	for lang, paths := range d {
		if len(paths) > 0 {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// Service performs file discovery for one job at a time
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a discovery service. The LLM is optional; when nil the
// strategy hint falls back to the deterministic heuristic.
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{llm: llm, logger: logger}
}

// Discover classifies the working files and truncates the selection to
// maxFiles. Truncation is round-robin across non-empty languages so every
// present language keeps representation. The result is deterministic for a
// given working set.
func (s *Service) Discover(files []models.WorkingFile, maxFiles int) DiscoveredSet {
	set := DiscoveredSet{}
	for _, f := range files {
		lang := analyzers.LanguageForPath(f.Path)
		if lang == "" {
			continue
		}
		set[lang] = append(set[lang], f.Path)
	}
	for _, paths := range set {
		sort.Strings(paths)
	}

	if maxFiles > 0 && set.TotalFiles() > maxFiles {
		set = roundRobinCap(set, maxFiles)
	}

	s.logger.Info().
		Int("total_files", len(files)).
		Int("selected", set.TotalFiles()).
		Int("languages", len(set.Languages())).
		Msg("File discovery complete")

	return set
}

// roundRobinCap takes one path per language per round until the cap is hit
func roundRobinCap(set DiscoveredSet, maxFiles int) DiscoveredSet {
	langs := set.Languages()
	capped := DiscoveredSet{}
	taken := 0
	for round := 0; taken < maxFiles; round++ {
		advanced := false
		for _, lang := range langs {
			if round >= len(set[lang]) {
				continue
			}
			advanced = true
			capped[lang] = append(capped[lang], set[lang][round])
			taken++
			if taken == maxFiles {
				break
			}
		}
		if !advanced {
			break
		}
	}
	return capped
}

// Strategy produces the advisory analysis strategy for a discovered set. It
// asks the LLM for a hint and falls back to the deterministic heuristic when
// the model is unavailable or returns something unusable. The hint never
// fails discovery.
func (s *Service) Strategy(ctx context.Context, set DiscoveredSet) models.StrategyHint {
	if s.llm != nil {
		if hint, err := s.llmStrategy(ctx, set); err == nil {
			return hint
		} else {
			s.logger.Warn().Err(err).Msg("Strategy hint from model failed, using heuristic")
		}
	}
	return heuristicStrategy(set)
}

func (s *Service) llmStrategy(ctx context.Context, set DiscoveredSet) (models.StrategyHint, error) {
	var counts []string
	for _, lang := range set.Languages() {
		counts = append(counts, fmt.Sprintf("%s: %d files", lang, len(set[lang])))
	}

	prompt := fmt.Sprintf(`You are planning a static-analysis run. The corpus contains:
%s

Respond with ONLY a JSON object:
{"parallel_processing": true|false, "priority_language": "python"|"javascript"|"docker", "estimated_complexity": "low"|"medium"|"high"}`,
		strings.Join(counts, "\n"))

	response, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return models.StrategyHint{}, fmt.Errorf("strategy request failed: %w", err)
	}

	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	var hint models.StrategyHint
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), &hint); err != nil {
		return models.StrategyHint{}, fmt.Errorf("strategy response is not valid JSON: %w", err)
	}
	if _, ok := set[hint.PriorityLanguage]; hint.PriorityLanguage != "" && !ok {
		return models.StrategyHint{}, fmt.Errorf("strategy names absent language %q", hint.PriorityLanguage)
	}
	return hint, nil
}

// heuristicStrategy is the deterministic fallback: parallel when two or more
// language groups are present, priority to the largest group with Python
// winning ties.
func heuristicStrategy(set DiscoveredSet) models.StrategyHint {
	langs := set.Languages()

	priority := ""
	best := 0
	for _, lang := range []string{analyzers.LangPython, analyzers.LangJavaScript, analyzers.LangDocker} {
		if len(set[lang]) > best {
			best = len(set[lang])
			priority = lang
		}
	}

	complexity := "low"
	switch total := set.TotalFiles(); {
	case total > 50:
		complexity = "high"
	case total > 15:
		complexity = "medium"
	}

	return models.StrategyHint{
		ParallelProcessing:  len(langs) >= 2,
		PriorityLanguage:    priority,
		EstimatedComplexity: complexity,
	}
}
