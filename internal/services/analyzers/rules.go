package analyzers

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// secretRule is one compiled secret-detection pattern
type secretRule struct {
	Pattern  string `yaml:"pattern"`
	Type     string `yaml:"type"`
	Severity string `yaml:"severity"`
	// Format marks provider-specific key shapes (sk-, AIza, AKIA). These are
	// high-confidence and reported even when the line carries a test
	// indicator.
	Format bool `yaml:"format"`

	re *regexp.Regexp
}

type ruleSet struct {
	SecretPatterns struct {
		Python     []secretRule `yaml:"python"`
		JavaScript []secretRule `yaml:"javascript"`
	} `yaml:"secret_patterns"`
	TestIndicators     []string `yaml:"test_indicators"`
	OutdatedBaseImages []string `yaml:"outdated_base_images"`
}

var (
	rulesOnce sync.Once
	rules     *ruleSet
	rulesErr  error
)

// loadRules parses and compiles the embedded rule sets once
func loadRules() *ruleSet {
	rulesOnce.Do(func() {
		rs := &ruleSet{}
		if err := yaml.Unmarshal(rulesYAML, rs); err != nil {
			rulesErr = fmt.Errorf("failed to parse embedded rules: %w", err)
			rules = &ruleSet{}
			return
		}
		compile := func(list []secretRule) []secretRule {
			out := make([]secretRule, 0, len(list))
			for _, r := range list {
				re, err := regexp.Compile("(?i)" + r.Pattern)
				if err != nil {
					continue
				}
				r.re = re
				out = append(out, r)
			}
			return out
		}
		rs.SecretPatterns.Python = compile(rs.SecretPatterns.Python)
		rs.SecretPatterns.JavaScript = compile(rs.SecretPatterns.JavaScript)
		rules = rs
	})
	return rules
}
