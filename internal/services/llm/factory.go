package llm

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrutor/internal/common"
	"github.com/ternarybob/scrutor/internal/interfaces"
)

// NewLLMService creates the provider named by provider ("claude" or
// "gemini"), falling back to the configured default when empty. The returned
// service is wrapped with the provider's configured rate limit.
func NewLLMService(cfg *common.Config, provider string, logger arbor.ILogger) (interfaces.LLMService, error) {
	resolved := common.LLMProvider(provider)
	if provider == "" {
		resolved = cfg.LLM.DefaultProvider
	}

	switch resolved {
	case common.LLMProviderClaude:
		svc, err := NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			return nil, err
		}
		return WithRateLimit(svc, parseRateLimit(cfg.Claude.RateLimit)), nil

	case common.LLMProviderGemini:
		svc, err := NewGeminiService(&cfg.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return WithRateLimit(svc, parseRateLimit(cfg.Gemini.RateLimit)), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q: must be 'claude' or 'gemini'", resolved)
	}
}

// Available reports which providers have credentials configured
func Available(cfg *common.Config) map[string]bool {
	return map[string]bool{
		string(common.LLMProviderClaude): cfg.Claude.APIKey != "",
		string(common.LLMProviderGemini): cfg.Gemini.APIKey != "",
	}
}

func parseRateLimit(value string) time.Duration {
	if value == "" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
