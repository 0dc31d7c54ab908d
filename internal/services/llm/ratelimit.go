package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ternarybob/scrutor/internal/interfaces"
)

// rateLimited wraps a provider so that Chat calls respect a minimum interval.
// HealthCheck is deliberately not limited; probes are rare and short.
type rateLimited struct {
	interfaces.LLMService
	limiter *rate.Limiter
}

// WithRateLimit wraps svc so successive Chat calls are spaced at least
// minInterval apart. A non-positive interval returns svc unchanged.
func WithRateLimit(svc interfaces.LLMService, minInterval time.Duration) interfaces.LLMService {
	if minInterval <= 0 {
		return svc
	}
	return &rateLimited{
		LLMService: svc,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (r *rateLimited) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.LLMService.Chat(ctx, messages)
}

// isRateLimitError matches 429 and quota-exhaustion responses
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

// retryDelayRe matches "Please retry in Xs" or "retryDelay: Xs" in provider
// error messages
var retryDelayRe = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// extractRetryDelay parses the API-suggested retry delay from an error.
// Returns 0 when the message carries no delay.
func extractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRe.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
