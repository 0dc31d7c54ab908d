package interfaces

import "context"

// Message represents a single turn in an LLM conversation
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMService is the narrow capability every pipeline stage uses to talk to a
// model. Stages must degrade gracefully when calls fail or time out.
type LLMService interface {
	// Chat generates a completion for the conversation history
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the service can handle requests
	HealthCheck(ctx context.Context) error

	// ProviderName returns the provider identifier ("claude" or "gemini")
	ProviderName() string

	// Close releases resources
	Close() error
}
