package output

import "context"

// Role is the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to the completion provider
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a chat completion request
type CompletionRequest struct {
	Model       string    // Model identifier (e.g. gpt-4)
	Messages    []Message // Conversation, system prompt first
	Temperature float64   // Sampling temperature
	Stop        []string  // Optional stop sequences
}

// CompletionGateway is the interface for a language-model completion provider
type CompletionGateway interface {
	// Stream sends req and calls onChunk for every piece of generated text as
	// it arrives. It returns the full completion. When ctx is cancelled the
	// text received so far is returned together with the context error.
	Stream(ctx context.Context, req CompletionRequest, onChunk func(chunk string) error) (string, error)

	// Provider returns the provider name (openai, anthropic)
	Provider() string
}

// TokenCounter counts tokens the way the provider bills them
type TokenCounter interface {
	Count(model, text string) int
}
