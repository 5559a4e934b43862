package domain

// CompletionOptions configures text generation behaviour.
type CompletionOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// Nil leaves the choice to the kernel defaults or the backend.
	Temperature *float64

	// TopP restricts sampling to the smallest token set with this cumulative
	// probability. Nil means unset.
	TopP *float64

	// StopSequences stop generation when encountered.
	StopSequences []string
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Float returns a pointer to v, for optional sampling parameters.
func Float(v float64) *float64 {
	return &v
}
