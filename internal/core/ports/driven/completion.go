// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

// CompletionService generates text from prompts.
// Implementations must be safe for concurrent use; one instance is shared by
// every kernel assembled in the process.
//
// Implementations include:
//   - Azure OpenAI (deployment-addressed)
//   - OpenAI (model-addressed)
type CompletionService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error)

	// ModelName returns the model (or deployment) being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// Construction never touches the network; Ping is the explicit check.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
