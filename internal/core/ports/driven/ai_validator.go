package driven

import (
	"context"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

// AIConfigValidator validates AI service configurations.
// Implementations verify connectivity to the underlying AI services.
type AIConfigValidator interface {
	// ValidateCompletion builds the completion backend and pings it.
	ValidateCompletion(ctx context.Context, settings *domain.AIServiceSettings) error

	// ValidateEmbedding builds the embedding backend and pings it.
	ValidateEmbedding(ctx context.Context, settings *domain.AIServiceSettings) error
}
