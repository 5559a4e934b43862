package driven

import "github.com/ehalsey/chat-copilot/internal/core/domain"

// AIServiceFactory creates AI backends from configuration.
// Both methods dispatch on the same service type and fail with a
// *domain.ConfigurationError for an unknown type or missing required field.
type AIServiceFactory interface {
	// CreateCompletionService creates the completion backend.
	CreateCompletionService(settings *domain.AIServiceSettings) (CompletionService, error)

	// CreateEmbeddingService creates the embedding backend.
	CreateEmbeddingService(settings *domain.AIServiceSettings) (EmbeddingService, error)
}

// MemoryStoreFactory creates the long-term memory backend from configuration.
type MemoryStoreFactory interface {
	// CreateMemoryStore returns the store selected by settings.Type.
	// Fails with a *domain.ConfigurationError when the matching block is
	// missing or the type is unknown.
	CreateMemoryStore(settings *domain.MemoryStoreSettings) (VectorStore, error)
}
