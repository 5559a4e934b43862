// Package ai provides the factory that turns AI service settings into
// completion and embedding backends.
package ai

import (
	azureembed "github.com/ehalsey/chat-copilot/internal/adapters/driven/embedding/azure"
	openaiembed "github.com/ehalsey/chat-copilot/internal/adapters/driven/embedding/openai"
	azurellm "github.com/ehalsey/chat-copilot/internal/adapters/driven/llm/azure"
	openaillm "github.com/ehalsey/chat-copilot/internal/adapters/driven/llm/openai"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
	"github.com/ehalsey/chat-copilot/internal/logger"
)

// Ensure Factory implements the interface.
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates completion and embedding backends. Both methods dispatch
// on the same service type, so a kernel never mixes providers.
type Factory struct {
	// baseURL overrides the OpenAI base URL. Empty uses the public API.
	baseURL string
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithOpenAIBaseURL points OpenAI backends at a compatible API.
func WithOpenAIBaseURL(u string) FactoryOption {
	return func(f *Factory) {
		f.baseURL = u
	}
}

// NewFactory creates a new AI service factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCompletionService creates the completion backend selected by settings.Type.
func (f *Factory) CreateCompletionService(settings *domain.AIServiceSettings) (driven.CompletionService, error) {
	if settings == nil {
		return nil, domain.NewConfigurationError("ai_service", "", "settings block is required")
	}

	//exhaustive:enforce
	switch settings.Type {
	case domain.AIServiceAzureOpenAI:
		logger.Debug("creating Azure OpenAI completion service (deployment %s)", settings.CompletionModelID)
		return azurellm.NewCompletionService(azurellm.Config{
			Endpoint:   settings.Endpoint,
			APIKey:     settings.APIKey,
			Deployment: settings.CompletionModelID,
		})

	case domain.AIServiceOpenAI:
		if settings.CompletionModelID == "" {
			return nil, domain.NewConfigurationError("ai_service.completion_model_id", "", "completion model is required")
		}
		logger.Debug("creating OpenAI completion service (model %s)", settings.CompletionModelID)
		return openaillm.NewCompletionService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: f.baseURL,
			Model:   settings.CompletionModelID,
		})

	default:
		return nil, unsupportedType(settings.Type)
	}
}

// CreateEmbeddingService creates the embedding backend selected by settings.Type.
func (f *Factory) CreateEmbeddingService(settings *domain.AIServiceSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, domain.NewConfigurationError("ai_service", "", "settings block is required")
	}

	//exhaustive:enforce
	switch settings.Type {
	case domain.AIServiceAzureOpenAI:
		logger.Debug("creating Azure OpenAI embedding service (deployment %s)", settings.EmbeddingModelID)
		return azureembed.NewEmbeddingService(azureembed.Config{
			Endpoint:   settings.Endpoint,
			APIKey:     settings.APIKey,
			Deployment: settings.EmbeddingModelID,
		})

	case domain.AIServiceOpenAI:
		if settings.EmbeddingModelID == "" {
			return nil, domain.NewConfigurationError("ai_service.embedding_model_id", "", "embedding model is required")
		}
		logger.Debug("creating OpenAI embedding service (model %s)", settings.EmbeddingModelID)
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    f.baseURL,
			Model:      settings.EmbeddingModelID,
			Dimensions: domain.EmbeddingDimensions()[settings.EmbeddingModelID],
		})

	default:
		return nil, unsupportedType(settings.Type)
	}
}

func unsupportedType(t domain.AIServiceType) error {
	return domain.NewConfigurationError("ai_service.type", string(t), "unsupported AI service type")
}
