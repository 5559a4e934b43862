package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

func TestFactory_CreateCompletionService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.AIServiceSettings
		wantModel string
		wantField string
	}{
		{
			name: "openai",
			settings: &domain.AIServiceSettings{
				Type:              domain.AIServiceOpenAI,
				APIKey:            "sk",
				CompletionModelID: "gpt-4o",
				EmbeddingModelID:  "text-embedding-3-small",
			},
			wantModel: "gpt-4o",
		},
		{
			name: "azure",
			settings: &domain.AIServiceSettings{
				Type:              domain.AIServiceAzureOpenAI,
				Endpoint:          "https://res.openai.azure.com",
				APIKey:            "key",
				CompletionModelID: "gpt35-deployment",
				EmbeddingModelID:  "ada-deployment",
			},
			wantModel: "gpt35-deployment",
		},
		{
			name: "azure without endpoint",
			settings: &domain.AIServiceSettings{
				Type:              domain.AIServiceAzureOpenAI,
				APIKey:            "key",
				CompletionModelID: "gpt35",
			},
			wantField: "ai_service.endpoint",
		},
		{
			name:      "unknown type",
			settings:  &domain.AIServiceSettings{Type: "HuggingFace", APIKey: "k", CompletionModelID: "m"},
			wantField: "ai_service.type",
		},
		{
			name:      "openai without key",
			settings:  &domain.AIServiceSettings{Type: domain.AIServiceOpenAI, CompletionModelID: "m"},
			wantField: "ai_service.api_key",
		},
		{
			name:      "openai without model",
			settings:  &domain.AIServiceSettings{Type: domain.AIServiceOpenAI, APIKey: "k"},
			wantField: "ai_service.completion_model_id",
		},
		{
			name:      "nil settings",
			settings:  nil,
			wantField: "ai_service",
		},
	}

	factory := NewFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := factory.CreateCompletionService(tt.settings)
			if tt.wantField != "" {
				var cfgErr *domain.ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "got %v", err)
				assert.Equal(t, tt.wantField, cfgErr.Field)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestFactory_CreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.AIServiceSettings
		wantModel string
		wantField string
	}{
		{
			name: "openai uses embedding model",
			settings: &domain.AIServiceSettings{
				Type:              domain.AIServiceOpenAI,
				APIKey:            "sk",
				CompletionModelID: "gpt-4o",
				EmbeddingModelID:  "text-embedding-3-large",
			},
			wantModel: "text-embedding-3-large",
		},
		{
			name: "azure uses embedding deployment",
			settings: &domain.AIServiceSettings{
				Type:              domain.AIServiceAzureOpenAI,
				Endpoint:          "https://res.openai.azure.com",
				APIKey:            "key",
				CompletionModelID: "gpt35-deployment",
				EmbeddingModelID:  "ada-deployment",
			},
			wantModel: "ada-deployment",
		},
		{
			name: "azure without endpoint",
			settings: &domain.AIServiceSettings{
				Type:             domain.AIServiceAzureOpenAI,
				APIKey:           "key",
				EmbeddingModelID: "ada",
			},
			wantField: "ai_service.endpoint",
		},
		{
			name:      "unknown type",
			settings:  &domain.AIServiceSettings{Type: "HuggingFace"},
			wantField: "ai_service.type",
		},
	}

	factory := NewFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := factory.CreateEmbeddingService(tt.settings)
			if tt.wantField != "" {
				var cfgErr *domain.ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "got %v", err)
				assert.Equal(t, tt.wantField, cfgErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestFactory_UnknownTypeSameErrorForBoth(t *testing.T) {
	settings := &domain.AIServiceSettings{Type: "HuggingFace", APIKey: "k"}
	factory := NewFactory()

	_, errCompletion := factory.CreateCompletionService(settings)
	_, errEmbedding := factory.CreateEmbeddingService(settings)

	require.Error(t, errCompletion)
	require.Error(t, errEmbedding)
	assert.Equal(t, errCompletion.Error(), errEmbedding.Error())
	assert.Contains(t, errCompletion.Error(), "HuggingFace")
}
