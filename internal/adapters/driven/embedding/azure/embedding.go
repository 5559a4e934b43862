// Package azure provides an embedding service adapter for Azure-hosted OpenAI
// deployments.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2024-06-01"
	DefaultTimeout    = 60 * time.Second
)

const backendName = "azure openai embedding"

// Config holds configuration for the Azure OpenAI embedding service.
type Config struct {
	// Endpoint is the resource URL (required).
	Endpoint string

	// APIKey is the resource key (required).
	APIKey string

	// Deployment is the embedding model deployment name (required).
	Deployment string

	// APIVersion is the REST API version (default: 2024-06-01).
	APIVersion string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// EmbeddingService generates embeddings using an Azure OpenAI deployment.
type EmbeddingService struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new Azure OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	endpoint, err := domain.ValidateEndpoint(domain.AIServiceAzureOpenAI, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, domain.NewConfigurationError("ai_service.api_key", "", "azure openai: API key is required")
	}
	if cfg.Deployment == "" {
		return nil, domain.NewConfigurationError("ai_service.embedding_model_id", "", "azure openai: deployment is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &EmbeddingService{
		client:     client,
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || embeddings[0] == nil {
		return nil, domain.BackendError(backendName, errors.New("no embedding returned"))
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out, err := s.embed(ctx, texts)
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embeddingRequest{Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		s.endpoint, url.PathEscape(s.deployment), url.QueryEscape(s.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if embedResp.Error != nil {
		return nil, fmt.Errorf("status %d: %s: %s", resp.StatusCode, embedResp.Error.Code, embedResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}

// ModelName returns the deployment name.
func (s *EmbeddingService) ModelName() string {
	return s.deployment
}

// Ping lists the resource's models, which validates the endpoint and key.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	u := fmt.Sprintf("%s/openai/models?api-version=%s", s.endpoint, url.QueryEscape(s.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("azure openai: failed to create ping request: %w", err)
	}
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.BackendError(backendName, fmt.Errorf("ping failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.BackendError(backendName, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
