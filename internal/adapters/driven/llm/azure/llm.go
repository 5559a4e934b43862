// Package azure provides a completion service adapter for Azure-hosted OpenAI
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

// Ensure CompletionService implements the interface.
var _ driven.CompletionService = (*CompletionService)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2024-06-01"
	DefaultTimeout    = 120 * time.Second
)

const backendName = "azure openai completion"

// Config holds configuration for the Azure OpenAI completion service.
type Config struct {
	// Endpoint is the resource URL, e.g. https://my-resource.openai.azure.com (required).
	Endpoint string

	// APIKey is the resource key (required).
	APIKey string

	// Deployment is the completion model deployment name (required).
	Deployment string

	// APIVersion is the REST API version (default: 2024-06-01).
	APIVersion string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// CompletionService generates text using an Azure OpenAI deployment.
type CompletionService struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewCompletionService creates a new Azure OpenAI completion service.
// The endpoint is validated here; no request is made until the first call.
func NewCompletionService(cfg Config) (*CompletionService, error) {
	endpoint, err := domain.ValidateEndpoint(domain.AIServiceAzureOpenAI, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, domain.NewConfigurationError("ai_service.api_key", "", "azure openai: API key is required")
	}
	if cfg.Deployment == "" {
		return nil, domain.NewConfigurationError("ai_service.completion_model_id", "", "azure openai: deployment is required")
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

	return &CompletionService{
		client:     client,
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *CompletionService) Generate(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	return s.Chat(ctx, []domain.ChatMessage{{Role: domain.RoleUser, Content: prompt}}, opts)
}

// Chat conducts a multi-turn conversation.
func (s *CompletionService) Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error) {
	out, err := s.chat(ctx, messages, opts)
	if err != nil {
		return "", domain.BackendError(backendName, err)
	}
	return out, nil
}

func (s *CompletionService) chat(ctx context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	jsonBody, err := json.Marshal(chatRequest{
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.StopSequences,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.deploymentURL("chat/completions"), bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("status %d: %s: %s", resp.StatusCode, chatResp.Error.Code, chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (s *CompletionService) deploymentURL(operation string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		s.endpoint, url.PathEscape(s.deployment), operation, url.QueryEscape(s.apiVersion))
}

// ModelName returns the deployment name.
func (s *CompletionService) ModelName() string {
	return s.deployment
}

// Ping lists the resource's models, which validates the endpoint and key.
func (s *CompletionService) Ping(ctx context.Context) error {
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
func (s *CompletionService) Close() error {
	return nil
}
