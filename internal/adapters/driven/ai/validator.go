package ai

import (
	"context"
	"errors"
	"time"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI service configurations by building each
// backend and pinging it.
type ConfigValidator struct {
	factory driven.AIServiceFactory
}

// NewConfigValidator creates a new AI config validator.
// A nil factory uses NewFactory().
func NewConfigValidator(factory driven.AIServiceFactory) *ConfigValidator {
	if factory == nil {
		factory = NewFactory()
	}
	return &ConfigValidator{factory: factory}
}

// ValidateCompletion builds the completion backend and pings it.
func (v *ConfigValidator) ValidateCompletion(ctx context.Context, settings *domain.AIServiceSettings) error {
	svc, err := v.factory.CreateCompletionService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateEmbedding builds the embedding backend and pings it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.AIServiceSettings) error {
	svc, err := v.factory.CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateConnectivity checks both backends and joins their failures.
func ValidateConnectivity(ctx context.Context, validator driven.AIConfigValidator, settings *domain.AIServiceSettings) error {
	return errors.Join(
		validator.ValidateCompletion(ctx, settings),
		validator.ValidateEmbedding(ctx, settings),
	)
}
