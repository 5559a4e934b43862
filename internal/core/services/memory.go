package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
	"github.com/ehalsey/chat-copilot/internal/logger"
)

// SemanticMemory saves and recalls text by meaning. Text is embedded with the
// embedding backend and persisted in the vector store; recall embeds the
// query and returns the closest records.
type SemanticMemory struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	now      func() time.Time
}

// NewSemanticMemory wraps an embedding backend and a vector store.
func NewSemanticMemory(embedder driven.EmbeddingService, store driven.VectorStore) (*SemanticMemory, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service is required", domain.ErrInvalidInput)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: vector store is required", domain.ErrInvalidInput)
	}
	return &SemanticMemory{
		embedder: embedder,
		store:    store,
		now:      time.Now,
	}, nil
}

// SaveInformation embeds text and stores it under id. An empty id generates
// one. The stored key is returned.
func (m *SemanticMemory) SaveInformation(
	ctx context.Context, collection, id, text, description, additionalMetadata string,
) (string, error) {
	if err := domain.ValidateCollectionName(collection); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	if id == "" {
		id = uuid.NewString()
	}

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed memory %s/%s: %w", collection, id, err)
	}

	key, err := m.store.Upsert(ctx, domain.MemoryRecord{
		ID:                 id,
		Collection:         collection,
		Text:               text,
		Description:        description,
		AdditionalMetadata: additionalMetadata,
		Embedding:          embedding,
		Timestamp:          m.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("save memory %s/%s: %w", collection, id, err)
	}
	logger.Debug("saved memory %s/%s", collection, key)
	return key, nil
}

// SaveReference records a pointer to content held by an external system.
// The text is embedded for search but not stored.
func (m *SemanticMemory) SaveReference(
	ctx context.Context, collection, text, externalID, externalSourceName, description, additionalMetadata string,
) (string, error) {
	if err := domain.ValidateCollectionName(collection); err != nil {
		return "", err
	}
	if externalID == "" {
		return "", fmt.Errorf("%w: external id is required", domain.ErrInvalidInput)
	}
	if externalSourceName == "" {
		return "", fmt.Errorf("%w: external source name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed reference %s/%s: %w", collection, externalID, err)
	}

	key, err := m.store.Upsert(ctx, domain.MemoryRecord{
		ID:                 externalID,
		Collection:         collection,
		Description:        description,
		ExternalSourceName: externalSourceName,
		IsReference:        true,
		AdditionalMetadata: additionalMetadata,
		Embedding:          embedding,
		Timestamp:          m.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("save reference %s/%s: %w", collection, externalID, err)
	}
	logger.Debug("saved reference %s/%s from %s", collection, key, externalSourceName)
	return key, nil
}

// Get fetches a record by key. Returns nil and no error when it is absent.
func (m *SemanticMemory) Get(ctx context.Context, collection, key string, withEmbedding bool) (*domain.MemoryRecord, error) {
	if err := domain.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	record, err := m.store.Get(ctx, collection, key, withEmbedding)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory %s/%s: %w", collection, key, err)
	}
	return record, nil
}

// Search returns the records most similar to query, best first.
// A non-positive limit means domain.DefaultRecallLimit.
func (m *SemanticMemory) Search(
	ctx context.Context, collection, query string, limit int, minRelevance float64, withEmbeddings bool,
) ([]domain.MemoryQueryResult, error) {
	if err := domain.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.MemoryQueryResult{}, nil
	}
	if limit <= 0 {
		limit = domain.DefaultRecallLimit
	}
	minRelevance = min(max(minRelevance, 0), 1)

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := m.store.Query(ctx, collection, embedding, limit, minRelevance, withEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("search memory %s: %w", collection, err)
	}
	logger.Debug("recalled %d memories from %s", len(results), collection)
	if results == nil {
		results = []domain.MemoryQueryResult{}
	}
	return results, nil
}

// Remove deletes a record. Removing a missing record is not an error.
func (m *SemanticMemory) Remove(ctx context.Context, collection, key string) error {
	if err := domain.ValidateCollectionName(collection); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: key is required", domain.ErrInvalidInput)
	}
	if err := m.store.Delete(ctx, collection, key); err != nil {
		return fmt.Errorf("remove memory %s/%s: %w", collection, key, err)
	}
	return nil
}
