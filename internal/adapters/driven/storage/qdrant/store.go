// Package qdrant provides a memory store backed by a Qdrant server reached
// over its REST API.
package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/transport"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const backendName = "qdrant"

// pointNamespace seeds the UUIDv5 point ids derived from collection and key.
var pointNamespace = uuid.MustParse("6f1c8a52-3c1e-4f0e-9a51-1d2b9f0c7e44")

// Config holds configuration for the Qdrant store.
type Config struct {
	// BaseURL is the server URL, e.g. http://localhost:6333 (required).
	BaseURL string

	// VectorSize is used when creating collections. Zero takes the size of
	// the first embedding written.
	VectorSize int

	// HTTPClient carries auth, TLS and rate limiting (required).
	HTTPClient *http.Client
}

// Store keeps memory records as Qdrant points. Each memory collection maps to
// a Qdrant collection of the same name.
type Store struct {
	client     *http.Client
	baseURL    string
	vectorSize int

	mu    sync.Mutex
	ready map[string]bool
}

// NewStore creates a Qdrant store. No request is made until the first call.
func NewStore(cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, domain.NewConfigurationError("memory_store.qdrant.host", "", "base URL is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = transport.NewClient(transport.Options{})
	}
	return &Store{
		client:     cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		vectorSize: cfg.VectorSize,
		ready:      make(map[string]bool),
	}, nil
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector,omitempty"`
	Payload payload   `json:"payload"`
}

type payload struct {
	Key                string `json:"key"`
	Text               string `json:"text"`
	Description        string `json:"description,omitempty"`
	ExternalSourceName string `json:"external_source_name,omitempty"`
	IsReference        bool   `json:"is_reference"`
	AdditionalMetadata string `json:"additional_metadata,omitempty"`
	Timestamp          string `json:"timestamp"`
}

type scoredPoint struct {
	ID      string    `json:"id"`
	Score   float64   `json:"score"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

// PointID returns the Qdrant point id for a record key.
func PointID(collection, key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(collection+"\x00"+key)).String()
}

func (s *Store) collectionURL(collection string) string {
	return s.baseURL + "/collections/" + url.PathEscape(collection)
}

// ensureCollection creates the collection on first write.
func (s *Store) ensureCollection(ctx context.Context, collection string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready[collection] {
		return nil
	}

	err := transport.DoJSON(ctx, s.client, http.MethodGet, s.collectionURL(collection), nil, nil)
	switch {
	case err == nil:
	case transport.IsNotFound(err):
		size := s.vectorSize
		if size == 0 {
			size = dim
		}
		body := map[string]any{
			"vectors": map[string]any{"size": size, "distance": "Cosine"},
		}
		if err := transport.DoJSON(ctx, s.client, http.MethodPut, s.collectionURL(collection), body, nil); err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
	default:
		return fmt.Errorf("get collection %s: %w", collection, err)
	}

	s.ready[collection] = true
	return nil
}

// forget drops the cached readiness of a collection after the server answered
// 404 for it, so the next write checks and re-creates it.
func (s *Store) forget(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ready, collection)
}

// Upsert writes the record as a point.
func (s *Store) Upsert(ctx context.Context, record domain.MemoryRecord) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	if len(record.Embedding) == 0 {
		return "", fmt.Errorf("%w: record embedding is required", domain.ErrInvalidInput)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	body := map[string]any{
		"points": []point{{
			ID:     PointID(record.Collection, record.ID),
			Vector: record.Embedding,
			Payload: payload{
				Key:                record.ID,
				Text:               record.Text,
				Description:        record.Description,
				ExternalSourceName: record.ExternalSourceName,
				IsReference:        record.IsReference,
				AdditionalMetadata: record.AdditionalMetadata,
				Timestamp:          record.Timestamp.Format(time.RFC3339Nano),
			},
		}},
	}
	u := s.collectionURL(record.Collection) + "/points?wait=true"

	// A collection dropped on the server gets one retry after re-creation.
	for attempt := 0; ; attempt++ {
		if err := s.ensureCollection(ctx, record.Collection, len(record.Embedding)); err != nil {
			return "", domain.BackendError(backendName, err)
		}
		err := transport.DoJSON(ctx, s.client, http.MethodPut, u, body, nil)
		if transport.IsNotFound(err) {
			s.forget(record.Collection)
			if attempt == 0 {
				continue
			}
		}
		if err != nil {
			return "", domain.BackendError(backendName, err)
		}
		return record.ID, nil
	}
}

// Get fetches a record by key.
func (s *Store) Get(ctx context.Context, collection, key string, withEmbedding bool) (*domain.MemoryRecord, error) {
	var resp struct {
		Result scoredPoint `json:"result"`
	}
	u := s.collectionURL(collection) + "/points/" + PointID(collection, key)
	err := transport.DoJSON(ctx, s.client, http.MethodGet, u, nil, &resp)
	if transport.IsNotFound(err) {
		s.forget(collection)
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}

	record := toRecord(collection, resp.Result)
	if !withEmbedding {
		record.Embedding = nil
	}
	return &record, nil
}

// Query searches the collection by cosine similarity.
func (s *Store) Query(
	ctx context.Context,
	collection string,
	embedding []float32,
	limit int,
	minRelevance float64,
	withEmbeddings bool,
) ([]domain.MemoryQueryResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	body := map[string]any{
		"vector":          embedding,
		"limit":           limit,
		"with_payload":    true,
		"with_vector":     withEmbeddings,
		"score_threshold": minRelevance,
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	err := transport.DoJSON(ctx, s.client, http.MethodPost, s.collectionURL(collection)+"/points/search", body, &resp)
	if transport.IsNotFound(err) {
		s.forget(collection)
		return nil, nil
	}
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}

	results := make([]domain.MemoryQueryResult, 0, len(resp.Result))
	for _, p := range resp.Result {
		if p.Score < minRelevance {
			continue
		}
		record := toRecord(collection, p)
		if !withEmbeddings {
			record.Embedding = nil
		}
		results = append(results, domain.MemoryQueryResult{Record: record, Relevance: p.Score})
	}
	return results, nil
}

// Delete removes a record. Missing collections and keys are ignored.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	body := map[string]any{"points": []string{PointID(collection, key)}}
	u := s.collectionURL(collection) + "/points/delete?wait=true"
	err := transport.DoJSON(ctx, s.client, http.MethodPost, u, body, nil)
	if transport.IsNotFound(err) {
		s.forget(collection)
		return nil
	}
	if err != nil {
		return domain.BackendError(backendName, err)
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func toRecord(collection string, p scoredPoint) domain.MemoryRecord {
	ts, _ := time.Parse(time.RFC3339Nano, p.Payload.Timestamp)
	return domain.MemoryRecord{
		ID:                 p.Payload.Key,
		Collection:         collection,
		Text:               p.Payload.Text,
		Description:        p.Payload.Description,
		ExternalSourceName: p.Payload.ExternalSourceName,
		IsReference:        p.Payload.IsReference,
		AdditionalMetadata: p.Payload.AdditionalMetadata,
		Embedding:          p.Vector,
		Timestamp:          ts,
	}
}
