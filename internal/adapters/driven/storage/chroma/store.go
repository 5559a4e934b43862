// Package chroma provides a memory store backed by a Chroma server reached
// over its v1 REST API.
package chroma

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/transport"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const backendName = "chroma"

// Metadata keys stored with each document.
const (
	metaDescription = "description"
	metaSource      = "external_source_name"
	metaReference   = "is_reference"
	metaAdditional  = "additional_metadata"
	metaTimestamp   = "timestamp"
)

var include = []string{"documents", "metadatas", "embeddings", "distances"}

// Config holds configuration for the Chroma store.
type Config struct {
	// BaseURL is the server URL, e.g. http://localhost:8000 (required).
	BaseURL string

	// HTTPClient carries auth, TLS and rate limiting (required).
	HTTPClient *http.Client
}

// Store keeps memory records in Chroma collections configured for cosine space.
type Store struct {
	client  *http.Client
	baseURL string

	mu  sync.Mutex
	ids map[string]string // collection name -> Chroma collection id
}

// NewStore creates a Chroma store. No request is made until the first call.
func NewStore(cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, domain.NewConfigurationError("memory_store.chroma.host", "", "base URL is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = transport.NewClient(transport.Options{APIKeyHeader: "X-Chroma-Token"})
	}
	return &Store{
		client:  cfg.HTTPClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/api/v1",
		ids:     make(map[string]string),
	}, nil
}

type collectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type getResponse struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
}

type queryResponse struct {
	IDs        [][]string            `json:"ids"`
	Distances  [][]float64           `json:"distances"`
	Embeddings [][][]float32         `json:"embeddings"`
	Documents  [][]string            `json:"documents"`
	Metadatas  [][]map[string]string `json:"metadatas"`
}

var errCollectionMissing = errors.New("collection does not exist")

// collectionID resolves a collection name, creating it when create is set.
func (s *Store) collectionID(ctx context.Context, name string, create bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.ids[name]; ok {
		return id, nil
	}

	var info collectionInfo
	if create {
		body := map[string]any{
			"name":          name,
			"get_or_create": true,
			"metadata":      map[string]string{"hnsw:space": "cosine"},
		}
		if err := transport.DoJSON(ctx, s.client, http.MethodPost, s.baseURL+"/collections", body, &info); err != nil {
			return "", fmt.Errorf("create collection %s: %w", name, err)
		}
	} else {
		err := transport.DoJSON(ctx, s.client, http.MethodGet, s.baseURL+"/collections/"+url.PathEscape(name), nil, &info)
		if isMissing(err) {
			return "", errCollectionMissing
		}
		if err != nil {
			return "", fmt.Errorf("get collection %s: %w", name, err)
		}
	}

	s.ids[name] = info.ID
	return info.ID, nil
}

// isMissing reports a missing collection. Older Chroma servers answer with a
// 500 and a ValueError instead of a 404.
func isMissing(err error) bool {
	if transport.IsNotFound(err) {
		return true
	}
	var se *transport.StatusError
	return errors.As(err, &se) && strings.Contains(se.Body, "does not exist")
}

// do runs op on a resolved collection. A collection that vanished on the
// server is evicted from the cache and reported as errCollectionMissing.
func (s *Store) do(ctx context.Context, name, id, op string, body, out any) error {
	err := transport.DoJSON(ctx, s.client, http.MethodPost, s.baseURL+"/collections/"+id+"/"+op, body, out)
	if isMissing(err) {
		s.forget(name, id)
		return fmt.Errorf("%w: %w", errCollectionMissing, err)
	}
	return err
}

func (s *Store) forget(name, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[name] == id {
		delete(s.ids, name)
	}
}

// Upsert writes the record.
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
		"ids":        []string{record.ID},
		"embeddings": [][]float32{record.Embedding},
		"documents":  []string{record.Text},
		"metadatas": []map[string]string{{
			metaDescription: record.Description,
			metaSource:      record.ExternalSourceName,
			metaReference:   strconv.FormatBool(record.IsReference),
			metaAdditional:  record.AdditionalMetadata,
			metaTimestamp:   record.Timestamp.Format(time.RFC3339Nano),
		}},
	}
	// A stale cached id gets one retry against a freshly created collection.
	for attempt := 0; ; attempt++ {
		id, err := s.collectionID(ctx, record.Collection, true)
		if err != nil {
			return "", domain.BackendError(backendName, err)
		}
		err = s.do(ctx, record.Collection, id, "upsert", body, nil)
		if errors.Is(err, errCollectionMissing) && attempt == 0 {
			continue
		}
		if err != nil {
			return "", domain.BackendError(backendName, err)
		}
		return record.ID, nil
	}
}

// Get fetches a record by key.
func (s *Store) Get(ctx context.Context, collection, key string, withEmbedding bool) (*domain.MemoryRecord, error) {
	id, err := s.collectionID(ctx, collection, false)
	if errors.Is(err, errCollectionMissing) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}

	var resp getResponse
	body := map[string]any{"ids": []string{key}, "include": []string{"documents", "metadatas", "embeddings"}}
	err = s.do(ctx, collection, id, "get", body, &resp)
	if errors.Is(err, errCollectionMissing) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}
	if len(resp.IDs) == 0 {
		return nil, domain.ErrNotFound
	}

	record := toRecord(collection, resp.IDs[0], at(resp.Documents, 0), atMap(resp.Metadatas, 0))
	if withEmbedding && len(resp.Embeddings) > 0 {
		record.Embedding = resp.Embeddings[0]
	}
	return &record, nil
}

// Query searches the collection. Chroma reports cosine distance, so
// relevance is 1 - distance.
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

	id, err := s.collectionID(ctx, collection, false)
	if errors.Is(err, errCollectionMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}

	var resp queryResponse
	body := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        limit,
		"include":          include,
	}
	err = s.do(ctx, collection, id, "query", body, &resp)
	if errors.Is(err, errCollectionMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	var results []domain.MemoryQueryResult
	for i, key := range resp.IDs[0] {
		relevance := 1 - atFloat(resp.Distances, i)
		if relevance < minRelevance {
			continue
		}
		record := toRecord(collection, key, atNested(resp.Documents, i), atNestedMap(resp.Metadatas, i))
		if withEmbeddings && len(resp.Embeddings) > 0 && i < len(resp.Embeddings[0]) {
			record.Embedding = resp.Embeddings[0][i]
		}
		results = append(results, domain.MemoryQueryResult{Record: record, Relevance: relevance})
	}
	return results, nil
}

// Delete removes a record. Missing collections and keys are ignored.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	id, err := s.collectionID(ctx, collection, false)
	if errors.Is(err, errCollectionMissing) {
		return nil
	}
	if err != nil {
		return domain.BackendError(backendName, err)
	}
	err = s.do(ctx, collection, id, "delete", map[string]any{"ids": []string{key}}, nil)
	if err != nil && !errors.Is(err, errCollectionMissing) {
		return domain.BackendError(backendName, err)
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func toRecord(collection, key, text string, meta map[string]string) domain.MemoryRecord {
	isRef, _ := strconv.ParseBool(meta[metaReference])
	ts, _ := time.Parse(time.RFC3339Nano, meta[metaTimestamp])
	return domain.MemoryRecord{
		ID:                 key,
		Collection:         collection,
		Text:               text,
		Description:        meta[metaDescription],
		ExternalSourceName: meta[metaSource],
		IsReference:        isRef,
		AdditionalMetadata: meta[metaAdditional],
		Timestamp:          ts,
	}
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

func atMap(s []map[string]string, i int) map[string]string {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func atNested(s [][]string, i int) string {
	if len(s) == 0 {
		return ""
	}
	return at(s[0], i)
}

func atNestedMap(s [][]map[string]string, i int) map[string]string {
	if len(s) == 0 {
		return nil
	}
	return atMap(s[0], i)
}

func atFloat(s [][]float64, i int) float64 {
	if len(s) == 0 || i >= len(s[0]) {
		return 1
	}
	return s[0][i]
}
