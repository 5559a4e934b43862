// Package weaviate provides a memory store backed by a Weaviate server.
// Records are written through the REST API and searched with GraphQL
// nearVector queries.
package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/transport"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const backendName = "weaviate"

var objectNamespace = uuid.MustParse("0b5e3f4c-9d7a-4c36-8f1e-52a6d0e1b7c9")

// Config holds configuration for the Weaviate store.
type Config struct {
	// BaseURL is the server URL, e.g. http://localhost:8080 (required).
	BaseURL string

	// HTTPClient carries auth, TLS and rate limiting (required).
	HTTPClient *http.Client
}

// Store keeps memory records as Weaviate objects, one class per collection.
type Store struct {
	client  *http.Client
	baseURL string

	mu      sync.Mutex
	classes map[string]bool
}

// NewStore creates a Weaviate store. No request is made until the first call.
func NewStore(cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, domain.NewConfigurationError("memory_store.weaviate.host", "", "base URL is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = transport.NewClient(transport.Options{APIKeyHeader: "Authorization", APIKeyPrefix: "Bearer "})
	}
	return &Store{
		client:  cfg.HTTPClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/v1",
		classes: make(map[string]bool),
	}, nil
}

type properties struct {
	Key                string `json:"key"`
	Text               string `json:"text"`
	Description        string `json:"description"`
	ExternalSourceName string `json:"externalSourceName"`
	IsReference        bool   `json:"isReference"`
	AdditionalMetadata string `json:"additionalMetadata"`
	Timestamp          string `json:"timestamp"`
}

type object struct {
	Class      string     `json:"class"`
	ID         string     `json:"id"`
	Vector     []float32  `json:"vector,omitempty"`
	Properties properties `json:"properties"`
}

// ClassName converts a collection name into a valid Weaviate class name.
// Names that already are a class name ("Facts") map to themselves. Any
// other name is PascalCased and suffixed with a hash of the raw name, so
// "chat-memories" and "chat_memories" land in different classes.
func ClassName(collection string) string {
	if isClassName(collection) {
		return collection
	}

	var b strings.Builder
	upper := true
	for _, r := range collection {
		if !isASCIIAlnum(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "C" + name
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(collection))
	return fmt.Sprintf("%s_%08x", name, h.Sum32())
}

func isClassName(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for _, r := range s {
		if !isASCIIAlnum(r) {
			return false
		}
	}
	return true
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// ObjectID returns the Weaviate object id for a record key.
func ObjectID(collection, key string) string {
	return uuid.NewSHA1(objectNamespace, []byte(collection+"\x00"+key)).String()
}

// classExists checks the schema, caching positive answers.
func (s *Store) classExists(ctx context.Context, class string) (bool, error) {
	s.mu.Lock()
	known := s.classes[class]
	s.mu.Unlock()
	if known {
		return true, nil
	}

	err := transport.DoJSON(ctx, s.client, http.MethodGet, s.baseURL+"/schema/"+url.PathEscape(class), nil, nil)
	if transport.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get class %s: %w", class, err)
	}

	s.mu.Lock()
	s.classes[class] = true
	s.mu.Unlock()
	return true, nil
}

// forget drops a cached class after the server rejected a request on it, so
// the next write checks the schema again.
func (s *Store) forget(class string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.classes, class)
}

func (s *Store) ensureClass(ctx context.Context, class string) error {
	exists, err := s.classExists(ctx, class)
	if err != nil || exists {
		return err
	}

	text := []string{"text"}
	body := map[string]any{
		"class":      class,
		"vectorizer": "none",
		"vectorIndexConfig": map[string]any{
			"distance": "cosine",
		},
		"properties": []map[string]any{
			{"name": "key", "dataType": text},
			{"name": "text", "dataType": text},
			{"name": "description", "dataType": text},
			{"name": "externalSourceName", "dataType": text},
			{"name": "isReference", "dataType": []string{"boolean"}},
			{"name": "additionalMetadata", "dataType": text},
			{"name": "timestamp", "dataType": text},
		},
	}
	if err := transport.DoJSON(ctx, s.client, http.MethodPost, s.baseURL+"/schema", body, nil); err != nil {
		return fmt.Errorf("create class %s: %w", class, err)
	}

	s.mu.Lock()
	s.classes[class] = true
	s.mu.Unlock()
	return nil
}

// Upsert writes the record through the batch endpoint, which replaces
// existing objects with the same id.
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

	class := ClassName(record.Collection)
	if err := s.ensureClass(ctx, class); err != nil {
		return "", domain.BackendError(backendName, err)
	}

	body := map[string]any{
		"objects": []object{{
			Class:  class,
			ID:     ObjectID(record.Collection, record.ID),
			Vector: record.Embedding,
			Properties: properties{
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

	var resp []struct {
		Result struct {
			Errors *struct {
				Error []struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"errors"`
		} `json:"result"`
	}
	if err := transport.DoJSON(ctx, s.client, http.MethodPost, s.baseURL+"/batch/objects", body, &resp); err != nil {
		return "", domain.BackendError(backendName, err)
	}
	for _, r := range resp {
		if r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			s.forget(class)
			return "", domain.BackendError(backendName, errors.New(r.Result.Errors.Error[0].Message))
		}
	}
	return record.ID, nil
}

// Get fetches a record by key.
func (s *Store) Get(ctx context.Context, collection, key string, withEmbedding bool) (*domain.MemoryRecord, error) {
	u := fmt.Sprintf("%s/objects/%s/%s", s.baseURL, url.PathEscape(ClassName(collection)), ObjectID(collection, key))
	if withEmbedding {
		u += "?include=vector"
	}

	var obj object
	err := transport.DoJSON(ctx, s.client, http.MethodGet, u, nil, &obj)
	if transport.IsNotFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}

	record := toRecord(collection, obj.Properties)
	if withEmbedding {
		record.Embedding = obj.Vector
	}
	return &record, nil
}

type graphQLResponse struct {
	Data struct {
		Get map[string][]struct {
			properties
			Additional struct {
				ID       string    `json:"id"`
				Distance float64   `json:"distance"`
				Vector   []float32 `json:"vector"`
			} `json:"_additional"`
		} `json:"Get"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query runs a nearVector search. Weaviate reports cosine distance, so
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

	class := ClassName(collection)
	exists, err := s.classExists(ctx, class)
	if err != nil {
		return nil, domain.BackendError(backendName, err)
	}
	if !exists {
		return nil, nil
	}

	vector, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal vector: %w", err)
	}
	additional := "id distance"
	if withEmbeddings {
		additional += " vector"
	}
	query := fmt.Sprintf(
		`{Get{%s(nearVector:{vector:%s distance:%g} limit:%d){key text description externalSourceName isReference additionalMetadata timestamp _additional{%s}}}}`,
		class, vector, 1-minRelevance, limit, additional)

	var resp graphQLResponse
	if err := transport.DoJSON(ctx, s.client, http.MethodPost, s.baseURL+"/graphql", map[string]string{"query": query}, &resp); err != nil {
		return nil, domain.BackendError(backendName, err)
	}
	if len(resp.Errors) > 0 {
		s.forget(class)
		return nil, domain.BackendError(backendName, fmt.Errorf("graphql: %s", resp.Errors[0].Message))
	}

	hits := resp.Data.Get[class]
	results := make([]domain.MemoryQueryResult, 0, len(hits))
	for _, h := range hits {
		relevance := 1 - h.Additional.Distance
		if relevance < minRelevance {
			continue
		}
		record := toRecord(collection, h.properties)
		if withEmbeddings {
			record.Embedding = h.Additional.Vector
		}
		results = append(results, domain.MemoryQueryResult{Record: record, Relevance: relevance})
	}
	return results, nil
}

// Delete removes a record. Missing classes and keys are ignored.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	u := fmt.Sprintf("%s/objects/%s/%s", s.baseURL, url.PathEscape(ClassName(collection)), ObjectID(collection, key))
	err := transport.DoJSON(ctx, s.client, http.MethodDelete, u, nil, nil)
	if err != nil && !transport.IsNotFound(err) {
		return domain.BackendError(backendName, err)
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func toRecord(collection string, p properties) domain.MemoryRecord {
	ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
	return domain.MemoryRecord{
		ID:                 p.Key,
		Collection:         collection,
		Text:               p.Text,
		Description:        p.Description,
		ExternalSourceName: p.ExternalSourceName,
		IsReference:        p.IsReference,
		AdditionalMetadata: p.AdditionalMetadata,
		Timestamp:          ts,
	}
}
