// Package volatile provides an in-process memory store built on chromem-go.
// Nothing survives a restart.
package volatile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Metadata keys stored alongside each document.
const (
	metaDescription = "description"
	metaSource      = "external_source_name"
	metaReference   = "is_reference"
	metaAdditional  = "additional_metadata"
	metaTimestamp   = "timestamp"
)

var errEmbeddingRequired = errors.New("volatile store: records must carry an embedding")

// Store keeps memory records in chromem-go collections.
// chromem-go normalises vectors on insert, so returned embeddings have unit length.
type Store struct {
	db *chromem.DB
}

// NewStore creates an empty in-process store.
func NewStore() *Store {
	return &Store{db: chromem.NewDB()}
}

// noEmbed keeps chromem-go from reaching for its default remote embedder.
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errEmbeddingRequired
}

func (s *Store) collection(name string) *chromem.Collection {
	return s.db.GetCollection(name, noEmbed)
}

// Upsert stores the record, replacing any record with the same key.
func (s *Store) Upsert(ctx context.Context, record domain.MemoryRecord) (string, error) {
	if record.ID == "" {
		return "", fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	if len(record.Embedding) == 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, errEmbeddingRequired)
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	col, err := s.db.GetOrCreateCollection(record.Collection, nil, noEmbed)
	if err != nil {
		return "", fmt.Errorf("create collection: %w", err)
	}

	doc := chromem.Document{
		ID:        record.ID,
		Content:   record.Text,
		Embedding: record.Embedding,
		Metadata: map[string]string{
			metaDescription: record.Description,
			metaSource:      record.ExternalSourceName,
			metaReference:   strconv.FormatBool(record.IsReference),
			metaAdditional:  record.AdditionalMetadata,
			metaTimestamp:   record.Timestamp.Format(time.RFC3339Nano),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return record.ID, nil
}

// Get retrieves a record by key.
func (s *Store) Get(ctx context.Context, collection, key string, withEmbedding bool) (*domain.MemoryRecord, error) {
	col := s.collection(collection)
	if col == nil || key == "" {
		return nil, domain.ErrNotFound
	}

	doc, err := col.GetByID(ctx, key)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	record := toRecord(collection, doc.ID, doc.Content, doc.Metadata)
	if withEmbedding {
		record.Embedding = doc.Embedding
	}
	return &record, nil
}

// Query returns the records most similar to embedding.
func (s *Store) Query(
	ctx context.Context,
	collection string,
	embedding []float32,
	limit int,
	minRelevance float64,
	withEmbeddings bool,
) ([]domain.MemoryQueryResult, error) {
	col := s.collection(collection)
	if col == nil || limit <= 0 {
		return nil, nil
	}

	// chromem-go rejects nResults larger than the collection.
	n := min(limit, col.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]domain.MemoryQueryResult, 0, len(results))
	for _, r := range results {
		relevance := float64(r.Similarity)
		if relevance < minRelevance {
			continue
		}
		record := toRecord(collection, r.ID, r.Content, r.Metadata)
		if withEmbeddings {
			record.Embedding = slices.Clone(r.Embedding)
		}
		out = append(out, domain.MemoryQueryResult{Record: record, Relevance: relevance})
	}
	return out, nil
}

// Delete removes a record. Missing collections and keys are ignored.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	col := s.collection(collection)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, nil, nil, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Close releases resources. chromem-go keeps everything in memory.
func (s *Store) Close() error {
	return nil
}

func toRecord(collection, id, content string, meta map[string]string) domain.MemoryRecord {
	isRef, _ := strconv.ParseBool(meta[metaReference])
	ts, _ := time.Parse(time.RFC3339Nano, meta[metaTimestamp])
	return domain.MemoryRecord{
		ID:                 id,
		Collection:         collection,
		Text:               content,
		Description:        meta[metaDescription],
		ExternalSourceName: meta[metaSource],
		IsReference:        isRef,
		AdditionalMetadata: meta[metaAdditional],
		Timestamp:          ts,
	}
}
