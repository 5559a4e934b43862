package driven

import (
	"context"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

// VectorStore persists memory records and searches them by similarity.
// Collections are created on first write. Stores must be safe for concurrent
// use and must not perform network I/O until the first call.
type VectorStore interface {
	// Upsert inserts or replaces a record in its collection and returns its key.
	Upsert(ctx context.Context, record domain.MemoryRecord) (string, error)

	// Get fetches a record by key. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, collection, key string, withEmbedding bool) (*domain.MemoryRecord, error)

	// Query returns up to limit records whose cosine similarity to embedding is
	// at least minRelevance, most relevant first. A missing collection yields
	// no results rather than an error.
	Query(
		ctx context.Context,
		collection string,
		embedding []float32,
		limit int,
		minRelevance float64,
		withEmbeddings bool,
	) ([]domain.MemoryQueryResult, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, collection, key string) error

	// Close releases resources.
	Close() error
}
