package domain

import (
	"fmt"
	"math"
	"time"
)

// MemoryRecord is a single piece of long-term memory stored in a collection.
type MemoryRecord struct {
	// ID is the caller-supplied key, unique within the collection.
	ID string

	// Collection is the named memory collection the record lives in.
	Collection string

	// Text is the remembered content. Empty for references.
	Text string

	// Description is an optional human-readable summary.
	Description string

	// ExternalSourceName names the system holding the original for references.
	ExternalSourceName string

	// IsReference is true when the record points at external content.
	IsReference bool

	// AdditionalMetadata is free-form caller metadata.
	AdditionalMetadata string

	// Embedding is the vector representation of Text (or Description).
	Embedding []float32

	// Timestamp is when the record was saved.
	Timestamp time.Time
}

// MemoryQueryResult is a record matched by similarity search.
type MemoryQueryResult struct {
	Record MemoryRecord

	// Relevance is the cosine similarity between query and record (0-1).
	Relevance float64
}

// Default recall parameters used when a caller passes zero values.
const (
	DefaultRecallLimit        = 5
	DefaultMinRelevance       = 0.7
	DefaultMemoryCollection   = "chat-memories"
	maxMemoryCollectionLength = 128
)

// ValidateCollectionName checks a memory collection name.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if len(name) > maxMemoryCollectionLength {
		return fmt.Errorf("%w: collection name exceeds %d characters", ErrInvalidInput, maxMemoryCollectionLength)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return fmt.Errorf("%w: collection name %q must be alphanumeric with hyphens or underscores", ErrInvalidInput, name)
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	return r == '-' || r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
