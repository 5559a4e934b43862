package volatile

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

func TestStore_UpsertAndGet(t *testing.T) {
	store := NewStore()
	ctx := t.Context()
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	key, err := store.Upsert(ctx, domain.MemoryRecord{
		ID:                 "k1",
		Collection:         "facts",
		Text:               "water boils at 100C",
		Description:        "boiling point",
		ExternalSourceName: "textbook",
		IsReference:        true,
		AdditionalMetadata: "page=4",
		Embedding:          []float32{1, 0},
		Timestamp:          ts,
	})
	require.NoError(t, err)
	assert.Equal(t, "k1", key)

	got, err := store.Get(ctx, "facts", "k1", true)
	require.NoError(t, err)
	assert.Equal(t, "water boils at 100C", got.Text)
	assert.Equal(t, "boiling point", got.Description)
	assert.Equal(t, "textbook", got.ExternalSourceName)
	assert.True(t, got.IsReference)
	assert.Equal(t, "page=4", got.AdditionalMetadata)
	assert.True(t, ts.Equal(got.Timestamp))
	assert.Equal(t, []float32{1, 0}, got.Embedding)

	bare, err := store.Get(ctx, "facts", "k1", false)
	require.NoError(t, err)
	assert.Nil(t, bare.Embedding)
}

func TestStore_UpsertValidation(t *testing.T) {
	store := NewStore()

	_, err := store.Upsert(t.Context(), domain.MemoryRecord{Collection: "c", Embedding: []float32{1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.Upsert(t.Context(), domain.MemoryRecord{Collection: "c", ID: "k", Text: "no vector"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore()
	ctx := t.Context()

	_, err := store.Get(ctx, "nope", "k", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Upsert(ctx, domain.MemoryRecord{Collection: "c", ID: "k", Text: "x", Embedding: []float32{1}})
	require.NoError(t, err)

	_, err = store.Get(ctx, "c", "other", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Query(t *testing.T) {
	store := NewStore()
	ctx := t.Context()

	for _, r := range []domain.MemoryRecord{
		{ID: "exact", Text: "a", Embedding: []float32{1, 0}},
		{ID: "near", Text: "b", Embedding: []float32{0.8, 0.2}},
		{ID: "far", Text: "c", Embedding: []float32{0, 1}},
	} {
		r.Collection = "c"
		_, err := store.Upsert(ctx, r)
		require.NoError(t, err)
	}

	results, err := store.Query(ctx, "c", []float32{1, 0}, 10, 0.5, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Record.ID)
	assert.InDelta(t, 1.0, results[0].Relevance, 1e-5)
	assert.Equal(t, "near", results[1].Record.ID)
	assert.Nil(t, results[0].Record.Embedding)

	top, err := store.Query(ctx, "c", []float32{1, 0}, 1, 0, true)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.NotEmpty(t, top[0].Record.Embedding)
}

func TestStore_QueryMissingOrEmpty(t *testing.T) {
	store := NewStore()

	results, err := store.Query(t.Context(), "missing", []float32{1}, 3, 0, false)
	assert.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.Query(t.Context(), "missing", []float32{1}, 0, 0, false)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore()
	ctx := t.Context()

	_, err := store.Upsert(ctx, domain.MemoryRecord{Collection: "c", ID: "k", Text: "x", Embedding: []float32{1}})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "c", "k"))
	_, err = store.Get(ctx, "c", "k", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "c", "k"))
	assert.NoError(t, store.Delete(ctx, "never-created", "k"))
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	store := NewStore()
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Upsert(ctx, domain.MemoryRecord{
				Collection: "shared",
				ID:         string(rune('a' + i)),
				Text:       "x",
				Embedding:  []float32{1, float32(i)},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	results, err := store.Query(ctx, "shared", []float32{1, 0}, 100, -1, false)
	require.NoError(t, err)
	assert.Len(t, results, 20)
}
