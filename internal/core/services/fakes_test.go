package services

import (
	"context"
	"sync"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// fakeEmbedder returns the vector registered for a text, or fallback.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	closed   bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error {
	f.closed = true
	return nil
}

// fakeCompletion echoes the prompt and records the options it saw.
type fakeCompletion struct {
	mu       sync.Mutex
	lastOpts domain.CompletionOptions
	lastMsgs []domain.ChatMessage
	reply    string
	err      error
	closed   bool
}

func (f *fakeCompletion) Generate(_ context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "echo: " + prompt, nil
}

func (f *fakeCompletion) Chat(_ context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	f.lastMsgs = messages
	if f.err != nil {
		return "", f.err
	}
	return "reply", nil
}

func (f *fakeCompletion) ModelName() string            { return "fake-chat" }
func (f *fakeCompletion) Ping(_ context.Context) error { return nil }
func (f *fakeCompletion) Close() error {
	f.closed = true
	return nil
}

// fakeStore is a minimal VectorStore that records calls.
type fakeStore struct {
	records map[string]domain.MemoryRecord
	err     error
	closed  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]domain.MemoryRecord)}
}

func (f *fakeStore) Upsert(_ context.Context, r domain.MemoryRecord) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records[r.Collection+"/"+r.ID] = r
	return r.ID, nil
}

func (f *fakeStore) Get(_ context.Context, collection, key string, _ bool) (*domain.MemoryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.records[collection+"/"+key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *fakeStore) Query(
	_ context.Context, collection string, embedding []float32, limit int, minRelevance float64, _ bool,
) ([]domain.MemoryQueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.MemoryQueryResult
	for _, r := range f.records {
		if r.Collection != collection {
			continue
		}
		score := domain.CosineSimilarity(embedding, r.Embedding)
		if score >= minRelevance {
			out = append(out, domain.MemoryQueryResult{Record: r, Relevance: score})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, collection, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.records, collection+"/"+key)
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

// fakeAIFactory hands out the configured fakes and records call order.
type fakeAIFactory struct {
	completion    *fakeCompletion
	embedding     *fakeEmbedder
	completionErr error
	embeddingErr  error
	calls         *[]string
}

func (f *fakeAIFactory) CreateCompletionService(_ *domain.AIServiceSettings) (driven.CompletionService, error) {
	*f.calls = append(*f.calls, "completion")
	if f.completionErr != nil {
		return nil, f.completionErr
	}
	return f.completion, nil
}

func (f *fakeAIFactory) CreateEmbeddingService(_ *domain.AIServiceSettings) (driven.EmbeddingService, error) {
	*f.calls = append(*f.calls, "embedding")
	if f.embeddingErr != nil {
		return nil, f.embeddingErr
	}
	return f.embedding, nil
}

type fakeStoreFactory struct {
	store *fakeStore
	err   error
	calls *[]string
}

func (f *fakeStoreFactory) CreateMemoryStore(_ *domain.MemoryStoreSettings) (driven.VectorStore, error) {
	*f.calls = append(*f.calls, "store")
	if f.err != nil {
		return nil, f.err
	}
	return f.store, nil
}

// funcRegistrar runs fn as its registration pass.
type funcRegistrar struct {
	called bool
	fn     func(ctx context.Context, host driven.SkillHost) []domain.SkillOutcome
}

func (r *funcRegistrar) RegisterSkills(ctx context.Context, host driven.SkillHost) []domain.SkillOutcome {
	r.called = true
	return r.fn(ctx, host)
}

func echoFunction(name string) domain.Function {
	return domain.Function{
		Name: name,
		Handler: func(_ context.Context, vars domain.Variables) (string, error) {
			return vars.Input(), nil
		},
	}
}
