// Package storage provides the factory that turns memory store settings into
// a concrete vector store.
package storage

import (
	"fmt"
	"net/http"

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage/chroma"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage/qdrant"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage/sqlite"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage/volatile"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage/weaviate"
	"github.com/ehalsey/chat-copilot/internal/adapters/driven/transport"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
	"github.com/ehalsey/chat-copilot/internal/logger"
)

// Ensure Factory implements the interface.
var _ driven.MemoryStoreFactory = (*Factory)(nil)

// Factory creates memory stores. Remote stores share the transport package's
// client setup; none of them touch the network until first use.
type Factory struct {
	clientOptions transport.Options
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithClientOptions sets the timeout and rate limit for remote stores.
// API key fields are filled from the store settings.
func WithClientOptions(opts transport.Options) FactoryOption {
	return func(f *Factory) {
		f.clientOptions = opts
	}
}

// NewFactory creates a new memory store factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateMemoryStore returns the store selected by settings.Type.
func (f *Factory) CreateMemoryStore(settings *domain.MemoryStoreSettings) (driven.VectorStore, error) {
	if settings == nil {
		return nil, domain.NewConfigurationError("memory_store", "", "settings block is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	//exhaustive:enforce
	switch settings.Type {
	case domain.MemoryStoreVolatile:
		logger.Debug("creating volatile memory store")
		return volatile.NewStore(), nil

	case domain.MemoryStoreQdrant:
		base, client, err := f.remote(settings, "api-key", "")
		if err != nil {
			return nil, err
		}
		return orNil(qdrant.NewStore(qdrant.Config{BaseURL: base, VectorSize: settings.Qdrant.VectorSize, HTTPClient: client}))

	case domain.MemoryStoreChroma:
		base, client, err := f.remote(settings, "X-Chroma-Token", "")
		if err != nil {
			return nil, err
		}
		return orNil(chroma.NewStore(chroma.Config{BaseURL: base, HTTPClient: client}))

	case domain.MemoryStoreWeaviate:
		base, client, err := f.remote(settings, "Authorization", "Bearer ")
		if err != nil {
			return nil, err
		}
		return orNil(weaviate.NewStore(weaviate.Config{BaseURL: base, HTTPClient: client}))

	case domain.MemoryStoreSQLite:
		logger.Debug("opening sqlite memory store at %s", settings.SQLite.Path)
		store, err := sqlite.NewStore(settings.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite memory store: %w", err)
		}
		return store, nil

	default:
		return nil, domain.NewConfigurationError("memory_store.type", string(settings.Type), "unsupported memory store type")
	}
}

// remote builds the base URL and HTTP client for a remote store.
func (f *Factory) remote(settings *domain.MemoryStoreSettings, header, prefix string) (string, *http.Client, error) {
	db := settings.VectorDB()
	base, err := transport.EndpointURL(db.Host, db.Port, db.UseTLS)
	if err != nil {
		return "", nil, domain.NewConfigurationError("memory_store."+string(settings.Type)+".host", db.Host, err.Error())
	}

	opts := f.clientOptions
	opts.APIKey = db.APIKey
	opts.APIKeyHeader = header
	opts.APIKeyPrefix = prefix

	logger.Debug("creating %s memory store at %s", settings.Type, base)
	return base, transport.NewClient(opts), nil
}

// orNil keeps a failed constructor from leaking a typed nil into the interface.
func orNil[S driven.VectorStore](store S, err error) (driven.VectorStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}
