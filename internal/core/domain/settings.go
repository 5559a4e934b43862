package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const unknownDescription = "Unknown"

// AIServiceType identifies the hosting flavour of the completion and
// embedding backends.
type AIServiceType string

// Available AI service types.
const (
	// AIServiceAzureOpenAI is an Azure-hosted OpenAI resource. Requires an endpoint.
	AIServiceAzureOpenAI AIServiceType = "azure_openai"

	// AIServiceOpenAI is the directly hosted OpenAI API.
	AIServiceOpenAI AIServiceType = "openai"
)

// IsValid returns true if the service type is recognised.
func (t AIServiceType) IsValid() bool {
	switch t {
	case AIServiceAzureOpenAI, AIServiceOpenAI:
		return true
	default:
		return false
	}
}

// RequiresEndpoint returns true if the service type needs an explicit endpoint.
func (t AIServiceType) RequiresEndpoint() bool {
	return t == AIServiceAzureOpenAI
}

// String returns the string representation.
func (t AIServiceType) String() string {
	return string(t)
}

// Description returns a human-readable description of the service type.
func (t AIServiceType) Description() string {
	switch t {
	case AIServiceAzureOpenAI:
		return "Azure OpenAI (hosted resource)"
	case AIServiceOpenAI:
		return "OpenAI (direct)"
	default:
		return unknownDescription
	}
}

// AllAIServiceTypes returns every supported AI service type.
func AllAIServiceTypes() []AIServiceType {
	return []AIServiceType{AIServiceAzureOpenAI, AIServiceOpenAI}
}

// MemoryStoreType identifies the long-term memory backend.
type MemoryStoreType string

// Available memory store types.
const (
	// MemoryStoreVolatile keeps memories in process. Nothing survives a restart.
	MemoryStoreVolatile MemoryStoreType = "volatile"

	// MemoryStoreQdrant is a Qdrant vector database reached over HTTP.
	MemoryStoreQdrant MemoryStoreType = "qdrant"

	// MemoryStoreChroma is a Chroma vector database reached over HTTP.
	MemoryStoreChroma MemoryStoreType = "chroma"

	// MemoryStoreWeaviate is a Weaviate vector database reached over HTTP.
	MemoryStoreWeaviate MemoryStoreType = "weaviate"

	// MemoryStoreSQLite persists memories in a local SQLite file.
	MemoryStoreSQLite MemoryStoreType = "sqlite"
)

// IsValid returns true if the store type is recognised.
func (t MemoryStoreType) IsValid() bool {
	switch t {
	case MemoryStoreVolatile, MemoryStoreQdrant, MemoryStoreChroma, MemoryStoreWeaviate, MemoryStoreSQLite:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the store is reached over the network.
func (t MemoryStoreType) IsRemote() bool {
	return t == MemoryStoreQdrant || t == MemoryStoreChroma || t == MemoryStoreWeaviate
}

// String returns the string representation.
func (t MemoryStoreType) String() string {
	return string(t)
}

// Description returns a human-readable description of the store type.
func (t MemoryStoreType) Description() string {
	switch t {
	case MemoryStoreVolatile:
		return "Volatile (in-process, not persisted)"
	case MemoryStoreQdrant:
		return "Qdrant (remote)"
	case MemoryStoreChroma:
		return "Chroma (remote)"
	case MemoryStoreWeaviate:
		return "Weaviate (remote)"
	case MemoryStoreSQLite:
		return "SQLite (local file)"
	default:
		return unknownDescription
	}
}

// AllMemoryStoreTypes returns every supported memory store type.
func AllMemoryStoreTypes() []MemoryStoreType {
	return []MemoryStoreType{
		MemoryStoreVolatile,
		MemoryStoreQdrant,
		MemoryStoreChroma,
		MemoryStoreWeaviate,
		MemoryStoreSQLite,
	}
}

// AIServiceSettings configures both the completion and the embedding backend.
// The two share a service type and credentials; only the model ids differ.
type AIServiceSettings struct {
	// Type selects the hosting flavour.
	Type AIServiceType

	// Endpoint is the resource URL (required for Azure OpenAI).
	Endpoint string

	// APIKey authenticates against the service.
	APIKey string

	// CompletionModelID is the completion model (or Azure deployment) name.
	CompletionModelID string

	// EmbeddingModelID is the embedding model (or Azure deployment) name.
	EmbeddingModelID string
}

// Validate checks that the settings are complete for the selected type.
func (s *AIServiceSettings) Validate() error {
	if !s.Type.IsValid() {
		return NewConfigurationError("ai_service.type", string(s.Type), "unsupported AI service type")
	}
	if s.Type.RequiresEndpoint() {
		if _, err := ValidateEndpoint(s.Type, s.Endpoint); err != nil {
			return err
		}
	}
	if s.APIKey == "" {
		return NewConfigurationError("ai_service.api_key", "", "API key is required")
	}
	if s.CompletionModelID == "" {
		return NewConfigurationError("ai_service.completion_model_id", "", "completion model is required")
	}
	if s.EmbeddingModelID == "" {
		return NewConfigurationError("ai_service.embedding_model_id", "", "embedding model is required")
	}
	return nil
}

// ValidateEndpoint checks that endpoint is an absolute http(s) URL and
// returns it without a trailing slash.
func ValidateEndpoint(t AIServiceType, endpoint string) (string, error) {
	if endpoint == "" {
		return "", NewConfigurationError("ai_service.endpoint", "",
			fmt.Sprintf("endpoint is required for %s", t))
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", NewConfigurationError("ai_service.endpoint", endpoint, "endpoint must be an absolute http(s) URL")
	}
	return strings.TrimRight(endpoint, "/"), nil
}

// VectorDBSettings locates a remote vector database.
type VectorDBSettings struct {
	// Host is the server host name or address.
	Host string

	// Port is the server port.
	Port int

	// APIKey is sent with every request when set.
	APIKey string

	// VectorSize is the embedding dimension used when creating collections.
	// Zero means the size of the first stored embedding.
	VectorSize int

	// UseTLS selects https instead of http.
	UseTLS bool
}

// SQLiteSettings locates the local SQLite memory database.
type SQLiteSettings struct {
	// Path is the database file path.
	Path string
}

// MemoryStoreSettings selects the memory backend. Only the block matching
// Type is read; the others are ignored.
type MemoryStoreSettings struct {
	Type     MemoryStoreType
	Qdrant   *VectorDBSettings
	Chroma   *VectorDBSettings
	Weaviate *VectorDBSettings
	SQLite   *SQLiteSettings
}

// VectorDB returns the remote settings block for the selected type, or nil.
func (s *MemoryStoreSettings) VectorDB() *VectorDBSettings {
	switch s.Type {
	case MemoryStoreQdrant:
		return s.Qdrant
	case MemoryStoreChroma:
		return s.Chroma
	case MemoryStoreWeaviate:
		return s.Weaviate
	default:
		return nil
	}
}

// Validate checks that the block matching Type is present and usable.
func (s *MemoryStoreSettings) Validate() error {
	field := "memory_store." + string(s.Type)

	//exhaustive:enforce
	switch s.Type {
	case MemoryStoreVolatile:
		return nil
	case MemoryStoreQdrant, MemoryStoreChroma, MemoryStoreWeaviate:
		db := s.VectorDB()
		if db == nil {
			return NewConfigurationError(field, "",
				fmt.Sprintf("settings block is required for memory store type %s", s.Type))
		}
		if db.Host == "" {
			return NewConfigurationError(field+".host", "", "host is required")
		}
		if db.Port <= 0 || db.Port > 65535 {
			return NewConfigurationError(field+".port", fmt.Sprint(db.Port), "port must be between 1 and 65535")
		}
		if db.VectorSize < 0 {
			return NewConfigurationError(field+".vector_size", fmt.Sprint(db.VectorSize), "vector size cannot be negative")
		}
		return nil
	case MemoryStoreSQLite:
		if s.SQLite == nil {
			return NewConfigurationError(field, "",
				fmt.Sprintf("settings block is required for memory store type %s", s.Type))
		}
		if s.SQLite.Path == "" {
			return NewConfigurationError(field+".path", "", "path is required")
		}
		return nil
	default:
		return NewConfigurationError("memory_store.type", string(s.Type), "unsupported memory store type")
	}
}

// SkillSettings controls which skills are attached to a kernel.
type SkillSettings struct {
	// Directory holds semantic skills, one sub-directory per skill.
	// Empty disables directory discovery.
	Directory string

	// Disabled lists skill names that must not be registered.
	Disabled []string
}

// IsDisabled returns true if the named skill is switched off.
// Names compare case-insensitively.
func (s SkillSettings) IsDisabled(name string) bool {
	for _, d := range s.Disabled {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// KernelSettings is the full, immutable kernel configuration.
type KernelSettings struct {
	AIService   AIServiceSettings
	MemoryStore MemoryStoreSettings
	Skills      SkillSettings

	// Completion holds defaults applied to completion calls that leave
	// an option unset.
	Completion CompletionOptions
}

// Validate checks the memory store first and then the AI service, matching
// the order in which backends are built.
func (s *KernelSettings) Validate() error {
	if err := s.MemoryStore.Validate(); err != nil {
		return err
	}
	return s.AIService.Validate()
}

// DefaultKernelSettings returns settings with sensible defaults.
// Credentials are left empty; they must come from the config file or environment.
func DefaultKernelSettings() KernelSettings {
	return KernelSettings{
		AIService: AIServiceSettings{
			Type:              AIServiceOpenAI,
			CompletionModelID: "gpt-4o-mini",
			EmbeddingModelID:  "text-embedding-3-small",
		},
		MemoryStore: MemoryStoreSettings{
			Type: MemoryStoreVolatile,
		},
		Completion: CompletionOptions{
			MaxTokens:   1024,
			Temperature: Float(0.7),
		},
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
