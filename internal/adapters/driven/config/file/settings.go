package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHATCOPILOT_"

// fileConfig mirrors the TOML layout. Remote store blocks are pointers so an
// absent table stays nil and settings validation can report it.
type fileConfig struct {
	AIService   aiServiceConfig   `toml:"ai_service" envPrefix:"AI_SERVICE_"`
	MemoryStore memoryStoreConfig `toml:"memory_store" envPrefix:"MEMORY_STORE_"`
	Skills      skillsConfig      `toml:"skills" envPrefix:"SKILLS_"`
	Completion  completionConfig  `toml:"completion" envPrefix:"COMPLETION_"`
}

type aiServiceConfig struct {
	Type              string `toml:"type" env:"TYPE"`
	Endpoint          string `toml:"endpoint,omitempty" env:"ENDPOINT"`
	APIKey            string `toml:"api_key,omitempty" env:"API_KEY"`
	CompletionModelID string `toml:"completion_model_id" env:"COMPLETION_MODEL_ID"`
	EmbeddingModelID  string `toml:"embedding_model_id" env:"EMBEDDING_MODEL_ID"`
}

type memoryStoreConfig struct {
	Type     string          `toml:"type" env:"TYPE"`
	Qdrant   *vectorDBConfig `toml:"qdrant,omitempty" envPrefix:"QDRANT_"`
	Chroma   *vectorDBConfig `toml:"chroma,omitempty" envPrefix:"CHROMA_"`
	Weaviate *vectorDBConfig `toml:"weaviate,omitempty" envPrefix:"WEAVIATE_"`
	SQLite   *sqliteConfig   `toml:"sqlite,omitempty" envPrefix:"SQLITE_"`
}

type vectorDBConfig struct {
	Host       string `toml:"host" env:"HOST"`
	Port       int    `toml:"port" env:"PORT"`
	APIKey     string `toml:"api_key,omitempty" env:"API_KEY"`
	VectorSize int    `toml:"vector_size,omitempty" env:"VECTOR_SIZE"`
	UseTLS     bool   `toml:"use_tls,omitempty" env:"USE_TLS"`
}

type sqliteConfig struct {
	Path string `toml:"path" env:"PATH"`
}

type skillsConfig struct {
	Directory string   `toml:"directory,omitempty" env:"DIRECTORY"`
	Disabled  []string `toml:"disabled,omitempty" env:"DISABLED" envSeparator:","`
}

type completionConfig struct {
	MaxTokens     int      `toml:"max_tokens,omitempty" env:"MAX_TOKENS"`
	Temperature   *float64 `toml:"temperature,omitempty" env:"TEMPERATURE"`
	TopP          *float64 `toml:"top_p,omitempty" env:"TOP_P"`
	StopSequences []string `toml:"stop_sequences,omitempty" env:"STOP_SEQUENCES" envSeparator:","`
}

// SettingsLoader reads kernel settings from a TOML file and applies
// CHATCOPILOT_* environment overrides on top.
type SettingsLoader struct {
	path    string
	environ map[string]string
}

// LoaderOption configures a SettingsLoader.
type LoaderOption func(*SettingsLoader)

// WithEnvironment replaces the process environment as the override source.
func WithEnvironment(environ map[string]string) LoaderOption {
	return func(l *SettingsLoader) {
		l.environ = environ
	}
}

// NewSettingsLoader creates a loader for path.
// If path is empty, defaults to ~/.chatcopilot/config.toml.
func NewSettingsLoader(path string, opts ...LoaderOption) (*SettingsLoader, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	l := &SettingsLoader{path: path}
	for _, opt := range opts {
		opt(l)
	}
	if l.environ == nil {
		l.environ = environMap(os.Environ())
	}
	return l, nil
}

// DefaultConfigPath returns ~/.chatcopilot/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".chatcopilot", "config.toml"), nil
}

// Path returns the configuration file path.
func (l *SettingsLoader) Path() string {
	return l.path
}

// Load returns the settings. A missing file yields the defaults with
// environment overrides applied. The result is not validated.
func (l *SettingsLoader) Load() (domain.KernelSettings, error) {
	cfg := fromSettings(domain.DefaultKernelSettings())

	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("no config file at %s, using defaults", l.path)
	case err != nil:
		return domain.KernelSettings{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return domain.KernelSettings{}, fmt.Errorf("parse config %s: %w", l.path, err)
		}
	}

	l.allocateEnvBlocks(&cfg)
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: l.environ}); err != nil {
		return domain.KernelSettings{}, fmt.Errorf("apply environment overrides: %w", err)
	}

	return cfg.toSettings(), nil
}

// allocateEnvBlocks creates store blocks that are absent from the file but
// addressed by at least one environment variable.
func (l *SettingsLoader) allocateEnvBlocks(cfg *fileConfig) {
	blocks := []struct {
		prefix string
		block  **vectorDBConfig
	}{
		{"MEMORY_STORE_QDRANT_", &cfg.MemoryStore.Qdrant},
		{"MEMORY_STORE_CHROMA_", &cfg.MemoryStore.Chroma},
		{"MEMORY_STORE_WEAVIATE_", &cfg.MemoryStore.Weaviate},
	}
	for _, b := range blocks {
		if *b.block == nil && l.hasEnvPrefix(EnvPrefix+b.prefix) {
			*b.block = &vectorDBConfig{}
		}
	}
	if cfg.MemoryStore.SQLite == nil && l.hasEnvPrefix(EnvPrefix+"MEMORY_STORE_SQLITE_") {
		cfg.MemoryStore.SQLite = &sqliteConfig{}
	}
}

func (l *SettingsLoader) hasEnvPrefix(prefix string) bool {
	for k := range l.environ {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// SaveKernelSettings writes settings as TOML with owner-only permissions,
// creating the parent directory if needed.
func SaveKernelSettings(path string, settings domain.KernelSettings) error {
	data, err := toml.Marshal(fromSettings(settings))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func fromSettings(s domain.KernelSettings) fileConfig {
	return fileConfig{
		AIService: aiServiceConfig{
			Type:              string(s.AIService.Type),
			Endpoint:          s.AIService.Endpoint,
			APIKey:            s.AIService.APIKey,
			CompletionModelID: s.AIService.CompletionModelID,
			EmbeddingModelID:  s.AIService.EmbeddingModelID,
		},
		MemoryStore: memoryStoreConfig{
			Type:     string(s.MemoryStore.Type),
			Qdrant:   fromVectorDB(s.MemoryStore.Qdrant),
			Chroma:   fromVectorDB(s.MemoryStore.Chroma),
			Weaviate: fromVectorDB(s.MemoryStore.Weaviate),
			SQLite:   fromSQLite(s.MemoryStore.SQLite),
		},
		Skills: skillsConfig{
			Directory: s.Skills.Directory,
			Disabled:  s.Skills.Disabled,
		},
		Completion: completionConfig{
			MaxTokens:     s.Completion.MaxTokens,
			Temperature:   s.Completion.Temperature,
			TopP:          s.Completion.TopP,
			StopSequences: s.Completion.StopSequences,
		},
	}
}

func fromVectorDB(db *domain.VectorDBSettings) *vectorDBConfig {
	if db == nil {
		return nil
	}
	return &vectorDBConfig{
		Host:       db.Host,
		Port:       db.Port,
		APIKey:     db.APIKey,
		VectorSize: db.VectorSize,
		UseTLS:     db.UseTLS,
	}
}

func fromSQLite(s *domain.SQLiteSettings) *sqliteConfig {
	if s == nil {
		return nil
	}
	return &sqliteConfig{Path: s.Path}
}

func (c fileConfig) toSettings() domain.KernelSettings {
	return domain.KernelSettings{
		AIService: domain.AIServiceSettings{
			Type:              domain.AIServiceType(strings.TrimSpace(c.AIService.Type)),
			Endpoint:          strings.TrimSpace(c.AIService.Endpoint),
			APIKey:            c.AIService.APIKey,
			CompletionModelID: c.AIService.CompletionModelID,
			EmbeddingModelID:  c.AIService.EmbeddingModelID,
		},
		MemoryStore: domain.MemoryStoreSettings{
			Type:     domain.MemoryStoreType(strings.TrimSpace(c.MemoryStore.Type)),
			Qdrant:   c.MemoryStore.Qdrant.toSettings(),
			Chroma:   c.MemoryStore.Chroma.toSettings(),
			Weaviate: c.MemoryStore.Weaviate.toSettings(),
			SQLite:   c.MemoryStore.SQLite.toSettings(),
		},
		Skills: domain.SkillSettings{
			Directory: expandHome(c.Skills.Directory),
			Disabled:  c.Skills.Disabled,
		},
		Completion: domain.CompletionOptions{
			MaxTokens:     c.Completion.MaxTokens,
			Temperature:   c.Completion.Temperature,
			TopP:          c.Completion.TopP,
			StopSequences: c.Completion.StopSequences,
		},
	}
}

func (c *vectorDBConfig) toSettings() *domain.VectorDBSettings {
	if c == nil {
		return nil
	}
	return &domain.VectorDBSettings{
		Host:       c.Host,
		Port:       c.Port,
		APIKey:     c.APIKey,
		VectorSize: c.VectorSize,
		UseTLS:     c.UseTLS,
	}
}

func (c *sqliteConfig) toSettings() *domain.SQLiteSettings {
	if c == nil {
		return nil
	}
	return &domain.SQLiteSettings{Path: expandHome(c.Path)}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
