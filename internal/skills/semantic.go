package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
)

// Files that make up a semantic function directory.
const (
	PromptFile = "skprompt.txt"
	ConfigFile = "config.json"
)

// functionConfig is the optional config.json next to a prompt.
type functionConfig struct {
	Schema      int    `json:"schema"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Completion  struct {
		MaxTokens     int      `json:"max_tokens"`
		Temperature   *float64 `json:"temperature"`
		TopP          *float64 `json:"top_p"`
		StopSequences []string `json:"stop_sequences"`
	} `json:"completion"`
	Input struct {
		Parameters []struct {
			Name         string `json:"name"`
			Description  string `json:"description"`
			DefaultValue string `json:"defaultValue"`
		} `json:"parameters"`
	} `json:"input"`
}

// skillDirs lists the sub-directories of dir, sorted by name.
func skillDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// loadSemanticSkill reads every <skillDir>/<Function>/skprompt.txt. A
// directory without a prompt file is not a function and is ignored.
func loadSemanticSkill(skillDir string, host driven.SkillHost) ([]domain.Function, error) {
	names, err := skillDirs(skillDir)
	if err != nil {
		return nil, fmt.Errorf("read skill directory: %w", err)
	}

	var functions []domain.Function
	for _, name := range names {
		fnDir := filepath.Join(skillDir, name)
		if _, err := os.Stat(filepath.Join(fnDir, PromptFile)); errors.Is(err, os.ErrNotExist) {
			continue
		}
		fn, err := loadSemanticFunction(name, fnDir, host)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", name, err)
		}
		functions = append(functions, fn)
	}
	if len(functions) == 0 {
		return nil, fmt.Errorf("%w: no %s found", domain.ErrInvalidInput, PromptFile)
	}
	return functions, nil
}

func loadSemanticFunction(name, dir string, host driven.SkillHost) (domain.Function, error) {
	src, err := os.ReadFile(filepath.Join(dir, PromptFile))
	if err != nil {
		return domain.Function{}, fmt.Errorf("read prompt: %w", err)
	}
	tmpl, err := ParseTemplate(string(src))
	if err != nil {
		return domain.Function{}, fmt.Errorf("parse prompt: %w", err)
	}

	var cfg functionConfig
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return domain.Function{}, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return domain.Function{}, fmt.Errorf("%w: parse config: %v", domain.ErrInvalidInput, err)
		}
	}
	if cfg.Type != "" && cfg.Type != "completion" {
		return domain.Function{}, fmt.Errorf("%w: unsupported function type %q", domain.ErrInvalidInput, cfg.Type)
	}

	defaults := make(domain.Variables)
	params := make([]string, 0, len(cfg.Input.Parameters))
	for _, p := range cfg.Input.Parameters {
		if p.Name == "" {
			return domain.Function{}, fmt.Errorf("%w: input parameter without a name", domain.ErrInvalidInput)
		}
		params = append(params, p.Name)
		if p.DefaultValue != "" {
			defaults[p.Name] = p.DefaultValue
		}
	}
	if len(params) == 0 {
		params = tmpl.Variables()
	}

	opts := domain.CompletionOptions{
		MaxTokens:     cfg.Completion.MaxTokens,
		Temperature:   cfg.Completion.Temperature,
		TopP:          cfg.Completion.TopP,
		StopSequences: cfg.Completion.StopSequences,
	}

	return domain.Function{
		Name:        name,
		Description: cfg.Description,
		Parameters:  params,
		Handler: func(ctx context.Context, vars domain.Variables) (string, error) {
			merged := defaults.Clone()
			for k, v := range vars {
				merged[k] = v
			}
			return host.Complete(ctx, tmpl.Render(merged), opts)
		},
	}, nil
}
