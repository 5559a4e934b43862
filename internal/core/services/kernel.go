package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driven"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driving"
)

// Ensure Kernel implements both the serving and the registrar interfaces.
var (
	_ driving.Kernel   = (*Kernel)(nil)
	_ driven.SkillHost = (*Kernel)(nil)
)

type skill struct {
	name      string
	functions map[string]domain.Function
}

// Kernel coordinates one completion backend, a semantic memory and the
// skills attached to it. Backends are fixed at construction; only the skill
// registry changes afterwards.
type Kernel struct {
	completion driven.CompletionService
	memory     *SemanticMemory
	defaults   domain.CompletionOptions

	mu     sync.RWMutex
	skills map[string]*skill
}

// KernelOption configures a Kernel.
type KernelOption func(*Kernel)

// WithCompletionDefaults fills zero-valued completion options on every call.
func WithCompletionDefaults(opts domain.CompletionOptions) KernelOption {
	return func(k *Kernel) {
		k.defaults = opts
	}
}

// NewKernel creates a kernel without skills.
func NewKernel(completion driven.CompletionService, memory *SemanticMemory, opts ...KernelOption) (*Kernel, error) {
	if completion == nil {
		return nil, fmt.Errorf("%w: completion service is required", domain.ErrInvalidInput)
	}
	if memory == nil {
		return nil, fmt.Errorf("%w: semantic memory is required", domain.ErrInvalidInput)
	}
	k := &Kernel{
		completion: completion,
		memory:     memory,
		skills:     make(map[string]*skill),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Memory returns the kernel's semantic memory.
func (k *Kernel) Memory() *SemanticMemory {
	return k.memory
}

// Completion returns the kernel's completion backend.
func (k *Kernel) Completion() driven.CompletionService {
	return k.completion
}

// Complete generates a completion for a single prompt.
func (k *Kernel) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}
	return k.completion.Generate(ctx, prompt, k.withDefaults(opts))
}

// Chat generates the next assistant message of a conversation.
func (k *Kernel) Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: at least one message is required", domain.ErrInvalidInput)
	}
	return k.completion.Chat(ctx, messages, k.withDefaults(opts))
}

func (k *Kernel) withDefaults(opts domain.CompletionOptions) domain.CompletionOptions {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = k.defaults.MaxTokens
	}
	if opts.Temperature == nil {
		opts.Temperature = k.defaults.Temperature
	}
	if opts.TopP == nil {
		opts.TopP = k.defaults.TopP
	}
	if len(opts.StopSequences) == 0 {
		opts.StopSequences = k.defaults.StopSequences
	}
	return opts
}

// Save stores text in a memory collection. An empty collection means
// domain.DefaultMemoryCollection.
func (k *Kernel) Save(ctx context.Context, collection, id, text, description string) (string, error) {
	return k.memory.SaveInformation(ctx, collectionOrDefault(collection), id, text, description, "")
}

// SaveReference stores a pointer to content held by an external system.
func (k *Kernel) SaveReference(
	ctx context.Context, collection, text, externalID, externalSourceName, description string,
) (string, error) {
	return k.memory.SaveReference(ctx, collectionOrDefault(collection), text, externalID, externalSourceName, description, "")
}

// Recall returns the memories most similar to query.
func (k *Kernel) Recall(
	ctx context.Context, collection, query string, limit int, minRelevance float64,
) ([]domain.MemoryQueryResult, error) {
	return k.memory.Search(ctx, collectionOrDefault(collection), query, limit, minRelevance, false)
}

// Forget removes a memory record.
func (k *Kernel) Forget(ctx context.Context, collection, id string) error {
	return k.memory.Remove(ctx, collectionOrDefault(collection), id)
}

func collectionOrDefault(collection string) string {
	if collection == "" {
		return domain.DefaultMemoryCollection
	}
	return collection
}

// RegisterSkill attaches a named set of functions. Skill and function names
// are matched case-insensitively.
func (k *Kernel) RegisterSkill(name string, functions ...domain.Function) error {
	if err := domain.ValidateSkillName(name); err != nil {
		return fmt.Errorf("skill name: %w", err)
	}
	if len(functions) == 0 {
		return fmt.Errorf("skill %q: %w: at least one function is required", name, domain.ErrInvalidInput)
	}

	s := &skill{name: name, functions: make(map[string]domain.Function, len(functions))}
	for _, fn := range functions {
		if err := fn.Validate(); err != nil {
			return fmt.Errorf("skill %q: %w", name, err)
		}
		key := strings.ToLower(fn.Name)
		if _, dup := s.functions[key]; dup {
			return fmt.Errorf("skill %q: %w: duplicate function %q", name, domain.ErrInvalidInput, fn.Name)
		}
		s.functions[key] = fn
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	key := strings.ToLower(name)
	if _, exists := k.skills[key]; exists {
		return fmt.Errorf("%w: %s", domain.ErrSkillExists, name)
	}
	k.skills[key] = s
	return nil
}

// Skills lists the attached skills sorted by name, with functions sorted by name.
func (k *Kernel) Skills() []domain.SkillInfo {
	k.mu.RLock()
	defer k.mu.RUnlock()

	infos := make([]domain.SkillInfo, 0, len(k.skills))
	for _, s := range k.skills {
		info := domain.SkillInfo{Name: s.name, Functions: make([]domain.FunctionInfo, 0, len(s.functions))}
		for _, fn := range s.functions {
			info.Functions = append(info.Functions, domain.FunctionInfo{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  append([]string(nil), fn.Parameters...),
			})
		}
		sort.Slice(info.Functions, func(i, j int) bool {
			return info.Functions[i].Name < info.Functions[j].Name
		})
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// InvokeSkill runs a function of an attached skill. The handler receives a
// copy of vars.
func (k *Kernel) InvokeSkill(ctx context.Context, skillName, function string, vars domain.Variables) (string, error) {
	k.mu.RLock()
	s, ok := k.skills[strings.ToLower(skillName)]
	var fn domain.Function
	var found bool
	if ok {
		fn, found = s.functions[strings.ToLower(function)]
	}
	k.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrSkillNotFound, skillName)
	}
	if !found {
		return "", fmt.Errorf("%w: %s.%s", domain.ErrFunctionNotFound, s.name, function)
	}

	out, err := fn.Handler(ctx, vars.Clone())
	if err != nil {
		return "", fmt.Errorf("%s.%s: %w", s.name, fn.Name, err)
	}
	return out, nil
}
