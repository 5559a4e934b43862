package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

// fakeHost records everything the registrar and skills do to it.
type fakeHost struct {
	skills      map[string][]domain.Function
	prompts     []string
	promptOpts  []domain.CompletionOptions
	saved       []domain.MemoryRecord
	recallLimit int
	recallMin   float64
	results     []domain.MemoryQueryResult
	err         error
}

func newFakeHost() *fakeHost {
	return &fakeHost{skills: make(map[string][]domain.Function)}
}

func (h *fakeHost) RegisterSkill(name string, functions ...domain.Function) error {
	if err := domain.ValidateSkillName(name); err != nil {
		return err
	}
	key := strings.ToLower(name)
	if _, ok := h.skills[key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrSkillExists, name)
	}
	h.skills[key] = functions
	return nil
}

func (h *fakeHost) Complete(_ context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	h.prompts = append(h.prompts, prompt)
	h.promptOpts = append(h.promptOpts, opts)
	if h.err != nil {
		return "", h.err
	}
	return "completed", nil
}

func (h *fakeHost) Save(_ context.Context, collection, id, text, description string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	if id == "" {
		id = fmt.Sprintf("gen-%d", len(h.saved))
	}
	h.saved = append(h.saved, domain.MemoryRecord{ID: id, Collection: collection, Text: text, Description: description})
	return id, nil
}

func (h *fakeHost) Recall(
	_ context.Context, _ string, _ string, limit int, minRelevance float64,
) ([]domain.MemoryQueryResult, error) {
	h.recallLimit = limit
	h.recallMin = minRelevance
	if h.err != nil {
		return nil, h.err
	}
	return h.results, nil
}

func (h *fakeHost) function(skill, name string) (domain.Function, bool) {
	for _, fn := range h.skills[strings.ToLower(skill)] {
		if strings.EqualFold(fn.Name, name) {
			return fn, true
		}
	}
	return domain.Function{}, false
}
