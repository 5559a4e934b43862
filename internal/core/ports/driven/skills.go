package driven

import (
	"context"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

// SkillHost is the narrow view of an assembled kernel given to skill
// registrars. It lets skills call back into the kernel without reaching
// into its internals.
type SkillHost interface {
	// RegisterSkill attaches a named set of functions.
	RegisterSkill(name string, functions ...domain.Function) error

	// Complete runs the kernel's completion backend.
	Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error)

	// Save stores text in long-term memory.
	Save(ctx context.Context, collection, id, text, description string) (string, error)

	// Recall searches long-term memory.
	Recall(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]domain.MemoryQueryResult, error)
}

// SkillRegistrar attaches skills to a freshly assembled kernel.
// It reports one outcome per skill; a failed skill never stops the others.
type SkillRegistrar interface {
	RegisterSkills(ctx context.Context, host SkillHost) []domain.SkillOutcome
}
