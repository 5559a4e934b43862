package driving

import (
	"context"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

// Kernel is the assembled runtime handed to the serving layer.
type Kernel interface {
	// Complete generates a completion for a single prompt.
	Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error)

	// Chat generates the next assistant message of a conversation.
	Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error)

	// Save stores text in a memory collection and returns the record key.
	// An empty id generates one.
	Save(ctx context.Context, collection, id, text, description string) (string, error)

	// Recall returns the memories most similar to query.
	Recall(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]domain.MemoryQueryResult, error)

	// Forget removes a memory record.
	Forget(ctx context.Context, collection, id string) error

	// Skills lists the attached skills, sorted by name.
	Skills() []domain.SkillInfo

	// InvokeSkill runs a function of an attached skill.
	InvokeSkill(ctx context.Context, skill, function string, vars domain.Variables) (string, error)
}
