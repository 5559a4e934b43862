package mcp

import (
	"context"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

// mockKernel is a mock implementation of driving.Kernel.
type mockKernel struct {
	completion string
	results    []domain.MemoryQueryResult
	skills     []domain.SkillInfo
	skillOut   string
	err        error

	lastPrompt     string
	lastMessages   []domain.ChatMessage
	lastOpts       domain.CompletionOptions
	lastCollection string
	lastID         string
	lastText       string
	lastLimit      int
	lastRelevance  float64
	lastSkill      string
	lastFunction   string
	lastVars       domain.Variables
}

func (m *mockKernel) Complete(_ context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	m.lastPrompt = prompt
	m.lastOpts = opts
	return m.completion, m.err
}

func (m *mockKernel) Chat(_ context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error) {
	m.lastMessages = messages
	m.lastOpts = opts
	return m.completion, m.err
}

func (m *mockKernel) Save(_ context.Context, collection, id, text, _ string) (string, error) {
	m.lastCollection = collection
	m.lastText = text
	if id == "" {
		id = "generated"
	}
	m.lastID = id
	return id, m.err
}

func (m *mockKernel) Recall(
	_ context.Context, collection, _ string, limit int, minRelevance float64,
) ([]domain.MemoryQueryResult, error) {
	m.lastCollection = collection
	m.lastLimit = limit
	m.lastRelevance = minRelevance
	return m.results, m.err
}

func (m *mockKernel) Forget(_ context.Context, collection, id string) error {
	m.lastCollection = collection
	m.lastID = id
	return m.err
}

func (m *mockKernel) Skills() []domain.SkillInfo {
	return m.skills
}

func (m *mockKernel) InvokeSkill(_ context.Context, skill, function string, vars domain.Variables) (string, error) {
	m.lastSkill = skill
	m.lastFunction = function
	m.lastVars = vars
	return m.skillOut, m.err
}
