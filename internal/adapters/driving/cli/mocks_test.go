package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
	"github.com/ehalsey/chat-copilot/internal/core/ports/driving"
)

// mockKernel is a mock implementation of driving.Kernel.
type mockKernel struct {
	answer   string
	results  []domain.MemoryQueryResult
	skills   []domain.SkillInfo
	skillOut string
	err      error
	closed   bool

	lastPrompt     string
	lastMessages   []domain.ChatMessage
	lastOpts       domain.CompletionOptions
	lastCollection string
	lastID         string
	lastText       string
	lastDesc       string
	lastQuery      string
	lastLimit      int
	lastRelevance  float64
	lastSkill      string
	lastFunction   string
	lastVars       domain.Variables
}

func (m *mockKernel) Complete(_ context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	m.lastPrompt = prompt
	m.lastOpts = opts
	return m.answer, m.err
}

func (m *mockKernel) Chat(_ context.Context, messages []domain.ChatMessage, opts domain.CompletionOptions) (string, error) {
	m.lastMessages = messages
	m.lastOpts = opts
	return m.answer, m.err
}

func (m *mockKernel) Save(_ context.Context, collection, id, text, description string) (string, error) {
	m.lastCollection = collection
	m.lastText = text
	m.lastDesc = description
	if id == "" {
		id = "generated-id"
	}
	m.lastID = id
	return id, m.err
}

func (m *mockKernel) Recall(
	_ context.Context, collection, query string, limit int, minRelevance float64,
) ([]domain.MemoryQueryResult, error) {
	m.lastCollection = collection
	m.lastQuery = query
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

// setupTestKernel makes commands run against kernel instead of assembling one.
func setupTestKernel(t *testing.T, kernel *mockKernel) {
	t.Helper()
	old := openKernel
	openKernel = func(context.Context) (driving.Kernel, func() error, error) {
		return kernel, func() error {
			kernel.closed = true
			return nil
		}, nil
	}
	t.Cleanup(func() { openKernel = old })
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(resetFlags)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables, which persist between executions.
func resetFlags() {
	configPath = ""
	verbose = false
	askSystem = ""
	askMaxTokens = 0
	askTemperature = 0
	askCmd.Flags().Lookup("temperature").Changed = false
	memoryCollection = domain.DefaultMemoryCollection
	memoryID = ""
	memoryDescription = ""
	memoryLimit = domain.DefaultRecallLimit
	memoryMinRelevance = domain.DefaultMinRelevance
	memoryJSON = false
	skillsJSON = false
	skillVars = map[string]string{}
	configCheckPing = false
	configInitForce = false
}
