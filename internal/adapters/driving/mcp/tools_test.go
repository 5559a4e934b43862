package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

func newTestServer(t *testing.T, kernel *mockKernel) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Kernel: kernel})
	require.NoError(t, err)
	return server
}

func TestServer_handleComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("plain completion", func(t *testing.T) {
		kernel := &mockKernel{completion: "done"}
		server := newTestServer(t, kernel)

		_, out, err := server.handleComplete(ctx, nil, CompleteInput{Prompt: "go", Temperature: domain.Float(0.3)})
		require.NoError(t, err)
		assert.Equal(t, "done", out.Text)
		assert.Equal(t, "go", kernel.lastPrompt)
		require.NotNil(t, kernel.lastOpts.Temperature)
		assert.InDelta(t, 0.3, *kernel.lastOpts.Temperature, 1e-9)
		assert.Nil(t, kernel.lastMessages)
	})

	t.Run("system message switches to chat", func(t *testing.T) {
		kernel := &mockKernel{completion: "hi"}
		server := newTestServer(t, kernel)

		_, out, err := server.handleComplete(ctx, nil, CompleteInput{Prompt: "hello", System: "be terse"})
		require.NoError(t, err)
		assert.Equal(t, "hi", out.Text)
		require.Len(t, kernel.lastMessages, 2)
		assert.Equal(t, domain.RoleSystem, kernel.lastMessages[0].Role)
		assert.Equal(t, "be terse", kernel.lastMessages[0].Content)
		assert.Equal(t, domain.RoleUser, kernel.lastMessages[1].Role)
		assert.Empty(t, kernel.lastPrompt)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server := newTestServer(t, &mockKernel{err: errors.New("backend down")})

		_, _, err := server.handleComplete(ctx, nil, CompleteInput{Prompt: "go"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend down")
	})
}

func TestServer_handleRemember(t *testing.T) {
	kernel := &mockKernel{}
	server := newTestServer(t, kernel)

	_, out, err := server.handleRemember(context.Background(), nil, RememberInput{Text: "the door code is 1234"})
	require.NoError(t, err)
	assert.Equal(t, "generated", out.ID)
	assert.Equal(t, domain.DefaultMemoryCollection, out.Collection)
	assert.Equal(t, "the door code is 1234", kernel.lastText)

	_, out, err = server.handleRemember(context.Background(), nil, RememberInput{Text: "x", Collection: "facts", ID: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "k1", out.ID)
	assert.Equal(t, "facts", out.Collection)
}

func TestServer_handleRecall(t *testing.T) {
	ctx := context.Background()

	t.Run("returns memories", func(t *testing.T) {
		kernel := &mockKernel{results: []domain.MemoryQueryResult{
			{Record: domain.MemoryRecord{ID: "m1", Text: "first", Description: "d"}, Relevance: 0.91},
			{Record: domain.MemoryRecord{ID: "m2", IsReference: true, ExternalSourceName: "wiki"}, Relevance: 0.8},
		}}
		server := newTestServer(t, kernel)

		_, out, err := server.handleRecall(ctx, nil, RecallInput{Query: "q", Collection: "facts", Limit: 2, MinRelevance: 0.5})
		require.NoError(t, err)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, "m1", out.Memories[0].ID)
		assert.Equal(t, "first", out.Memories[0].Text)
		assert.InDelta(t, 0.91, out.Memories[0].Relevance, 1e-9)
		assert.Equal(t, "wiki", out.Memories[1].Source)
		assert.Equal(t, "facts", kernel.lastCollection)
		assert.Equal(t, 2, kernel.lastLimit)
		assert.InDelta(t, 0.5, kernel.lastRelevance, 1e-9)
	})

	t.Run("defaults", func(t *testing.T) {
		kernel := &mockKernel{}
		server := newTestServer(t, kernel)

		_, out, err := server.handleRecall(ctx, nil, RecallInput{Query: "q"})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Count)
		assert.NotNil(t, out.Memories)
		assert.Equal(t, domain.DefaultMemoryCollection, kernel.lastCollection)
		assert.Equal(t, defaultRecallLimit, kernel.lastLimit)
		assert.InDelta(t, domain.DefaultMinRelevance, kernel.lastRelevance, 1e-9)
	})
}

func TestServer_handleForget(t *testing.T) {
	kernel := &mockKernel{}
	server := newTestServer(t, kernel)

	_, out, err := server.handleForget(context.Background(), nil, ForgetInput{ID: "m1"})
	require.NoError(t, err)
	assert.True(t, out.Removed)
	assert.Equal(t, "m1", kernel.lastID)
	assert.Equal(t, domain.DefaultMemoryCollection, kernel.lastCollection)
}

func TestServer_handleRunSkill(t *testing.T) {
	ctx := context.Background()

	t.Run("passes input and variables", func(t *testing.T) {
		kernel := &mockKernel{skillOut: "HELLO"}
		server := newTestServer(t, kernel)

		_, out, err := server.handleRunSkill(ctx, nil, RunSkillInput{
			Skill:     "text",
			Function:  "uppercase",
			Input:     "hello",
			Variables: map[string]string{"style": "loud"},
		})
		require.NoError(t, err)
		assert.Equal(t, "HELLO", out.Result)
		assert.Equal(t, "text", kernel.lastSkill)
		assert.Equal(t, "uppercase", kernel.lastFunction)
		assert.Equal(t, domain.Variables{"input": "hello", "style": "loud"}, kernel.lastVars)
	})

	t.Run("requires skill and function", func(t *testing.T) {
		server := newTestServer(t, &mockKernel{})

		_, _, err := server.handleRunSkill(ctx, nil, RunSkillInput{Skill: "text"})
		assert.Error(t, err)
	})

	t.Run("propagates kernel errors", func(t *testing.T) {
		server := newTestServer(t, &mockKernel{err: domain.ErrFunctionNotFound})

		_, _, err := server.handleRunSkill(ctx, nil, RunSkillInput{Skill: "text", Function: "nope"})
		assert.ErrorIs(t, err, domain.ErrFunctionNotFound)
	})
}
