package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehalsey/chat-copilot/internal/adapters/driven/storage/volatile"
	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

func newTestKernel(t *testing.T, completion *fakeCompletion, opts ...KernelOption) *Kernel {
	t.Helper()
	memory, err := NewSemanticMemory(&fakeEmbedder{}, volatile.NewStore())
	require.NoError(t, err)
	k, err := NewKernel(completion, memory, opts...)
	require.NoError(t, err)
	return k
}

func TestNewKernel_RequiresBackends(t *testing.T) {
	memory, err := NewSemanticMemory(&fakeEmbedder{}, newFakeStore())
	require.NoError(t, err)

	_, err = NewKernel(nil, memory)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewKernel(&fakeCompletion{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestKernel_Complete(t *testing.T) {
	completion := &fakeCompletion{}
	k := newTestKernel(t, completion, WithCompletionDefaults(domain.CompletionOptions{
		MaxTokens:   256,
		Temperature: domain.Float(0.2),
	}))

	out, err := k.Complete(t.Context(), "hello", domain.CompletionOptions{Temperature: domain.Float(0.9)})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)
	assert.Equal(t, 256, completion.lastOpts.MaxTokens)
	require.NotNil(t, completion.lastOpts.Temperature)
	assert.InDelta(t, 0.9, *completion.lastOpts.Temperature, 1e-9)

	_, err = k.Complete(t.Context(), "  ", domain.CompletionOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestKernel_CompletionDefaults(t *testing.T) {
	defaults := domain.CompletionOptions{MaxTokens: 1024, Temperature: domain.Float(0.7), TopP: domain.Float(0.95)}

	tests := []struct {
		name            string
		opts            domain.CompletionOptions
		wantTemperature float64
		wantTopP        float64
	}{
		{"unset takes defaults", domain.CompletionOptions{}, 0.7, 0.95},
		{"explicit zero temperature survives", domain.CompletionOptions{Temperature: domain.Float(0)}, 0, 0.95},
		{"explicit zero top_p survives", domain.CompletionOptions{TopP: domain.Float(0)}, 0.7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completion := &fakeCompletion{}
			k := newTestKernel(t, completion, WithCompletionDefaults(defaults))

			_, err := k.Complete(t.Context(), "deterministic please", tt.opts)
			require.NoError(t, err)
			require.NotNil(t, completion.lastOpts.Temperature)
			require.NotNil(t, completion.lastOpts.TopP)
			assert.Zero(t, *completion.lastOpts.Temperature-tt.wantTemperature)
			assert.Zero(t, *completion.lastOpts.TopP-tt.wantTopP)
		})
	}
}

func TestKernel_Complete_BackendError(t *testing.T) {
	completion := &fakeCompletion{err: domain.BackendError("fake", errors.New("timeout"))}
	k := newTestKernel(t, completion)

	_, err := k.Complete(t.Context(), "hello", domain.CompletionOptions{})
	assert.ErrorIs(t, err, domain.ErrBackendRuntime)
}

func TestKernel_Chat(t *testing.T) {
	completion := &fakeCompletion{}
	k := newTestKernel(t, completion)

	msgs := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "hi"},
	}
	out, err := k.Chat(t.Context(), msgs, domain.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "reply", out)
	assert.Equal(t, msgs, completion.lastMsgs)

	_, err = k.Chat(t.Context(), nil, domain.CompletionOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestKernel_MemoryRoundTrip(t *testing.T) {
	k := newTestKernel(t, &fakeCompletion{})
	ctx := t.Context()

	id, err := k.Save(ctx, "", "", "the sky is blue", "")
	require.NoError(t, err)

	record, err := k.Memory().Get(ctx, domain.DefaultMemoryCollection, id, false)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "the sky is blue", record.Text)

	results, err := k.Recall(ctx, "", "what colour is the sky", 3, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Record.ID)

	ref, err := k.SaveReference(ctx, "", "sky facts", "doc-7", "wiki", "")
	require.NoError(t, err)
	assert.Equal(t, "doc-7", ref)

	require.NoError(t, k.Forget(ctx, "", id))
	record, err = k.Memory().Get(ctx, domain.DefaultMemoryCollection, id, false)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestKernel_RegisterSkill(t *testing.T) {
	tests := []struct {
		name      string
		skill     string
		functions []domain.Function
		wantErr   error
	}{
		{
			name:      "valid",
			skill:     "text",
			functions: []domain.Function{echoFunction("echo"), echoFunction("shout")},
		},
		{
			name:      "invalid skill name",
			skill:     "bad name",
			functions: []domain.Function{echoFunction("echo")},
			wantErr:   domain.ErrInvalidInput,
		},
		{
			name:    "no functions",
			skill:   "empty",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:      "invalid function name",
			skill:     "text",
			functions: []domain.Function{echoFunction("")},
			wantErr:   domain.ErrInvalidInput,
		},
		{
			name:      "missing handler",
			skill:     "text",
			functions: []domain.Function{{Name: "noop"}},
			wantErr:   domain.ErrInvalidInput,
		},
		{
			name:      "duplicate function names",
			skill:     "text",
			functions: []domain.Function{echoFunction("echo"), echoFunction("ECHO")},
			wantErr:   domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := newTestKernel(t, &fakeCompletion{})
			err := k.RegisterSkill(tt.skill, tt.functions...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, k.Skills())
				return
			}
			require.NoError(t, err)
			require.Len(t, k.Skills(), 1)
		})
	}
}

func TestKernel_RegisterSkill_Duplicate(t *testing.T) {
	k := newTestKernel(t, &fakeCompletion{})

	require.NoError(t, k.RegisterSkill("Text", echoFunction("echo")))
	err := k.RegisterSkill("text", echoFunction("other"))
	assert.ErrorIs(t, err, domain.ErrSkillExists)
}

func TestKernel_Skills_Sorted(t *testing.T) {
	k := newTestKernel(t, &fakeCompletion{})

	require.NoError(t, k.RegisterSkill("zeta", echoFunction("b"), echoFunction("a")))
	require.NoError(t, k.RegisterSkill("alpha", echoFunction("only")))

	skills := k.Skills()
	require.Len(t, skills, 2)
	assert.Equal(t, "alpha", skills[0].Name)
	assert.Equal(t, "zeta", skills[1].Name)
	require.Len(t, skills[1].Functions, 2)
	assert.Equal(t, "a", skills[1].Functions[0].Name)
	assert.Equal(t, "b", skills[1].Functions[1].Name)
}

func TestKernel_InvokeSkill(t *testing.T) {
	k := newTestKernel(t, &fakeCompletion{})
	failing := domain.Function{
		Name: "fail",
		Handler: func(_ context.Context, _ domain.Variables) (string, error) {
			return "", errors.New("boom")
		},
	}
	mutating := domain.Function{
		Name: "mutate",
		Handler: func(_ context.Context, vars domain.Variables) (string, error) {
			vars[domain.InputVariable] = "changed"
			return "ok", nil
		},
	}
	require.NoError(t, k.RegisterSkill("Text", echoFunction("Echo"), failing, mutating))

	out, err := k.InvokeSkill(t.Context(), "text", "echo", domain.Variables{domain.InputVariable: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = k.InvokeSkill(t.Context(), "missing", "echo", nil)
	assert.ErrorIs(t, err, domain.ErrSkillNotFound)

	_, err = k.InvokeSkill(t.Context(), "text", "missing", nil)
	assert.ErrorIs(t, err, domain.ErrFunctionNotFound)

	_, err = k.InvokeSkill(t.Context(), "text", "fail", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Text.fail")
	assert.Contains(t, err.Error(), "boom")

	vars := domain.Variables{domain.InputVariable: "original"}
	_, err = k.InvokeSkill(t.Context(), "text", "mutate", vars)
	require.NoError(t, err)
	assert.Equal(t, "original", vars.Input())
}

func TestKernel_ConcurrentSkillAccess(t *testing.T) {
	k := newTestKernel(t, &fakeCompletion{})
	require.NoError(t, k.RegisterSkill("base", echoFunction("echo")))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = k.RegisterSkill(fmt.Sprintf("skill-%d", i), echoFunction("echo"))
		}()
		go func() {
			defer wg.Done()
			_, _ = k.InvokeSkill(context.Background(), "base", "echo", nil)
			_ = k.Skills()
		}()
	}
	wg.Wait()

	assert.Len(t, k.Skills(), 21)
}
