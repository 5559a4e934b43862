package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehalsey/chat-copilot/internal/core/domain"
)

func TestSkillsListCmd(t *testing.T) {
	setupTestKernel(t, &mockKernel{skills: []domain.SkillInfo{
		{Name: "text", Functions: []domain.FunctionInfo{
			{Name: "uppercase", Description: "Convert the input to upper case", Parameters: []string{"input"}},
		}},
		{Name: "time", Functions: []domain.FunctionInfo{{Name: "now"}}},
	}})

	out, err := executeCommand(t, "skills", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "text\n")
	assert.Contains(t, out, "  uppercase(input) - Convert the input to upper case")
	assert.Contains(t, out, "  now\n")
}

func TestSkillsListCmd_Empty(t *testing.T) {
	setupTestKernel(t, &mockKernel{})

	out, err := executeCommand(t, "skills", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No skills attached.")
}

func TestSkillsRunCmd(t *testing.T) {
	kernel := &mockKernel{skillOut: "HELLO"}
	setupTestKernel(t, kernel)

	out, err := executeCommand(t, "skills", "run", "text", "uppercase", "hello", "--var", "style=loud")
	require.NoError(t, err)
	assert.Contains(t, out, "HELLO")
	assert.Equal(t, "text", kernel.lastSkill)
	assert.Equal(t, "uppercase", kernel.lastFunction)
	assert.Equal(t, domain.Variables{"input": "hello", "style": "loud"}, kernel.lastVars)
}

func TestSkillsRunCmd_WithoutInput(t *testing.T) {
	kernel := &mockKernel{skillOut: "2024-03-09"}
	setupTestKernel(t, kernel)

	out, err := executeCommand(t, "skills", "run", "time", "date")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-09")
	assert.NotContains(t, kernel.lastVars, domain.InputVariable)
}

func TestSkillsRunCmd_Args(t *testing.T) {
	_, err := executeCommand(t, "skills", "run", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts between 2 and 3 arg(s)")
}

func TestSkillsRunCmd_Error(t *testing.T) {
	setupTestKernel(t, &mockKernel{err: domain.ErrSkillNotFound})

	_, err := executeCommand(t, "skills", "run", "nope", "fn")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSkillNotFound))
}
