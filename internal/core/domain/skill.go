package domain

import (
	"context"
	"fmt"
)

// InputVariable is the default variable name holding a function's main input.
const InputVariable = "input"

// Variables are the named string arguments passed to a skill function.
type Variables map[string]string

// Input returns the value of the default input variable.
func (v Variables) Input() string {
	return v[InputVariable]
}

// Clone returns a copy that can be modified without touching v.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// FunctionHandler runs a skill function.
type FunctionHandler func(ctx context.Context, vars Variables) (string, error)

// Function is one invocable operation of a skill.
type Function struct {
	Name        string
	Description string
	Parameters  []string
	Handler     FunctionHandler
}

// Validate checks the function is usable.
func (f Function) Validate() error {
	if err := validateSkillName(f.Name); err != nil {
		return fmt.Errorf("function name: %w", err)
	}
	if f.Handler == nil {
		return fmt.Errorf("function %q: %w: handler is required", f.Name, ErrInvalidInput)
	}
	return nil
}

// SkillInfo describes an attached skill.
type SkillInfo struct {
	Name      string
	Functions []FunctionInfo
}

// FunctionInfo describes one function of an attached skill.
type FunctionInfo struct {
	Name        string
	Description string
	Parameters  []string
}

// SkillSource tells where a skill came from.
type SkillSource string

// Skill sources.
const (
	SkillSourceBuiltin  SkillSource = "builtin"
	SkillSourceSemantic SkillSource = "semantic"
)

// SkillOutcome is the result of attempting to register one skill.
type SkillOutcome struct {
	Skill     string
	Source    SkillSource
	Functions int

	// Err is nil when the skill was attached.
	Err error
}

// OK returns true when the skill was attached.
func (o SkillOutcome) OK() bool {
	return o.Err == nil
}

// ValidateSkillName checks a skill or function name.
func ValidateSkillName(name string) error {
	return validateSkillName(name)
}

func validateSkillName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return fmt.Errorf("%w: name %q must be alphanumeric with hyphens or underscores", ErrInvalidInput, name)
		}
	}
	return nil
}
