package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates the kernel configuration is missing a required
	// block or names an unrecognised variant. Always fatal at assembly time.
	ErrConfiguration = errors.New("configuration error")

	// ErrSkillRegistration indicates a single skill failed to load.
	// The registrar reports it and carries on with the remaining skills.
	ErrSkillRegistration = errors.New("skill registration failed")

	// ErrBackendRuntime indicates a network or authentication failure raised by
	// a completion, embedding or memory backend at call time.
	ErrBackendRuntime = errors.New("backend runtime error")

	// ErrSkillNotFound indicates no skill is registered under the given name.
	ErrSkillNotFound = errors.New("skill not found")

	// ErrFunctionNotFound indicates the skill has no function with the given name.
	ErrFunctionNotFound = errors.New("function not found")

	// ErrSkillExists indicates a skill with the same name is already attached.
	ErrSkillExists = errors.New("skill already registered")
)

// ConfigurationError describes a configuration problem found while selecting
// or constructing a backend. Field is the dotted config path, Value the
// offending value (empty when the block is missing).
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, value, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("configuration error: %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// SkillRegistrationError records why a single skill could not be attached.
type SkillRegistrationError struct {
	Skill string
	Err   error
}

func (e *SkillRegistrationError) Error() string {
	return fmt.Sprintf("skill %q: %v", e.Skill, e.Err)
}

// Unwrap exposes both ErrSkillRegistration and the underlying cause.
func (e *SkillRegistrationError) Unwrap() []error {
	return []error{ErrSkillRegistration, e.Err}
}

// BackendError wraps a failure returned by a remote backend so callers can
// match it with errors.Is(err, ErrBackendRuntime).
func BackendError(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackendRuntime, backend, err)
}
