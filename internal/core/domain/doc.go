// Package domain defines the core types for the chat-copilot kernel.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - KernelSettings: AI service, memory store and skill configuration
//   - MemoryRecord: A remembered fact stored in a vector collection
//   - Function / SkillOutcome: Skill functions and registration results
//   - ConfigurationError: The only fatal error raised during assembly
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
