// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// chat-copilot kernel. It lets AI assistants complete prompts, use long-term
// memory and run skills through an assembled kernel.
package mcp

import "errors"

// ErrMissingKernel is returned when no kernel is provided.
var ErrMissingKernel = errors.New("mcp: kernel is required")
