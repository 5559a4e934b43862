package mcp

import (
	"github.com/ehalsey/chat-copilot/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Kernel is the assembled kernel every tool runs against.
	Kernel driving.Kernel
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Kernel == nil {
		return ErrMissingKernel
	}
	return nil
}
