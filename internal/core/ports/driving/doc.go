// Package driving defines interfaces that external actors (CLI, MCP) use
// to interact with an assembled kernel. These are the "driving" ports in
// hexagonal architecture terminology - they drive the application.
//
// Implementations of these interfaces live in internal/core/services.
package driving
