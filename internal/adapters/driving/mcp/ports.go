package mcp

import (
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Dump runs and inspects archive dumps.
	Dump driving.DumpService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Dump == nil {
		return ErrMissingDumpService
	}
	return nil
}
