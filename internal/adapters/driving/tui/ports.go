// Package tui provides the terminal progress view for dump runs.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Dump runs and reports on archive dumps.
	Dump driving.DumpService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Dump == nil {
		return ErrMissingDumpService
	}
	return nil
}
