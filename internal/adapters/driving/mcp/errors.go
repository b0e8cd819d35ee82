// Package mcp provides an MCP (Model Context Protocol) server adapter for
// chronicle. It lets AI assistants start, watch and stop archive dumps.
package mcp

import "errors"

// ErrMissingDumpService is returned when the dump service is not provided.
var ErrMissingDumpService = errors.New("mcp: dump service is required")
