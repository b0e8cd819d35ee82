package tui

import "errors"

// ErrMissingDumpService is returned when the dump service is not provided.
var ErrMissingDumpService = errors.New("tui: dump service is required")
