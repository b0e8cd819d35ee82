// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// RunStarted is sent once the preflight succeeded and the run is active.
type RunStarted struct {
	RunID string
}

// RunFailed is sent when the run could not start.
type RunFailed struct {
	Err error
}

// ProgressTick carries a fresh snapshot from the dump service.
type ProgressTick struct {
	Snapshot domain.ProgressSnapshot
}

// RunFinished carries the final report.
type RunFinished struct {
	Report *domain.Report
}

// StopRequested is the outcome of a stop request.
type StopRequested struct {
	Err error
}

// ArchiveRevealed is the outcome of opening the archive folder.
type ArchiveRevealed struct {
	Err error
}
