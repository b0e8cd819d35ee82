package driven

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// Reporter receives summaries as a run progresses.
// Implementations must not block for long: they run on the pipeline's goroutine.
type Reporter interface {
	// ScopeFinished is called after every container of a scope is done.
	ScopeFinished(ctx context.Context, summary domain.ScopeSummary)

	// RunFinished is called once with the final report of a completed
	// or cancelled run.
	RunFinished(ctx context.Context, report domain.Report)
}

// Revealer shows an archive location to the user, typically by opening
// it in the platform file manager.
type Revealer interface {
	Reveal(ctx context.Context, location string) error
}
