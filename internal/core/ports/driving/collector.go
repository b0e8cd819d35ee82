package driving

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// CollectorService archives messages live as they are received.
type CollectorService interface {
	// Run consumes the live stream until ctx is cancelled or Stop is called.
	Run(ctx context.Context) error

	// Stop ends an active Run.
	Stop()

	// Stats returns the counts collected so far.
	Stats() CollectorStats
}

// CollectorStats summarises a collector session.
type CollectorStats struct {
	Running        bool
	Received       int
	Archived       int
	WriteFailures  int
	CategoryTotals domain.CategoryCounts
}
