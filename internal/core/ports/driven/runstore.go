package driven

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// RunStore persists the history of dump runs.
type RunStore interface {
	// Save creates or updates a run record.
	Save(ctx context.Context, run domain.RunRecord) error

	// Get returns a run by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.RunRecord, error)

	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
