package driven

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// ArchiveStorage persists record files under a single root.
// Keys are slash-separated paths relative to the root; implementations
// create intermediate directories as needed.
type ArchiveStorage interface {
	// Put writes data at key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Stats walks the root and counts files and bytes.
	Stats(ctx context.Context) (domain.ArchiveStats, error)

	// Location returns a human-readable root (a directory or bucket URL).
	Location() string
}
