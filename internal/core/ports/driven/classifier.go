package driven

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// TextClassifier is the remote fallback used when no local rule matches.
// Implementations apply their own timeout; any error means the caller
// falls back to Conversations.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (domain.Category, error)
}
