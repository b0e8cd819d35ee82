package driven

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// MessageSource lists a container's history one page at a time.
//
// Pages run backward in time: a page holds items strictly older than
// the before cursor, newest first. An empty before requests the newest page.
//
// Implementations must surface distinct signals:
//   - *domain.RateLimitError when the API asks the caller to cool down
//   - *domain.APIError carrying the status for any other non-success response
type MessageSource interface {
	ListMessages(ctx context.Context, token, containerID, before string, limit int) ([]domain.Item, error)
}

// Directory resolves the account and the scopes and containers it can reach.
type Directory interface {
	// CurrentAccount returns the identity that owns the token.
	CurrentAccount(ctx context.Context, token string) (domain.Account, error)

	// Scopes returns every server the account belongs to, in listing order.
	Scopes(ctx context.Context, token string) ([]domain.Scope, error)

	// Containers returns the text channels of a server.
	// Order is unspecified; callers sort by position.
	Containers(ctx context.Context, token, scopeID string) ([]domain.Container, error)
}

// MessageStream delivers messages as they are created.
type MessageStream interface {
	// Stream connects and returns a channel of live messages.
	// The channel is closed when ctx is cancelled or the connection ends.
	Stream(ctx context.Context, token string) (<-chan domain.LiveMessage, error)
}
