package driven

import "context"

// TokenProvider resolves the auth token used for every API call of a run.
type TokenProvider interface {
	// Token returns the configured token.
	// Returns domain.ErrNoToken when none is available.
	Token(ctx context.Context) (string, error)
}
