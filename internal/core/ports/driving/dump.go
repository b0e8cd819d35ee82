package driving

import (
	"context"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// DumpService runs the bulk archival pipeline.
// At most one run is active at a time.
type DumpService interface {
	// Run executes a dump and blocks until it finishes.
	// Returns domain.ErrRunInProgress, domain.ErrNoToken or domain.ErrNoScopes
	// before any pagination starts; otherwise returns the final report.
	Run(ctx context.Context, opts domain.RunOptions) (*domain.Report, error)

	// Start performs the same preflight as Run, then continues in the
	// background. The report is available from LastReport once done.
	Start(ctx context.Context, opts domain.RunOptions) (string, error)

	// Stop requests cooperative cancellation of the active run.
	// Returns domain.ErrNotRunning when idle.
	Stop() error

	// Progress returns a snapshot of the active or last run.
	Progress() domain.ProgressSnapshot

	// LastReport returns the report of the most recent finished run, if any.
	LastReport() (*domain.Report, bool)

	// ListScopes returns the servers the configured account can reach.
	ListScopes(ctx context.Context) ([]domain.Scope, error)

	// Categories returns the classification buckets.
	Categories() []domain.Category

	// RevealArchive opens the dump root in the platform file manager.
	RevealArchive(ctx context.Context) error

	// History returns recent runs, newest first.
	History(ctx context.Context, limit int) ([]domain.RunRecord, error)

	// Check verifies the token, counts scopes and pings the classifier.
	Check(ctx context.Context) (*CheckResult, error)
}

// CheckResult reports readiness for a dump run.
type CheckResult struct {
	// Account is the resolved identity.
	Account domain.Account

	// Scopes is the number of reachable servers.
	Scopes int

	// ClassifierEnabled mirrors the remote classifier toggle.
	ClassifierEnabled bool

	// ClassifierModel is the configured remote model, if any.
	ClassifierModel string

	// ClassifierError is set when the remote classifier is enabled but unreachable.
	ClassifierError error
}
