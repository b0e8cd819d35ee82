package domain

import (
	"fmt"
	"time"
)

// RunPhase is the lifecycle state of the dump pipeline.
type RunPhase string

// Pipeline phases. Terminal phases always return to idle.
const (
	RunPhaseIdle      RunPhase = "idle"
	RunPhaseRunning   RunPhase = "running"
	RunPhaseCompleted RunPhase = "completed"
	RunPhaseCancelled RunPhase = "cancelled"
	RunPhaseFailed    RunPhase = "failed"
)

// IsTerminal returns true for completed, cancelled and failed.
func (p RunPhase) IsTerminal() bool {
	return p == RunPhaseCompleted || p == RunPhaseCancelled || p == RunPhaseFailed
}

// String returns the string representation.
func (p RunPhase) String() string {
	return string(p)
}

// RunOptions configures a single dump run.
type RunOptions struct {
	// MaxItemsPerContainer caps pagination per container. Zero means unbounded.
	MaxItemsPerContainer int

	// UseRemote overrides the configured remote classifier toggle when set.
	UseRemote *bool

	// ScopeIDs restricts the run to these servers. Empty means all.
	ScopeIDs []string

	// DryRun classifies everything but writes to an in-memory archive.
	DryRun bool

	// SkipReveal suppresses opening the archive folder on completion.
	SkipReveal bool
}

// ProgressSnapshot is a point-in-time view of a run.
type ProgressSnapshot struct {
	Phase     RunPhase
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration

	ScopesTotal      int
	ScopesDone       int
	CurrentScopeName string

	ContainersInScope     int
	ContainerIndexInScope int
	CurrentContainerName  string

	ContainersTotal int
	ContainersDone  int
	ItemsTotal      int

	Percent int

	// ETA is only meaningful when ETAKnown is true.
	ETA      time.Duration
	ETAKnown bool

	CancelRequested bool
	CategoryTotals  CategoryCounts
}

// ETAString renders the estimate, or a placeholder before it is computable.
func (s ProgressSnapshot) ETAString() string {
	if !s.ETAKnown {
		return "calculating..."
	}
	return FormatDuration(s.ETA)
}

// ContainerSummary records how many items one container yielded.
type ContainerSummary struct {
	ID       string
	Name     string
	Items    int
	Skipped  bool
	SkipNote string
}

// ScopeSummary is emitted after every container in a scope is done.
type ScopeSummary struct {
	Account        string
	Scope          Scope
	Containers     []ContainerSummary
	CategoryTotals CategoryCounts
	ItemsTotal     int
	FinishedAt     time.Time
}

// Report is the aggregated outcome of a dump run.
type Report struct {
	RunID string
	Phase RunPhase

	Account string

	StartedAt  time.Time
	FinishedAt time.Time

	ScopesTotal     int
	ScopesDone      int
	ContainersTotal int
	ContainersDone  int
	ItemsTotal      int

	// ContainersSkipped counts containers that stopped on a forbidden
	// or other error response.
	ContainersSkipped int

	// WriteFailures counts items whose record could not be persisted.
	WriteFailures int

	CategoryTotals  CategoryCounts
	ArchiveLocation string
	DryRun          bool
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRecord is a persisted summary of a past run.
type RunRecord struct {
	ID              string
	Phase           RunPhase
	Account         string
	StartedAt       time.Time
	FinishedAt      time.Time
	ScopesDone      int
	ContainersDone  int
	ContainersTotal int
	ItemsTotal      int
	WriteFailures   int
	CategoryTotals  CategoryCounts
	ArchiveLocation string
	Error           string
}

// RecordFromReport converts a run report into its persisted form.
func RecordFromReport(r Report) RunRecord {
	return RunRecord{
		ID:              r.RunID,
		Phase:           r.Phase,
		Account:         r.Account,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		ScopesDone:      r.ScopesDone,
		ContainersDone:  r.ContainersDone,
		ContainersTotal: r.ContainersTotal,
		ItemsTotal:      r.ItemsTotal,
		WriteFailures:   r.WriteFailures,
		CategoryTotals:  r.CategoryTotals.Clone(),
		ArchiveLocation: r.ArchiveLocation,
	}
}

// FormatDuration renders d as "42s", "3m 12s" or "2h 5m".
func FormatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}
