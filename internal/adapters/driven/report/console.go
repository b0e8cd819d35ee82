// Package report renders run summaries for people: on a terminal or in
// the process log.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Ensure the reporters implement the interface.
var (
	_ driven.Reporter = (*Console)(nil)
	_ driven.Reporter = Log{}
)

// Console writes summaries to a terminal.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a reporter writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// ScopeFinished prints one line per server.
func (c *Console) ScopeFinished(_ context.Context, s domain.ScopeSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "  %s: %s messages in %d channels\n",
		s.Scope.Name, humanize.Comma(int64(s.ItemsTotal)), len(s.Containers))
}

// RunFinished prints the final report.
func (c *Console) RunFinished(_ context.Context, r domain.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.w, FormatReport(r))
}

// FormatReport renders a report as a multi-line block.
func FormatReport(r domain.Report) string {
	var b strings.Builder

	title := "Dump complete"
	switch r.Phase {
	case domain.RunPhaseCancelled:
		title = "Dump cancelled"
	case domain.RunPhaseFailed:
		title = "Dump failed"
	}
	if r.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(&b, "\n%s\n", title)
	fmt.Fprintf(&b, "  Account:    %s\n", r.Account)
	fmt.Fprintf(&b, "  Servers:    %d/%d\n", r.ScopesDone, r.ScopesTotal)
	fmt.Fprintf(&b, "  Channels:   %d/%d\n", r.ContainersDone, r.ContainersTotal)
	fmt.Fprintf(&b, "  Messages:   %s\n", humanize.Comma(int64(r.ItemsTotal)))
	fmt.Fprintf(&b, "  Duration:   %s\n", domain.FormatDuration(r.Duration()))
	if r.ContainersSkipped > 0 {
		fmt.Fprintf(&b, "  Skipped:    %d channels\n", r.ContainersSkipped)
	}
	if r.WriteFailures > 0 {
		fmt.Fprintf(&b, "  Failed:     %d writes\n", r.WriteFailures)
	}

	b.WriteString("\n  By category:\n")
	for _, cat := range domain.AllCategories() {
		fmt.Fprintf(&b, "    %s %-14s %s\n", cat.Icon(), cat, humanize.Comma(int64(r.CategoryTotals[cat])))
	}
	fmt.Fprintf(&b, "\n  Archive: %s\n", r.ArchiveLocation)
	return b.String()
}

// Log writes summaries through the process logger. Used by the
// long-running control planes.
type Log struct{}

// ScopeFinished logs a server summary.
func (Log) ScopeFinished(_ context.Context, s domain.ScopeSummary) {
	logger.Info("server %s done: %d messages in %d channels", s.Scope.Name, s.ItemsTotal, len(s.Containers))
}

// RunFinished logs the final counts.
func (Log) RunFinished(_ context.Context, r domain.Report) {
	logger.Info("run %s %s: %d/%d servers, %d/%d channels, %d messages, %d skipped, %d write failures in %s",
		r.RunID, r.Phase, r.ScopesDone, r.ScopesTotal, r.ContainersDone, r.ContainersTotal,
		r.ItemsTotal, r.ContainersSkipped, r.WriteFailures, domain.FormatDuration(r.Duration()))
}
