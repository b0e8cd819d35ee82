package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/chronicle/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/chronicle/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/chronicle/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/chronicle/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// pollInterval is how often the progress snapshot is refreshed.
const pollInterval = 250 * time.Millisecond

const maxBarWidth = 60

// App is the dump progress view following the Elm architecture.
// It starts a run on Init and follows it until the final report.
type App struct {
	ports *Ports
	ctx   context.Context
	opts  domain.RunOptions

	styles *styles.Styles
	keymap *keymap.KeyMap

	bar      *status.Bar
	spinner  spinner.Model
	progress progress.Model
	table    table.Model
	help     help.Model

	runID    string
	snapshot domain.ProgressSnapshot
	report   *domain.Report
	err      error

	stopping bool
	showHelp bool
	width    int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the progress view for a run with opts.
func NewApp(ports *Ports, opts domain.RunOptions) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	theme := s.Theme()

	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "Category", Width: 18},
			{Title: "Messages", Width: 10},
		}),
		table.WithHeight(len(domain.AllCategories())+1),
		table.WithFocused(false),
	)

	a := &App{
		ports:    ports,
		ctx:      context.Background(),
		opts:     opts,
		styles:   s,
		keymap:   km,
		bar:      status.NewBar(s, km),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithGradient(string(theme.Primary), string(theme.Secondary)), progress.WithWidth(40)),
		table:    tbl,
		help:     help.New(),
	}
	a.setCounts(domain.NewCategoryCounts())
	return a, nil
}

// WithContext sets the context used to start the run.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init starts the run and the spinner.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.startRun(), a.spinner.Tick)
}

// Update handles incoming messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.bar.SetWidth(msg.Width)
		a.progress.Width = min(max(msg.Width-8, 10), maxBarWidth)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.RunStarted:
		a.runID = msg.RunID
		a.bar.SetState(status.StateRunning)
		return a, a.poll()

	case messages.RunFailed:
		a.err = msg.Err
		a.bar.SetState(status.StateError)
		a.bar.SetMessage(msg.Err.Error())
		return a, nil

	case messages.ProgressTick:
		return a.handleTick(msg.Snapshot)

	case messages.RunFinished:
		a.finish(msg.Report)
		return a, nil

	case messages.StopRequested:
		if msg.Err != nil && !errors.Is(msg.Err, domain.ErrNotRunning) {
			a.bar.SetState(status.StateError)
			a.bar.SetMessage(msg.Err.Error())
		}
		return a, nil

	case messages.ArchiveRevealed:
		if msg.Err != nil {
			a.bar.SetMessage("open failed: " + msg.Err.Error())
		}
		return a, nil

	case spinner.TickMsg:
		if a.done() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	if keymap.Matches(k, a.keymap.Help) {
		a.showHelp = !a.showHelp
		return a, nil
	}

	if a.done() {
		switch {
		case keymap.Matches(k, a.keymap.Quit), k == "ctrl+c":
			return a, tea.Quit
		case keymap.Matches(k, a.keymap.Open) && a.report != nil:
			return a, a.revealArchive()
		}
		return a, nil
	}

	if !keymap.Matches(k, a.keymap.Stop) {
		return a, nil
	}
	// Before the run is registered there is nothing to stop.
	if a.runID == "" {
		if k == "ctrl+c" {
			return a, tea.Quit
		}
		return a, nil
	}
	if a.stopping {
		if k == "ctrl+c" {
			return a, tea.Quit
		}
		return a, nil
	}
	a.stopping = true
	a.bar.SetState(status.StateStopping)
	return a, a.stopRun()
}

func (a *App) handleTick(snap domain.ProgressSnapshot) (tea.Model, tea.Cmd) {
	if snap.Phase != domain.RunPhaseRunning || snap.RunID != a.runID {
		if r, ok := a.ports.Dump.LastReport(); ok && r.RunID == a.runID {
			a.finish(r)
			return a, nil
		}
		return a, a.poll()
	}

	a.snapshot = snap
	a.setCounts(snap.CategoryTotals)
	if snap.CancelRequested && !a.stopping {
		a.stopping = true
		a.bar.SetState(status.StateStopping)
	}
	return a, a.poll()
}

func (a *App) finish(r *domain.Report) {
	a.report = r
	a.setCounts(r.CategoryTotals)
	a.bar.SetState(status.StateDone)
	a.bar.SetMessage(reportTitle(r))
}

func (a *App) done() bool {
	return a.report != nil || a.err != nil
}

func (a *App) setCounts(counts domain.CategoryCounts) {
	cats := domain.AllCategories()
	rows := make([]table.Row, len(cats))
	for i, c := range cats {
		rows[i] = table.Row{c.Icon() + " " + c.String(), humanize.Comma(int64(counts[c]))}
	}
	a.table.SetRows(rows)
}

func (a *App) startRun() tea.Cmd {
	ctx, opts, dump := a.ctx, a.opts, a.ports.Dump
	return func() tea.Msg {
		runID, err := dump.Start(ctx, opts)
		if err != nil {
			return messages.RunFailed{Err: err}
		}
		return messages.RunStarted{RunID: runID}
	}
}

func (a *App) poll() tea.Cmd {
	dump := a.ports.Dump
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return messages.ProgressTick{Snapshot: dump.Progress()}
	})
}

func (a *App) stopRun() tea.Cmd {
	dump := a.ports.Dump
	return func() tea.Msg {
		return messages.StopRequested{Err: dump.Stop()}
	}
}

func (a *App) revealArchive() tea.Cmd {
	ctx, dump := a.ctx, a.ports.Dump
	return func() tea.Msg {
		return messages.ArchiveRevealed{Err: dump.RevealArchive(ctx)}
	}
}

// View renders the progress view.
func (a *App) View() string {
	var b strings.Builder

	header := a.styles.Title.Render("chronicle dump")
	if !a.done() {
		header = a.spinner.View() + " " + header
	}
	if a.opts.DryRun {
		header += a.styles.Muted.Render(" (dry run)")
	}
	b.WriteString(header + "\n\n")

	switch {
	case a.err != nil:
		b.WriteString(a.styles.Error.Render(a.err.Error()) + "\n")
	case a.report != nil:
		b.WriteString(a.styles.Panel.Render(a.renderReport()) + "\n")
	default:
		b.WriteString(a.styles.Panel.Render(a.renderProgress()) + "\n")
	}

	b.WriteString(a.table.View() + "\n\n")

	if a.showHelp {
		b.WriteString(a.help.FullHelpView(a.keymap.FullHelp()) + "\n\n")
	}
	b.WriteString(a.bar.View())
	return b.String()
}

func (a *App) renderProgress() string {
	snap := a.snapshot
	if a.runID == "" || snap.RunID == "" {
		return a.styles.Muted.Render("Resolving account and servers...")
	}

	lines := []string{
		a.field("Server", fmt.Sprintf("%d/%d  %s", min(snap.ScopesDone+1, snap.ScopesTotal), snap.ScopesTotal, snap.CurrentScopeName)),
		a.field("Channel", fmt.Sprintf("%d/%d  #%s", snap.ContainerIndexInScope, snap.ContainersInScope, snap.CurrentContainerName)),
		a.field("Messages", humanize.Comma(int64(snap.ItemsTotal))),
		a.field("Elapsed", domain.FormatDuration(snap.Elapsed)),
		a.field("ETA", snap.ETAString()),
		"",
		a.progress.ViewAs(float64(snap.Percent)/100) +
			a.styles.Muted.Render(fmt.Sprintf("  %d/%d channels", snap.ContainersDone, snap.ContainersTotal)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (a *App) renderReport() string {
	r := a.report
	lines := []string{
		a.styles.Success.Render(reportTitle(r)),
		a.field("Servers", fmt.Sprintf("%d/%d", r.ScopesDone, r.ScopesTotal)),
		a.field("Channels", fmt.Sprintf("%d/%d", r.ContainersDone, r.ContainersTotal)),
		a.field("Messages", humanize.Comma(int64(r.ItemsTotal))),
		a.field("Duration", domain.FormatDuration(r.Duration())),
	}
	if r.ContainersSkipped > 0 {
		lines = append(lines, a.field("Skipped", a.styles.Warning.Render(fmt.Sprintf("%d channels", r.ContainersSkipped))))
	}
	if r.WriteFailures > 0 {
		lines = append(lines, a.field("Failed", a.styles.Error.Render(fmt.Sprintf("%d writes", r.WriteFailures))))
	}
	lines = append(lines, a.field("Archive", r.ArchiveLocation))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (a *App) field(label, value string) string {
	return a.styles.Label.Render(label) + a.styles.Value.Render(value)
}

func reportTitle(r *domain.Report) string {
	switch r.Phase {
	case domain.RunPhaseCancelled:
		return "Dump cancelled"
	case domain.RunPhaseFailed:
		return "Dump failed"
	default:
		return "Dump complete"
	}
}

// RunID returns the active run ID, empty before the run starts.
func (a *App) RunID() string {
	return a.runID
}

// Report returns the final report once the run finished.
func (a *App) Report() *domain.Report {
	return a.report
}

// Err returns the start error, if any.
func (a *App) Err() error {
	return a.err
}

// Stopping reports whether cancellation was requested.
func (a *App) Stopping() bool {
	return a.stopping
}
