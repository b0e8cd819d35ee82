package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/chronicle/internal/adapters/driving/tui"
	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/logger"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Archive every reachable server",
	Long: `Walk every server and text channel the configured account can see,
classify each message and write it under the dump root.`,
}

var dumpRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full dump",
	Long: `Run a full dump of every reachable server.

Press Ctrl-C once to stop after the current channel; the partial archive
and per-server summaries are kept. Press Ctrl-C again to abort at once.

Examples:
  chronicle dump run
  chronicle dump run --max-messages 500 --no-ai
  chronicle dump run --server 123456789012345678 --dry-run
  chronicle dump run --tui`,
	RunE: runDump,
}

var dumpServersCmd = &cobra.Command{
	Use:   "servers",
	Short: "List reachable servers",
	RunE:  runDumpServers,
}

var dumpCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List message categories",
	RunE:  runDumpCategories,
}

var dumpOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the dump folder",
	RunE:  runDumpOpen,
}

var dumpCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the token, servers and classifier",
	RunE:  runDumpCheck,
}

var dumpHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs",
	RunE:  runDumpHistory,
}

// Flags for dump run.
var (
	dumpMaxMessages int
	dumpAI          bool
	dumpNoAI        bool
	dumpServers     []string
	dumpDryRun      bool
	dumpTUI         bool
	dumpNoOpen      bool
	dumpHistoryMax  int
)

func init() {
	dumpRunCmd.Flags().IntVar(&dumpMaxMessages, "max-messages", 0, "Maximum messages per channel (0 = all)")
	dumpRunCmd.Flags().BoolVar(&dumpAI, "ai", false, "Enable the remote classifier for this run")
	dumpRunCmd.Flags().BoolVar(&dumpNoAI, "no-ai", false, "Disable the remote classifier for this run")
	dumpRunCmd.Flags().StringSliceVar(&dumpServers, "server", nil, "Only dump these server IDs (repeatable)")
	dumpRunCmd.Flags().BoolVar(&dumpDryRun, "dry-run", false, "Classify without writing files")
	dumpRunCmd.Flags().BoolVar(&dumpTUI, "tui", false, "Show the interactive progress view")
	dumpRunCmd.Flags().BoolVar(&dumpNoOpen, "no-open", false, "Do not open the dump folder when done")

	dumpHistoryCmd.Flags().IntVar(&dumpHistoryMax, "limit", 10, "Number of runs to show")

	dumpCmd.AddCommand(dumpRunCmd)
	dumpCmd.AddCommand(dumpServersCmd)
	dumpCmd.AddCommand(dumpCategoriesCmd)
	dumpCmd.AddCommand(dumpOpenCmd)
	dumpCmd.AddCommand(dumpCheckCmd)
	dumpCmd.AddCommand(dumpHistoryCmd)
	rootCmd.AddCommand(dumpCmd)
}

// runOptions builds run options from the dump run flags.
func runOptions() (domain.RunOptions, error) {
	if dumpAI && dumpNoAI {
		return domain.RunOptions{}, errors.New("--ai and --no-ai are mutually exclusive")
	}
	if dumpMaxMessages < 0 {
		return domain.RunOptions{}, errors.New("--max-messages must not be negative")
	}

	opts := domain.RunOptions{
		MaxItemsPerContainer: dumpMaxMessages,
		ScopeIDs:             dumpServers,
		DryRun:               dumpDryRun,
		SkipReveal:           dumpNoOpen || dumpDryRun,
	}
	switch {
	case dumpAI:
		on := true
		opts.UseRemote = &on
	case dumpNoAI:
		off := false
		opts.UseRemote = &off
	}
	return opts, nil
}

func runDump(cmd *cobra.Command, _ []string) error {
	if dumpService == nil {
		return errors.New("dump service not configured")
	}

	opts, err := runOptions()
	if err != nil {
		return err
	}

	if dumpTUI {
		return runDumpTUI(cmd, opts)
	}

	ctx, stop := interruptible(cmd.Context(), func() {
		cmd.PrintErrln("\nStopping after the current channel. Press Ctrl-C again to abort.")
		if err := dumpService.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
			logger.Warn("stop: %v", err)
		}
	})
	defer stop()

	report, err := dumpService.Run(ctx, opts)
	if err != nil {
		return describeRunError(err)
	}
	if report.Phase == domain.RunPhaseCancelled && ctx.Err() != nil {
		return errors.New("dump aborted")
	}
	return nil
}

func runDumpTUI(cmd *cobra.Command, opts domain.RunOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(&tui.Ports{Dump: dumpService}, opts)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	// Log lines would tear the alt screen.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if app.Err() != nil {
		return describeRunError(app.Err())
	}
	if r := app.Report(); r != nil {
		cmd.Printf("%s: %s messages in %d/%d channels (%s)\n",
			r.Phase, humanize.Comma(int64(r.ItemsTotal)), r.ContainersDone, r.ContainersTotal,
			domain.FormatDuration(r.Duration()))
		cmd.Printf("Archive: %s\n", r.ArchiveLocation)
	}
	return nil
}

// interruptible returns a context that survives the first interrupt,
// which calls onFirst, and is cancelled by the second.
func interruptible(parent context.Context, onFirst func()) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		first := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				if first {
					first = false
					onFirst()
					continue
				}
				cancel()
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// describeRunError adds a hint for errors the user can fix.
func describeRunError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNoToken):
		return fmt.Errorf("%w (run 'chronicle auth login' or set CHRONICLE_TOKEN)", err)
	case errors.Is(err, domain.ErrAuthInvalid):
		return fmt.Errorf("%w (run 'chronicle auth login' to replace it)", err)
	case errors.Is(err, domain.ErrNoScopes):
		return fmt.Errorf("%w (check --server IDs with 'chronicle dump servers')", err)
	case errors.Is(err, domain.ErrRunInProgress):
		return fmt.Errorf("%w (stop it first)", err)
	}
	return err
}

func runDumpServers(cmd *cobra.Command, _ []string) error {
	if dumpService == nil {
		return errors.New("dump service not configured")
	}

	scopes, err := dumpService.ListScopes(cmd.Context())
	if err != nil {
		return describeRunError(err)
	}
	if len(scopes) == 0 {
		cmd.Println("No servers reachable.")
		return nil
	}

	cmd.Printf("%d servers:\n", len(scopes))
	for _, s := range scopes {
		cmd.Printf("  %-20s %s\n", s.ID, s.Name)
	}
	return nil
}

func runDumpCategories(cmd *cobra.Command, _ []string) error {
	if dumpService == nil {
		return errors.New("dump service not configured")
	}

	for _, c := range dumpService.Categories() {
		cmd.Printf("  %s %-14s %s\n", c.Icon(), c, c.Description())
	}
	return nil
}

func runDumpOpen(cmd *cobra.Command, _ []string) error {
	if dumpService == nil {
		return errors.New("dump service not configured")
	}
	if err := dumpService.RevealArchive(cmd.Context()); err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	return nil
}

func runDumpCheck(cmd *cobra.Command, _ []string) error {
	if dumpService == nil {
		return errors.New("dump service not configured")
	}

	res, err := dumpService.Check(cmd.Context())
	if err != nil {
		return describeRunError(err)
	}

	cmd.Printf("Account:    %s (%s)\n", res.Account.Name, res.Account.ID)
	cmd.Printf("Servers:    %d reachable\n", res.Scopes)

	switch {
	case !res.ClassifierEnabled:
		cmd.Println("Classifier: local rules only")
	case res.ClassifierError != nil:
		cmd.Printf("Classifier: %s unreachable: %v\n", res.ClassifierModel, res.ClassifierError)
	default:
		cmd.Printf("Classifier: %s ok\n", res.ClassifierModel)
	}
	return nil
}

func runDumpHistory(cmd *cobra.Command, _ []string) error {
	if dumpService == nil {
		return errors.New("dump service not configured")
	}
	if dumpHistoryMax <= 0 {
		return errors.New("--limit must be positive")
	}

	runs, err := dumpService.History(cmd.Context(), dumpHistoryMax)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	for i := range runs {
		r := runs[i]
		cmd.Printf("%s  %-9s  %s messages  %d/%d channels",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Phase,
			humanize.Comma(int64(r.ItemsTotal)), r.ContainersDone, r.ContainersTotal)
		if !r.FinishedAt.IsZero() {
			cmd.Printf("  %s", domain.FormatDuration(r.FinishedAt.Sub(r.StartedAt)))
		}
		if r.Error != "" {
			cmd.Printf("  error: %s", r.Error)
		}
		cmd.Println()
	}
	return nil
}
