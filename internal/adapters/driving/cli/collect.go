package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Archive messages live as they arrive",
	Long: `Connect to the Discord gateway and archive every message the account
receives, including direct and group messages, into the collect root.

Config edits are picked up while running. Press Ctrl-C to stop and print
what was collected.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	if collectorService == nil {
		return errors.New("collector service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	startConfigWatch(ctx)

	cmd.Println("Collecting messages. Press Ctrl-C to stop.")
	err := collectorService.Run(ctx)

	stats := collectorService.Stats()
	cmd.Println()
	cmd.Printf("Received: %s\n", humanize.Comma(int64(stats.Received)))
	cmd.Printf("Archived: %s\n", humanize.Comma(int64(stats.Archived)))
	if stats.WriteFailures > 0 {
		cmd.Printf("Failed:   %d\n", stats.WriteFailures)
	}
	for _, c := range domain.AllCategories() {
		if n := stats.CategoryTotals[c]; n > 0 {
			cmd.Printf("  %s %-14s %s\n", c.Icon(), c, humanize.Comma(int64(n)))
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return describeRunError(err)
	}
	return nil
}
