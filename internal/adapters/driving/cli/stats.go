package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive sizes",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if len(archiveRoots) == 0 {
		return fmt.Errorf("archive storage not configured")
	}

	for _, root := range archiveRoots {
		st, err := root.Storage.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s archive: %w", root.Name, err)
		}

		cmd.Printf("%s archive: %s\n", root.Name, st.Location)
		if !st.Exists {
			cmd.Println("  (not created yet)")
			continue
		}
		cmd.Printf("  %s files, %s\n", humanize.Comma(int64(st.Files)), humanize.Bytes(uint64(st.Bytes)))
	}
	return nil
}
