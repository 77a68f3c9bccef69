package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/storage"
)

func newCleanupCmd() *cobra.Command {
	var retentionHours int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired unsaved recommendation sets",
		Long: `Runs one retention sweep and exits.

The serve command runs the same sweep on a schedule; this command exists
for cron setups and for reclaiming space without a running server. Saved
recommendation sets are never deleted.`,
		Example: `  # Delete unsaved sets older than 24 hours
  shelfscan cleanup

  # Use a shorter window
  shelfscan cleanup --retention-hours 6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(storage.DefaultConfig())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			n, err := store.CleanupRecommendations(cmd.Context(), time.Duration(retentionHours)*time.Hour)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			fmt.Printf("Deleted %d expired recommendation set(s)\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&retentionHours, "retention-hours", 24, "Delete unsaved sets older than this many hours")

	return cmd
}
