package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/evalcmd"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Shelf recognition evaluation tools",
		Long: `Evaluation tools for measuring shelf recognition accuracy against
labeled bookshelf photos.

Supports fetching labeled datasets, downloading shelf photos, replaying
captured model responses or running live recognition, and generating
detailed comparison reports.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewFetchCmd())
	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())
	cmd.AddCommand(evalcmd.NewDownloadImagesCmd())

	return cmd
}
