package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	// Provider registration.
	_ "github.com/shelfscan/shelfscan/internal/gemini"
	_ "github.com/shelfscan/shelfscan/internal/ollama"
	_ "github.com/shelfscan/shelfscan/internal/openai"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelfscan",
		Short: "Bookshelf scanner with LLM-powered recognition and recommendations",
		Long: `Shelfscan turns a photo of a bookshelf into a catalog of recognized books
and personalized reading recommendations, using vision-capable LLMs.

It serves a web API for scanning shelves, enriching recognized books with
catalog metadata, and generating recommendation sets, plus a CLI for
evaluating recognition accuracy against labeled shelf photos.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
