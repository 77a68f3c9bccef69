package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/eval/dataset"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var limit int
	var interactive bool
	var showBooks bool
	var showResponse bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect dataset samples (useful for examining captured responses)",
		Long: `Inspect samples from a parquet or jsonl dataset file.

This command is useful for examining ground truth labels and captured
model responses before running an evaluation.`,
		Example: `  # Inspect first 5 samples interactively
  shelfscan eval inspect --dataset ./shelves.jsonl --limit 5 --interactive

  # Show only the labeled books
  shelfscan eval inspect --dataset ./shelves.jsonl --response=false

  # Inspect all samples (no limit)
  shelfscan eval inspect --dataset ./shelves.jsonl --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetPath == "" {
				return fmt.Errorf("--dataset is required")
			}

			// Create a context that gets canceled on an interrupt signal (Ctrl+C)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop() // Ensure the signal handler is cleaned up

			return executeInspect(ctx, datasetPath, limit, interactive, showBooks, showResponse)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to parquet or jsonl dataset file (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of samples to inspect (0 for all)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each sample (press Enter to continue)")
	cmd.Flags().BoolVar(&showBooks, "books", true, "Show ground truth books")
	cmd.Flags().BoolVar(&showResponse, "response", true, "Show captured model response")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func executeInspect(ctx context.Context, datasetPath string, limit int, interactive, showBooks, showResponse bool) error {
	loader := dataset.NewLoader(datasetPath)

	var samples []dataset.ShelfSample
	var err error

	if limit > 0 {
		samples, err = loader.LoadSample(limit)
	} else {
		samples, err = loader.Load()
	}

	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Printf("Loaded %d samples from %s\n", len(samples), datasetPath)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for i, sample := range samples {
		// Check for context cancellation (e.g., Ctrl+C) at the start of each iteration
		select {
		case <-ctx.Done():
			fmt.Println("\nInspection interrupted.")
			return nil // Return nil for a clean exit
		default:
			// Continue processing the sample
		}

		fmt.Printf("SAMPLE %d/%d\n", i+1, len(samples))
		fmt.Println(strings.Repeat("-", 80))

		fmt.Printf("ID:             %s\n", sample.ID)
		if sample.ImagePath != "" {
			fmt.Printf("Image Path:     %s\n", sample.ResolveImagePath(loader.BaseDir()))
		}
		if sample.ImageURL != "" {
			fmt.Printf("Image URL:      %s\n", sample.ImageURL)
		}
		fmt.Printf("Labeled Books:  %d\n", len(sample.Books))
		fmt.Printf("Has Replay:     %t\n", sample.HasReplay())
		fmt.Println()

		if showBooks {
			for j, book := range sample.Books {
				if book.Author != "" {
					fmt.Printf("  %2d. %s by %s\n", j+1, book.Title, book.Author)
				} else {
					fmt.Printf("  %2d. %s\n", j+1, book.Title)
				}
			}
			fmt.Println()
		}

		if showResponse && sample.HasReplay() {
			fmt.Printf("Response Length: %d characters\n", len(sample.RawResponse))
			fmt.Println()

			// Show first 500 characters with indicator if truncated
			displayText := sample.RawResponse
			truncated := false
			maxChars := 500
			if len(displayText) > maxChars {
				displayText = displayText[:maxChars]
				truncated = true
			}

			fmt.Println("CAPTURED RESPONSE PREVIEW:")
			fmt.Println(strings.Repeat("-", 80))
			fmt.Println(displayText)
			if truncated {
				fmt.Printf("\n[... truncated, showing first %d of %d characters ...]\n", maxChars, len(sample.RawResponse))
			}
			fmt.Println(strings.Repeat("-", 80))
		}

		fmt.Println()

		if interactive {
			fmt.Print("Press Enter to continue to next sample (or Ctrl+C to quit)...")

			// Channel to signal user input
			inputCh := make(chan struct{})
			// Goroutine to wait for Enter key
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			// Wait for either user input (Enter) or context cancellation (Ctrl+C)
			select {
			case <-ctx.Done():
				// Context was canceled
				fmt.Println("\nInspection interrupted.")
				return nil // Clean exit
			case <-inputCh:
				// User pressed Enter
				fmt.Println()
			}
		} else {
			fmt.Println()
		}
	}

	return nil
}
