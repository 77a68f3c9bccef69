package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	resultsutil "github.com/shelfscan/shelfscan/internal/eval/results"
	"github.com/shelfscan/shelfscan/internal/parse"
)

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a detailed report from saved evaluation results",
		Long: `Render a saved evaluation YAML file as a readable report.

The text format prints the run configuration, summary metrics, and the
missed and extra titles for every shelf. The json and csv formats are
meant for piping into other tools.`,
		Example: `  # Human readable report
  shelfscan eval report --results evals/gemini-2.0-flash-20260822-093000.yaml

  # Per-shelf metrics as CSV
  shelfscan eval report --results evals/replay-20260822-093000.yaml --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if resultsPath == "" {
				return fmt.Errorf("--results is required")
			}

			return executeReport(resultsPath, format)
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to an evaluation YAML file (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, or csv)")

	_ = cmd.MarkFlagRequired("results")

	return cmd
}

func executeReport(resultsPath, format string) error {
	spec, err := resultsutil.Load(resultsPath)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		return printTextReport(spec)
	case "json":
		return printJSONReport(spec)
	case "csv":
		return printCSVReport(spec)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(spec *resultsutil.EvalSpec) error {
	fmt.Println("========================================")
	fmt.Printf("Shelf Recognition Evaluation Report\n")
	fmt.Println("========================================")
	fmt.Printf("Provider: %s\n", spec.Config.Provider)
	fmt.Printf("Model:    %s\n", spec.Config.Model)
	fmt.Printf("Mode:     %s\n", spec.Config.Mode)
	fmt.Printf("Dataset:  %s\n", spec.Config.DatasetPath)
	fmt.Printf("Date:     %s\n", spec.Config.Timestamp)
	fmt.Println()

	summary := spec.Summary
	fmt.Printf("Shelves:          %d (%d scored, %d failed)\n", summary.TotalSamples, summary.SuccessCount, summary.FailureCount)
	fmt.Printf("Precision:        %.2f%% per shelf, %.2f%% pooled\n", summary.Precision*100, summary.MicroPrecision*100)
	fmt.Printf("Recall:           %.2f%% per shelf, %.2f%% pooled\n", summary.Recall*100, summary.MicroRecall*100)
	fmt.Printf("F1:               %.2f%% per shelf, %.2f%% pooled\n", summary.F1*100, summary.MicroF1*100)
	fmt.Printf("Title Similarity: %.2f%%\n", summary.MeanTitleSimilarity*100)
	fmt.Printf("Books:            %d expected, %d found, %d matched\n", summary.BooksExpected, summary.BooksFound, summary.BooksMatched)

	// Print detailed results
	fmt.Println("\nDetailed Results:")
	fmt.Println("========================================")

	for i, result := range spec.Results {
		fmt.Printf("\n[%d] Shelf: %s\n", i+1, result.Sample)

		if result.Error != "" {
			fmt.Printf("  ❌ Error: %s\n", result.Error)
			continue
		}

		fmt.Printf("  Precision: %.2f%%  Recall: %.2f%%  F1: %.2f%%\n", result.Precision*100, result.Recall*100, result.F1*100)
		fmt.Printf("  Books: %d expected, %d found, %d matched\n", result.BooksExpected, result.BooksFound, result.BooksMatched)

		if len(result.MissedTitles) > 0 {
			fmt.Println("  Missed:")
			for _, title := range result.MissedTitles {
				fmt.Printf("    - %s\n", parse.Truncate(title, 80))
			}
		}

		if len(result.ExtraTitles) > 0 {
			fmt.Println("  Extra:")
			for _, title := range result.ExtraTitles {
				fmt.Printf("    - %s\n", parse.Truncate(title, 80))
			}
		}
	}

	return nil
}

func printJSONReport(spec *resultsutil.EvalSpec) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(spec)
}

func printCSVReport(spec *resultsutil.EvalSpec) error {
	writer := csv.NewWriter(os.Stdout)
	defer writer.Flush()

	// Write header
	header := []string{"Sample", "Precision", "Recall", "F1", "Title Similarity", "Books Expected", "Books Found", "Books Matched", "Processing MS", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	// Write rows
	for _, result := range spec.Results {
		row := []string{
			result.Sample,
			fmt.Sprintf("%.4f", result.Precision),
			fmt.Sprintf("%.4f", result.Recall),
			fmt.Sprintf("%.4f", result.F1),
			fmt.Sprintf("%.4f", result.TitleSimilarity),
			strconv.Itoa(result.BooksExpected),
			strconv.Itoa(result.BooksFound),
			strconv.Itoa(result.BooksMatched),
			strconv.FormatInt(result.ProcessingMS, 10),
			result.Error,
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}
