package evalcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/shelfscan/shelfscan/internal/eval/dataset"
	"github.com/shelfscan/shelfscan/internal/images"
)

// Delay between fetches so the photo host is not hammered
const downloadInterval = 500 * time.Millisecond

// NewDownloadImagesCmd creates the download-images command
func NewDownloadImagesCmd() *cobra.Command {
	var datasetPath string
	var outputDir string
	var sampleSize int

	cmd := &cobra.Command{
		Use:   "download-images",
		Short: "Download shelf photos for a labeled dataset",
		Long: `Download the shelf photo for each dataset sample that carries an image
URL. Photos are stored as <sample id>.jpg in an images directory next to
the dataset file, which is where live evaluation runs look before
fetching from the URL themselves.`,
		Example: `  # Download photos for the whole dataset
  shelfscan eval download-images --dataset ./shelves.jsonl

  # Download photos for the first 20 samples into a custom directory
  shelfscan eval download-images --dataset ./shelves.parquet --sample 20 --output ./photos`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetPath == "" {
				return fmt.Errorf("--dataset is required")
			}

			// Check if dataset file exists
			if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s\n\nFetch it first:\n  shelfscan eval fetch", datasetPath)
			}

			return executeDownloadImages(cmd.Context(), datasetPath, outputDir, sampleSize)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to parquet or jsonl dataset file (required)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (defaults to an images directory next to the dataset)")
	cmd.Flags().IntVar(&sampleSize, "sample", 0, "Number of samples to process (0 for all)")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func executeDownloadImages(ctx context.Context, datasetPath, outputDir string, sampleSize int) error {
	slog.Info("Starting image download", "dataset", datasetPath, "sample", sampleSize)

	loader := dataset.NewLoader(datasetPath)

	var samples []dataset.ShelfSample
	var err error

	if sampleSize > 0 {
		samples, err = loader.LoadSample(sampleSize)
	} else {
		samples, err = loader.Load()
	}

	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	slog.Info("Loaded dataset samples", "count", len(samples))

	if outputDir == "" {
		outputDir = filepath.Join(loader.BaseDir(), "images")
	}

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fetcher := images.NewFetcher()
	limiter := rate.NewLimiter(rate.Every(downloadInterval), 1)

	successCount := 0
	skipCount := 0
	errorCount := 0

	for i, sample := range samples {
		slog.Info("Processing sample", "index", i+1, "total", len(samples), "id", sample.ID)

		if sample.ImageURL == "" {
			slog.Warn("No image URL for sample", "id", sample.ID)
			skipCount++
			continue
		}

		destPath := filepath.Join(outputDir, sample.ID+".jpg")

		// Check if the photo already exists - if so, skip
		if _, err := os.Stat(destPath); err == nil {
			slog.Info("Photo already exists, skipping", "id", sample.ID)
			skipCount++
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		if err := fetcher.Download(ctx, sample.ImageURL, destPath); err != nil {
			slog.Warn("Failed to download photo", "id", sample.ID, "url", sample.ImageURL, "error", err)
			errorCount++
			continue
		}

		slog.Info("Downloaded photo", "id", sample.ID, "dest", destPath)
		successCount++
	}

	fmt.Printf("\nImage download complete!\n")
	fmt.Printf("  Downloaded: %d\n", successCount)
	fmt.Printf("  Skipped (no URL or already exists): %d\n", skipCount)
	fmt.Printf("  Errors: %d\n", errorCount)
	fmt.Printf("  Output location: %s\n", outputDir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Run evaluation: shelfscan eval run --dataset %s --live\n", datasetPath)

	return nil
}
