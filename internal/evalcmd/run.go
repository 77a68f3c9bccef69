package evalcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/eval/dataset"
	"github.com/shelfscan/shelfscan/internal/eval/metrics"
	resultsutil "github.com/shelfscan/shelfscan/internal/eval/results"
	"github.com/shelfscan/shelfscan/internal/images"
	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
	"github.com/shelfscan/shelfscan/internal/recognition"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var datasetPath string
	var sampleSize int
	var live bool
	var provider string
	var model string
	var outputDir string
	var concurrency int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a shelf recognition evaluation",
		Long: `Evaluate shelf recognition accuracy against a labeled dataset.

By default the run replays the captured model responses stored in the
dataset, so no provider credentials are needed and results are
deterministic. Pass --live to send each shelf photo to the configured
vision provider instead.`,
		Example: `  # Replay captured responses for the whole dataset
  shelfscan eval run --dataset ./shelves.jsonl

  # Score 20 shelves with a live Gemini call
  shelfscan eval run --dataset ./shelves.parquet --sample 20 --live --provider gemini

  # Label a replay run with the model that produced the captures
  shelfscan eval run --dataset ./shelves.jsonl --model gemini-2.0-flash`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetPath == "" {
				return fmt.Errorf("--dataset is required")
			}

			return executeRun(cmd.Context(), datasetPath, provider, model, outputDir, sampleSize, concurrency, live, verbose)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to parquet or jsonl dataset file (required)")
	cmd.Flags().IntVar(&sampleSize, "sample", 0, "Number of shelves to evaluate (0 for all)")
	cmd.Flags().BoolVar(&live, "live", false, "Call the vision provider instead of replaying captured responses")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider for live runs (gemini, openai, or ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to the provider's default)")
	cmd.Flags().StringVar(&outputDir, "output", "evals", "Directory for YAML result files")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of shelves to process in parallel")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// runConfig carries the pieces every evaluation goroutine shares.
type runConfig struct {
	baseDir string
	live    bool
	service *recognition.Service
	fetcher *images.Fetcher
}

func executeRun(ctx context.Context, datasetPath, provider, model, outputDir string, sampleSize, concurrency int, live, verbose bool) error {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	mode := "replay"
	if live {
		mode = "live"
	}

	slog.Info("Starting evaluation run", "dataset", datasetPath, "mode", mode, "sample_size", sampleSize)

	// Load dataset
	loader := dataset.NewLoader(datasetPath)

	var samples []dataset.ShelfSample
	var err error

	if sampleSize > 0 {
		slog.Info("Loading sample from dataset", "limit", sampleSize)
		samples, err = loader.LoadSample(sampleSize)
	} else {
		slog.Info("Loading full dataset")
		samples, err = loader.Load()
	}

	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	slog.Info("Dataset loaded", "samples", len(samples))

	run := &runConfig{baseDir: loader.BaseDir(), live: live}

	if live {
		if provider == "" {
			provider = providers.NameFromEnv()
		}

		p, err := providers.ForName(provider)
		if err != nil {
			return err
		}

		if model == "" {
			model = os.Getenv("SHELFSCAN_VISION_MODEL")
		}
		if model == "" {
			model = providers.DefaultModel(provider)
		}

		run.service = recognition.NewService(p, model)
		run.fetcher = images.NewFetcher()

		slog.Info("Using vision provider", "provider", provider, "model", model)
	} else {
		// Replay runs score captured responses, so provider and model
		// only label the report.
		if provider == "" {
			provider = "replay"
		}
		if model == "" {
			model = "replay"
		}
	}

	// Process samples with concurrency control
	slog.Info("Processing samples", "concurrency", concurrency)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	resultsChan := make(chan metrics.EvaluationResult, len(samples))

	for i, sample := range samples {
		wg.Add(1)
		go func(idx int, sample dataset.ShelfSample) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			slog.Info("Processing sample", "id", sample.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(samples)))

			resultsChan <- evaluateSample(ctx, sample, run)
		}(i, sample)
	}

	// Wait for all goroutines to finish
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	results := make([]metrics.EvaluationResult, 0, len(samples))
	for result := range resultsChan {
		results = append(results, result)
	}

	// Channel order depends on goroutine scheduling
	sort.Slice(results, func(i, j int) bool {
		return results[i].SampleID < results[j].SampleID
	})

	// Aggregate results
	slog.Info("Aggregating results")
	agg := metrics.Aggregate(results, provider, model, mode)

	// Print summary
	agg.PrintSummary()

	// Save results
	path, err := resultsutil.SaveToYAML(datasetPath, outputDir, agg)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nGenerate detailed report with:\n")
	fmt.Printf("  shelfscan eval report --results %s\n", path)

	return nil
}

// evaluateSample scores a single shelf sample
func evaluateSample(ctx context.Context, sample dataset.ShelfSample, run *runConfig) metrics.EvaluationResult {
	startTime := time.Now()

	result := metrics.EvaluationResult{
		SampleID:      sample.ID,
		BooksExpected: len(sample.Books),
	}

	var books []models.RecognizedBook

	if run.live {
		image, err := loadShelfImage(ctx, sample, run)
		if err != nil {
			result.Error = fmt.Sprintf("failed to load shelf photo: %v", err)
			result.ProcessingTime = time.Since(startTime)
			return result
		}

		books, err = run.service.RecognizeShelf(ctx, image)
		if err != nil {
			result.Error = fmt.Sprintf("recognition failed: %v", err)
			result.ProcessingTime = time.Since(startTime)
			return result
		}
	} else {
		if !sample.HasReplay() {
			result.Error = "no captured model response, re-run with --live"
			result.ProcessingTime = time.Since(startTime)
			return result
		}

		books = recognition.ParseShelfResponse(sample.RawResponse)
	}

	result.BooksFound = len(books)
	result.Comparison = metrics.CompareShelf(sample.Books, books)
	result.ProcessingTime = time.Since(startTime)

	slog.Debug("Sample scored",
		"id", sample.ID,
		"expected", result.BooksExpected,
		"found", result.BooksFound,
		"f1", result.Comparison.F1)

	return result
}

// loadShelfImage reads a sample's photo from disk, checking the
// download-images cache before falling back to the source URL.
func loadShelfImage(ctx context.Context, sample dataset.ShelfSample, run *runConfig) ([]byte, error) {
	if sample.ImagePath != "" {
		data, err := os.ReadFile(sample.ResolveImagePath(run.baseDir))
		if err == nil {
			return data, nil
		}
		if sample.ImageURL == "" {
			return nil, err
		}
		slog.Warn("Shelf photo missing on disk, fetching from URL", "id", sample.ID, "error", err)
	}

	if sample.ImageURL == "" {
		return nil, fmt.Errorf("sample has no image path or URL")
	}

	cached := filepath.Join(run.baseDir, "images", sample.ID+".jpg")
	if data, err := os.ReadFile(cached); err == nil {
		return data, nil
	}

	return run.fetcher.Fetch(ctx, sample.ImageURL)
}
