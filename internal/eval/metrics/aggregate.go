package metrics

import (
	"fmt"
	"strings"
	"time"
)

// EvaluationResult represents the outcome for a single shelf sample
type EvaluationResult struct {
	SampleID       string
	BooksExpected  int
	BooksFound     int
	Comparison     *ShelfComparison
	ProcessingTime time.Duration
	Error          string // If recognition failed
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalSamples int
	SuccessCount int
	FailureCount int

	// Macro metrics, averaged per shelf
	Precision float64
	Recall    float64
	F1        float64

	// Micro metrics, pooled over every book in the run so large shelves
	// weigh more than small ones
	MicroPrecision float64
	MicroRecall    float64
	MicroF1        float64

	MeanTitleSimilarity float64

	TotalBooksExpected int
	TotalBooksFound    int
	TotalMatches       int

	// Timing
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Detailed results
	Results []EvaluationResult

	// Metadata
	EvaluationDate time.Time
	Provider       string
	Model          string
	Mode           string // replay or live
	SampleSize     int
}

// Aggregate rolls per-sample results into run-level metrics
func Aggregate(results []EvaluationResult, provider, model, mode string) *AggregateResults {
	agg := &AggregateResults{
		TotalSamples:   len(results),
		Results:        results,
		EvaluationDate: time.Now(),
		Provider:       provider,
		Model:          model,
		Mode:           mode,
		SampleSize:     len(results),
	}

	var (
		sumPrecision, sumRecall, sumF1, sumSimilarity float64
		similaritySamples                             int
		totalDuration, successDuration                time.Duration
	)

	for _, result := range results {
		totalDuration += result.ProcessingTime

		if result.Error != "" {
			agg.FailureCount++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime
		agg.TotalBooksExpected += result.BooksExpected
		agg.TotalBooksFound += result.BooksFound

		if result.Comparison == nil {
			continue
		}

		agg.TotalMatches += len(result.Comparison.Matches)
		sumPrecision += result.Comparison.Precision
		sumRecall += result.Comparison.Recall
		sumF1 += result.Comparison.F1
		if len(result.Comparison.Matches) > 0 {
			sumSimilarity += result.Comparison.MeanTitleSimilarity
			similaritySamples++
		}
	}

	if agg.SuccessCount > 0 {
		n := float64(agg.SuccessCount)
		agg.Precision = sumPrecision / n
		agg.Recall = sumRecall / n
		agg.F1 = sumF1 / n
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	if similaritySamples > 0 {
		agg.MeanTitleSimilarity = sumSimilarity / float64(similaritySamples)
	}

	if agg.TotalBooksFound > 0 {
		agg.MicroPrecision = float64(agg.TotalMatches) / float64(agg.TotalBooksFound)
	}
	if agg.TotalBooksExpected > 0 {
		agg.MicroRecall = float64(agg.TotalMatches) / float64(agg.TotalBooksExpected)
	}
	if agg.MicroPrecision+agg.MicroRecall > 0 {
		agg.MicroF1 = 2 * agg.MicroPrecision * agg.MicroRecall / (agg.MicroPrecision + agg.MicroRecall)
	}

	agg.TotalProcessingTime = totalDuration

	return agg
}

// PrintSummary prints a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary() {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("SHELF RECOGNITION EVALUATION SUMMARY")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Printf("Provider: %s\n", a.Provider)
	fmt.Printf("Model: %s\n", a.Model)
	fmt.Printf("Mode: %s\n", a.Mode)
	fmt.Printf("Sample Size: %d shelves\n", a.SampleSize)
	fmt.Println()

	fmt.Println("PROCESSING STATISTICS")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Total Shelves: %d\n", a.TotalSamples)
	if a.TotalSamples > 0 {
		fmt.Printf("Successful: %d (%.1f%%)\n", a.SuccessCount, float64(a.SuccessCount)/float64(a.TotalSamples)*100)
		fmt.Printf("Failed: %d (%.1f%%)\n", a.FailureCount, float64(a.FailureCount)/float64(a.TotalSamples)*100)
	}
	fmt.Printf("Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Printf("Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Println()

	fmt.Println("RECOGNITION ACCURACY")
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Books on shelves: %d\n", a.TotalBooksExpected)
	fmt.Printf("Books recognized: %d\n", a.TotalBooksFound)
	fmt.Printf("Books matched: %d\n", a.TotalMatches)
	fmt.Println()
	fmt.Printf("Precision: %.2f%% per shelf, %.2f%% pooled\n", a.Precision*100, a.MicroPrecision*100)
	fmt.Printf("Recall: %.2f%% per shelf, %.2f%% pooled\n", a.Recall*100, a.MicroRecall*100)
	fmt.Printf("F1: %.2f%% per shelf, %.2f%% pooled\n", a.F1*100, a.MicroF1*100)
	fmt.Printf("Mean Title Similarity: %.3f\n", a.MeanTitleSimilarity)
	fmt.Println(strings.Repeat("=", 70))
}
