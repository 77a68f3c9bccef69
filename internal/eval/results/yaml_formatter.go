package results

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shelfscan/shelfscan/internal/eval/metrics"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Provider    string `yaml:"provider" json:"provider"`
	Model       string `yaml:"model" json:"model"`
	Mode        string `yaml:"mode" json:"mode"`
	DatasetPath string `yaml:"datasetpath" json:"datasetpath"`
	SampleSize  int    `yaml:"samplesize" json:"samplesize"`
	Timestamp   string `yaml:"timestamp" json:"timestamp"`
}

// EvalSummary carries the run-level metrics
type EvalSummary struct {
	TotalSamples        int     `yaml:"totalsamples" json:"totalsamples"`
	SuccessCount        int     `yaml:"successcount" json:"successcount"`
	FailureCount        int     `yaml:"failurecount" json:"failurecount"`
	Precision           float64 `yaml:"precision" json:"precision"`
	Recall              float64 `yaml:"recall" json:"recall"`
	F1                  float64 `yaml:"f1" json:"f1"`
	MicroPrecision      float64 `yaml:"microprecision" json:"microprecision"`
	MicroRecall         float64 `yaml:"microrecall" json:"microrecall"`
	MicroF1             float64 `yaml:"microf1" json:"microf1"`
	MeanTitleSimilarity float64 `yaml:"meantitlesimilarity" json:"meantitlesimilarity"`
	BooksExpected       int     `yaml:"booksexpected" json:"booksexpected"`
	BooksFound          int     `yaml:"booksfound" json:"booksfound"`
	BooksMatched        int     `yaml:"booksmatched" json:"booksmatched"`
}

// EvalResult represents a single shelf evaluation result
type EvalResult struct {
	Sample          string   `yaml:"sample" json:"sample"`
	Precision       float64  `yaml:"precision" json:"precision"`
	Recall          float64  `yaml:"recall" json:"recall"`
	F1              float64  `yaml:"f1" json:"f1"`
	TitleSimilarity float64  `yaml:"titlesimilarity" json:"titlesimilarity"`
	BooksExpected   int      `yaml:"booksexpected" json:"booksexpected"`
	BooksFound      int      `yaml:"booksfound" json:"booksfound"`
	BooksMatched    int      `yaml:"booksmatched" json:"booksmatched"`
	MissedTitles    []string `yaml:"missedtitles,omitempty" json:"missedtitles,omitempty"`
	ExtraTitles     []string `yaml:"extratitles,omitempty" json:"extratitles,omitempty"`
	ProcessingMS    int64    `yaml:"processingms" json:"processingms"`
	Error           string   `yaml:"error,omitempty" json:"error,omitempty"`
}

// EvalSpec represents the complete evaluation report
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config" json:"config"`
	Summary EvalSummary  `yaml:"summary" json:"summary"`
	Results []EvalResult `yaml:"results" json:"results"`
}

// Build converts aggregated metrics into a report spec
func Build(datasetPath string, agg *metrics.AggregateResults) *EvalSpec {
	spec := &EvalSpec{
		Config: EvalConfig{
			Provider:    agg.Provider,
			Model:       agg.Model,
			Mode:        agg.Mode,
			DatasetPath: datasetPath,
			SampleSize:  agg.SampleSize,
			Timestamp:   agg.EvaluationDate.Format("2006-01-02_15-04-05"),
		},
		Summary: EvalSummary{
			TotalSamples:        agg.TotalSamples,
			SuccessCount:        agg.SuccessCount,
			FailureCount:        agg.FailureCount,
			Precision:           agg.Precision,
			Recall:              agg.Recall,
			F1:                  agg.F1,
			MicroPrecision:      agg.MicroPrecision,
			MicroRecall:         agg.MicroRecall,
			MicroF1:             agg.MicroF1,
			MeanTitleSimilarity: agg.MeanTitleSimilarity,
			BooksExpected:       agg.TotalBooksExpected,
			BooksFound:          agg.TotalBooksFound,
			BooksMatched:        agg.TotalMatches,
		},
		Results: make([]EvalResult, 0, len(agg.Results)),
	}

	for _, r := range agg.Results {
		result := EvalResult{
			Sample:        r.SampleID,
			BooksExpected: r.BooksExpected,
			BooksFound:    r.BooksFound,
			ProcessingMS:  r.ProcessingTime.Milliseconds(),
			Error:         r.Error,
		}

		if r.Comparison != nil {
			result.Precision = r.Comparison.Precision
			result.Recall = r.Comparison.Recall
			result.F1 = r.Comparison.F1
			result.TitleSimilarity = r.Comparison.MeanTitleSimilarity
			result.BooksMatched = len(r.Comparison.Matches)
			for _, b := range r.Comparison.Missed {
				result.MissedTitles = append(result.MissedTitles, b.Title)
			}
			for _, b := range r.Comparison.Extra {
				result.ExtraTitles = append(result.ExtraTitles, b.Title)
			}
		}

		spec.Results = append(spec.Results, result)
	}

	return spec
}

// SaveToYAML writes the report into dir (default evals/) as
// <model>-<timestamp>.yaml and returns the written path
func SaveToYAML(datasetPath, dir string, agg *metrics.AggregateResults) (string, error) {
	if dir == "" {
		dir = "evals"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	spec := Build(datasetPath, agg)

	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", spec.Config.Model, spec.Config.Timestamp))

	data, err := yaml.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		absPath = filename
	}
	fmt.Printf("\n✅ Evaluation results saved to: %s\n", absPath)

	return filename, nil
}

// Load reads a saved report back for the report command
func Load(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var spec EvalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse results file: %w", err)
	}

	return &spec, nil
}
