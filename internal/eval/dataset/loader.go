package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader handles loading of labeled shelf datasets
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// BaseDir returns the directory holding the dataset file, used to resolve
// relative image paths.
func (l *Loader) BaseDir() string {
	return filepath.Dir(l.datasetPath)
}

// Load loads samples from a dataset file (JSONL or Parquet)
func (l *Loader) Load() ([]ShelfSample, error) {
	// Detect file format
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	switch ext {
	case ".parquet":
		return l.loadParquet(0)
	case ".jsonl", ".json":
		return l.loadJSONL(0)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// LoadSample loads at most limit samples (useful for quick runs)
func (l *Loader) LoadSample(limit int) ([]ShelfSample, error) {
	if limit <= 0 {
		return l.Load()
	}

	ext := strings.ToLower(filepath.Ext(l.datasetPath))
	switch ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// loadJSONL loads samples from a JSONL file. A limit of 0 loads everything.
func (l *Loader) loadJSONL(limit int) ([]ShelfSample, error) {
	slog.Debug("Opening JSONL file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var samples []ShelfSample
	scanner := bufio.NewScanner(file)

	// Increase buffer size for lines carrying captured model responses
	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		var sample ShelfSample
		if err := json.Unmarshal(line, &sample); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}

		samples = append(samples, sample)
		if limit > 0 && len(samples) == limit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_samples", len(samples), "total_lines", lineNum)

	return samples, nil
}

// loadParquet loads samples from a Parquet file. A limit of 0 loads
// everything.
func (l *Loader) loadParquet(limit int) ([]ShelfSample, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[ShelfSample](pf)
	defer reader.Close()

	var samples []ShelfSample
	rows := make([]ShelfSample, 128) // Read in batches

	for limit <= 0 || len(samples) < limit {
		n, err := reader.Read(rows)
		if n > 0 {
			if limit > 0 {
				if remaining := limit - len(samples); n > remaining {
					n = remaining
				}
			}
			samples = append(samples, rows[:n]...)
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Finished reading Parquet file", "total_samples", len(samples))

	return samples, nil
}
