package dataset

import (
	"path/filepath"
	"strings"
)

// ShelfSample represents one labeled bookshelf photo from an evaluation
// dataset. Dataset files are JSONL or Parquet, one sample per row.
type ShelfSample struct {
	// ID uniquely names the sample within its dataset.
	ID string `json:"id" parquet:"id"`

	// ImagePath points at the shelf photo on disk, resolved relative to
	// the dataset file when not absolute.
	ImagePath string `json:"image_path" parquet:"image_path"`

	// ImageURL is the remote source of the photo, used by the
	// download-images command when no local copy exists.
	ImageURL string `json:"image_url" parquet:"image_url"`

	// RawResponse is a captured vision model response for this photo.
	// When present, evaluations can replay it offline without spending
	// provider calls.
	RawResponse string `json:"raw_response" parquet:"raw_response"`

	// Books is the ground truth: every book actually on the shelf.
	Books []GroundTruthBook `json:"books" parquet:"books,list"`
}

// GroundTruthBook is one labeled book on a shelf.
type GroundTruthBook struct {
	Title  string `json:"title" parquet:"title"`
	Author string `json:"author" parquet:"author"`
}

// HasReplay reports whether the sample carries a captured model response.
func (s *ShelfSample) HasReplay() bool {
	return strings.TrimSpace(s.RawResponse) != ""
}

// ResolveImagePath resolves ImagePath against the dataset's directory.
func (s *ShelfSample) ResolveImagePath(baseDir string) string {
	if s.ImagePath == "" || filepath.IsAbs(s.ImagePath) {
		return s.ImagePath
	}
	return filepath.Join(baseDir, s.ImagePath)
}
