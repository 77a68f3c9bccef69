// Package recognition turns a shelf photo into recognized books by running
// it through a vision model and recovering structured records from whatever
// text comes back.
package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/parse"
	"github.com/shelfscan/shelfscan/internal/providers"
)

const (
	// recognizeTimeout bounds the vision model call. Shelf photos with
	// many spines can take a while on hosted models.
	recognizeTimeout = 60 * time.Second

	// maxShelfBooks caps how many spines one photo may yield.
	maxShelfBooks = 50

	visionTemperature = 0.1
)

// Service runs shelf photos through a vision model.
type Service struct {
	provider providers.Provider
	model    string
}

// NewService returns a recognition service backed by the given provider.
func NewService(provider providers.Provider, model string) *Service {
	return &Service{provider: provider, model: model}
}

// RecognizeShelf identifies book spines on a photo. The model call is
// bounded by a timeout; an unusable model response degrades to an empty
// book list rather than an error, so only transport and model failures
// are surfaced.
func (s *Service) RecognizeShelf(ctx context.Context, image []byte) ([]models.RecognizedBook, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}

	ctx, cancel := context.WithTimeout(ctx, recognizeTimeout)
	defer cancel()

	raw, err := s.provider.Complete(ctx, providers.Config{
		Model:       s.model,
		Temperature: visionTemperature,
		Prompt:      buildShelfPrompt(),
		Images:      [][]byte{image},
	})
	if err != nil {
		return nil, fmt.Errorf("vision model call failed: %w", err)
	}

	books := ParseShelfResponse(raw)
	slog.Info("Recognized shelf", "model", s.model, "books", len(books))
	return books, nil
}

// ParseShelfResponse recovers recognized books from raw model text. It is
// exported so captured responses can be replayed without a provider call.
// Malformed entries and entries without a usable title are dropped; the
// survivors are cleaned, scored, and capped at maxShelfBooks.
func ParseShelfResponse(raw string) []models.RecognizedBook {
	items, err := parse.Array(raw, "books")
	if err != nil {
		slog.Warn("No parsable book array in vision response", "error", err, "response_length", len(raw))
		return []models.RecognizedBook{}
	}

	books := make([]models.RecognizedBook, 0, len(items))
	for _, item := range items {
		var rec struct {
			Title     string `json:"title"`
			Author    string `json:"author"`
			Certainty string `json:"certainty"`
		}
		if err := json.Unmarshal(item, &rec); err != nil {
			slog.Debug("Skipping malformed book entry", "error", err)
			continue
		}

		author := parse.Clean(rec.Author)
		title := parse.StripBySuffix(parse.Clean(rec.Title), author)
		if title == "" {
			continue
		}
		if author == "" {
			author = models.UnknownAuthor
		}

		books = append(books, models.RecognizedBook{
			Title:      title,
			Author:     author,
			Confidence: Score(rec.Certainty, title, author),
		})
		if len(books) == maxShelfBooks {
			break
		}
	}
	return books
}

func buildShelfPrompt() string {
	return `You are an expert bookseller with decades of experience reading book spines at a glance, even when titles are partially obscured, rotated, or in unusual typefaces.

Your task is to analyze the provided bookshelf photo and identify every book whose spine is readable.

INSTRUCTIONS:
1. Examine every visible spine, including books that are:
   - Rotated sideways or stacked horizontally
   - Partially hidden behind other objects
   - In languages other than English
2. For each book you can identify, record:
   - title: the full title as printed on the spine
   - author: the author's name; use "Unknown" if no author is readable
   - certainty: "high" when both title and author are clearly legible, "medium" when the title is clear but you inferred details, "low" when you are guessing from partial text
3. Do not invent books. Only list spines you can actually see.
4. Do not include duplicate entries for the same physical book.

OUTPUT FORMAT:
Respond with ONLY a JSON array, no other text:

[
  {"title": "The Great Gatsby", "author": "F. Scott Fitzgerald", "certainty": "high"},
  {"title": "1984", "author": "Unknown", "certainty": "medium"}
]

If no books are identifiable, respond with an empty array: []`
}
