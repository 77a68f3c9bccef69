// Package recommend generates personalized book recommendations by
// injecting the enriched shelf and the reader's preferences into a
// language model and validating whatever comes back.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/parse"
	"github.com/shelfscan/shelfscan/internal/providers"
)

const (
	// DefaultCount is how many recommendations one run asks for.
	DefaultCount = 5

	// generateTimeout bounds the model call. Without a model response
	// there is nothing to degrade to, so expiry surfaces as an error.
	generateTimeout = 30 * time.Second

	modelTemperature = 0.7

	reasonBudget = 200
	reasonFloor  = 80
)

// Typed failures for the caller to map onto user-facing messaging. Retry
// policy belongs to the caller; nothing here retries.
var (
	ErrModelTimeout = errors.New("recommendation model timed out")
	ErrModelAPI     = errors.New("recommendation model call failed")
)

// Generator produces recommendation sets from enriched shelves.
type Generator struct {
	provider     providers.Provider
	providerName string
	model        string
}

// NewGenerator returns a generator backed by the given provider.
func NewGenerator(provider providers.Provider, providerName, model string) *Generator {
	return &Generator{provider: provider, providerName: providerName, model: model}
}

// Result is the output of one generation run.
type Result struct {
	Books    []models.RecommendedBook  `json:"books"`
	Metadata models.GenerationMetadata `json:"metadata"`
}

// Generate builds the prompt, calls the model, and validates its output.
// Model transport failures surface as ErrModelTimeout or ErrModelAPI; an
// unusable model response degrades to an empty book list instead, since
// the run itself completed.
func (g *Generator) Generate(ctx context.Context, books []models.EnrichedBook, prefs *models.Preferences, n int) (*Result, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("no recognized books to recommend from")
	}
	if n <= 0 {
		n = DefaultCount
	}

	prompt := buildPrompt(books, prefs, n)

	cctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	start := time.Now()
	raw, err := g.provider.Complete(cctx, providers.Config{
		Model:       g.model,
		Temperature: modelTemperature,
		Prompt:      prompt,
	})
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrModelTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelAPI, err)
	}

	recs := validate(raw, books, n)
	slog.Info("Generated recommendations",
		"provider", g.providerName, "model", g.model,
		"requested", n, "returned", len(recs), "duration_ms", duration.Milliseconds())

	return &Result{
		Books: recs,
		Metadata: models.GenerationMetadata{
			Provider:   g.providerName,
			Model:      g.model,
			DurationMS: duration.Milliseconds(),
			BookCount:  len(books),
		},
	}, nil
}

// validate turns raw model text into at most n clean recommendations.
// Entries without a title are dropped, authors default to "Unknown", and
// titles already on the shelf are filtered out even though the prompt
// asked the model not to suggest them.
func validate(raw string, shelf []models.EnrichedBook, n int) []models.RecommendedBook {
	items, err := parse.Array(raw, "recommendations", "books")
	if err != nil {
		slog.Warn("No parsable recommendations in model response", "error", err, "response_length", len(raw))
		return []models.RecommendedBook{}
	}

	onShelf := make(map[string]bool, len(shelf))
	for _, b := range shelf {
		onShelf[strings.ToLower(strings.TrimSpace(b.Title))] = true
	}

	out := make([]models.RecommendedBook, 0, n)
	for _, item := range items {
		var rec struct {
			Title  string `json:"title"`
			Author string `json:"author"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(item, &rec); err != nil {
			slog.Debug("Skipping malformed recommendation entry", "error", err)
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
		if onShelf[strings.ToLower(title)] {
			slog.Debug("Dropping shelf duplicate from recommendations", "title", title)
			continue
		}

		out = append(out, models.RecommendedBook{
			Title:  title,
			Author: author,
			Reason: parse.SentenceTruncate(parse.Clean(rec.Reason), reasonBudget, reasonFloor),
		})
		if len(out) == n {
			break
		}
	}
	return out
}
