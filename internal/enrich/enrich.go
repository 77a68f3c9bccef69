// Package enrich joins recognized books with catalog metadata, reading and
// writing the shared metadata cache and falling back to live catalog
// lookups under a rate budget.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/shelfscan/shelfscan/internal/models"
)

// defaultCallSpacing is the courtesy gap between live catalog calls.
const defaultCallSpacing = 500 * time.Millisecond

// Cache is the metadata cache surface the orchestrator needs.
type Cache interface {
	LookupMetadata(ctx context.Context, title, author string) (*models.CacheEntry, error)
	UpsertMetadata(ctx context.Context, title, author string, meta *models.BookMetadata) error
}

// Catalog is the external lookup surface. (nil, nil) means a definitive
// empty result; an error means the lookup could not be completed and must
// not be cached.
type Catalog interface {
	Search(ctx context.Context, title, author string) (*models.BookMetadata, error)
}

// Orchestrator enriches batches of books. Books within one batch are
// processed strictly sequentially to bound the outbound request rate;
// separate batches may run concurrently against each other.
type Orchestrator struct {
	cache   Cache
	catalog Catalog
	limiter *rate.Limiter
}

// New returns an orchestrator. A nil limiter selects the default spacing
// between live catalog calls; cache hits are never delayed.
func New(cache Cache, catalog Catalog, limiter *rate.Limiter) *Orchestrator {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(defaultCallSpacing), 1)
	}
	return &Orchestrator{cache: cache, catalog: catalog, limiter: limiter}
}

// Enrich returns one output per input book, order preserved. A failure on
// one book degrades that book to Enriched=false and never aborts the batch.
func (o *Orchestrator) Enrich(ctx context.Context, books []models.RecognizedBook) []models.EnrichedBook {
	out := make([]models.EnrichedBook, 0, len(books))
	for _, book := range books {
		meta, ok := o.lookup(ctx, book.Title, book.Author)
		out = append(out, models.EnrichedBook{
			RecognizedBook: book,
			BookMetadata:   meta,
			Enriched:       ok,
		})
	}
	return out
}

// EnrichRecommended attaches metadata to recommended titles so the UI can
// show covers for them too. Same per-item isolation as Enrich.
func (o *Orchestrator) EnrichRecommended(ctx context.Context, books []models.RecommendedBook) []models.EnrichedRecommendedBook {
	out := make([]models.EnrichedRecommendedBook, 0, len(books))
	for _, book := range books {
		meta, ok := o.lookup(ctx, book.Title, book.Author)
		out = append(out, models.EnrichedRecommendedBook{
			RecommendedBook: book,
			BookMetadata:    meta,
			Enriched:        ok,
		})
	}
	return out
}

// lookup resolves metadata for one (title, author) pair, absorbing every
// failure. The cache is consulted first; only a true miss goes to the
// catalog, behind the rate limiter. Both "found" and "definitively absent"
// results are written back so the pair is never looked up twice.
func (o *Orchestrator) lookup(ctx context.Context, title, author string) (models.BookMetadata, bool) {
	entry, err := o.cache.LookupMetadata(ctx, title, author)
	if err != nil {
		slog.Warn("Metadata cache lookup failed", "title", title, "error", err)
		return models.BookMetadata{}, false
	}
	if entry != nil {
		return entry.Metadata, !entry.Metadata.IsZero()
	}

	if err := o.limiter.Wait(ctx); err != nil {
		slog.Warn("Enrichment rate limit wait interrupted", "title", title, "error", err)
		return models.BookMetadata{}, false
	}

	meta, err := o.catalog.Search(ctx, title, author)
	if err != nil {
		slog.Warn("Catalog search failed", "title", title, "author", author, "error", err)
		return models.BookMetadata{}, false
	}
	if meta == nil {
		if err := o.cache.UpsertMetadata(ctx, title, author, nil); err != nil {
			slog.Warn("Failed to record negative cache entry", "title", title, "error", err)
		}
		return models.BookMetadata{}, false
	}

	if err := o.cache.UpsertMetadata(ctx, title, author, meta); err != nil {
		// The metadata is in hand; a cache write failure only costs a
		// future lookup.
		slog.Warn("Failed to cache metadata", "title", title, "error", err)
	}
	return *meta, !meta.IsZero()
}
