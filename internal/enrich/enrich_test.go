package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/shelfscan/shelfscan/internal/models"
)

type fakeCache struct {
	entries   map[models.CacheKey]*models.CacheEntry
	upserts   map[models.CacheKey]*models.BookMetadata
	lookupErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: map[models.CacheKey]*models.CacheEntry{},
		upserts: map[models.CacheKey]*models.BookMetadata{},
	}
}

func (f *fakeCache) LookupMetadata(_ context.Context, title, author string) (*models.CacheEntry, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.entries[models.NewCacheKey(title, author)], nil
}

func (f *fakeCache) UpsertMetadata(_ context.Context, title, author string, meta *models.BookMetadata) error {
	f.upserts[models.NewCacheKey(title, author)] = meta
	return nil
}

type fakeCatalog struct {
	results map[string]*models.BookMetadata
	errs    map[string]error
	calls   []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		results: map[string]*models.BookMetadata{},
		errs:    map[string]error{},
	}
}

func (f *fakeCatalog) Search(_ context.Context, title, _ string) (*models.BookMetadata, error) {
	f.calls = append(f.calls, title)
	if err := f.errs[title]; err != nil {
		return nil, err
	}
	return f.results[title], nil
}

func unlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 0)
}

func TestEnrichFailureIsolation(t *testing.T) {
	cache := newFakeCache()
	cat := newFakeCatalog()
	cat.errs["Book A"] = errors.New("catalog exploded")
	cat.results["Book B"] = &models.BookMetadata{ISBN: "9780000000002"}

	o := New(cache, cat, unlimited())
	out := o.Enrich(context.Background(), []models.RecognizedBook{
		{Title: "Book A", Author: "X"},
		{Title: "Book B", Author: "Y"},
	})

	if len(out) != 2 {
		t.Fatalf("Enrich() returned %d books, want 2", len(out))
	}
	if out[0].Enriched {
		t.Error("Book A enriched = true, want false after catalog failure")
	}
	if !out[1].Enriched || out[1].ISBN != "9780000000002" {
		t.Errorf("Book B = %+v, want enriched with metadata", out[1])
	}

	// A transient failure must not be recorded as a definitive miss.
	if _, recorded := cache.upserts[models.NewCacheKey("Book A", "X")]; recorded {
		t.Error("Book A failure was cached, want no upsert on error")
	}
	if _, recorded := cache.upserts[models.NewCacheKey("Book B", "Y")]; !recorded {
		t.Error("Book B hit was not written back to the cache")
	}
}

func TestEnrichCacheHitSkipsCatalog(t *testing.T) {
	cache := newFakeCache()
	cache.entries[models.NewCacheKey("Dune", "Frank Herbert")] = &models.CacheEntry{
		Title:    "Dune",
		Author:   "Frank Herbert",
		Metadata: models.BookMetadata{ISBN: "9780441013593", CoverURL: "https://x/cover.jpg"},
	}
	cat := newFakeCatalog()

	o := New(cache, cat, unlimited())
	out := o.Enrich(context.Background(), []models.RecognizedBook{{Title: "Dune", Author: "Frank Herbert"}})

	if len(cat.calls) != 0 {
		t.Errorf("catalog called %d times, want 0 on cache hit", len(cat.calls))
	}
	if !out[0].Enriched || out[0].ISBN != "9780441013593" {
		t.Errorf("book = %+v, want metadata merged from cache", out[0])
	}
}

func TestEnrichNegativeEntrySuppressesRetry(t *testing.T) {
	cache := newFakeCache()
	cache.entries[models.NewCacheKey("Obscure Zine", "Unknown")] = &models.CacheEntry{
		Title:  "Obscure Zine",
		Author: "Unknown",
	}
	cat := newFakeCatalog()

	o := New(cache, cat, unlimited())
	out := o.Enrich(context.Background(), []models.RecognizedBook{{Title: "Obscure Zine", Author: "Unknown"}})

	if len(cat.calls) != 0 {
		t.Errorf("catalog called %d times, want 0 for a recorded miss", len(cat.calls))
	}
	if out[0].Enriched {
		t.Error("enriched = true for an all-empty cache entry, want false")
	}
}

func TestEnrichRecordsDefinitiveMiss(t *testing.T) {
	cache := newFakeCache()
	cat := newFakeCatalog() // returns (nil, nil) for everything

	o := New(cache, cat, unlimited())
	out := o.Enrich(context.Background(), []models.RecognizedBook{{Title: "No Such Book", Author: "Nobody"}})

	if out[0].Enriched {
		t.Error("enriched = true, want false for a catalog miss")
	}
	meta, recorded := cache.upserts[models.NewCacheKey("No Such Book", "Nobody")]
	if !recorded {
		t.Fatal("definitive miss was not written to the cache")
	}
	if meta != nil {
		t.Errorf("negative entry = %+v, want nil metadata", meta)
	}
}

func TestEnrichPreservesOrderAndLength(t *testing.T) {
	cache := newFakeCache()
	cache.entries[models.NewCacheKey("Hit", "A")] = &models.CacheEntry{
		Metadata: models.BookMetadata{ISBN: "1"},
	}
	cat := newFakeCatalog()
	cat.errs["Broken"] = errors.New("boom")
	cat.results["Found"] = &models.BookMetadata{ISBN: "2"}

	in := []models.RecognizedBook{
		{Title: "Hit", Author: "A"},
		{Title: "Broken", Author: "B"},
		{Title: "Found", Author: "C"},
		{Title: "Missing", Author: "D"},
	}
	o := New(cache, cat, unlimited())
	out := o.Enrich(context.Background(), in)

	if len(out) != len(in) {
		t.Fatalf("Enrich() returned %d books, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Title != in[i].Title {
			t.Errorf("out[%d] = %q, want %q (order preserved)", i, out[i].Title, in[i].Title)
		}
	}
	wantEnriched := []bool{true, false, true, false}
	for i, want := range wantEnriched {
		if out[i].Enriched != want {
			t.Errorf("out[%d].Enriched = %v, want %v", i, out[i].Enriched, want)
		}
	}
}

func TestEnrichRecommendedSharesPipeline(t *testing.T) {
	cache := newFakeCache()
	cat := newFakeCatalog()
	cat.results["The Dispossessed"] = &models.BookMetadata{CoverURL: "https://x/d.jpg"}

	o := New(cache, cat, unlimited())
	out := o.EnrichRecommended(context.Background(), []models.RecommendedBook{
		{Title: "The Dispossessed", Author: "Ursula K. Le Guin", Reason: "Utopian classic."},
	})

	if len(out) != 1 {
		t.Fatalf("EnrichRecommended() returned %d books, want 1", len(out))
	}
	if !out[0].Enriched || out[0].CoverURL != "https://x/d.jpg" {
		t.Errorf("book = %+v, want enriched recommendation", out[0])
	}
	if out[0].Reason != "Utopian classic." {
		t.Errorf("Reason = %q, want carried through", out[0].Reason)
	}
}

func TestEnrichSpacesLiveCalls(t *testing.T) {
	cache := newFakeCache()
	cat := newFakeCatalog()

	spacing := 50 * time.Millisecond
	o := New(cache, cat, rate.NewLimiter(rate.Every(spacing), 1))

	start := time.Now()
	o.Enrich(context.Background(), []models.RecognizedBook{
		{Title: "One", Author: "A"},
		{Title: "Two", Author: "B"},
		{Title: "Three", Author: "C"},
	})
	elapsed := time.Since(start)

	// First call is immediate, the next two wait one spacing each.
	if elapsed < 2*spacing {
		t.Errorf("three live lookups took %v, want at least %v of rate limiting", elapsed, 2*spacing)
	}
	if len(cat.calls) != 3 {
		t.Errorf("catalog called %d times, want 3", len(cat.calls))
	}
}
