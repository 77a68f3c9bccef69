package models

import (
	"fmt"
	"strings"
	"time"
)

// RecognizedBook represents a single spine identified on a shelf photo.
// Confidence is computed from the model's certainty tag plus record quality,
// never taken from the model directly.
type RecognizedBook struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Confidence float64 `json:"confidence"`
}

// UnknownAuthor is the placeholder used when the model cannot read an author.
const UnknownAuthor = "Unknown"

// HasAuthor reports whether the book carries a real author name.
func (b RecognizedBook) HasAuthor() bool {
	return b.Author != "" && b.Author != UnknownAuthor
}

// BookMetadata represents the catalog fields attached during enrichment.
type BookMetadata struct {
	ISBN        string   `json:"isbn,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// IsZero reports whether no metadata field is populated.
func (m BookMetadata) IsZero() bool {
	return m.ISBN == "" && m.CoverURL == "" && m.Description == "" && len(m.Categories) == 0
}

// EnrichedBook is a recognized book joined with whatever catalog metadata
// could be found for it.
type EnrichedBook struct {
	RecognizedBook
	BookMetadata
	Enriched bool `json:"enriched"`
}

// CacheKey identifies one catalog lookup across all scans and devices.
// Both components are lowercased and trimmed; a missing author normalizes
// to the empty string. The key is the dedup boundary for external lookups.
type CacheKey struct {
	Title  string
	Author string
}

// NewCacheKey normalizes a title/author pair into its cache key.
func NewCacheKey(title, author string) CacheKey {
	return CacheKey{
		Title:  strings.ToLower(strings.TrimSpace(title)),
		Author: strings.ToLower(strings.TrimSpace(author)),
	}
}

// CacheEntry represents one row of the metadata cache. An entry whose
// Metadata is zero records a lookup that definitively found nothing; that
// state is distinct from "never looked up" and suppresses repeat lookups.
type CacheEntry struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Author   string       `json:"author"`
	Metadata BookMetadata `json:"metadata"`
	CachedAt time.Time    `json:"cached_at"`
}

// Scan represents one uploaded shelf photo and its recognition result.
// Books are immutable after creation; enrichment is recomputed at read time
// from the metadata cache rather than stored on the scan.
type Scan struct {
	ID        string           `json:"id"`
	DeviceID  string           `json:"device_id"`
	Books     []RecognizedBook `json:"books"`
	CreatedAt time.Time        `json:"created_at"`
}

// RecommendedBook is one suggestion returned by the recommendation model.
type RecommendedBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Reason string `json:"reason"`
}

// EnrichedRecommendedBook is a recommendation joined with catalog metadata
// so the UI can show covers and descriptions for suggested titles too.
type EnrichedRecommendedBook struct {
	RecommendedBook
	BookMetadata
	Enriched bool `json:"enriched"`
}

// RecommendationSet represents the stored output of one generation run for
// one scan. At most one set exists per scan; unsaved sets are deleted by the
// retention janitor after the retention window passes.
type RecommendationSet struct {
	ID        string                    `json:"id"`
	ScanID    string                    `json:"scan_id"`
	DeviceID  string                    `json:"device_id"`
	Books     []EnrichedRecommendedBook `json:"books"`
	Saved     bool                      `json:"saved"`
	CreatedAt time.Time                 `json:"created_at"`
}

// GenerationMetadata describes how a recommendation set was produced.
type GenerationMetadata struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	DurationMS int64  `json:"duration_ms"`
	BookCount  int    `json:"book_count"`
}

// FixedGenres is the closed set of genres a device may select in its
// preferences.
var FixedGenres = []string{
	"Fiction",
	"Non-fiction",
	"Mystery",
	"Science Fiction",
	"Fantasy",
	"Romance",
	"Thriller",
	"Biography",
	"History",
	"Science",
	"Self-help",
	"Poetry",
}

// FixedLanguages is the closed set of preferred-language choices.
var FixedLanguages = []string{
	"English",
	"Spanish",
	"French",
	"German",
	"Italian",
	"Portuguese",
	"Japanese",
	"Chinese",
	"Korean",
	"Russian",
}

// ReadingLevels is the closed set of reading-level choices.
var ReadingLevels = []string{"Beginner", "Intermediate", "Advanced"}

// MaxPreferredAuthors caps the free-text author list in preferences.
const MaxPreferredAuthors = 20

// Preferences represents the per-device taste profile. One row per device,
// upserted on every save.
type Preferences struct {
	DeviceID     string   `json:"device_id"`
	Genres       []string `json:"genres,omitempty"`
	Authors      []string `json:"authors,omitempty"`
	Language     string   `json:"language,omitempty"`
	ReadingLevel string   `json:"reading_level,omitempty"`
}

// IsZero reports whether no preference field is set.
func (p Preferences) IsZero() bool {
	return len(p.Genres) == 0 && len(p.Authors) == 0 && p.Language == "" && p.ReadingLevel == ""
}

// Normalize validates the profile against the fixed vocabularies and
// canonicalizes the free-text author list (trimmed, case-insensitively
// deduplicated, capped at MaxPreferredAuthors).
func (p *Preferences) Normalize() error {
	for _, g := range p.Genres {
		if !containsFold(FixedGenres, g) {
			return fmt.Errorf("unknown genre: %q", g)
		}
	}
	if p.Language != "" && !containsFold(FixedLanguages, p.Language) {
		return fmt.Errorf("unknown language: %q", p.Language)
	}
	if p.ReadingLevel != "" && !containsFold(ReadingLevels, p.ReadingLevel) {
		return fmt.Errorf("unknown reading level: %q", p.ReadingLevel)
	}

	seen := make(map[string]bool, len(p.Authors))
	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		authors = append(authors, a)
		if len(authors) == MaxPreferredAuthors {
			break
		}
	}
	p.Authors = authors
	return nil
}

func containsFold(set []string, s string) bool {
	for _, v := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
