package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/providers"
)

type fakeProvider struct {
	response string
	err      error
	got      providers.Config
}

func (f *fakeProvider) Complete(_ context.Context, cfg providers.Config) (string, error) {
	f.got = cfg
	return f.response, f.err
}

func shelf(titles ...string) []models.EnrichedBook {
	out := make([]models.EnrichedBook, 0, len(titles))
	for _, t := range titles {
		out = append(out, models.EnrichedBook{
			RecognizedBook: models.RecognizedBook{Title: t, Author: "Someone", Confidence: 0.9},
		})
	}
	return out
}

func TestGenerateCapsAtRequestedCount(t *testing.T) {
	var entries []string
	for i := 0; i < DefaultCount+3; i++ {
		entries = append(entries, fmt.Sprintf(`{"title":"Pick %d","author":"A","reason":"Because."}`, i))
	}
	fake := &fakeProvider{response: "[" + strings.Join(entries, ",") + "]"}
	g := NewGenerator(fake, "openai", "gpt-4o")

	result, err := g.Generate(context.Background(), shelf("Dune"), nil, DefaultCount)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Books) != DefaultCount {
		t.Errorf("Generate() returned %d books, want exactly %d", len(result.Books), DefaultCount)
	}
}

func TestGenerateDropsShelfDuplicates(t *testing.T) {
	fake := &fakeProvider{response: `[
		{"title": "DUNE", "author": "Frank Herbert", "reason": "You clearly like it."},
		{"title": "Hyperion", "author": "Dan Simmons", "reason": "Epic science fiction."}
	]`}
	g := NewGenerator(fake, "openai", "gpt-4o")

	result, err := g.Generate(context.Background(), shelf("Dune"), nil, 5)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Books) != 1 {
		t.Fatalf("Generate() returned %d books, want 1 after duplicate filter", len(result.Books))
	}
	if result.Books[0].Title != "Hyperion" {
		t.Errorf("kept %q, want the non-duplicate", result.Books[0].Title)
	}
}

func TestGenerateValidatesRecords(t *testing.T) {
	longReason := strings.Repeat("a", 150) + ". " + strings.Repeat("b", 100)
	fake := &fakeProvider{response: fmt.Sprintf(`[
		{"author": "No Title", "reason": "dropped"},
		{"title": "The Left Hand of Darkness by Ursula K. Le Guin", "author": "Ursula K. Le Guin", "reason": "Classic."},
		{"title": "Quiet Pick", "reason": %q}
	]`, longReason)}
	g := NewGenerator(fake, "gemini", "gemini-2.0-flash")

	result, err := g.Generate(context.Background(), shelf("Dune"), nil, 5)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(result.Books) != 2 {
		t.Fatalf("Generate() returned %d books, want 2 after validation", len(result.Books))
	}
	if result.Books[0].Title != "The Left Hand of Darkness" {
		t.Errorf("title = %q, want duplicated author suffix stripped", result.Books[0].Title)
	}
	if result.Books[1].Author != "Unknown" {
		t.Errorf("author = %q, want default for missing author", result.Books[1].Author)
	}
	wantReason := strings.Repeat("a", 150) + "."
	if result.Books[1].Reason != wantReason {
		t.Errorf("reason = %q (len %d), want sentence-boundary truncation", result.Books[1].Reason, len(result.Books[1].Reason))
	}
}

func TestGenerateTimeoutSurfaces(t *testing.T) {
	fake := &fakeProvider{err: fmt.Errorf("request aborted: %w", context.DeadlineExceeded)}
	g := NewGenerator(fake, "openai", "gpt-4o")

	_, err := g.Generate(context.Background(), shelf("Dune"), nil, 5)
	if !errors.Is(err, ErrModelTimeout) {
		t.Fatalf("Generate() error = %v, want ErrModelTimeout", err)
	}
}

func TestGenerateAPIErrorSurfaces(t *testing.T) {
	fake := &fakeProvider{err: errors.New("received non-200 status code: 500")}
	g := NewGenerator(fake, "openai", "gpt-4o")

	_, err := g.Generate(context.Background(), shelf("Dune"), nil, 5)
	if !errors.Is(err, ErrModelAPI) {
		t.Fatalf("Generate() error = %v, want ErrModelAPI", err)
	}
}

func TestGenerateUnusableResponseDegrades(t *testing.T) {
	fake := &fakeProvider{response: "I'm sorry, I cannot recommend books today."}
	g := NewGenerator(fake, "ollama", "llama3.2-vision")

	result, err := g.Generate(context.Background(), shelf("Dune", "Hyperion"), nil, 5)
	if err != nil {
		t.Fatalf("Generate() error = %v, want graceful empty result", err)
	}
	if len(result.Books) != 0 {
		t.Errorf("Generate() returned %d books, want 0", len(result.Books))
	}
	if result.Metadata.Provider != "ollama" || result.Metadata.Model != "llama3.2-vision" {
		t.Errorf("metadata = %+v, want provider details recorded", result.Metadata)
	}
	if result.Metadata.BookCount != 2 {
		t.Errorf("BookCount = %d, want 2", result.Metadata.BookCount)
	}
}

func TestGenerateEmptyShelf(t *testing.T) {
	g := NewGenerator(&fakeProvider{}, "openai", "gpt-4o")
	if _, err := g.Generate(context.Background(), nil, nil, 5); err == nil {
		t.Fatal("Generate() error = nil, want error for empty shelf")
	}
}

func TestBuildPromptOrdersByConfidence(t *testing.T) {
	books := []models.EnrichedBook{
		{RecognizedBook: models.RecognizedBook{Title: "Low", Author: "A", Confidence: 0.52}},
		{RecognizedBook: models.RecognizedBook{Title: "High", Author: "B", Confidence: 0.97}},
		{RecognizedBook: models.RecognizedBook{Title: "Mid", Author: "C", Confidence: 0.78}},
	}

	prompt := buildPrompt(books, nil, 5)

	high := strings.Index(prompt, `1. "High"`)
	mid := strings.Index(prompt, `2. "Mid"`)
	low := strings.Index(prompt, `3. "Low"`)
	if high < 0 || mid < 0 || low < 0 {
		t.Fatalf("prompt missing ordered entries:\n%s", prompt)
	}
	if !strings.Contains(prompt, "(confidence 97%)") {
		t.Error("prompt missing confidence percentage")
	}
	if !strings.Contains(prompt, "exactly 5 books") {
		t.Error("prompt missing closing count instruction")
	}
	if strings.Contains(prompt, "READER PREFERENCES") {
		t.Error("prompt contains preferences section without preferences")
	}
}

func TestBuildPromptTiesKeepOriginalOrder(t *testing.T) {
	books := []models.EnrichedBook{
		{RecognizedBook: models.RecognizedBook{Title: "First", Author: "A", Confidence: 0.8}},
		{RecognizedBook: models.RecognizedBook{Title: "Second", Author: "B", Confidence: 0.8}},
	}
	prompt := buildPrompt(books, nil, 5)
	if strings.Index(prompt, `"First"`) > strings.Index(prompt, `"Second"`) {
		t.Error("equal-confidence books reordered, want stable sort")
	}
}

func TestBuildPromptMetadataAndPreferences(t *testing.T) {
	longDesc := strings.Repeat("d", 200)
	books := []models.EnrichedBook{
		{
			RecognizedBook: models.RecognizedBook{Title: "Dune", Author: "Frank Herbert", Confidence: 0.97},
			BookMetadata: models.BookMetadata{
				Categories:  []string{"Fiction", "Classics"},
				Description: longDesc,
			},
			Enriched: true,
		},
	}
	prefs := &models.Preferences{
		Genres:       []string{"Science Fiction"},
		Language:     "English",
		ReadingLevel: "Advanced",
	}

	prompt := buildPrompt(books, prefs, 3)

	if !strings.Contains(prompt, "[Fiction, Classics]") {
		t.Error("prompt missing category list")
	}
	if !strings.Contains(prompt, strings.Repeat("d", 150)+"...") {
		t.Error("prompt missing truncated description with ellipsis")
	}
	if strings.Contains(prompt, longDesc) {
		t.Error("prompt contains untruncated description")
	}
	if !strings.Contains(prompt, "READER PREFERENCES") {
		t.Error("prompt missing preferences section")
	}
	if !strings.Contains(prompt, "Science Fiction") || !strings.Contains(prompt, "English") {
		t.Error("prompt missing preference fields")
	}
	if !strings.Contains(prompt, "exactly 3 books") {
		t.Error("prompt missing configured count")
	}
}
