package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shelfscan/shelfscan/internal/models"
	"github.com/shelfscan/shelfscan/internal/parse"
)

// descriptionBudget caps how much of a cached description goes into the
// prompt per book.
const descriptionBudget = 150

// buildPrompt lays out the shelf sorted by descending confidence (stable,
// so ties keep recognition order) so the model reads high-confidence books
// as stronger taste signals. Preferences are phrased as soft guidance and
// only included when at least one field is set.
func buildPrompt(books []models.EnrichedBook, prefs *models.Preferences, n int) string {
	sorted := make([]models.EnrichedBook, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var sb strings.Builder
	sb.WriteString("You are a well-read bookseller who recommends books based on what a reader already owns. The reader's shelf was photographed and the books below were identified on it, listed from strongest to weakest taste signal.\n\nTHE SHELF:\n")

	for i, b := range sorted {
		fmt.Fprintf(&sb, "%d. %q by %s (confidence %.0f%%)", i+1, b.Title, b.Author, b.Confidence*100)
		if len(b.Categories) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(b.Categories, ", "))
		}
		if b.Description != "" {
			fmt.Fprintf(&sb, " - %s", parse.Truncate(b.Description, descriptionBudget))
		}
		sb.WriteString("\n")
	}

	if prefs != nil && !prefs.IsZero() {
		sb.WriteString("\nREADER PREFERENCES (treat as soft guidance, never as hard filters):\n")
		if len(prefs.Genres) > 0 {
			fmt.Fprintf(&sb, "The reader enjoys %s.\n", strings.Join(prefs.Genres, ", "))
		}
		if len(prefs.Authors) > 0 {
			fmt.Fprintf(&sb, "Authors the reader already likes include %s.\n", strings.Join(prefs.Authors, ", "))
		}
		if prefs.Language != "" {
			fmt.Fprintf(&sb, "The reader prefers to read in %s.\n", prefs.Language)
		}
		if prefs.ReadingLevel != "" {
			fmt.Fprintf(&sb, "The reader considers themselves %s level.\n", strings.ToLower(prefs.ReadingLevel))
		}
	}

	fmt.Fprintf(&sb, `
Recommend exactly %d books that fit this reader's taste. Never recommend a title that is already on the shelf. For each recommendation give a short reason grounded in specific books from the shelf.

OUTPUT FORMAT:
Respond with ONLY a JSON array, no other text:

[
  {"title": "...", "author": "...", "reason": "..."}
]`, n)

	return sb.String()
}
