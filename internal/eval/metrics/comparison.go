package metrics

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shelfscan/shelfscan/internal/eval/dataset"
	"github.com/shelfscan/shelfscan/internal/models"
)

// matchThreshold is the minimum normalized title similarity for a
// recognized book to count as a ground-truth match.
const matchThreshold = 0.75

// BookMatch pairs one recognized book with the ground-truth book it
// matched.
type BookMatch struct {
	TruthTitle       string  `json:"truth_title"`
	TruthAuthor      string  `json:"truth_author"`
	FoundTitle       string  `json:"found_title"`
	FoundAuthor      string  `json:"found_author"`
	TitleSimilarity  float64 `json:"title_similarity"`
	AuthorSimilarity float64 `json:"author_similarity"`
	Confidence       float64 `json:"confidence"`
}

// ShelfComparison is the outcome of matching one recognition run against
// a labeled shelf.
type ShelfComparison struct {
	Matches []BookMatch               `json:"matches"`
	Missed  []dataset.GroundTruthBook `json:"missed"` // on the shelf, not recognized
	Extra   []models.RecognizedBook   `json:"extra"`  // recognized, not on the shelf

	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`

	// MeanTitleSimilarity averages title similarity across matched pairs.
	MeanTitleSimilarity float64 `json:"mean_title_similarity"`
}

// CompareShelf greedily matches recognized books against the ground truth,
// best title-similarity pairs first. Author similarity is recorded on each
// match but does not gate it, since spines often hide the author.
func CompareShelf(truth []dataset.GroundTruthBook, found []models.RecognizedBook) *ShelfComparison {
	type candidate struct {
		truthIdx   int
		foundIdx   int
		similarity float64
	}

	var candidates []candidate
	for i, tb := range truth {
		for j, fb := range found {
			if sim := Similarity(tb.Title, fb.Title); sim >= matchThreshold {
				candidates = append(candidates, candidate{i, j, sim})
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].similarity > candidates[b].similarity
	})

	comp := &ShelfComparison{}
	truthUsed := make([]bool, len(truth))
	foundUsed := make([]bool, len(found))
	totalSimilarity := 0.0

	for _, c := range candidates {
		if truthUsed[c.truthIdx] || foundUsed[c.foundIdx] {
			continue
		}
		truthUsed[c.truthIdx] = true
		foundUsed[c.foundIdx] = true

		tb, fb := truth[c.truthIdx], found[c.foundIdx]
		comp.Matches = append(comp.Matches, BookMatch{
			TruthTitle:       tb.Title,
			TruthAuthor:      tb.Author,
			FoundTitle:       fb.Title,
			FoundAuthor:      fb.Author,
			TitleSimilarity:  c.similarity,
			AuthorSimilarity: Similarity(tb.Author, fb.Author),
			Confidence:       fb.Confidence,
		})
		totalSimilarity += c.similarity
	}

	for i, tb := range truth {
		if !truthUsed[i] {
			comp.Missed = append(comp.Missed, tb)
		}
	}
	for j, fb := range found {
		if !foundUsed[j] {
			comp.Extra = append(comp.Extra, fb)
		}
	}

	matched := float64(len(comp.Matches))

	// An empty side counts as perfect for its own ratio: claiming nothing
	// costs no precision, and an empty shelf leaves nothing to recall.
	comp.Precision = 1.0
	if len(found) > 0 {
		comp.Precision = matched / float64(len(found))
	}
	comp.Recall = 1.0
	if len(truth) > 0 {
		comp.Recall = matched / float64(len(truth))
	}
	if comp.Precision+comp.Recall > 0 {
		comp.F1 = 2 * comp.Precision * comp.Recall / (comp.Precision + comp.Recall)
	}
	if len(comp.Matches) > 0 {
		comp.MeanTitleSimilarity = totalSimilarity / matched
	}

	return comp
}

// Similarity returns the normalized Levenshtein similarity of two strings
// in [0, 1]. Case, punctuation, and whitespace runs are ignored.
func Similarity(a, b string) float64 {
	an := normalizeText(a)
	bn := normalizeText(b)

	if an == "" && bn == "" {
		return 1.0
	}
	if an == "" || bn == "" {
		return 0.0
	}
	if an == bn {
		return 1.0
	}

	distance := levenshteinDistance(an, bn)
	maxLen := max(utf8.RuneCountInString(an), utf8.RuneCountInString(bn))
	return 1.0 - float64(distance)/float64(maxLen)
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

// normalizeText normalizes text for comparison
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// levenshteinDistance calculates the Levenshtein distance between two
// strings, by rune.
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
