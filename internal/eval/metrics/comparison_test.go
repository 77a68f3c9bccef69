package metrics

import (
	"math"
	"testing"

	"github.com/shelfscan/shelfscan/internal/eval/dataset"
	"github.com/shelfscan/shelfscan/internal/models"
)

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		s1       string
		s2       string
		expected int
	}{
		{name: "identical", s1: "gatsby", s2: "gatsby", expected: 0},
		{name: "classic kitten", s1: "kitten", s2: "sitting", expected: 3},
		{name: "empty left", s1: "", s2: "dune", expected: 4},
		{name: "empty right", s1: "dune", s2: "", expected: 4},
		{name: "single substitution", s1: "1984", s2: "1985", expected: 1},
		{name: "multibyte runes", s1: "héllo", s2: "hello", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := levenshteinDistance(tt.s1, tt.s2); got != tt.expected {
				t.Errorf("Expected distance %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "identical", a: "The Hobbit", b: "The Hobbit", expected: 1.0},
		{name: "case and punctuation ignored", a: "The Hobbit!", b: "the   hobbit", expected: 1.0},
		{name: "both empty", a: "", b: "", expected: 1.0},
		{name: "one empty", a: "Dune", b: "", expected: 0.0},
		{name: "dropped article", a: "The Great Gatsby", b: "Great Gatsby", expected: 0.75},
		{name: "one character off", a: "1984", b: "1985", expected: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); !approx(got, tt.expected) {
				t.Errorf("Expected similarity %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCompareShelfPerfectRun(t *testing.T) {
	truth := []dataset.GroundTruthBook{
		{Title: "1984", Author: "George Orwell"},
		{Title: "Dune", Author: "Frank Herbert"},
	}
	found := []models.RecognizedBook{
		{Title: "Dune", Author: "Frank Herbert", Confidence: 0.92},
		{Title: "1984", Author: "George Orwell", Confidence: 0.97},
	}

	comp := CompareShelf(truth, found)

	if len(comp.Matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(comp.Matches))
	}
	if len(comp.Missed) != 0 || len(comp.Extra) != 0 {
		t.Errorf("Expected no missed or extra books, got %d missed, %d extra", len(comp.Missed), len(comp.Extra))
	}
	if !approx(comp.Precision, 1.0) || !approx(comp.Recall, 1.0) || !approx(comp.F1, 1.0) {
		t.Errorf("Expected perfect scores, got P=%v R=%v F1=%v", comp.Precision, comp.Recall, comp.F1)
	}
	if !approx(comp.MeanTitleSimilarity, 1.0) {
		t.Errorf("Expected mean similarity 1.0, got %v", comp.MeanTitleSimilarity)
	}
}

func TestCompareShelfPartialRun(t *testing.T) {
	truth := []dataset.GroundTruthBook{
		{Title: "1984", Author: "George Orwell"},
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Emma", Author: "Jane Austen"},
	}
	found := []models.RecognizedBook{
		{Title: "1984", Author: "George Orwell", Confidence: 0.97},
		{Title: "Moby Dick", Author: "Herman Melville", Confidence: 0.60},
	}

	comp := CompareShelf(truth, found)

	if len(comp.Matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(comp.Matches))
	}
	if len(comp.Missed) != 2 {
		t.Errorf("Expected 2 missed books, got %d", len(comp.Missed))
	}
	if len(comp.Extra) != 1 || comp.Extra[0].Title != "Moby Dick" {
		t.Errorf("Expected Moby Dick as extra, got %+v", comp.Extra)
	}
	if !approx(comp.Precision, 0.5) {
		t.Errorf("Expected precision 0.5, got %v", comp.Precision)
	}
	if !approx(comp.Recall, 1.0/3.0) {
		t.Errorf("Expected recall 1/3, got %v", comp.Recall)
	}
}

func TestCompareShelfFuzzyTitleMatch(t *testing.T) {
	truth := []dataset.GroundTruthBook{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald"},
	}
	found := []models.RecognizedBook{
		{Title: "Great Gatsby", Author: "Fitzgerald", Confidence: 0.78},
	}

	comp := CompareShelf(truth, found)

	if len(comp.Matches) != 1 {
		t.Fatalf("Expected fuzzy title at the threshold to match, got %d matches", len(comp.Matches))
	}
	if !approx(comp.Matches[0].TitleSimilarity, 0.75) {
		t.Errorf("Expected title similarity 0.75, got %v", comp.Matches[0].TitleSimilarity)
	}
	if comp.Matches[0].Confidence != 0.78 {
		t.Errorf("Expected confidence carried onto the match, got %v", comp.Matches[0].Confidence)
	}
}

func TestCompareShelfGreedyPicksBestPair(t *testing.T) {
	truth := []dataset.GroundTruthBook{
		{Title: "1984", Author: "George Orwell"},
	}
	found := []models.RecognizedBook{
		{Title: "1985", Author: "Anthony Burgess", Confidence: 0.60},
		{Title: "1984", Author: "George Orwell", Confidence: 0.97},
	}

	comp := CompareShelf(truth, found)

	if len(comp.Matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(comp.Matches))
	}
	if comp.Matches[0].FoundTitle != "1984" {
		t.Errorf("Expected the exact title to win the match, got %q", comp.Matches[0].FoundTitle)
	}
	if len(comp.Extra) != 1 || comp.Extra[0].Title != "1985" {
		t.Errorf("Expected 1985 left over as extra, got %+v", comp.Extra)
	}
}

func TestCompareShelfEmptySides(t *testing.T) {
	t.Run("both empty is a perfect run", func(t *testing.T) {
		comp := CompareShelf(nil, nil)
		if !approx(comp.Precision, 1.0) || !approx(comp.Recall, 1.0) || !approx(comp.F1, 1.0) {
			t.Errorf("Expected perfect scores, got P=%v R=%v F1=%v", comp.Precision, comp.Recall, comp.F1)
		}
	})

	t.Run("hallucinated books on an empty shelf", func(t *testing.T) {
		comp := CompareShelf(nil, []models.RecognizedBook{{Title: "Ghost Book"}})
		if !approx(comp.Precision, 0.0) {
			t.Errorf("Expected precision 0, got %v", comp.Precision)
		}
		if !approx(comp.Recall, 1.0) {
			t.Errorf("Expected recall 1 with nothing to find, got %v", comp.Recall)
		}
	})

	t.Run("nothing recognized on a labeled shelf", func(t *testing.T) {
		comp := CompareShelf([]dataset.GroundTruthBook{{Title: "1984"}}, nil)
		if !approx(comp.Precision, 1.0) {
			t.Errorf("Expected precision 1 with nothing claimed, got %v", comp.Precision)
		}
		if !approx(comp.Recall, 0.0) {
			t.Errorf("Expected recall 0, got %v", comp.Recall)
		}
	})
}
