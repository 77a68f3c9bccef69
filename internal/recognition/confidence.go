package recognition

import (
	"math"
	"strings"

	"github.com/shelfscan/shelfscan/internal/models"
)

// Base scores per certainty tag. Tuned against the UI display tiers
// (>=0.95 high, >=0.85 good, >=0.75 moderate) so a "high" tag only clears
// the top tier when the record itself is complete.
const (
	baseHigh   = 0.92
	baseMedium = 0.78
	baseLow    = 0.60
	baseOther  = 0.50
)

// Score converts the model's categorical certainty tag plus record-quality
// heuristics into a confidence value in [0,1], rounded to two decimals.
// Identical inputs always produce identical output.
func Score(certainty, title, author string) float64 {
	var score float64
	switch strings.ToLower(strings.TrimSpace(certainty)) {
	case "high":
		score = baseHigh
	case "medium":
		score = baseMedium
	case "low":
		score = baseLow
	default:
		score = baseOther
	}

	hasAuthor := author != "" && !strings.EqualFold(author, models.UnknownAuthor)
	titleLen := len([]rune(title))

	if title != "" && hasAuthor {
		score += 0.05
	}
	if titleLen < 3 {
		score -= 0.05
	}
	if titleLen > 80 {
		score -= 0.03
	}
	if !hasAuthor {
		score -= 0.03
	}

	score = math.Max(0, math.Min(1, score))
	return math.Round(score*100) / 100
}
