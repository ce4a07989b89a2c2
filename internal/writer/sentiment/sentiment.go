package sentiment

import (
	"math"

	"github.com/jonreiter/govader"
)

// Scorer maps text to a polarity score in [-1, 1]. Implementations must be deterministic.
type Scorer interface {
	Score(text string) float64
}

// NewVaderScorer returns a Scorer backed by the VADER lexicon; the score is its compound value.
func NewVaderScorer() Scorer {
	return &vaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

type vaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func (s *vaderScorer) Score(text string) float64 {
	compound := s.analyzer.PolarityScores(text).Compound
	if math.IsNaN(compound) {
		return 0
	}
	return math.Max(-1, math.Min(1, compound))
}
