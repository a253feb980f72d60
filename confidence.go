package paperqa

import (
	"strings"

	"github.com/paperqa/paperqa/pkg/config"
	"github.com/paperqa/paperqa/pkg/types"
)

// hedgingPhrases mark answers where the model admits it found nothing. An
// answer containing any of them gets a zero answer-quality sub-score no
// matter how long it is.
var hedgingPhrases = []string{
	"keine antwort",
	"nicht beantworten",
	"keine information",
	"nicht gefunden",
	"konnte nicht",
	"keine relevanten dokumente",
	"ich weiß nicht",
	"unklar",
}

// ConfidenceEstimator scores how trustworthy an answer is, combining
// retrieval quality (distances of the supporting hits, source coverage)
// with a heuristic on the answer text itself.
type ConfidenceEstimator struct {
	cfg config.ConfidenceConfig
}

// NewConfidenceEstimator creates an estimator. Zero weights and thresholds
// fall back to the tuned defaults.
func NewConfidenceEstimator(cfg config.ConfidenceConfig) *ConfidenceEstimator {
	if cfg.DistanceCeiling <= 0 {
		cfg.DistanceCeiling = 1.0
	}
	if cfg.WeightAvgDistance == 0 && cfg.WeightBestDistance == 0 &&
		cfg.WeightCoverage == 0 && cfg.WeightAnswer == 0 {
		cfg.WeightAvgDistance = 0.40
		cfg.WeightBestDistance = 0.30
		cfg.WeightCoverage = 0.15
		cfg.WeightAnswer = 0.15
	}
	if cfg.HighThreshold == 0 {
		cfg.HighThreshold = 0.70
	}
	if cfg.MediumThreshold == 0 {
		cfg.MediumThreshold = 0.45
	}
	return &ConfidenceEstimator{cfg: cfg}
}

// Estimate scores an answer supported by the given hits. k is the number of
// context documents that was asked for; coverage measures how many distinct
// documents actually backed the answer relative to it.
func (e *ConfidenceEstimator) Estimate(hits []types.SearchHit, answer string, k int) types.Confidence {
	if len(hits) == 0 {
		return types.Confidence{Score: 0, Label: types.ConfidenceLow}
	}
	if k <= 0 {
		k = len(hits)
	}

	score := e.cfg.WeightAvgDistance*e.avgDistanceScore(hits) +
		e.cfg.WeightBestDistance*e.bestDistanceScore(hits) +
		e.cfg.WeightCoverage*coverageScore(hits, k) +
		e.cfg.WeightAnswer*answerScore(answer)

	return types.Confidence{Score: score, Label: e.label(score)}
}

func (e *ConfidenceEstimator) label(score float64) types.ConfidenceLabel {
	switch {
	case score >= e.cfg.HighThreshold:
		return types.ConfidenceHigh
	case score >= e.cfg.MediumThreshold:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// avgDistanceScore inverts the mean distance of the top three hits into
// [0,1]: identical vectors score 1, distances at or beyond the ceiling
// score 0.
func (e *ConfidenceEstimator) avgDistanceScore(hits []types.SearchHit) float64 {
	n := len(hits)
	if n > 3 {
		n = 3
	}
	var sum float64
	for _, hit := range hits[:n] {
		sum += hit.Distance
	}
	return e.invertDistance(sum / float64(n))
}

// bestDistanceScore inverts the distance of the single best hit.
func (e *ConfidenceEstimator) bestDistanceScore(hits []types.SearchHit) float64 {
	best := hits[0].Distance
	for _, hit := range hits[1:] {
		if hit.Distance < best {
			best = hit.Distance
		}
	}
	return e.invertDistance(best)
}

func (e *ConfidenceEstimator) invertDistance(d float64) float64 {
	if d < 0 {
		d = 0
	}
	if d > e.cfg.DistanceCeiling {
		d = e.cfg.DistanceCeiling
	}
	return 1 - d/e.cfg.DistanceCeiling
}

// coverageScore measures how many distinct source documents back the
// answer, relative to the k that was asked for.
func coverageScore(hits []types.SearchHit, k int) float64 {
	docs := make(map[string]bool)
	for _, hit := range hits {
		docs[hit.DocumentID] = true
	}
	score := float64(len(docs)) / float64(k)
	if score > 1 {
		score = 1
	}
	return score
}

// answerScore is a crude heuristic on the answer text: hedging zeroes it,
// otherwise longer answers score higher.
func answerScore(answer string) float64 {
	lower := strings.ToLower(answer)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			return 0
		}
	}
	switch {
	case len(answer) > 100:
		return 1.0
	case len(answer) > 50:
		return 2.0 / 3.0
	default:
		return 1.0 / 3.0
	}
}
