// Package scoring implements the deterministic biological-age pipeline:
// per-metric normalization, weighted category aggregation, the overall health
// blend and classification, the biological-age projection and the
// recommendation rules. Everything here is pure; callers inject ids and clocks.
package scoring

import (
	"math"

	"github.com/bioage-mcp-server/internal/domain"
)

// NeutralScore is used for a category with no observations and for metrics whose
// reference range cannot be parsed.
const NeutralScore = 0.5

// RangeScores are the sub-scores awarded by the generic reference-range rule.
type RangeScores struct {
	Within float64
	Below  float64
	Above  float64
}

const (
	upperBoundWithin = 0.8
	upperBoundAbove  = 0.2
)

// rangeScores holds the category-dependent penalties. Lifestyle metrics use
// bespoke tiers and never reach the generic rule; they share the bloodwork
// values if a catalog edit routes one here.
var rangeScores = map[domain.Category]RangeScores{
	domain.CategoryBloodwork: {Within: 0.8, Below: 0.3, Above: 0.2},
	domain.CategoryVitals:    {Within: 0.8, Below: 0.4, Above: 0.3},
	domain.CategoryLifestyle: {Within: 0.8, Below: 0.3, Above: 0.2},
}

// Normalize maps an observed value to a sub-score in [0,1]. ok is false when the
// value is absent, not finite, or of the wrong kind for the metric, meaning the
// metric does not take part in aggregation.
func Normalize(def domain.MetricDefinition, v domain.Value) (score float64, ok bool) {
	if !v.Observed() {
		return 0, false
	}

	switch def.Rule {
	case domain.RuleOrdinal:
		level, isLevel := v.Level()
		if !isLevel {
			return 0, false
		}
		return normalizeOrdinal(def, level), true

	case domain.RuleTiered:
		n, isNumber := v.Number()
		if !isNumber || !finite(n) {
			return 0, false
		}
		return normalizeTiered(def, n), true

	default:
		n, isNumber := v.Number()
		if !isNumber || !finite(n) {
			return 0, false
		}
		return normalizeRange(def, n), true
	}
}

func normalizeRange(def domain.MetricDefinition, value float64) float64 {
	switch def.Range.Kind {
	case domain.RangeClosed:
		scores, ok := rangeScores[def.Category]
		if !ok {
			return NeutralScore
		}
		switch {
		case value < def.Range.Min:
			return scores.Below
		case value > def.Range.Max:
			return scores.Above
		default:
			return scores.Within
		}

	case domain.RangeUpperBound:
		if value <= def.Range.Max {
			return upperBoundWithin
		}
		return upperBoundAbove

	default:
		return NeutralScore
	}
}

func normalizeTiered(def domain.MetricDefinition, value float64) float64 {
	for _, tier := range def.Tiers {
		if tier.Contains(value) {
			return clamp01(tier.Score)
		}
	}
	return clamp01(def.TierDefault)
}

func normalizeOrdinal(def domain.MetricDefinition, level string) float64 {
	if score, ok := def.Levels[level]; ok {
		return clamp01(score)
	}
	return clamp01(def.LevelDefault)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
