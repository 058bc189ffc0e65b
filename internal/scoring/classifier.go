package scoring

import (
	"math"

	"github.com/bioage-mcp-server/internal/domain"
)

// Category weights of the overall blend. They sum to 1.
const (
	BloodworkWeight = 0.40
	LifestyleWeight = 0.35
	VitalsWeight    = 0.25
)

// Label tier lower bounds, inclusive.
const (
	ExcellentThreshold = 0.80
	GoodThreshold      = 0.60
	FairThreshold      = 0.40
)

// Blend combines the three category scores into the overall score.
func Blend(scores domain.CategoryScores) float64 {
	return scores.Bloodwork*BloodworkWeight +
		scores.Lifestyle*LifestyleWeight +
		scores.Vitals*VitalsWeight
}

// boundaryPrecision is the resolution scores are compared at, far coarser than
// the error of the weighted blend and far finer than any catalog score.
const boundaryPrecision = 1e9

// Classify maps an overall score to its health label. A blend that lands on a
// tier bound up to float error counts as on it.
func Classify(overall float64) domain.HealthLabel {
	overall = math.Round(overall*boundaryPrecision) / boundaryPrecision
	switch {
	case overall >= ExcellentThreshold:
		return domain.HealthExcellent
	case overall >= GoodThreshold:
		return domain.HealthGood
	case overall >= FairThreshold:
		return domain.HealthFair
	default:
		return domain.HealthPoor
	}
}
