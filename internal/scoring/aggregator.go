package scoring

import (
	"math"
)

// SubScore is a normalized metric score with its catalog weight.
type SubScore struct {
	Score  float64
	Weight float64
}

// Aggregate returns the weighted mean of the sub-scores at full precision, or
// NeutralScore when the total weight is zero.
func Aggregate(subScores []SubScore) float64 {
	var weighted, total float64
	for _, s := range subScores {
		if s.Weight <= 0 {
			continue
		}
		weighted += s.Score * s.Weight
		total += s.Weight
	}
	if total == 0 {
		return NeutralScore
	}
	return weighted / total
}

// Round2 rounds to two decimals, the precision category scores are reported at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal, the precision ages are reported at.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
