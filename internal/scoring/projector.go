package scoring

// MinBiologicalAge is the floor applied to every projection.
const MinBiologicalAge = 18.0

// ageSpan scales the distance from a neutral 0.5 score into years, giving a
// delta between -10 and +10.
const ageSpan = 20.0

// AgeDelta returns the signed adjustment, in years, for an overall score.
// Better health yields a negative delta.
func AgeDelta(overall float64) float64 {
	return (NeutralScore - overall) * ageSpan
}

// Project applies the delta to chronological age, rounds to one decimal and
// clamps to MinBiologicalAge.
func Project(chronologicalAge int, overall float64) float64 {
	age := Round1(float64(chronologicalAge) + AgeDelta(overall))
	if age < MinBiologicalAge {
		return MinBiologicalAge
	}
	return age
}
