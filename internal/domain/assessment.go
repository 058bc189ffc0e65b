package domain

import (
	"time"
)

// CategoryScores holds the per-category scores, each in [0,1].
type CategoryScores struct {
	Bloodwork float64 `json:"bloodwork_score"`
	Lifestyle float64 `json:"lifestyle_score"`
	Vitals    float64 `json:"vital_score"`
}

// Get returns the score for category.
func (s CategoryScores) Get(category Category) float64 {
	switch category {
	case CategoryBloodwork:
		return s.Bloodwork
	case CategoryLifestyle:
		return s.Lifestyle
	case CategoryVitals:
		return s.Vitals
	default:
		return 0
	}
}

// Recommendation is a prioritized, actionable suggestion with an estimated
// reduction in biological age (years).
type Recommendation struct {
	ID          string                 `json:"id"`
	Category    RecommendationCategory `json:"category"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    Priority               `json:"priority"`
	Impact      float64                `json:"impact"`
}

// AssessmentInput is everything a scoring engine needs for one calculation.
// ID and Now are supplied by the caller so scoring stays deterministic.
type AssessmentInput struct {
	ID               string          `json:"id"`
	OwnerID          string          `json:"owner_id"`
	Now              time.Time       `json:"now"`
	ChronologicalAge int             `json:"chronological_age"`
	Bloodwork        *ObservationSet `json:"bloodwork,omitempty"`
	Lifestyle        *ObservationSet `json:"lifestyle,omitempty"`
	Vitals           *ObservationSet `json:"vitals,omitempty"`
}

// Set returns the observation set of category, or nil.
func (in AssessmentInput) Set(category Category) *ObservationSet {
	switch category {
	case CategoryBloodwork:
		return in.Bloodwork
	case CategoryLifestyle:
		return in.Lifestyle
	case CategoryVitals:
		return in.Vitals
	default:
		return nil
	}
}

// AssessmentResult is the immutable outcome of one calculation.
type AssessmentResult struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"user_id"`
	Date             time.Time        `json:"date"`
	ChronologicalAge int              `json:"chronological_age"`
	BiologicalAge    float64          `json:"biological_age"`
	Scores           CategoryScores   `json:"scores"`
	OverallScore     float64          `json:"overall_score"`
	OverallHealth    HealthLabel      `json:"overall_health"`
	Recommendations  []Recommendation `json:"recommendations"`
	Engine           string           `json:"engine"`
}

// AgeGap returns biological minus chronological age.
func (r *AssessmentResult) AgeGap() float64 {
	return r.BiologicalAge - float64(r.ChronologicalAge)
}

// Clone returns a deep copy so callers never share the recommendation slice.
func (r *AssessmentResult) Clone() *AssessmentResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Recommendations = append([]Recommendation(nil), r.Recommendations...)
	return &out
}

// Profile holds the owner attributes used to derive chronological age.
type Profile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      Gender     `json:"gender,omitempty"`
	HeightCm    *float64   `json:"height_cm,omitempty"`
	WeightKg    *float64   `json:"weight_kg,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TrendRange selects the history window for trend analysis.
type TrendRange string

const (
	TrendRange3M  TrendRange = "3m"
	TrendRange6M  TrendRange = "6m"
	TrendRange1Y  TrendRange = "1y"
	TrendRangeAll TrendRange = "all"
)

// IsValid reports whether the range is known.
func (r TrendRange) IsValid() bool {
	switch r {
	case TrendRange3M, TrendRange6M, TrendRange1Y, TrendRangeAll:
		return true
	default:
		return false
	}
}

// TrendDirection summarizes how biological age moved over a window.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// TrendPoint is one assessment on a trend chart.
type TrendPoint struct {
	Date             time.Time   `json:"date"`
	BiologicalAge    float64     `json:"biological_age"`
	ChronologicalAge int         `json:"chronological_age"`
	OverallHealth    HealthLabel `json:"overall_health"`
}

// Trend is the chronological summary of an owner's assessments.
type Trend struct {
	Range     TrendRange     `json:"range"`
	Points    []TrendPoint   `json:"points"`
	Direction TrendDirection `json:"direction"`
	// Change is last minus first biological age, rounded to one decimal.
	Change           float64 `json:"change"`
	MinBiologicalAge float64 `json:"min_biological_age"`
	MaxBiologicalAge float64 `json:"max_biological_age"`
	Summary          string  `json:"summary"`
}
