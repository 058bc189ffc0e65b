// Package domain contains the core entities of the biological-age scoring service:
// the metric catalog, observation sets, assessment results and recommendations,
// together with the interfaces the service layers depend on.
//
// A biological age is a year-valued estimate of physiological health derived from
// bloodwork, lifestyle and vital-sign observations. It is distinct from the
// chronological age computed from a date of birth.
package domain

import (
	"errors"
)

// Category groups metrics into the three scored families.
type Category string

const (
	CategoryBloodwork Category = "bloodwork"
	CategoryLifestyle Category = "lifestyle"
	CategoryVitals    Category = "vitals"
)

// Categories lists every category in blend order.
var Categories = []Category{CategoryBloodwork, CategoryLifestyle, CategoryVitals}

// IsValid reports whether c is one of the scored categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryBloodwork, CategoryLifestyle, CategoryVitals:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// HealthLabel is the four-level overall health classification.
type HealthLabel string

const (
	HealthPoor      HealthLabel = "Poor"
	HealthFair      HealthLabel = "Fair"
	HealthGood      HealthLabel = "Good"
	HealthExcellent HealthLabel = "Excellent"
)

// IsValid reports whether the label is one of the four tiers.
func (h HealthLabel) IsValid() bool {
	switch h {
	case HealthPoor, HealthFair, HealthGood, HealthExcellent:
		return true
	default:
		return false
	}
}

// String returns the string representation of the label.
func (h HealthLabel) String() string {
	return string(h)
}

// RecommendationCategory classifies a recommendation for display grouping.
type RecommendationCategory string

const (
	RecommendationLifestyle RecommendationCategory = "Lifestyle"
	RecommendationNutrition RecommendationCategory = "Nutrition"
	RecommendationMedical   RecommendationCategory = "Medical"
	RecommendationExercise  RecommendationCategory = "Exercise"
)

// IsValid reports whether the category is known.
func (r RecommendationCategory) IsValid() bool {
	switch r {
	case RecommendationLifestyle, RecommendationNutrition, RecommendationMedical, RecommendationExercise:
		return true
	default:
		return false
	}
}

// Priority ranks recommendations.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// IsValid reports whether the priority is known.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Gender is the optional self-reported gender on a profile.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// IsValid reports whether the gender is empty or one of the known values.
func (g Gender) IsValid() bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// Common sentinel errors
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCategory   = errors.New("invalid metric category")
	ErrInvalidTrendRange = errors.New("invalid trend range")
)
