package scoring

import (
	"strconv"

	"github.com/bioage-mcp-server/internal/domain"
)

// RecommendationRule is one entry of the recommendation table. Trigger is nil for
// recommendations that are always emitted.
type RecommendationRule struct {
	Name        string
	Category    domain.RecommendationCategory
	Title       string
	Description string
	Priority    domain.Priority
	Impact      float64
	Trigger     func(input domain.AssessmentInput) bool
}

// Thresholds of the conditional recommendations.
const (
	GlucoseThreshold    = 100.0
	SleepThreshold      = 7.0
	SystolicBPThreshold = 120.0
)

// recommendationRules is evaluated in order; the order is part of the output.
var recommendationRules = []RecommendationRule{
	{
		Name:        "physical_activity",
		Category:    domain.RecommendationExercise,
		Title:       "Increase physical activity",
		Description: "Aim for at least 150 minutes of moderate exercise per week to improve cardiovascular health.",
		Priority:    domain.PriorityMedium,
		Impact:      1.2,
	},
	{
		Name:        "sugar_intake",
		Category:    domain.RecommendationNutrition,
		Title:       "Reduce sugar intake",
		Description: "Your glucose levels are elevated. Consider reducing refined carbohydrates and added sugars in your diet.",
		Priority:    domain.PriorityHigh,
		Impact:      1.5,
		Trigger: func(input domain.AssessmentInput) bool {
			v, ok := input.Bloodwork.Number(domain.MetricGlucose)
			return ok && v > GlucoseThreshold
		},
	},
	{
		Name:        "sleep_quality",
		Category:    domain.RecommendationLifestyle,
		Title:       "Improve sleep quality",
		Description: "You're getting less than the recommended 7-9 hours of sleep. Establish a regular sleep schedule and create a restful environment.",
		Priority:    domain.PriorityHigh,
		Impact:      1.8,
		Trigger: func(input domain.AssessmentInput) bool {
			v, ok := input.Lifestyle.Number(domain.MetricSleepHours)
			return ok && v < SleepThreshold
		},
	},
	{
		Name:        "blood_pressure",
		Category:    domain.RecommendationMedical,
		Title:       "Monitor blood pressure",
		Description: "Your blood pressure is slightly elevated. Consider regular monitoring and consult with a healthcare provider.",
		Priority:    domain.PriorityMedium,
		Impact:      1.0,
		Trigger: func(input domain.AssessmentInput) bool {
			v, ok := input.Vitals.Number(domain.MetricSystolicBP)
			return ok && v > SystolicBPThreshold
		},
	},
	{
		Name:        "plant_based_foods",
		Category:    domain.RecommendationNutrition,
		Title:       "Increase plant-based foods",
		Description: "Aim to fill half your plate with vegetables and fruits at each meal to increase nutrient intake.",
		Priority:    domain.PriorityMedium,
		Impact:      0.8,
	},
	{
		Name:        "stress_management",
		Category:    domain.RecommendationLifestyle,
		Title:       "Practice stress management",
		Description: "Incorporate stress-reduction techniques like meditation, deep breathing, or yoga into your daily routine.",
		Priority:    domain.PriorityMedium,
		Impact:      0.9,
	},
}

// RecommendationRules returns a copy of the rule table in evaluation order.
func RecommendationRules() []RecommendationRule {
	return append([]RecommendationRule(nil), recommendationRules...)
}

// Recommend evaluates the rule table against the raw observations. It does not
// look at any score. Ids are assigned sequentially from "1".
func Recommend(input domain.AssessmentInput) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0, len(recommendationRules))
	for _, rule := range recommendationRules {
		if rule.Trigger != nil && !rule.Trigger(input) {
			continue
		}
		recs = append(recs, domain.Recommendation{
			ID:          strconv.Itoa(len(recs) + 1),
			Category:    rule.Category,
			Title:       rule.Title,
			Description: rule.Description,
			Priority:    rule.Priority,
			Impact:      rule.Impact,
		})
	}
	return recs
}
