package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bioage-mcp-server/internal/domain"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name      string
		subScores []SubScore
		want      float64
	}{
		{"no observations", nil, 0.5},
		{"single metric ignores weight", []SubScore{{Score: 0.3, Weight: 1.5}}, 0.3},
		{"weighted mean", []SubScore{{Score: 0.3, Weight: 1.5}, {Score: 0.9, Weight: 2.0}}, 2.25 / 3.5},
		{"zero weights are skipped", []SubScore{{Score: 0.1, Weight: 0}}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Aggregate(tt.subScores), 1e-12)
		})
	}
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 0.64, Round2(2.25/3.5))
	assert.Equal(t, 0.5, Round2(0.5))
	assert.Equal(t, 41.0, Round1(40.99999999))
	assert.Equal(t, 33.3, Round1(33.25))
}

func TestBlend(t *testing.T) {
	assert.InDelta(t, 0.5, Blend(domain.CategoryScores{Bloodwork: 0.5, Lifestyle: 0.5, Vitals: 0.5}), 1e-12)
	assert.InDelta(t, 0.40, Blend(domain.CategoryScores{Bloodwork: 1}), 1e-12)
	assert.InDelta(t, 0.35, Blend(domain.CategoryScores{Lifestyle: 1}), 1e-12)
	assert.InDelta(t, 0.25, Blend(domain.CategoryScores{Vitals: 1}), 1e-12)
	assert.InDelta(t, 1.0, BloodworkWeight+LifestyleWeight+VitalsWeight, 1e-12)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		overall float64
		want    domain.HealthLabel
	}{
		{1.0, domain.HealthExcellent},
		{0.80, domain.HealthExcellent},
		{0.7999, domain.HealthGood},
		{0.60, domain.HealthGood},
		{0.5999, domain.HealthFair},
		{0.40, domain.HealthFair},
		{0.3999, domain.HealthPoor},
		{0, domain.HealthPoor},
		{0.80 - 1e-12, domain.HealthExcellent},
		{0.60 - 1e-12, domain.HealthGood},
		{0.40 - 1e-12, domain.HealthFair},
		{0.2*BloodworkWeight + 0.7*LifestyleWeight + 0.3*VitalsWeight, domain.HealthFair},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.4f", tt.overall), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.overall))
		})
	}
}

func TestClassify_TiersAreContiguous(t *testing.T) {
	order := map[domain.HealthLabel]int{
		domain.HealthPoor:      0,
		domain.HealthFair:      1,
		domain.HealthGood:      2,
		domain.HealthExcellent: 3,
	}
	prev := order[Classify(0)]
	for i := 1; i <= 1000; i++ {
		cur := order[Classify(float64(i)/1000)]
		assert.GreaterOrEqual(t, cur, prev)
		assert.LessOrEqual(t, cur-prev, 1)
		prev = cur
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name    string
		age     int
		overall float64
		want    float64
	}{
		{"neutral keeps age", 30, 0.5, 30.0},
		{"healthiest subtracts ten years", 50, 1.0, 40.0},
		{"least healthy adds ten years", 50, 0.0, 60.0},
		{"floor at eighteen", 20, 1.0, 18.0},
		{"rounded to one decimal", 40, 0.45, 41.0},
		{"partial delta", 40, 0.64, 37.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.age, tt.overall))
		})
	}
}

func TestProject_MonotonicAndFloored(t *testing.T) {
	for _, age := range []int{1, 18, 25, 45, 90} {
		prev := Project(age, 0)
		for i := 1; i <= 100; i++ {
			cur := Project(age, float64(i)/100)
			assert.LessOrEqual(t, cur, prev, "age %d overall %.2f", age, float64(i)/100)
			assert.GreaterOrEqual(t, cur, MinBiologicalAge)
			prev = cur
		}
	}
}
