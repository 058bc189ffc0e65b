package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioage-mcp-server/internal/domain"
)

func lookup(t *testing.T, id domain.MetricID) domain.MetricDefinition {
	t.Helper()
	def, ok := domain.DefaultCatalog().Lookup(id)
	require.True(t, ok, "metric %s missing from default catalog", id)
	return def
}

func TestNormalize_ClosedRange(t *testing.T) {
	tests := []struct {
		name   string
		metric domain.MetricID
		value  float64
		want   float64
	}{
		{"bloodwork within", domain.MetricGlucose, 85, 0.8},
		{"bloodwork lower bound inclusive", domain.MetricGlucose, 70, 0.8},
		{"bloodwork upper bound inclusive", domain.MetricGlucose, 100, 0.8},
		{"bloodwork below", domain.MetricGlucose, 60, 0.3},
		{"bloodwork above", domain.MetricGlucose, 126, 0.2},
		{"vitals within", domain.MetricSystolicBP, 115, 0.8},
		{"vitals below", domain.MetricSystolicBP, 85, 0.4},
		{"vitals above", domain.MetricSystolicBP, 130, 0.3},
		{"bmi fractional bounds", domain.MetricBMI, 24.9, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := Normalize(lookup(t, tt.metric), domain.NumberValue(tt.value))
			require.True(t, ok)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestNormalize_UpperBound(t *testing.T) {
	def := lookup(t, domain.MetricLDL)
	require.Equal(t, domain.RangeUpperBound, def.Range.Kind)

	score, ok := Normalize(def, domain.NumberValue(100))
	require.True(t, ok)
	assert.Equal(t, 0.8, score)

	score, ok = Normalize(def, domain.NumberValue(100.1))
	require.True(t, ok)
	assert.Equal(t, 0.2, score)
}

func TestNormalize_Tiered(t *testing.T) {
	tests := []struct {
		name   string
		metric domain.MetricID
		value  float64
		want   float64
	}{
		{"sleep recommended", domain.MetricSleepHours, 8, 0.9},
		{"sleep seven is recommended", domain.MetricSleepHours, 7, 0.9},
		{"sleep six", domain.MetricSleepHours, 6.5, 0.6},
		{"sleep short", domain.MetricSleepHours, 5, 0.3},
		{"sleep long", domain.MetricSleepHours, 10, 0.3},
		{"exercise guideline", domain.MetricExerciseMinutes, 150, 0.9},
		{"exercise partial", domain.MetricExerciseMinutes, 90, 0.6},
		{"exercise low", domain.MetricExerciseMinutes, 20, 0.3},
		{"alcohol moderate", domain.MetricAlcoholDrinks, 7, 0.8},
		{"alcohol elevated", domain.MetricAlcoholDrinks, 14, 0.5},
		{"alcohol heavy", domain.MetricAlcoholDrinks, 21, 0.2},
		{"alcohol none", domain.MetricAlcoholDrinks, 0, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := Normalize(lookup(t, tt.metric), domain.NumberValue(tt.value))
			require.True(t, ok)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestNormalize_Ordinal(t *testing.T) {
	tests := []struct {
		metric domain.MetricID
		level  string
		want   float64
	}{
		{domain.MetricSmokingStatus, "Never", 0.9},
		{domain.MetricSmokingStatus, "Former", 0.6},
		{domain.MetricSmokingStatus, "Current", 0.2},
		{domain.MetricStressLevel, "Low", 0.9},
		{domain.MetricStressLevel, "Moderate", 0.6},
		{domain.MetricStressLevel, "High", 0.3},
		{domain.MetricDietQuality, "Excellent", 0.9},
		{domain.MetricDietQuality, "Good", 0.7},
		{domain.MetricDietQuality, "Average", 0.5},
		{domain.MetricDietQuality, "Poor", 0.2},
	}

	for _, tt := range tests {
		t.Run(string(tt.metric)+"/"+tt.level, func(t *testing.T) {
			score, ok := Normalize(lookup(t, tt.metric), domain.LevelValue(tt.level))
			require.True(t, ok)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestNormalize_NotObserved(t *testing.T) {
	_, ok := Normalize(lookup(t, domain.MetricGlucose), domain.Value{})
	assert.False(t, ok)

	// A level on a numeric metric and a number on an ordinal metric are ignored.
	_, ok = Normalize(lookup(t, domain.MetricGlucose), domain.LevelValue("High"))
	assert.False(t, ok)
	_, ok = Normalize(lookup(t, domain.MetricSmokingStatus), domain.NumberValue(1))
	assert.False(t, ok)
	_, ok = Normalize(lookup(t, domain.MetricSleepHours), domain.LevelValue("Low"))
	assert.False(t, ok)
}

func TestNormalize_NonFiniteNotObserved(t *testing.T) {
	metrics := []domain.MetricID{domain.MetricSystolicBP, domain.MetricLDL, domain.MetricSleepHours, domain.MetricExerciseMinutes}
	for _, id := range metrics {
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			_, ok := Normalize(lookup(t, id), domain.NumberValue(v))
			assert.False(t, ok, "%s with %v", id, v)
		}
	}
}

func TestNormalize_MalformedRangeIsNeutral(t *testing.T) {
	for _, raw := range []string{"", "abc", "10-", "5-1", "<x", "1-2-3"} {
		t.Run(raw, func(t *testing.T) {
			catalog, err := domain.NewCatalog([]domain.MetricDefinition{
				{ID: "custom", Name: "Custom", Category: domain.CategoryBloodwork, NormalRange: raw, Weight: 1},
			})
			require.NoError(t, err)

			def, ok := catalog.Lookup("custom")
			require.True(t, ok)
			assert.Equal(t, domain.RangeInvalid, def.Range.Kind)

			score, ok := Normalize(def, domain.NumberValue(42))
			require.True(t, ok)
			assert.Equal(t, NeutralScore, score)
		})
	}
}

func TestNormalize_ScoresStayInUnitInterval(t *testing.T) {
	values := []float64{0, 0.01, 1, 5, 6, 7, 9, 14, 40, 75, 99.9, 100, 120, 150, 200, 1e6}
	for _, def := range domain.DefaultCatalog().All() {
		if def.IsOrdinal() {
			for _, level := range append(domain.OrdinalLevels[def.ID], "Unknown") {
				score, ok := Normalize(def, domain.LevelValue(level))
				require.True(t, ok)
				assert.GreaterOrEqual(t, score, 0.0, "%s=%s", def.ID, level)
				assert.LessOrEqual(t, score, 1.0, "%s=%s", def.ID, level)
			}
			continue
		}
		for _, v := range values {
			score, ok := Normalize(def, domain.NumberValue(v))
			require.True(t, ok)
			assert.GreaterOrEqual(t, score, 0.0, "%s=%v", def.ID, v)
			assert.LessOrEqual(t, score, 1.0, "%s=%v", def.ID, v)
		}
	}
}
