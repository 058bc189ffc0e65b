package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseObservationSet(t *testing.T) {
	catalog := DefaultCatalog()

	raw := map[string]any{
		"sleepHours":      "6.5",
		"exerciseMinutes": json.Number("120"),
		"alcoholDrinks":   -3.0,
		"smokingStatus":   " Never ",
		"stressLevel":     "Extreme",
		"dietQuality":     7,
		"glucose":         95.0,
		"steps":           9000,
	}

	set, unknown := ParseObservationSet(catalog, CategoryLifestyle, raw)

	if v, ok := set.Number(MetricSleepHours); !ok || v != 6.5 {
		t.Errorf("sleepHours = %v, %v", v, ok)
	}
	if v, ok := set.Number(MetricExerciseMinutes); !ok || v != 120 {
		t.Errorf("exerciseMinutes = %v, %v", v, ok)
	}
	if _, ok := set.Get(MetricAlcoholDrinks); ok {
		t.Error("negative alcoholDrinks should not be observed")
	}
	if v, ok := set.Get(MetricSmokingStatus); !ok {
		t.Error("smokingStatus should be observed")
	} else if level, _ := v.Level(); level != "Never" {
		t.Errorf("smokingStatus = %q", level)
	}
	if _, ok := set.Get(MetricStressLevel); ok {
		t.Error("unknown stress level should not be observed")
	}
	if _, ok := set.Get(MetricDietQuality); ok {
		t.Error("numeric diet quality should not be observed")
	}

	if len(unknown) != 2 || unknown[0] != MetricGlucose || unknown[1] != "steps" {
		t.Errorf("unexpected unknown metrics %v", unknown)
	}
	if _, ok := set.Get("steps"); !ok {
		t.Error("unknown keys are kept for catalog checks")
	}
}

func TestToNumberRejectsNonFinite(t *testing.T) {
	for _, v := range []any{math.NaN(), math.Inf(1), "abc", true, nil, -1} {
		if _, ok := toNumber(v); ok {
			t.Errorf("toNumber(%v) should fail", v)
		}
	}
	if n, ok := toNumber(int64(42)); !ok || n != 42 {
		t.Errorf("toNumber(int64) = %v, %v", n, ok)
	}
}

func TestValueJSON(t *testing.T) {
	set := NewObservationSet(CategoryVitals).
		Set(MetricSystolicBP, NumberValue(118)).
		Set(MetricSmokingStatus, LevelValue("Former"))

	data, err := json.Marshal(set.Values)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[MetricID]Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := decoded[MetricSystolicBP].Number(); !ok || v != 118 {
		t.Errorf("systolicBP = %v, %v", v, ok)
	}
	if v, ok := decoded[MetricSmokingStatus].Level(); !ok || v != "Former" {
		t.Errorf("smokingStatus = %v, %v", v, ok)
	}

	var empty Value
	if err := json.Unmarshal([]byte("null"), &empty); err != nil || empty.Observed() {
		t.Errorf("null should decode to an unobserved value, err=%v", err)
	}
}

func TestObservationSetNilSafety(t *testing.T) {
	var set *ObservationSet
	if _, ok := set.Get(MetricGlucose); ok {
		t.Error("nil set should not report observations")
	}
	if set.Len() != 0 || set.IDs() != nil {
		t.Error("nil set should be empty")
	}
}

func TestAssessmentResultClone(t *testing.T) {
	original := &AssessmentResult{
		ID:               "a",
		ChronologicalAge: 40,
		BiologicalAge:    42.5,
		Recommendations:  []Recommendation{{ID: "1", Title: "Increase physical activity"}},
	}

	clone := original.Clone()
	clone.Recommendations[0].Title = "changed"

	if original.Recommendations[0].Title != "Increase physical activity" {
		t.Error("clone shares recommendations with original")
	}
	if original.AgeGap() != 2.5 {
		t.Errorf("AgeGap = %v", original.AgeGap())
	}
	var nilResult *AssessmentResult
	if nilResult.Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestErrors(t *testing.T) {
	apiErr := NewAPIError(ErrCodeInvalidInput, "bad age", "age must be positive", "req-1")
	if apiErr.Error() != "INVALID_INPUT: bad age" {
		t.Errorf("unexpected APIError message %q", apiErr.Error())
	}
	if apiErr.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}

	inputErr := NewInputError("chronological_age", "required", nil)
	if inputErr.Error() != "invalid input for field 'chronological_age': required" {
		t.Errorf("unexpected InputError message %q", inputErr.Error())
	}

	catErr := &CatalogError{Metric: "ferritin", Category: CategoryBloodwork}
	if catErr.Error() != `metric "ferritin" is not defined for category bloodwork` {
		t.Errorf("unexpected CatalogError message %q", catErr.Error())
	}
}
