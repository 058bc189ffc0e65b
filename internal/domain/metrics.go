package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MetricID identifies a metric in the catalog.
type MetricID string

const (
	// Bloodwork
	MetricGlucose          MetricID = "glucose"
	MetricTotalCholesterol MetricID = "totalCholesterol"
	MetricHDL              MetricID = "hdl"
	MetricLDL              MetricID = "ldl"
	MetricTriglycerides    MetricID = "triglycerides"
	MetricCreatinine       MetricID = "creatinine"
	MetricBUN              MetricID = "bun"
	MetricALT              MetricID = "alt"
	MetricAST              MetricID = "ast"
	MetricHbA1c            MetricID = "hba1c"
	MetricVitaminD         MetricID = "vitaminD"
	MetricTSH              MetricID = "tsh"

	// Lifestyle
	MetricSleepHours      MetricID = "sleepHours"
	MetricExerciseMinutes MetricID = "exerciseMinutes"
	MetricAlcoholDrinks   MetricID = "alcoholDrinks"
	MetricSmokingStatus   MetricID = "smokingStatus"
	MetricStressLevel     MetricID = "stressLevel"
	MetricDietQuality     MetricID = "dietQuality"

	// Vitals
	MetricSystolicBP  MetricID = "systolicBP"
	MetricDiastolicBP MetricID = "diastolicBP"
	MetricRestingHR   MetricID = "restingHR"
	MetricBMI         MetricID = "bmi"
)

// RangeKind describes the shape of a parsed reference range.
type RangeKind int

const (
	// RangeInvalid marks a range string that could not be parsed.
	RangeInvalid RangeKind = iota
	// RangeClosed is an interval [min,max].
	RangeClosed
	// RangeUpperBound is "<max".
	RangeUpperBound
)

// ReferenceRange is the parsed form of a catalog normal range.
type ReferenceRange struct {
	Kind RangeKind `json:"-"`
	Min  float64   `json:"min,omitempty"`
	Max  float64   `json:"max"`
}

// ParseReferenceRange parses "min-max" or "<max". Anything else is an error and
// yields a RangeInvalid range.
func ParseReferenceRange(s string) (ReferenceRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ReferenceRange{}, fmt.Errorf("empty reference range")
	}

	if strings.HasPrefix(s, "<") {
		max, err := strconv.ParseFloat(strings.TrimSpace(s[1:]), 64)
		if err != nil || math.IsNaN(max) || math.IsInf(max, 0) {
			return ReferenceRange{}, fmt.Errorf("invalid upper bound %q", s)
		}
		return ReferenceRange{Kind: RangeUpperBound, Max: max}, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return ReferenceRange{}, fmt.Errorf("invalid reference range %q", s)
	}
	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return ReferenceRange{}, fmt.Errorf("invalid range minimum in %q: %w", s, err)
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return ReferenceRange{}, fmt.Errorf("invalid range maximum in %q: %w", s, err)
	}
	if min > max || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return ReferenceRange{}, fmt.Errorf("invalid reference range %q", s)
	}
	return ReferenceRange{Kind: RangeClosed, Min: min, Max: max}, nil
}

// ScoringRule selects how a metric value is turned into a sub-score.
type ScoringRule string

const (
	RuleRange   ScoringRule = "range"
	RuleTiered  ScoringRule = "tiered"
	RuleOrdinal ScoringRule = "ordinal"
)

// Tier is one band of a tiered metric. Bounds are inclusive and tiers are
// evaluated in order, first match wins.
type Tier struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Score float64 `json:"score"`
}

// Contains reports whether v falls inside the tier.
func (t Tier) Contains(v float64) bool {
	return v >= t.Min && v <= t.Max
}

// MetricDefinition is an immutable catalog entry.
type MetricDefinition struct {
	ID          MetricID           `json:"id"`
	Name        string             `json:"name"`
	Unit        string             `json:"unit,omitempty"`
	Category    Category           `json:"category"`
	NormalRange string             `json:"normal_range"`
	Range       ReferenceRange     `json:"-"`
	Weight      float64            `json:"weight"`
	Rule        ScoringRule        `json:"rule"`
	Tiers       []Tier             `json:"-"`
	Levels      map[string]float64 `json:"levels,omitempty"`
	// LevelDefault scores an ordinal value that matches no level.
	LevelDefault float64 `json:"level_default,omitempty"`
	// TierDefault scores a tiered value that matches no tier.
	TierDefault float64 `json:"tier_default,omitempty"`
}

// IsOrdinal reports whether the metric takes enumerated levels.
func (d MetricDefinition) IsOrdinal() bool {
	return d.Rule == RuleOrdinal
}

// AllowsLevel reports whether level is one of the metric's enumerated values.
func (d MetricDefinition) AllowsLevel(level string) bool {
	for _, l := range OrdinalLevels[d.ID] {
		if l == level {
			return true
		}
	}
	return false
}

// OrdinalLevels lists the accepted values for each enumerated metric.
var OrdinalLevels = map[MetricID][]string{
	MetricSmokingStatus: {"Never", "Former", "Current"},
	MetricStressLevel:   {"Low", "Moderate", "High"},
	MetricDietQuality:   {"Poor", "Average", "Good", "Excellent"},
}

// Catalog is the read-only metric catalog, indexed by id and ordered per category.
type Catalog struct {
	byID  map[MetricID]MetricDefinition
	order map[Category][]MetricID
}

// NewCatalog builds a catalog from definitions, parsing every reference range.
// A malformed range does not fail construction; the metric keeps a RangeInvalid
// range and scores neutrally.
func NewCatalog(defs []MetricDefinition) (*Catalog, error) {
	c := &Catalog{
		byID:  make(map[MetricID]MetricDefinition, len(defs)),
		order: make(map[Category][]MetricID),
	}
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("metric definition without id")
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate metric definition %q", def.ID)
		}
		if !def.Category.IsValid() {
			return nil, fmt.Errorf("metric %q: %w", def.ID, ErrInvalidCategory)
		}
		if def.Weight <= 0 {
			return nil, fmt.Errorf("metric %q: weight must be positive", def.ID)
		}
		if def.Rule == "" {
			def.Rule = RuleRange
		}
		if rng, err := ParseReferenceRange(def.NormalRange); err == nil {
			def.Range = rng
		} else {
			def.Range = ReferenceRange{Kind: RangeInvalid}
		}
		c.byID[def.ID] = def
		c.order[def.Category] = append(c.order[def.Category], def.ID)
	}
	return c, nil
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id MetricID) (MetricDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// Metrics returns the definitions of one category in catalog order.
func (c *Catalog) Metrics(category Category) []MetricDefinition {
	ids := c.order[category]
	defs := make([]MetricDefinition, 0, len(ids))
	for _, id := range ids {
		defs = append(defs, c.byID[id])
	}
	return defs
}

// All returns every definition grouped in blend order.
func (c *Catalog) All() []MetricDefinition {
	var defs []MetricDefinition
	for _, category := range Categories {
		defs = append(defs, c.Metrics(category)...)
	}
	return defs
}

// DefaultMetricDefinitions is the deployment catalog.
func DefaultMetricDefinitions() []MetricDefinition {
	return []MetricDefinition{
		// Bloodwork
		{ID: MetricGlucose, Name: "Fasting Glucose", Unit: "mg/dL", Category: CategoryBloodwork, NormalRange: "70-100", Weight: 1.5},
		{ID: MetricTotalCholesterol, Name: "Total Cholesterol", Unit: "mg/dL", Category: CategoryBloodwork, NormalRange: "<200", Weight: 1.2},
		{ID: MetricHDL, Name: "HDL Cholesterol", Unit: "mg/dL", Category: CategoryBloodwork, NormalRange: "40-60", Weight: 1.0},
		{ID: MetricLDL, Name: "LDL Cholesterol", Unit: "mg/dL", Category: CategoryBloodwork, NormalRange: "<100", Weight: 1.2},
		{ID: MetricTriglycerides, Name: "Triglycerides", Unit: "mg/dL", Category: CategoryBloodwork, NormalRange: "<150", Weight: 1.0},
		{ID: MetricCreatinine, Name: "Creatinine", Unit: "mg/dL", Category: CategoryBloodwork, NormalRange: "0.6-1.2", Weight: 0.8},
		{ID: MetricBUN, Name: "Blood Urea Nitrogen", Unit: "mg/dL", Category: CategoryBloodwork, NormalRange: "7-20", Weight: 0.6},
		{ID: MetricALT, Name: "ALT", Unit: "U/L", Category: CategoryBloodwork, NormalRange: "7-56", Weight: 0.6},
		{ID: MetricAST, Name: "AST", Unit: "U/L", Category: CategoryBloodwork, NormalRange: "10-40", Weight: 0.6},
		{ID: MetricHbA1c, Name: "HbA1c", Unit: "%", Category: CategoryBloodwork, NormalRange: "4-5.6", Weight: 1.5},
		{ID: MetricVitaminD, Name: "Vitamin D", Unit: "ng/mL", Category: CategoryBloodwork, NormalRange: "30-100", Weight: 0.7},
		{ID: MetricTSH, Name: "TSH", Unit: "mIU/L", Category: CategoryBloodwork, NormalRange: "0.4-4.0", Weight: 0.7},

		// Lifestyle
		{
			ID: MetricSleepHours, Name: "Sleep", Unit: "hours/night", Category: CategoryLifestyle,
			NormalRange: "7-9", Weight: 1.5, Rule: RuleTiered,
			Tiers:       []Tier{{Min: 7, Max: 9, Score: 0.9}, {Min: 6, Max: 7, Score: 0.6}},
			TierDefault: 0.3,
		},
		{
			ID: MetricExerciseMinutes, Name: "Exercise", Unit: "min/week", Category: CategoryLifestyle,
			NormalRange: "150-300", Weight: 1.5, Rule: RuleTiered,
			Tiers:       []Tier{{Min: 150, Max: math.Inf(1), Score: 0.9}, {Min: 75, Max: math.Inf(1), Score: 0.6}},
			TierDefault: 0.3,
		},
		{
			ID: MetricAlcoholDrinks, Name: "Alcohol", Unit: "drinks/week", Category: CategoryLifestyle,
			NormalRange: "<7", Weight: 1.0, Rule: RuleTiered,
			Tiers:       []Tier{{Min: math.Inf(-1), Max: 7, Score: 0.8}, {Min: math.Inf(-1), Max: 14, Score: 0.5}},
			TierDefault: 0.2,
		},
		{
			ID: MetricSmokingStatus, Name: "Smoking Status", Category: CategoryLifestyle,
			NormalRange: "Never", Weight: 2.0, Rule: RuleOrdinal,
			Levels:       map[string]float64{"Never": 0.9, "Former": 0.6},
			LevelDefault: 0.2,
		},
		{
			ID: MetricStressLevel, Name: "Stress Level", Category: CategoryLifestyle,
			NormalRange: "Low", Weight: 1.0, Rule: RuleOrdinal,
			Levels:       map[string]float64{"Low": 0.9, "Moderate": 0.6},
			LevelDefault: 0.3,
		},
		{
			ID: MetricDietQuality, Name: "Diet Quality", Category: CategoryLifestyle,
			NormalRange: "Good", Weight: 1.2, Rule: RuleOrdinal,
			Levels:       map[string]float64{"Excellent": 0.9, "Good": 0.7, "Average": 0.5},
			LevelDefault: 0.2,
		},

		// Vitals
		{ID: MetricSystolicBP, Name: "Systolic Blood Pressure", Unit: "mmHg", Category: CategoryVitals, NormalRange: "90-120", Weight: 1.5},
		{ID: MetricDiastolicBP, Name: "Diastolic Blood Pressure", Unit: "mmHg", Category: CategoryVitals, NormalRange: "60-80", Weight: 1.2},
		{ID: MetricRestingHR, Name: "Resting Heart Rate", Unit: "bpm", Category: CategoryVitals, NormalRange: "60-100", Weight: 1.0},
		{ID: MetricBMI, Name: "Body Mass Index", Unit: "kg/m²", Category: CategoryVitals, NormalRange: "18.5-24.9", Weight: 1.3},
	}
}

// DefaultCatalog builds the deployment catalog. The definitions are static, so a
// failure here is a programming error.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(DefaultMetricDefinitions())
	if err != nil {
		panic(fmt.Sprintf("invalid default metric catalog: %v", err))
	}
	return catalog
}
