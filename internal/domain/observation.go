package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValueKind distinguishes numeric from enumerated observation values.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueNumber
	ValueLevel
)

// Value is an observed metric value: either a number or an enumerated level.
// The zero Value means "not observed".
type Value struct {
	kind  ValueKind
	num   float64
	level string
}

// NumberValue wraps a numeric observation.
func NumberValue(v float64) Value {
	return Value{kind: ValueNumber, num: v}
}

// LevelValue wraps an enumerated observation such as "Never" or "Moderate".
func LevelValue(level string) Value {
	return Value{kind: ValueLevel, level: level}
}

// Kind returns the value kind.
func (v Value) Kind() ValueKind { return v.kind }

// Observed reports whether the value carries data.
func (v Value) Observed() bool { return v.kind != ValueNone }

// Number returns the numeric value and whether the value is numeric.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == ValueNumber
}

// Level returns the enumerated value and whether the value is a level.
func (v Value) Level() (string, bool) {
	return v.level, v.kind == ValueLevel
}

// MarshalJSON encodes numbers as JSON numbers and levels as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueLevel:
		return json.Marshal(v.level)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, a string or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Value{}
	case float64:
		*v = NumberValue(t)
	case string:
		*v = LevelValue(t)
	default:
		return fmt.Errorf("unsupported observation value %s", string(data))
	}
	return nil
}

// ObservationSet is one category's observations for an assessment.
type ObservationSet struct {
	ID       string             `json:"id,omitempty"`
	OwnerID  string             `json:"owner_id,omitempty"`
	Date     time.Time          `json:"date"`
	Category Category           `json:"category"`
	Values   map[MetricID]Value `json:"values"`
}

// NewObservationSet creates an empty set for category.
func NewObservationSet(category Category) *ObservationSet {
	return &ObservationSet{
		Category: category,
		Values:   make(map[MetricID]Value),
	}
}

// Set records an observation.
func (s *ObservationSet) Set(id MetricID, v Value) *ObservationSet {
	if s.Values == nil {
		s.Values = make(map[MetricID]Value)
	}
	s.Values[id] = v
	return s
}

// Get returns the observation for id, if any.
func (s *ObservationSet) Get(id MetricID) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.Values[id]
	if !ok || !v.Observed() {
		return Value{}, false
	}
	return v, true
}

// Number returns the numeric observation for id, if observed.
func (s *ObservationSet) Number(id MetricID) (float64, bool) {
	v, ok := s.Get(id)
	if !ok {
		return 0, false
	}
	return v.Number()
}

// IDs returns the observed metric ids in sorted order.
func (s *ObservationSet) IDs() []MetricID {
	if s == nil {
		return nil
	}
	ids := make([]MetricID, 0, len(s.Values))
	for id, v := range s.Values {
		if v.Observed() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of observed metrics.
func (s *ObservationSet) Len() int {
	return len(s.IDs())
}

// ParseObservationSet converts a loosely typed request map into a typed set.
// Numeric metrics accept JSON numbers and numeric strings; non-finite or negative
// numbers are treated as not observed. Ordinal metrics accept only their levels.
// Keys that are not in the catalog are kept with a best-effort value so that the
// scoring engine can apply its catalog policy; the returned slice lists them.
func ParseObservationSet(catalog *Catalog, category Category, raw map[string]any) (*ObservationSet, []MetricID) {
	set := NewObservationSet(category)
	var unknown []MetricID

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		id := MetricID(key)
		rawValue := raw[key]
		if rawValue == nil {
			continue
		}

		def, known := catalog.Lookup(id)
		if !known || def.Category != category {
			unknown = append(unknown, id)
			if v, ok := looseValue(rawValue); ok {
				set.Set(id, v)
			}
			continue
		}

		if def.IsOrdinal() {
			level, ok := rawValue.(string)
			if !ok {
				continue
			}
			level = strings.TrimSpace(level)
			if !def.AllowsLevel(level) {
				continue
			}
			set.Set(id, LevelValue(level))
			continue
		}

		if n, ok := toNumber(rawValue); ok {
			set.Set(id, NumberValue(n))
		}
	}
	return set, unknown
}

func looseValue(raw any) (Value, bool) {
	if n, ok := toNumber(raw); ok {
		return NumberValue(n), true
	}
	if s, ok := raw.(string); ok && s != "" {
		return LevelValue(s), true
	}
	return Value{}, false
}

func toNumber(raw any) (float64, bool) {
	var n float64
	switch t := raw.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, false
	}
	return n, true
}
