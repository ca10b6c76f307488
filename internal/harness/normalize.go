package harness

import (
	"encoding/json"
	"math"
	"reflect"

	"golang.org/x/text/unicode/norm"
)

// normalizeScenario puts keys in NFC and numbers in canonical form so that
// YAML and CUE sources describing the same scenario load identically.
func normalizeScenario(s *Scenario) {
	if s.Record != nil {
		rec := make(map[string]any, len(s.Record))
		for k, v := range s.Record {
			rec[norm.NFC.String(k)] = normalizeValue(v)
		}
		s.Record = rec
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		step.Key = norm.NFC.String(step.Key)
		for j, k := range step.Keys {
			step.Keys[j] = norm.NFC.String(k)
		}
		step.Value = normalizeValue(step.Value)
		if step.Expect != nil {
			step.Expect.Value = normalizeValue(step.Expect.Value)
		}
	}

	if s.Final != nil {
		final := make(map[string]FieldExpect, len(s.Final))
		for k, fe := range s.Final {
			fe.Value = normalizeValue(fe.Value)
			final[norm.NFC.String(k)] = fe
		}
		s.Final = final
	}
}

// normalizeValue maps every integral number to int64 and every other number
// to float64, recursing into maps and slices.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUint(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[norm.NFC.String(k)] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return float64(u)
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// valuesEqual compares two scenario values after normalization.
func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}
