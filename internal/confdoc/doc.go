// Package confdoc provides the value semantics of the gateway configuration
// document: structural cloning, canonical equality, deep merge, RFC 7386
// merge patches, path access and content hashing.
//
// A Document is the JSON-decoded tree: objects are map[string]any, arrays
// are []any, scalars are string, bool, float64 or nil. Helpers accept a few
// Go-native shapes (int, []string, map[string]string, time.Time) and
// normalize them to the JSON shape on the way in.
package confdoc

import (
	"encoding/json"
	"math"
	"time"
)

// Document is a configuration tree.
type Document = map[string]any

// Clone returns a deep copy of doc. A nil document clones to an empty one.
func Clone(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	out, _ := CloneValue(doc).(map[string]any)
	return out
}

// CloneValue deep-copies a JSON-shaped value, normalizing Go-native shapes.
// Values of unknown kinds are returned unchanged.
func CloneValue(v any) any {
	switch val := Normalize(v).(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return val
	}
}

// Normalize converts common Go-native values into their JSON-shaped
// equivalent. Containers are converted one level deep; CloneValue recurses.
func Normalize(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = m
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	default:
		return v
	}
}

// AsMap returns v as an object, or nil when v is not one.
func AsMap(v any) map[string]any {
	m, _ := Normalize(v).(map[string]any)
	return m
}

// AsSlice returns v as an array, or nil when v is not one.
func AsSlice(v any) []any {
	s, _ := Normalize(v).([]any)
	return s
}

// AsString returns v as a string when it is one.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsStrings returns the string elements of an array value. ok is false when
// v is absent or not an array; non-string elements are skipped.
func AsStrings(v any) ([]string, bool) {
	items := AsSlice(v)
	if items == nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// AsFloat returns the numeric value of v, if it is a finite number.
func AsFloat(v any) (float64, bool) {
	f, ok := Normalize(v).(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
