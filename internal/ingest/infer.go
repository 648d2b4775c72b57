package ingest

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// InferType maps a decoded value to a schema field type.
func InferType(v any) string {
	switch v.(type) {
	case float64, float32, int, int64, int32:
		return "number"
	case bool:
		return "boolean"
	case time.Time:
		return "datetime"
	default:
		return "text"
	}
}

// InferSchema builds a schema from the fields present in records.
// Field order follows first appearance; keys of one record are taken in
// lexical order.
func InferSchema(records []Record) *Schema {
	return DeriveSchema(records, nil)
}

// InferValue parses text cells as numbers or booleans where possible.
// Empty cells become nil. "NaN" and "Inf" stay text; rows are stored as JSON.
func InferValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	return s
}

// FlattenMap keeps scalar values and serializes nested objects and arrays
// as JSON strings.
func FlattenMap(m map[string]any) map[string]any {
	flat := make(map[string]any, len(m))
	for k, v := range m {
		switch v.(type) {
		case string, float64, bool, nil:
			flat[k] = v
		default:
			b, _ := json.Marshal(v)
			flat[k] = string(b)
		}
	}
	return flat
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
