package grid

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"datagrid/internal/domain"
)

// Filter returns the records where at least one field value contains query,
// ignoring case. Relative order is preserved. A blank query matches everything.
func Filter(records []domain.Record, query string) []domain.Record {
	if strings.TrimSpace(query) == "" {
		return records
	}
	needle := strings.ToLower(query)

	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if matches(rec, needle) {
			out = append(out, rec)
		}
	}
	return out
}

func matches(rec domain.Record, needle string) bool {
	for _, v := range rec.Fields {
		if strings.Contains(strings.ToLower(FormatValue(v)), needle) {
			return true
		}
	}
	return false
}

// FormatValue converts a field value to its string form.
// Whole floats print without a fractional part, nil prints as "".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
