package grid

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"datagrid/internal/domain"
)

// NextSort cycles a column through ascending, descending and unsorted.
// Selecting a different column starts it ascending.
func NextSort(current domain.SortState, columnKey string) domain.SortState {
	switch {
	case current.ColumnKey != columnKey:
		return domain.SortState{ColumnKey: columnKey}
	case !current.Desc:
		return domain.SortState{ColumnKey: columnKey, Desc: true}
	default:
		return domain.SortState{}
	}
}

// Sort returns records ordered by the sorted column's field. The sort is
// stable and never touches the input slice. Missing values go last.
func Sort(records []domain.Record, columns *ColumnRegistry, s domain.SortState) []domain.Record {
	if !s.Active() {
		return records
	}
	col, ok := columns.Column(s.ColumnKey)
	if !ok {
		return records
	}

	out := make([]domain.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value(col.DataIndex), out[j].Value(col.DataIndex)
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		c := compareValues(a, b)
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// compareValues orders numbers before text. Numbers compare numerically,
// text case-insensitively.
func compareValues(a, b any) int {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(strings.ToLower(FormatValue(a)), strings.ToLower(FormatValue(b)))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f)
	default:
		return 0, false
	}
}
