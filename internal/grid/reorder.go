package grid

import "datagrid/internal/domain"

// Move returns a copy of seq with the element at from removed and
// reinserted at to. Elements between the two positions shift by one.
// seq itself is never modified.
func Move[T any](seq []T, from, to int) ([]T, error) {
	n := len(seq)
	if from < 0 || from >= n {
		return nil, &domain.IndexOutOfRangeError{Index: from, Length: n}
	}
	if to < 0 || to >= n {
		return nil, &domain.IndexOutOfRangeError{Index: to, Length: n}
	}

	out := make([]T, n)
	copy(out, seq)
	if from == to {
		return out, nil
	}

	item := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = item
	return out, nil
}

// dropTarget resolves a drag from active onto over into positions.
// ok is false for drops that must not commit anything: no target,
// or a target equal to the source.
func dropTarget(indexOf func(string) (int, bool), active, over string) (from, to int, ok bool, missing string) {
	if over == "" || active == over {
		return 0, 0, false, ""
	}
	from, found := indexOf(active)
	if !found {
		return 0, 0, false, active
	}
	to, found = indexOf(over)
	if !found {
		return 0, 0, false, over
	}
	return from, to, from != to, ""
}
