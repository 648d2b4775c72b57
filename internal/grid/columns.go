package grid

import (
	"math"

	"datagrid/internal/domain"
)

// ColumnRegistry holds column definitions and their display order.
// Order and visibility are independent: a hidden column keeps its slot.
type ColumnRegistry struct {
	order []string
	defs  map[string]domain.Column
}

// NewColumnRegistry builds a registry in the order of cols.
// Missing widths default to DefaultColumnWidth and a missing DataIndex
// falls back to the column key.
func NewColumnRegistry(cols []domain.Column) (*ColumnRegistry, error) {
	r := &ColumnRegistry{
		order: make([]string, 0, len(cols)),
		defs:  make(map[string]domain.Column, len(cols)),
	}
	for _, c := range cols {
		if c.Key == "" {
			return nil, &domain.KeyError{Err: domain.ErrEmptyKey}
		}
		if _, dup := r.defs[c.Key]; dup {
			return nil, &domain.KeyError{Key: c.Key, Err: domain.ErrDuplicateKey}
		}
		if c.Width <= 0 || math.IsNaN(c.Width) || math.IsInf(c.Width, 0) {
			c.Width = domain.DefaultColumnWidth
		}
		if c.DataIndex == "" {
			c.DataIndex = c.Key
		}
		if c.Title == "" {
			c.Title = c.Key
		}
		r.order = append(r.order, c.Key)
		r.defs[c.Key] = c
	}
	return r, nil
}

// ClampWidth raises widths below MinColumnWidth to the floor.
func ClampWidth(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < domain.MinColumnWidth {
		return domain.MinColumnWidth
	}
	return w
}

func (r *ColumnRegistry) Len() int { return len(r.order) }

// Order returns the column keys in display order, hidden ones included.
func (r *ColumnRegistry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// IndexOf returns the position of key in the order sequence.
func (r *ColumnRegistry) IndexOf(key string) (int, bool) {
	for i, k := range r.order {
		if k == key {
			return i, true
		}
	}
	return 0, false
}

func (r *ColumnRegistry) Column(key string) (domain.Column, bool) {
	c, ok := r.defs[key]
	return c, ok
}

// Columns returns every column in display order.
func (r *ColumnRegistry) Columns() []domain.Column {
	out := make([]domain.Column, len(r.order))
	for i, k := range r.order {
		out[i] = r.defs[k]
	}
	return out
}

// Visible returns the non-hidden columns in display order.
func (r *ColumnRegistry) Visible() []domain.Column {
	out := make([]domain.Column, 0, len(r.order))
	for _, k := range r.order {
		if c := r.defs[k]; !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

// ReorderColumns moves the column at oldIndex to newIndex.
func (r *ColumnRegistry) ReorderColumns(oldIndex, newIndex int) (*ColumnRegistry, error) {
	order, err := Move(r.order, oldIndex, newIndex)
	if err != nil {
		return nil, err
	}
	if oldIndex == newIndex {
		return r, nil
	}
	return &ColumnRegistry{order: order, defs: r.defs}, nil
}

// SetWidth sets the width of a column, clamped to MinColumnWidth.
func (r *ColumnRegistry) SetWidth(key string, width float64) (*ColumnRegistry, error) {
	return r.update(key, func(c *domain.Column) { c.Width = ClampWidth(width) })
}

// ToggleVisibility flips the hidden flag of a column.
func (r *ColumnRegistry) ToggleVisibility(key string) (*ColumnRegistry, error) {
	return r.update(key, func(c *domain.Column) { c.Hidden = !c.Hidden })
}

// SetVisibility shows or hides a column explicitly.
func (r *ColumnRegistry) SetVisibility(key string, visible bool) (*ColumnRegistry, error) {
	return r.update(key, func(c *domain.Column) { c.Hidden = !visible })
}

// update copies the definitions, applies fn to one column and shares the order.
func (r *ColumnRegistry) update(key string, fn func(*domain.Column)) (*ColumnRegistry, error) {
	c, ok := r.defs[key]
	if !ok {
		return nil, &domain.UnknownColumnError{Key: key}
	}
	defs := make(map[string]domain.Column, len(r.defs))
	for k, v := range r.defs {
		defs[k] = v
	}
	fn(&c)
	defs[key] = c
	return &ColumnRegistry{order: r.order, defs: defs}, nil
}
