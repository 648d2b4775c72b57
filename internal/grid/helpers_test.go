package grid_test

import (
	"fmt"
	"testing"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

func employees() []domain.Record {
	return []domain.Record{
		{Key: "1", Fields: map[string]any{"name": "Ada Lovelace", "department": "Engineering", "experience": 12.0, "status": "active"}},
		{Key: "2", Fields: map[string]any{"name": "Grace Hopper", "department": "Research", "experience": 30.0, "status": "active"}},
		{Key: "3", Fields: map[string]any{"name": "Alan Turing", "department": "Research", "experience": 8.0, "status": "inactive"}},
		{Key: "4", Fields: map[string]any{"name": "Linus Torvalds", "department": "Engineering", "experience": 25.0, "status": "active"}},
		{Key: "5", Fields: map[string]any{"name": "Barbara Liskov", "department": "Academia", "status": "pending"}},
	}
}

func employeeColumns() []domain.Column {
	return []domain.Column{
		{Key: "name", Title: "Name"},
		{Key: "department", Title: "Department"},
		{Key: "experience", Title: "Experience", Width: 120},
		{Key: "status", Title: "Status"},
	}
}

func numbered(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{Key: fmt.Sprint(i), Fields: map[string]any{"n": float64(i)}}
	}
	return out
}

func keysOf(records []domain.Record) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key
	}
	return keys
}

func mustState(t *testing.T, opts grid.Options) grid.State {
	t.Helper()
	s, err := grid.NewState(employeeColumns(), employees(), opts)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	return s
}

func mustApply(t *testing.T, s grid.State, a grid.Action) grid.State {
	t.Helper()
	next, err := grid.Apply(s, a)
	if err != nil {
		t.Fatalf("Apply(%T): %v", a, err)
	}
	return next
}
