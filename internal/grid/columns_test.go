package grid_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

func TestNewColumnRegistry_Defaults(t *testing.T) {
	r, err := grid.NewColumnRegistry([]domain.Column{
		{Key: "a"},
		{Key: "b", Title: "Bee", DataIndex: "bee", Width: 220},
		{Key: "c", Width: math.NaN()},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []domain.Column{
		{Key: "a", Title: "a", DataIndex: "a", Width: domain.DefaultColumnWidth},
		{Key: "b", Title: "Bee", DataIndex: "bee", Width: 220},
		{Key: "c", Title: "c", DataIndex: "c", Width: domain.DefaultColumnWidth},
	}
	if diff := cmp.Diff(want, r.Columns(), cmpopts.IgnoreFields(domain.Column{}, "Render")); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestNewColumnRegistry_Validation(t *testing.T) {
	if _, err := grid.NewColumnRegistry([]domain.Column{{Key: "a"}, {Key: "a"}}); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := grid.NewColumnRegistry([]domain.Column{{Title: "no key"}}); !errors.Is(err, domain.ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestColumnRegistry_ToggleVisibility(t *testing.T) {
	r, _ := grid.NewColumnRegistry([]domain.Column{{Key: "A"}, {Key: "B"}})

	next, err := r.ToggleVisibility("A")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := next.Column("A")
	if !a.Hidden {
		t.Error("expected A to be hidden")
	}
	if diff := cmp.Diff([]string{"A", "B"}, next.Order()); diff != "" {
		t.Errorf("order changed (-want +got):\n%s", diff)
	}
	var visible []string
	for _, c := range next.Visible() {
		visible = append(visible, c.Key)
	}
	if diff := cmp.Diff([]string{"B"}, visible); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}

	if a, _ := r.Column("A"); a.Hidden {
		t.Error("original registry modified")
	}
}

func TestColumnRegistry_UnhideKeepsPosition(t *testing.T) {
	r, _ := grid.NewColumnRegistry([]domain.Column{{Key: "A"}, {Key: "B"}, {Key: "C"}})
	r, _ = r.SetVisibility("A", false)
	r, _ = r.ReorderColumns(1, 2)
	r, _ = r.SetVisibility("A", true)

	var visible []string
	for _, c := range r.Visible() {
		visible = append(visible, c.Key)
	}
	if diff := cmp.Diff([]string{"A", "C", "B"}, visible); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
}

func TestColumnRegistry_SetWidthFloor(t *testing.T) {
	r, _ := grid.NewColumnRegistry([]domain.Column{{Key: "a"}})

	tests := []struct {
		in, want float64
	}{
		{-10, domain.MinColumnWidth},
		{0, domain.MinColumnWidth},
		{99.9, domain.MinColumnWidth},
		{100, 100},
		{100.5, 100.5},
		{400, 400},
		{math.Inf(1), domain.MinColumnWidth},
	}
	for _, tt := range tests {
		next, err := r.SetWidth("a", tt.in)
		if err != nil {
			t.Fatal(err)
		}
		c, _ := next.Column("a")
		if c.Width != tt.want {
			t.Errorf("SetWidth(%v) = %v, want %v", tt.in, c.Width, tt.want)
		}
	}

	if _, err := r.SetWidth("zzz", 200); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestColumnRegistry_ReorderColumns(t *testing.T) {
	r, _ := grid.NewColumnRegistry([]domain.Column{{Key: "A"}, {Key: "B"}, {Key: "C"}})

	next, err := r.ReorderColumns(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"C", "A", "B"}, next.Order()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if i, ok := next.IndexOf("B"); !ok || i != 2 {
		t.Errorf("IndexOf(B) = %d, %v", i, ok)
	}

	same, _ := r.ReorderColumns(1, 1)
	if same != r {
		t.Error("no-op reorder should return the same registry")
	}
	if _, err := r.ReorderColumns(0, 3); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}
