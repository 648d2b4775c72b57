package grid_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

func TestNewRecordStore_Validation(t *testing.T) {
	_, err := grid.NewRecordStore([]domain.Record{{Key: "a"}, {Key: "a"}})
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	_, err = grid.NewRecordStore([]domain.Record{{Key: "a"}, {Key: ""}})
	if !errors.Is(err, domain.ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}

	s, err := grid.NewRecordStore(nil)
	if err != nil {
		t.Fatalf("empty store: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d rows", s.Len())
	}
}

func TestRecordStore_ReorderRows(t *testing.T) {
	s, err := grid.NewRecordStore([]domain.Record{{Key: "1"}, {Key: "2"}, {Key: "3"}})
	if err != nil {
		t.Fatal(err)
	}

	next, err := s.ReorderRows(0, 2)
	if err != nil {
		t.Fatalf("ReorderRows: %v", err)
	}
	if diff := cmp.Diff([]string{"2", "3", "1"}, next.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, s.Keys()); diff != "" {
		t.Errorf("original store modified (-want +got):\n%s", diff)
	}

	if i, ok := next.IndexOf("1"); !ok || i != 2 {
		t.Errorf("IndexOf(1) = %d, %v; want 2, true", i, ok)
	}
	if _, ok := next.Get("missing"); ok {
		t.Error("expected Get(missing) to fail")
	}
}

func TestRecordStore_ReorderRowsNoop(t *testing.T) {
	s, _ := grid.NewRecordStore([]domain.Record{{Key: "1"}, {Key: "2"}})
	for i := 0; i < s.Len(); i++ {
		next, err := s.ReorderRows(i, i)
		if err != nil {
			t.Fatal(err)
		}
		if next != s {
			t.Errorf("ReorderRows(%d, %d) should return the same store", i, i)
		}
	}

	if _, err := s.ReorderRows(0, 5); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRecordStore_RecordsIsCopy(t *testing.T) {
	s, _ := grid.NewRecordStore([]domain.Record{{Key: "1"}, {Key: "2"}})
	rows := s.Records()
	rows[0] = domain.Record{Key: "x"}

	if diff := cmp.Diff([]string{"1", "2"}, s.Keys()); diff != "" {
		t.Errorf("store modified through Records (-want +got):\n%s", diff)
	}
}
