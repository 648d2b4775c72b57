package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
	"datagrid/internal/service"
	"datagrid/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────

type fixture struct {
	grids *service.GridService
	store domain.GridStore
	id    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "datagrid.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := storage.NewGridStore(db)
	grids := service.NewGridService(store, nil, grid.DefaultOptions(), nil)
	g, err := grids.CreateGrid(context.Background(), service.CreateGridInput{
		Name: "crew",
		Columns: []domain.Column{
			{Key: "name", Title: "Name"},
			{Key: "role", Title: "Role"},
			{Key: "status", Title: "Status"},
		},
		Rows: []domain.Record{
			{Key: "1", Fields: map[string]any{"name": "Ada", "role": "engineer", "status": "active"}},
			{Key: "2", Fields: map[string]any{"name": "Grace", "role": "admiral", "status": "retired"}},
			{Key: "3", Fields: map[string]any{"name": "Alan", "role": "engineer", "status": "active"}},
		},
	})
	if err != nil {
		t.Fatalf("create grid: %v", err)
	}
	return &fixture{grids: grids, store: store, id: g.ID}
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	m, err := New(context.Background(), f.grids, "crew")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func storedKeys(t *testing.T, store domain.GridStore, id string) []string {
	t.Helper()
	rows, err := store.ListRows(id)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return keys
}

// ─────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────

func TestNew_RendersGrid(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	out := m.View()
	for _, want := range []string{"crew", "3 rows", "page 1/1", "▸Name", "Grace"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestNew_UnknownGrid(t *testing.T) {
	f := newFixture(t)
	if _, err := New(context.Background(), f.grids, "nope"); err == nil {
		t.Fatal("expected error for unknown grid")
	}
}

// ─────────────────────────────────────────────────────────────
// Rows
// ─────────────────────────────────────────────────────────────

func TestMoveRow_PersistsOrder(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "J")

	if diff := cmp.Diff([]string{"2", "1", "3"}, m.view.RowKeys()); diff != "" {
		t.Errorf("view rows mismatch (-want +got):\n%s", diff)
	}
	if m.table.Cursor() != 1 {
		t.Errorf("cursor should follow the moved row, got %d", m.table.Cursor())
	}
	if diff := cmp.Diff([]string{"2", "1", "3"}, storedKeys(t, f.store, f.id)); diff != "" {
		t.Errorf("stored rows mismatch (-want +got):\n%s", diff)
	}

	m = press(t, m, "K")
	if diff := cmp.Diff([]string{"1", "2", "3"}, m.view.RowKeys()); diff != "" {
		t.Errorf("view rows after K mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveRow_PageEdge(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "K")
	if !strings.Contains(m.status, "edge") {
		t.Errorf("expected edge status, got %q", m.status)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, storedKeys(t, f.store, f.id)); diff != "" {
		t.Errorf("rows should be unchanged (-want +got):\n%s", diff)
	}
}

func TestMoveRow_BlockedWhileSorted(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "s", "J")
	if !strings.Contains(m.status, "sort") {
		t.Errorf("expected sort status, got %q", m.status)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, storedKeys(t, f.store, f.id)); diff != "" {
		t.Errorf("rows should be unchanged (-want +got):\n%s", diff)
	}
}

func TestMoveRow_StaleViewRefreshes(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	rows := []domain.Record{
		{Key: "7", Fields: map[string]any{"name": "Edsger"}},
		{Key: "8", Fields: map[string]any{"name": "Donald"}},
		{Key: "9", Fields: map[string]any{"name": "Barbara"}},
	}
	if err := f.store.ReplaceRows(f.id, rows); err != nil {
		t.Fatal(err)
	}
	if err := f.grids.Reload(context.Background(), f.id); err != nil {
		t.Fatal(err)
	}

	m = press(t, m, "J")
	if m.status != staleStatus {
		t.Errorf("expected stale status, got %q", m.status)
	}
	if diff := cmp.Diff([]string{"7", "8", "9"}, m.view.RowKeys()); diff != "" {
		t.Errorf("view should be refreshed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"7", "8", "9"}, storedKeys(t, f.store, f.id)); diff != "" {
		t.Errorf("no row should move (-want +got):\n%s", diff)
	}
}

// ─────────────────────────────────────────────────────────────
// Columns
// ─────────────────────────────────────────────────────────────

func TestMoveColumn(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "tab", ">")

	if diff := cmp.Diff([]string{"name", "status", "role"}, m.view.ColumnKeys()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if m.colCursor != 2 {
		t.Errorf("focus should follow the column, got %d", m.colCursor)
	}

	g, err := f.store.GetGrid(f.id)
	if err != nil {
		t.Fatal(err)
	}
	if g.Config.Columns[2].Key != "role" {
		t.Errorf("column order not persisted: %+v", g.Config.Columns)
	}
}

func TestHideAndShowColumns(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "tab", "tab", "h", "h")

	if diff := cmp.Diff([]string{"name"}, m.view.ColumnKeys()); diff != "" {
		t.Errorf("columns after hiding mismatch (-want +got):\n%s", diff)
	}

	m = press(t, m, "H")
	if diff := cmp.Diff([]string{"name", "role", "status"}, m.view.ColumnKeys()); diff != "" {
		t.Errorf("columns after show all mismatch (-want +got):\n%s", diff)
	}
}

func TestResizeColumn(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "+")
	if got := m.view.Columns[0].Width; got != 170 {
		t.Errorf("width after + = %v, want 170", got)
	}

	m = press(t, m, "-", "-", "-", "-")
	if got := m.view.Columns[0].Width; got != domain.MinColumnWidth {
		t.Errorf("width should stop at the floor, got %v", got)
	}
}

func TestSortToggle(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "s")
	if diff := cmp.Diff([]string{"1", "3", "2"}, m.view.RowKeys()); diff != "" {
		t.Errorf("ascending rows mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(m.View(), "Name ↑") {
		t.Error("header should mark the sort direction")
	}

	m = press(t, m, "s", "s")
	if m.view.Sort.Active() {
		t.Errorf("third toggle should clear the sort, got %+v", m.view.Sort)
	}
}

// ─────────────────────────────────────────────────────────────
// Search and paging
// ─────────────────────────────────────────────────────────────

func TestSearch(t *testing.T) {
	f := newFixture(t)
	m := press(t, f.model(t), "/", "e", "n", "g")

	if !m.searching {
		t.Fatal("expected search mode")
	}
	if diff := cmp.Diff([]string{"1", "3"}, m.view.RowKeys()); diff != "" {
		t.Errorf("filtered rows mismatch (-want +got):\n%s", diff)
	}

	m = press(t, m, "enter")
	if m.searching || m.view.Query != "eng" {
		t.Errorf("enter should keep the query, searching=%v query=%q", m.searching, m.view.Query)
	}

	m = press(t, m, "/", "esc")
	if m.view.Query != "" || len(m.view.Rows) != 3 {
		t.Errorf("esc should clear the query, got %q with %d rows", m.view.Query, len(m.view.Rows))
	}
}

func TestSearchDisabled(t *testing.T) {
	f := newFixture(t)
	settings := domain.DefaultSettings()
	settings.Searchable = false
	if _, err := f.grids.Dispatch(context.Background(), f.id, grid.UpdateSettings{Settings: settings}); err != nil {
		t.Fatal(err)
	}

	m := press(t, f.model(t), "/")
	if m.searching {
		t.Error("search should stay closed")
	}
	if !strings.Contains(m.status, "disabled") {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.grids.Dispatch(ctx, f.id, grid.SetPageSize{Size: 2}); err != nil {
		t.Fatal(err)
	}

	m := press(t, f.model(t), "right")
	if m.view.PageIndex != 1 {
		t.Fatalf("expected page 1, got %d", m.view.PageIndex)
	}
	if diff := cmp.Diff([]string{"3"}, m.view.RowKeys()); diff != "" {
		t.Errorf("second page mismatch (-want +got):\n%s", diff)
	}

	m = press(t, m, "right", "left")
	if m.view.PageIndex != 0 {
		t.Errorf("expected page 0, got %d", m.view.PageIndex)
	}

	m = press(t, m, "]")
	if m.view.PageSize != 15 {
		t.Errorf("] from 2 should move to 15, got %d", m.view.PageSize)
	}
}

func TestStepPageSize(t *testing.T) {
	tests := []struct {
		current, dir, want int
	}{
		{15, 1, 25},
		{25, -1, 15},
		{15, -1, 15},
		{100, 1, 100},
		{30, 1, 50},
		{30, -1, 25},
	}
	for _, tt := range tests {
		if got := stepPageSize(tt.current, tt.dir); got != tt.want {
			t.Errorf("stepPageSize(%d, %d) = %d, want %d", tt.current, tt.dir, got, tt.want)
		}
	}
}

// ─────────────────────────────────────────────────────────────
// External changes
// ─────────────────────────────────────────────────────────────

func TestGridChangedRefreshes(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	if _, err := f.grids.Dispatch(context.Background(), f.id, grid.ReorderRows{From: 2, To: 0}); err != nil {
		t.Fatal(err)
	}

	next, _ := m.Update(gridChangedMsg{gridID: "other"})
	m = next.(Model)
	if diff := cmp.Diff([]string{"1", "2", "3"}, m.view.RowKeys()); diff != "" {
		t.Errorf("other grids should be ignored (-want +got):\n%s", diff)
	}

	next, _ = m.Update(gridChangedMsg{gridID: f.id})
	m = next.(Model)
	if diff := cmp.Diff([]string{"3", "1", "2"}, m.view.RowKeys()); diff != "" {
		t.Errorf("refreshed rows mismatch (-want +got):\n%s", diff)
	}
}

func TestGridIDOf(t *testing.T) {
	if got := gridIDOf(map[string]any{"gridId": "g1", "revision": uint64(2)}); got != "g1" {
		t.Errorf("map[string]any: got %q", got)
	}
	if got := gridIDOf(map[string]string{"gridId": "g2"}); got != "g2" {
		t.Errorf("map[string]string: got %q", got)
	}
	if got := gridIDOf("g3"); got != "" {
		t.Errorf("unexpected id %q", got)
	}
}

func TestProgramEmitter_Detached(t *testing.T) {
	e := &ProgramEmitter{}
	// Must not panic or block without a program.
	e.Emit(context.Background(), service.EventViewChanged, map[string]any{"gridId": "g1"})
}
