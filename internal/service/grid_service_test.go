package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
	"datagrid/internal/service"
)

// ─────────────────────────────────────────────────────────────
// GridService tests
// ─────────────────────────────────────────────────────────────

func createTeam(t *testing.T, f *fixture) *domain.Grid {
	t.Helper()
	g, err := f.grids.CreateGrid(context.Background(), service.CreateGridInput{
		Name:    "team",
		Columns: teamColumns(),
		Rows:    teamRows(),
	})
	if err != nil {
		t.Fatalf("create grid: %v", err)
	}
	return g
}

func TestGridService_CreateAndOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := createTeam(t, f)

	if created.Config.PageSize != domain.DefaultPageSize {
		t.Errorf("expected default page size, got %d", created.Config.PageSize)
	}
	if created.Config.Columns[0].Width != domain.DefaultColumnWidth {
		t.Errorf("expected default width, got %v", created.Config.Columns[0].Width)
	}

	opened, err := f.grids.Open(ctx, "team")
	if err != nil {
		t.Fatalf("open by name: %v", err)
	}
	if opened.ID != created.ID {
		t.Errorf("open by name resolved %s, want %s", opened.ID, created.ID)
	}

	v, err := f.grids.View(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, v.RowKeys()); diff != "" {
		t.Errorf("row keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "role", "status"}, v.ColumnKeys()); diff != "" {
		t.Errorf("column keys (-want +got):\n%s", diff)
	}

	grids, err := f.grids.ListGrids()
	if err != nil || len(grids) != 1 {
		t.Fatalf("expected 1 grid, got %d (%v)", len(grids), err)
	}
}

func TestGridService_CreateRejectsInvalidRows(t *testing.T) {
	f := newFixture(t)
	rows := teamRows()
	rows[2].Key = "1"

	_, err := f.grids.CreateGrid(context.Background(), service.CreateGridInput{
		Name:    "broken",
		Columns: teamColumns(),
		Rows:    rows,
	})
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := f.grids.GetGrid("broken"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected no grid to be stored, got %v", err)
	}
}

func TestGridService_ReorderPersistsRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createTeam(t, f)

	v, err := f.grids.Dispatch(ctx, g.ID, grid.ReorderRows{From: 0, To: 2})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	want := []string{"2", "3", "1"}
	if diff := cmp.Diff(want, v.RowKeys()); diff != "" {
		t.Errorf("view rows (-want +got):\n%s", diff)
	}

	stored, err := f.grids.Store().ListRows(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, rowKeys(stored)); diff != "" {
		t.Errorf("stored rows (-want +got):\n%s", diff)
	}

	changed := f.emitter.Named(service.EventRowsChanged)
	if len(changed) != 1 {
		t.Fatalf("expected 1 rows-changed event, got %d", len(changed))
	}
	data := changed[0].Data.(map[string]any)
	if diff := cmp.Diff(want, data["keys"]); diff != "" {
		t.Errorf("event keys (-want +got):\n%s", diff)
	}
	if got := len(f.emitter.Named(service.EventViewChanged)); got != 1 {
		t.Errorf("expected 1 view-changed event, got %d", got)
	}
}

func TestGridService_NoRowEventWithoutReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createTeam(t, f)

	actions := []grid.Action{
		grid.SetQuery{Query: "engineer"},
		grid.ReorderRows{From: 1, To: 1},
		grid.DropRow{ActiveKey: "1", OverKey: "3"}, // row drag is off by default
		grid.ToggleSort{ColumnKey: "name"},
	}
	for _, a := range actions {
		if _, err := f.grids.Dispatch(ctx, g.ID, a); err != nil {
			t.Fatalf("dispatch %T: %v", a, err)
		}
	}
	if got := len(f.emitter.Named(service.EventRowsChanged)); got != 0 {
		t.Errorf("expected no rows-changed events, got %d", got)
	}

	stored, _ := f.grids.Store().ListRows(g.ID)
	if diff := cmp.Diff([]string{"1", "2", "3"}, rowKeys(stored)); diff != "" {
		t.Errorf("stored order changed (-want +got):\n%s", diff)
	}
}

func TestGridService_DispatchError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createTeam(t, f)

	_, err := f.grids.Dispatch(ctx, g.ID, grid.ReorderRows{From: 9, To: 0})
	if !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	_, err = f.grids.Dispatch(ctx, g.ID, grid.ResizeColumn{Key: "ghost", Width: 200})
	if !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if len(f.emitter.Events) != 0 {
		t.Errorf("expected no events after failed dispatches, got %d", len(f.emitter.Events))
	}

	if _, err := f.grids.Dispatch(ctx, "nope", grid.SetPage{Index: 1}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown grid, got %v", err)
	}
}

func TestGridService_PersistFailureIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createTeam(t, f)

	if _, err := f.grids.View(ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	// The store loses a row behind the open session's back.
	if err := f.grids.Store().ReplaceRows(g.ID, teamRows()[:2]); err != nil {
		t.Fatal(err)
	}

	v, err := f.grids.Dispatch(ctx, g.ID, grid.ReorderRows{From: 0, To: 2})
	var dce *grid.DataChangeError
	if !errors.As(err, &dce) {
		t.Fatalf("expected DataChangeError, got %v", err)
	}
	if diff := cmp.Diff([]string{"2", "3", "1"}, v.RowKeys()); diff != "" {
		t.Errorf("committed view (-want +got):\n%s", diff)
	}

	failed := f.emitter.Named(service.EventPersistFailed)
	if len(failed) != 1 {
		t.Fatalf("expected 1 persist-failed event, got %d", len(failed))
	}
	if got := failed[0].Data.(map[string]any)["gridId"]; got != g.ID {
		t.Errorf("event grid = %v, want %s", got, g.ID)
	}
	if got := len(f.emitter.Named(service.EventRowsChanged)); got != 0 {
		t.Errorf("expected no rows-changed event, got %d", got)
	}
}

func TestGridService_ConfigSurvivesReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createTeam(t, f)

	actions := []grid.Action{
		grid.ResizeColumn{Key: "name", Width: 40},
		grid.ToggleColumn{Key: "role"},
		grid.ReorderColumns{From: 2, To: 0},
		grid.SetPageSize{Size: 25},
		grid.SetSort{ColumnKey: "name", Desc: true},
		grid.SetQuery{Query: "ada"},
	}
	for _, a := range actions {
		if _, err := f.grids.Dispatch(ctx, g.ID, a); err != nil {
			t.Fatalf("dispatch %T: %v", a, err)
		}
	}

	f.grids.Close(g.ID)
	state, err := f.grids.State(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"status", "name", "role"}, state.Columns().Order()); diff != "" {
		t.Errorf("column order (-want +got):\n%s", diff)
	}
	name, _ := state.Columns().Column("name")
	if name.Width != domain.MinColumnWidth {
		t.Errorf("expected width floor %v, got %v", domain.MinColumnWidth, name.Width)
	}
	role, _ := state.Columns().Column("role")
	if !role.Hidden {
		t.Error("expected role to stay hidden")
	}
	if state.Page().PageSize != 25 {
		t.Errorf("expected page size 25, got %d", state.Page().PageSize)
	}
	if diff := cmp.Diff(domain.SortState{ColumnKey: "name", Desc: true}, state.Sort()); diff != "" {
		t.Errorf("sort (-want +got):\n%s", diff)
	}
	if state.Query() != "" {
		t.Errorf("query is session-only, got %q after reopen", state.Query())
	}
}

func TestGridService_Reload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createTeam(t, f)

	if _, err := f.grids.Dispatch(ctx, g.ID, grid.SetQuery{Query: "engineer"}); err != nil {
		t.Fatal(err)
	}

	rows := append(teamRows(), domain.Record{Key: "4", Fields: map[string]any{"name": "Linus", "role": "engineer"}})
	if err := f.grids.Store().ReplaceRows(g.ID, rows); err != nil {
		t.Fatal(err)
	}
	if err := f.grids.Reload(ctx, g.ID); err != nil {
		t.Fatalf("reload: %v", err)
	}

	v, _ := f.grids.View(ctx, g.ID)
	if v.Query != "engineer" {
		t.Errorf("expected query to survive reload, got %q", v.Query)
	}
	if diff := cmp.Diff([]string{"1", "3", "4"}, v.RowKeys()); diff != "" {
		t.Errorf("reloaded rows (-want +got):\n%s", diff)
	}
	if v.TotalRows != 4 {
		t.Errorf("expected 4 total rows, got %d", v.TotalRows)
	}

	if err := f.grids.Reload(ctx, "not-open"); err != nil {
		t.Errorf("reload of a closed grid should be a no-op, got %v", err)
	}
}

func TestGridService_DeleteGrid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := createTeam(t, f)

	if _, err := f.grids.View(ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.grids.DeleteGrid(ctx, "team"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.grids.View(ctx, g.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGridService_Stats(t *testing.T) {
	f := newFixture(t)
	createTeam(t, f)

	stats, err := f.grids.Stats("team")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Rows != 3 {
		t.Errorf("rows = %d, want 3", stats.Rows)
	}
	if stats.LastUpdated.IsZero() {
		t.Error("expected a last update time")
	}

	if _, err := f.grids.Stats("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
