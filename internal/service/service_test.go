package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
	"datagrid/internal/service"
	"datagrid/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────

type fixture struct {
	db      *storage.DB
	grids   *service.GridService
	imports *service.ImportService
	emitter *service.MockEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "datagrid.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	emitter := &service.MockEmitter{}
	grids := service.NewGridService(storage.NewGridStore(db), emitter, grid.DefaultOptions(), nil)
	imports := service.NewImportService(storage.NewImportStore(db), grids, emitter, service.ImportOptions{
		WatchDebounce: 50 * time.Millisecond,
	}, nil)
	t.Cleanup(imports.Stop)

	return &fixture{db: db, grids: grids, imports: imports, emitter: emitter}
}

func teamColumns() []domain.Column {
	return []domain.Column{
		{Key: "name", Title: "Name", DataIndex: "name"},
		{Key: "role", Title: "Role", DataIndex: "role"},
		{Key: "status", Title: "Status", DataIndex: "status"},
	}
}

func teamRows() []domain.Record {
	return []domain.Record{
		{Key: "1", Fields: map[string]any{"name": "Ada", "role": "engineer", "status": "active"}},
		{Key: "2", Fields: map[string]any{"name": "Grace", "role": "admiral", "status": "retired"}},
		{Key: "3", Fields: map[string]any{"name": "Alan", "role": "engineer", "status": "active"}},
	}
}

func rowKeys(rows []domain.Record) []string {
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
	}
	return keys
}

// ─────────────────────────────────────────────────────────────
// RunningJobsGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("job-1") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("job-1") {
		t.Fatal("expected second TryLock for same job to fail")
	}
	if !g.TryLock("job-2") {
		t.Fatal("expected TryLock for different job to succeed")
	}
	if !g.Running("job-1") {
		t.Error("expected job-1 to be reported as running")
	}
	g.Unlock("job-1")
	g.Unlock("job-2")

	if g.Running("job-1") {
		t.Error("expected job-1 to be released")
	}
	if !g.TryLock("job-1") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("job-1")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard

	if !g.TryLock("job-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("job-a")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventViewChanged, map[string]string{"gridId": "g1"})
	m.Emit(ctx, service.EventRowsChanged, nil)
	m.Emit(ctx, service.EventViewChanged, nil)

	if len(m.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(m.Events))
	}
	if got := len(m.Named(service.EventViewChanged)); got != 2 {
		t.Errorf("expected 2 view events, got %d", got)
	}
	if m.Events[len(m.Events)-1].Event != service.EventViewChanged {
		t.Errorf("unexpected last event %q", m.Events[len(m.Events)-1].Event)
	}
}
