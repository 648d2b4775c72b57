package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"datagrid/internal/config"
	mcpserver "datagrid/internal/mcp"
	"datagrid/internal/service"
)

func newTestApp(t *testing.T) (*App, *service.MockEmitter) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Grid.PageSize = 2

	emitter := &service.MockEmitter{}
	a, err := New(cfg, nil, emitter)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a, emitter
}

func TestNew_CreatesDatabase(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := os.Stat(a.cfg.DatabasePath()); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}

func TestImportUsesConfiguredDefaults(t *testing.T) {
	a, emitter := newTestApp(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "crew.csv")
	if err := os.WriteFile(path, []byte("id,name\n1,Ada\n2,Grace\n3,Alan\n"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := a.Imports.ImportFile(ctx, path, "crew", "id")
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.RowsWritten != 3 {
		t.Errorf("rows written = %d, want 3", res.RowsWritten)
	}

	v, err := a.Grids.View(ctx, "crew")
	if err != nil {
		t.Fatal(err)
	}
	if v.PageSize != 2 || v.PageCount != 2 {
		t.Errorf("expected configured page size 2 over 2 pages, got size %d pages %d", v.PageSize, v.PageCount)
	}
	if diff := cmp.Diff([]string{"1", "2"}, v.RowKeys()); diff != "" {
		t.Errorf("first page mismatch (-want +got):\n%s", diff)
	}
	if len(emitter.Named(service.EventImported)) != 1 {
		t.Errorf("expected one import event, got %+v", emitter.Events)
	}
}

func TestApprovals(t *testing.T) {
	a, _ := newTestApp(t)

	pending, err := a.PendingApprovals()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending actions, got %+v", pending)
	}

	_, err = a.db.Conn().Exec(
		`INSERT INTO mcp_approvals (id, tool, description) VALUES ('a1', 'delete_grid', 'Delete grid crew')`,
	)
	if err != nil {
		t.Fatal(err)
	}
	pending, err = a.PendingApprovals()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Tool != "delete_grid" {
		t.Fatalf("unexpected pending actions: %+v", pending)
	}

	if err := a.ResolveApproval("a1", true); err != nil {
		t.Fatalf("ResolveApproval: %v", err)
	}
	if err := a.ResolveApproval("a1", false); !errors.Is(err, mcpserver.ErrNoPendingAction) {
		t.Errorf("resolving twice: expected ErrNoPendingAction, got %v", err)
	}
}
