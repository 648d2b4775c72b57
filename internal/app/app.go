// Package app wires configuration, storage and services together and hands
// them to a front end: the terminal UI, the MCP server or a one-shot command.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datagrid/internal/config"
	"datagrid/internal/grid"
	mcpserver "datagrid/internal/mcp"
	"datagrid/internal/service"
	"datagrid/internal/storage"

	// Register the import sources.
	_ "datagrid/internal/ingest/sources"
)

// shutdownGrace bounds how long Shutdown waits for running imports.
const shutdownGrace = 10 * time.Second

// App owns the database and the services built on it.
type App struct {
	cfg *config.Config
	log *slog.Logger
	db  *storage.DB

	Grids   *service.GridService
	Imports *service.ImportService
}

// New opens the database named by cfg and builds the services. emitter
// receives grid and import events; nil drops them.
func New(cfg *config.Config, logger *slog.Logger, emitter service.EventEmitter) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if emitter == nil {
		emitter = service.NopEmitter{}
	}

	db, err := storage.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	grids := service.NewGridService(storage.NewGridStore(db), emitter, grid.Options{
		Settings: cfg.Grid.Settings,
		PageSize: cfg.Grid.PageSize,
	}, logger.With("component", "grids"))

	imports := service.NewImportService(storage.NewImportStore(db), grids, emitter, service.ImportOptions{
		RunTimeout:    cfg.GetRunTimeout(),
		WatchDebounce: cfg.GetWatchDebounce(),
		PreviewRows:   cfg.Import.PreviewRows,
	}, logger.With("component", "imports"))

	logger.Debug("app: database opened", "path", db.Path())
	return &App{cfg: cfg, log: logger, db: db, Grids: grids, Imports: imports}, nil
}

// Startup arms the schedule and file watch triggers of the import jobs.
func (a *App) Startup(ctx context.Context) {
	a.Imports.RestartWatchers(ctx)
}

// Shutdown stops the triggers, waits briefly for running imports and
// closes the database.
func (a *App) Shutdown() {
	a.Imports.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	a.Imports.WaitRunning(ctx)

	if err := a.db.Close(); err != nil {
		a.log.Warn("app: close database", "error", err)
	}
}

// ── Front ends ─────────────────────────────────────────────

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
// Approvals go through the database so `datagrid approvals` can answer them
// from another terminal.
func (a *App) ServeMCP(ctx context.Context) error {
	srv := mcpserver.New(ctx, mcpserver.Deps{
		Grids:           a.Grids,
		Imports:         a.Imports,
		Logger:          a.log.With("component", "mcp"),
		RequireApproval: a.cfg.MCP.RequireApproval,
		ApprovalDB:      a.db.Conn(),
		ApprovalTimeout: a.cfg.GetApprovalTimeout(),
	})

	a.Startup(ctx)
	a.log.Info("mcp: serving on stdio", "approval", a.cfg.MCP.RequireApproval)
	return srv.ServeStdio()
}

// ── Approvals ──────────────────────────────────────────────

// PendingApprovals lists the MCP actions waiting for a decision.
func (a *App) PendingApprovals() ([]mcpserver.PendingAction, error) {
	return mcpserver.ListPendingApprovals(a.db.Conn())
}

// ResolveApproval approves or rejects a pending MCP action.
func (a *App) ResolveApproval(id string, approved bool) error {
	return mcpserver.ResolveApproval(a.db.Conn(), id, approved)
}
