package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

// ─────────────────────────────────────────────────────────────
// Grid Service: mounted grids and their sessions
// ─────────────────────────────────────────────────────────────

// GridService opens persisted grids into sessions and dispatches actions
// against them. Row reorders are written back through the store's
// ReorderRows; column, sort, page size and settings changes are written
// back as grid config. Query and page position live only in the session.
type GridService struct {
	store   domain.GridStore
	emitter EventEmitter
	log     *slog.Logger

	defaults grid.Options

	mu       sync.Mutex
	sessions map[string]*openGrid
}

type openGrid struct {
	id      string
	grid    domain.Grid // guarded by GridService.mu
	session *grid.Session
}

// NewGridService creates a GridService. defaults apply to grids created
// without explicit settings or page size.
func NewGridService(store domain.GridStore, emitter EventEmitter, defaults grid.Options, logger *slog.Logger) *GridService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GridService{
		store:    store,
		emitter:  emitter,
		log:      logger,
		defaults: defaults,
		sessions: make(map[string]*openGrid),
	}
}

// Store returns the grid store the service persists into.
func (s *GridService) Store() domain.GridStore {
	return s.store
}

// ── Grid CRUD ──────────────────────────────────────────────

type CreateGridInput struct {
	Name     string           `json:"name"`
	Columns  []domain.Column  `json:"columns"`
	Rows     []domain.Record  `json:"rows"`
	Settings *domain.Settings `json:"settings,omitempty"`
	PageSize int              `json:"pageSize,omitempty"`
}

// CreateGrid validates the columns and rows, then persists a new grid.
func (s *GridService) CreateGrid(ctx context.Context, input CreateGridInput) (*domain.Grid, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("grid name is required")
	}
	opts := s.defaults
	if input.Settings != nil {
		opts.Settings = *input.Settings
	}
	if input.PageSize != 0 {
		opts.PageSize = input.PageSize
	}
	state, err := grid.NewState(input.Columns, input.Rows, opts)
	if err != nil {
		return nil, fmt.Errorf("create grid %q: %w", input.Name, err)
	}

	g := &domain.Grid{Name: input.Name, Config: state.Config()}
	if err := s.store.CreateGrid(g); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceRows(g.ID, state.Rows()); err != nil {
		return nil, fmt.Errorf("store rows: %w", err)
	}
	s.log.InfoContext(ctx, "grid created", "grid", g.Name, "id", g.ID, "rows", len(input.Rows))
	return g, nil
}

func (s *GridService) ListGrids() ([]domain.Grid, error) {
	return s.store.ListGrids()
}

// GetGrid resolves a grid by id, falling back to its name.
func (s *GridService) GetGrid(ref string) (*domain.Grid, error) {
	g, err := s.store.GetGrid(ref)
	if errors.Is(err, domain.ErrNotFound) {
		return s.store.GetGridByName(ref)
	}
	return g, err
}

// GridStats summarizes the stored rows of a grid.
type GridStats struct {
	Rows        int       `json:"rows"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Stats returns the stored row count and last row update of a grid.
func (s *GridService) Stats(ref string) (GridStats, error) {
	g, err := s.GetGrid(ref)
	if err != nil {
		return GridStats{}, err
	}
	rows, last, err := s.store.GetGridStats(g.ID)
	if err != nil {
		return GridStats{}, fmt.Errorf("grid stats: %w", err)
	}
	return GridStats{Rows: rows, LastUpdated: last}, nil
}

// DeleteGrid closes any open session and removes the grid with its rows.
func (s *GridService) DeleteGrid(ctx context.Context, ref string) error {
	g, err := s.GetGrid(ref)
	if err != nil {
		return err
	}
	s.Close(g.ID)
	if err := s.store.DeleteGrid(g.ID); err != nil {
		return fmt.Errorf("delete grid: %w", err)
	}
	s.log.InfoContext(ctx, "grid deleted", "grid", g.Name, "id", g.ID)
	return nil
}

// ── Sessions ───────────────────────────────────────────────

// Open mounts a grid, or returns the already mounted one.
func (s *GridService) Open(ctx context.Context, ref string) (*domain.Grid, error) {
	og, err := s.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	g := og.grid
	s.mu.Unlock()
	return &g, nil
}

func (s *GridService) open(ctx context.Context, ref string) (*openGrid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if og, ok := s.sessions[ref]; ok {
		return og, nil
	}
	g, err := s.GetGrid(ref)
	if err != nil {
		return nil, err
	}
	if og, ok := s.sessions[g.ID]; ok {
		return og, nil
	}

	state, err := s.loadState(g)
	if err != nil {
		return nil, err
	}
	og := &openGrid{id: g.ID, grid: *g}
	og.session = grid.NewSession(state, s.persistRows(context.WithoutCancel(ctx), g.ID))
	s.sessions[g.ID] = og
	s.log.DebugContext(ctx, "grid opened", "grid", g.Name, "rows", len(state.Rows()))
	return og, nil
}

func (s *GridService) loadState(g *domain.Grid) (grid.State, error) {
	rows, err := s.store.ListRows(g.ID)
	if err != nil {
		return grid.State{}, fmt.Errorf("load rows: %w", err)
	}
	state, err := grid.FromConfig(g.Config, rows)
	if err != nil {
		return grid.State{}, fmt.Errorf("load grid %s: %w", g.Name, err)
	}
	return state, nil
}

// persistRows is the session's data change callback: the new row order
// is written to the store and announced.
func (s *GridService) persistRows(ctx context.Context, gridID string) grid.DataChangeFunc {
	return func(rows []domain.Record) error {
		keys := make([]string, len(rows))
		for i, r := range rows {
			keys[i] = r.Key
		}
		if err := s.store.ReorderRows(gridID, keys); err != nil {
			return fmt.Errorf("persist row order: %w", err)
		}
		s.emitter.Emit(ctx, EventRowsChanged, map[string]any{
			"gridId": gridID,
			"keys":   keys,
		})
		return nil
	}
}

// View returns the composed view of a grid, opening it if needed.
func (s *GridService) View(ctx context.Context, ref string) (grid.View, error) {
	og, err := s.open(ctx, ref)
	if err != nil {
		return grid.View{}, err
	}
	return og.session.View(), nil
}

// State returns the current state of a grid, opening it if needed.
func (s *GridService) State(ctx context.Context, ref string) (grid.State, error) {
	og, err := s.open(ctx, ref)
	if err != nil {
		return grid.State{}, err
	}
	return og.session.State(), nil
}

// Dispatch applies an action to a grid and returns the new view.
func (s *GridService) Dispatch(ctx context.Context, ref string, action grid.Action) (grid.View, error) {
	og, err := s.open(ctx, ref)
	if err != nil {
		return grid.View{}, err
	}

	v, err := og.session.Dispatch(action)
	var dce *grid.DataChangeError
	if errors.As(err, &dce) {
		// The session moved on but the store did not.
		s.log.ErrorContext(ctx, "grid: persist row order failed", "grid", og.id, "error", dce.Err)
		s.emitter.Emit(ctx, EventPersistFailed, map[string]any{
			"gridId": og.id,
			"error":  dce.Err.Error(),
		})
		return v, err
	}
	if err != nil {
		return grid.View{}, err
	}

	if persistsConfig(action) {
		if err := s.saveConfig(og); err != nil {
			return v, err
		}
	}

	s.emitter.Emit(ctx, EventViewChanged, map[string]any{
		"gridId":   og.id,
		"revision": og.session.Revision(),
	})
	return v, nil
}

func (s *GridService) saveConfig(og *openGrid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := og.grid
	g.Config = og.session.State().Config()
	if err := s.store.UpdateGrid(&g); err != nil {
		return fmt.Errorf("save grid config: %w", err)
	}
	og.grid = g
	return nil
}

// persistsConfig reports whether an action changes the stored grid config.
func persistsConfig(a grid.Action) bool {
	switch a.(type) {
	case grid.ReorderColumns, grid.DropColumn, grid.ResizeColumn,
		grid.ToggleColumn, grid.SetColumnVisibility, grid.SetPageSize,
		grid.ToggleSort, grid.SetSort, grid.UpdateSettings:
		return true
	}
	return false
}

// Reload re-reads an open grid from the store, keeping its query and page.
// Grids that are not open are left alone.
func (s *GridService) Reload(ctx context.Context, gridID string) error {
	s.mu.Lock()
	og, ok := s.sessions[gridID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	g, err := s.store.GetGrid(gridID)
	if err != nil {
		return err
	}
	next, err := s.loadState(g)
	if err != nil {
		return err
	}

	prev := og.session.State()
	if q := prev.Query(); q != "" {
		next, _ = grid.Apply(next, grid.SetQuery{Query: q})
	}
	next, _ = grid.Apply(next, grid.SetPage{Index: prev.Page().PageIndex})

	s.mu.Lock()
	og.grid = *g
	s.mu.Unlock()
	og.session.Replace(next)

	s.log.DebugContext(ctx, "grid reloaded", "grid", g.Name, "rows", len(next.Rows()))
	s.emitter.Emit(ctx, EventViewChanged, map[string]any{
		"gridId":   gridID,
		"revision": og.session.Revision(),
	})
	return nil
}

// Close unmounts a grid. Closing a grid that is not open is a no-op.
func (s *GridService) Close(gridID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, gridID)
}
