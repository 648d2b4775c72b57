package grid

import (
	"datagrid/internal/domain"
)

// State is the complete committed state of one grid: rows, columns,
// search query, page position, sort and settings. A State is a value;
// transitions produce a new State and never modify the old one.
type State struct {
	rows     *RecordStore
	columns  *ColumnRegistry
	query    string
	page     domain.PageState
	sort     domain.SortState
	settings domain.Settings
}

// Options carries the non-row, non-column parts of an initial State.
type Options struct {
	Settings domain.Settings
	PageSize int
	Sort     domain.SortState
	Query    string
}

// DefaultOptions returns the defaults of a freshly mounted grid.
func DefaultOptions() Options {
	return Options{
		Settings: domain.DefaultSettings(),
		PageSize: domain.DefaultPageSize,
	}
}

// NewState validates columns and records and builds the initial state.
func NewState(columns []domain.Column, records []domain.Record, opts Options) (State, error) {
	cols, err := NewColumnRegistry(columns)
	if err != nil {
		return State{}, err
	}
	rows, err := NewRecordStore(records)
	if err != nil {
		return State{}, err
	}
	if opts.Sort.Active() {
		if _, ok := cols.Column(opts.Sort.ColumnKey); !ok {
			return State{}, &domain.UnknownColumnError{Key: opts.Sort.ColumnKey}
		}
	}
	if opts.PageSize == 0 {
		opts.PageSize = domain.DefaultPageSize
	}
	return State{
		rows:     rows,
		columns:  cols,
		query:    opts.Query,
		page:     domain.PageState{PageSize: NormalizePageSize(opts.PageSize)},
		sort:     opts.Sort,
		settings: opts.Settings,
	}, nil
}

// FromConfig builds a state from a persisted grid configuration.
func FromConfig(cfg domain.GridConfig, records []domain.Record) (State, error) {
	return NewState(cfg.Columns, records, Options{
		Settings: cfg.Settings,
		PageSize: cfg.PageSize,
		Sort:     cfg.Sort,
	})
}

// Config returns the persistable part of the state.
func (s State) Config() domain.GridConfig {
	return domain.GridConfig{
		Columns:  s.columns.Columns(),
		Settings: s.settings,
		PageSize: s.page.PageSize,
		Sort:     s.sort,
	}
}

func (s State) Rows() []domain.Record { return s.rows.Records() }
func (s State) RecordStore() *RecordStore { return s.rows }
func (s State) Columns() *ColumnRegistry { return s.columns }
func (s State) Query() string { return s.query }
func (s State) Page() domain.PageState { return s.page }
func (s State) Sort() domain.SortState { return s.sort }
func (s State) Settings() domain.Settings { return s.settings }

// WithRows replaces the rows while keeping every other part of the state.
// Used when a grid is reloaded from its source.
func (s State) WithRows(records []domain.Record) (State, error) {
	rows, err := NewRecordStore(records)
	if err != nil {
		return s, err
	}
	s.rows = rows
	s.page.PageIndex = ClampPageIndex(s.page.PageIndex, s.matched(), s.page.PageSize)
	return s, nil
}

// matched counts the rows that pass the current query.
func (s State) matched() int {
	return len(Filter(s.rows.rows, s.query))
}

// ── Actions ────────────────────────────────────────────────

// Action is one atomic user-triggered transition.
type Action interface {
	apply(State) (State, error)
}

// Apply runs a transition. On error the input state is returned unchanged.
func Apply(s State, a Action) (State, error) {
	if a == nil {
		return s, nil
	}
	next, err := a.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

// ReorderRows moves the row at From to To in store order.
type ReorderRows struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (a ReorderRows) apply(s State) (State, error) {
	rows, err := s.rows.ReorderRows(a.From, a.To)
	if err != nil {
		return s, err
	}
	s.rows = rows
	return s, nil
}

// DropRow commits the end of a row drag: the row ActiveKey lands on the
// position of OverKey. It is a no-op when row drag is disabled, when no
// target was hit, or when the row was dropped onto itself.
type DropRow struct {
	ActiveKey string `json:"activeKey"`
	OverKey   string `json:"overKey"`
}

func (a DropRow) apply(s State) (State, error) {
	if !s.settings.EnableRowDrag {
		return s, nil
	}
	from, to, ok, missing := dropTarget(s.rows.IndexOf, a.ActiveKey, a.OverKey)
	if missing != "" {
		return s, &domain.KeyError{Key: missing, Err: domain.ErrUnknownRecord}
	}
	if !ok {
		return s, nil
	}
	return ReorderRows{From: from, To: to}.apply(s)
}

// ReorderColumns moves the column at From to To in the order sequence.
type ReorderColumns struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (a ReorderColumns) apply(s State) (State, error) {
	cols, err := s.columns.ReorderColumns(a.From, a.To)
	if err != nil {
		return s, err
	}
	s.columns = cols
	return s, nil
}

// DropColumn commits the end of a column header drag.
type DropColumn struct {
	ActiveKey string `json:"activeKey"`
	OverKey   string `json:"overKey"`
}

func (a DropColumn) apply(s State) (State, error) {
	if !s.settings.EnableColumnDrag {
		return s, nil
	}
	from, to, ok, missing := dropTarget(s.columns.IndexOf, a.ActiveKey, a.OverKey)
	if missing != "" {
		return s, &domain.UnknownColumnError{Key: missing}
	}
	if !ok {
		return s, nil
	}
	return ReorderColumns{From: from, To: to}.apply(s)
}

// ResizeColumn sets a column width. Widths below the floor are raised to it.
type ResizeColumn struct {
	Key   string  `json:"key"`
	Width float64 `json:"width"`
}

func (a ResizeColumn) apply(s State) (State, error) {
	cols, err := s.columns.SetWidth(a.Key, a.Width)
	if err != nil {
		return s, err
	}
	s.columns = cols
	return s, nil
}

// ToggleColumn flips the visibility of a column.
type ToggleColumn struct {
	Key string `json:"key"`
}

func (a ToggleColumn) apply(s State) (State, error) {
	cols, err := s.columns.ToggleVisibility(a.Key)
	if err != nil {
		return s, err
	}
	s.columns = cols
	return s, nil
}

// SetColumnVisibility shows or hides a column.
type SetColumnVisibility struct {
	Key     string `json:"key"`
	Visible bool   `json:"visible"`
}

func (a SetColumnVisibility) apply(s State) (State, error) {
	cols, err := s.columns.SetVisibility(a.Key, a.Visible)
	if err != nil {
		return s, err
	}
	s.columns = cols
	return s, nil
}

// SetQuery replaces the search query and returns to the first page.
type SetQuery struct {
	Query string `json:"query"`
}

func (a SetQuery) apply(s State) (State, error) {
	s.query = a.Query
	s.page.PageIndex = 0
	return s, nil
}

// SetPage moves to a page, clamped to the available range.
type SetPage struct {
	Index int `json:"index"`
}

func (a SetPage) apply(s State) (State, error) {
	s.page.PageIndex = ClampPageIndex(a.Index, s.matched(), s.page.PageSize)
	return s, nil
}

// SetPageSize changes the page size. The page index is recomputed so the
// first row of the current page stays visible, then clamped.
type SetPageSize struct {
	Size int `json:"size"`
}

func (a SetPageSize) apply(s State) (State, error) {
	size := NormalizePageSize(a.Size)
	top := s.page.PageIndex * s.page.PageSize
	s.page.PageSize = size
	s.page.PageIndex = ClampPageIndex(top/size, s.matched(), size)
	return s, nil
}

// ToggleSort cycles the sort of a column: ascending, descending, unsorted.
type ToggleSort struct {
	ColumnKey string `json:"columnKey"`
}

func (a ToggleSort) apply(s State) (State, error) {
	if _, ok := s.columns.Column(a.ColumnKey); !ok {
		return s, &domain.UnknownColumnError{Key: a.ColumnKey}
	}
	s.sort = NextSort(s.sort, a.ColumnKey)
	return s, nil
}

// SetSort sets the sort explicitly. An empty ColumnKey clears it.
type SetSort struct {
	ColumnKey string `json:"columnKey"`
	Desc      bool   `json:"desc"`
}

func (a SetSort) apply(s State) (State, error) {
	if a.ColumnKey == "" {
		s.sort = domain.SortState{}
		return s, nil
	}
	if _, ok := s.columns.Column(a.ColumnKey); !ok {
		return s, &domain.UnknownColumnError{Key: a.ColumnKey}
	}
	s.sort = domain.SortState{ColumnKey: a.ColumnKey, Desc: a.Desc}
	return s, nil
}

// UpdateSettings replaces the behavior toggles.
type UpdateSettings struct {
	Settings domain.Settings `json:"settings"`
}

func (a UpdateSettings) apply(s State) (State, error) {
	s.settings = a.Settings
	return s, nil
}
