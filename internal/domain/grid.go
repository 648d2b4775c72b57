package domain

import "time"

const (
	// DefaultColumnWidth is used when a column definition carries no width.
	DefaultColumnWidth = 150.0
	// MinColumnWidth is the resize floor. Narrower widths are raised to it.
	MinColumnWidth = 100.0
	// DefaultPageSize is the initial page size of a grid.
	DefaultPageSize = 15
)

// PageSizeOptions are the page sizes offered by presentation adapters.
var PageSizeOptions = []int{15, 25, 50, 100}

// Record is one row of tabular data.
// Key identifies the record across reorders, filters and pagination.
type Record struct {
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

// Value returns the field stored under name, or nil.
func (r Record) Value(name string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// Clone copies the field map so the result can be mutated independently.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Key: r.Key, Fields: fields}
}

// RenderFunc maps a cell value to its display form.
type RenderFunc func(value any, rec Record) string

// Column describes how one attribute of a Record is displayed and positioned.
type Column struct {
	Key       string     `json:"key"`
	Title     string     `json:"title"`
	DataIndex string     `json:"dataIndex"`
	Width     float64    `json:"width"`
	Hidden    bool       `json:"hidden"`
	Render    RenderFunc `json:"-"`
}

// Settings are behavioral toggles with no bearing on data invariants.
type Settings struct {
	EnableRowDrag      bool `json:"enableRowDrag" yaml:"enable_row_drag"`
	EnableColumnDrag   bool `json:"enableColumnDrag" yaml:"enable_column_drag"`
	EnableColumnResize bool `json:"enableColumnResize" yaml:"enable_column_resize"`
	Searchable         bool `json:"searchable" yaml:"searchable"`
	Filterable         bool `json:"filterable" yaml:"filterable"`
	Pagination         bool `json:"pagination" yaml:"pagination"`
}

// DefaultSettings mirrors the defaults of the interactive table.
func DefaultSettings() Settings {
	return Settings{
		Searchable: true,
		Filterable: true,
		Pagination: true,
	}
}

// PageState is the current page position.
type PageState struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
}

// SortState names the sorted column. An empty ColumnKey means unsorted.
type SortState struct {
	ColumnKey string `json:"columnKey,omitempty"`
	Desc      bool   `json:"desc,omitempty"`
}

// Active reports whether a sort column is set.
func (s SortState) Active() bool { return s.ColumnKey != "" }

// GridConfig is the persisted, non-row state of a grid.
type GridConfig struct {
	Columns  []Column  `json:"columns"`
	Settings Settings  `json:"settings"`
	PageSize int       `json:"pageSize"`
	Sort     SortState `json:"sort"`
}

// Grid is a named, persisted table.
type Grid struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Config    GridConfig `json:"config"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// GridStore manages grids and their ordered rows.
type GridStore interface {
	CreateGrid(g *Grid) error
	GetGrid(id string) (*Grid, error)
	GetGridByName(name string) (*Grid, error)
	ListGrids() ([]Grid, error)
	UpdateGrid(g *Grid) error
	DeleteGrid(id string) error

	ListRows(gridID string) ([]Record, error)
	ReplaceRows(gridID string, rows []Record) error
	ReorderRows(gridID string, keys []string) error
	GetGridStats(gridID string) (rows int, lastUpdated time.Time, err error)
}
