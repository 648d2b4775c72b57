package grid

import "datagrid/internal/domain"

// Cell is one rendered value of a row.
type Cell struct {
	ColumnKey string `json:"columnKey"`
	Value     any    `json:"value"`
	Display   string `json:"display"`
}

// ViewRow is one row of the current page, projected through the visible columns.
type ViewRow struct {
	Key   string `json:"key"`
	Cells []Cell `json:"cells"`
}

// View is the render-ready projection of a State.
type View struct {
	Columns     []domain.Column  `json:"columns"`
	Rows        []ViewRow        `json:"rows"`
	Query       string           `json:"query"`
	Sort        domain.SortState `json:"sort"`
	Settings    domain.Settings  `json:"settings"`
	PageIndex   int              `json:"pageIndex"`
	PageSize    int              `json:"pageSize"`
	PageCount   int              `json:"pageCount"`
	TotalRows   int              `json:"totalRows"`
	MatchedRows int              `json:"matchedRows"`
}

// ColumnKeys returns the keys of the visible columns in order.
func (v View) ColumnKeys() []string {
	keys := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		keys[i] = c.Key
	}
	return keys
}

// RowKeys returns the keys of the rows on the current page.
func (v View) RowKeys() []string {
	keys := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		keys[i] = r.Key
	}
	return keys
}

// Compose derives the view: rows are filtered, sorted and paginated, then
// projected through the visible columns in column order.
func Compose(s State) View {
	all := s.rows.rows
	matched := Sort(Filter(all, s.query), s.columns, s.sort)

	v := View{
		Columns:     s.columns.Visible(),
		Query:       s.query,
		Sort:        s.sort,
		Settings:    s.settings,
		PageSize:    s.page.PageSize,
		TotalRows:   len(all),
		MatchedRows: len(matched),
	}

	page := matched
	if s.settings.Pagination {
		v.PageCount = PageCount(len(matched), s.page.PageSize)
		v.PageIndex = ClampPageIndex(s.page.PageIndex, len(matched), s.page.PageSize)
		page = Paginate(matched, v.PageIndex, s.page.PageSize)
	} else {
		v.PageCount = PageCount(len(matched), len(matched))
	}

	v.Rows = make([]ViewRow, len(page))
	for i, rec := range page {
		v.Rows[i] = project(rec, v.Columns)
	}
	return v
}

func project(rec domain.Record, cols []domain.Column) ViewRow {
	row := ViewRow{Key: rec.Key, Cells: make([]Cell, len(cols))}
	for i, c := range cols {
		value := rec.Value(c.DataIndex)
		display := FormatValue(value)
		if c.Render != nil {
			display = c.Render(value, rec)
		}
		row.Cells[i] = Cell{ColumnKey: c.Key, Value: value, Display: display}
	}
	return row
}
