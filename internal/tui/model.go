// Package tui is the terminal front end of a grid: a bubbletea program that
// renders the composed view and turns key presses into grid actions.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

// Backend is the part of the grid service the terminal UI drives.
type Backend interface {
	Open(ctx context.Context, ref string) (*domain.Grid, error)
	View(ctx context.Context, ref string) (grid.View, error)
	State(ctx context.Context, ref string) (grid.State, error)
	Dispatch(ctx context.Context, ref string, action grid.Action) (grid.View, error)
}

const (
	// resizeStep is how far + and - change a column width.
	resizeStep = 20.0
	// defaultWidth is the table width until the first window size arrives.
	defaultWidth = 120
)

// gridChangedMsg reports that the open grid changed outside the model,
// for example after an import run.
type gridChangedMsg struct {
	gridID string
}

// Model is the bubbletea model of one open grid.
type Model struct {
	ctx     context.Context
	backend Backend
	gridID  string
	name    string

	view      grid.View
	table     table.Model
	search    textinput.Model
	searching bool
	colCursor int

	status string
	err    error

	width  int
	height int
	styles styles
}

// New opens ref through backend and builds the model around its view.
func New(ctx context.Context, backend Backend, ref string) (Model, error) {
	g, err := backend.Open(ctx, ref)
	if err != nil {
		return Model{}, fmt.Errorf("open grid: %w", err)
	}
	v, err := backend.View(ctx, g.ID)
	if err != nil {
		return Model{}, fmt.Errorf("load view: %w", err)
	}

	si := textinput.New()
	si.Placeholder = "Search rows..."
	si.Prompt = "/ "
	si.CharLimit = 120
	si.Width = 40
	si.SetValue(v.Query)

	m := Model{
		ctx:     ctx,
		backend: backend,
		gridID:  g.ID,
		name:    g.Name,
		search:  si,
		table: table.New(
			table.WithFocused(true),
			table.WithHeight(v.PageSize),
			table.WithWidth(defaultWidth),
		),
		styles: defaultStyles(),
	}
	m.setView(v)
	return m, nil
}

// Init satisfies tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses, window resizes and external grid changes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		if h := msg.Height - 6; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case gridChangedMsg:
		if msg.gridID == m.gridID {
			m.refresh()
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.dispatch(grid.SetQuery{})
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	prev := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != prev {
		m.dispatch(grid.SetQuery{Query: q})
	}
	return m, cmd
}

// handleKey runs the grid key bindings. Keys it does not handle fall
// through to the table for cursor movement.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	m.status, m.err = "", nil

	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit, true
	case "/":
		if !m.view.Settings.Searchable {
			m.status = "search is disabled for this grid"
			return nil, true
		}
		m.searching = true
		return m.search.Focus(), true
	case "left":
		if m.view.PageIndex > 0 {
			m.dispatch(grid.SetPage{Index: m.view.PageIndex - 1})
		}
	case "right":
		if m.view.PageIndex < m.view.PageCount-1 {
			m.dispatch(grid.SetPage{Index: m.view.PageIndex + 1})
		}
	case "[":
		m.dispatch(grid.SetPageSize{Size: stepPageSize(m.view.PageSize, -1)})
	case "]":
		m.dispatch(grid.SetPageSize{Size: stepPageSize(m.view.PageSize, 1)})
	case "tab":
		m.focusColumn(1)
	case "shift+tab":
		m.focusColumn(-1)
	case "J":
		m.moveRow(1)
	case "K":
		m.moveRow(-1)
	case ">":
		m.moveColumn(1)
	case "<":
		m.moveColumn(-1)
	case "+", "=":
		m.resizeColumn(resizeStep)
	case "-":
		m.resizeColumn(-resizeStep)
	case "s":
		if col, ok := m.focused(); ok {
			m.dispatch(grid.ToggleSort{ColumnKey: col.Key})
		}
	case "h":
		if col, ok := m.focused(); ok {
			m.dispatch(grid.ToggleColumn{Key: col.Key})
		}
	case "H":
		m.showAllColumns()
	case "r":
		m.refresh()
	default:
		return nil, false
	}
	return nil, true
}

// ── Actions ────────────────────────────────────────────────

func (m *Model) dispatch(a grid.Action) bool {
	v, err := m.backend.Dispatch(m.ctx, m.gridID, a)
	if err != nil {
		m.err = err
		return false
	}
	m.setView(v)
	return true
}

func (m *Model) refresh() {
	v, err := m.backend.View(m.ctx, m.gridID)
	if err != nil {
		m.err = err
		return
	}
	key := m.selectedKey()
	m.setView(v)
	m.selectRow(key)
}

const staleStatus = "grid changed underneath, view refreshed"

// moveRow swaps the selected row with its neighbour on the page by
// reordering the stored rows.
func (m *Model) moveRow(delta int) {
	if m.view.Sort.Active() {
		m.status = "clear the sort to move rows"
		return
	}
	cur := m.table.Cursor()
	target := cur + delta
	if cur < 0 || cur >= len(m.view.Rows) {
		return
	}
	if target < 0 || target >= len(m.view.Rows) {
		m.status = "row is at the edge of the page"
		return
	}

	st, err := m.backend.State(m.ctx, m.gridID)
	if err != nil {
		m.err = err
		return
	}
	key := m.view.Rows[cur].Key
	from, okFrom := st.RecordStore().IndexOf(key)
	to, okTo := st.RecordStore().IndexOf(m.view.Rows[target].Key)
	if !okFrom || !okTo {
		m.refresh()
		m.status = staleStatus
		return
	}
	if m.dispatch(grid.ReorderRows{From: from, To: to}) {
		m.selectRow(key)
	}
}

// moveColumn swaps the focused column with its visible neighbour.
func (m *Model) moveColumn(delta int) {
	target := m.colCursor + delta
	if len(m.view.Columns) == 0 || target < 0 || target >= len(m.view.Columns) {
		return
	}

	st, err := m.backend.State(m.ctx, m.gridID)
	if err != nil {
		m.err = err
		return
	}
	from, okFrom := st.Columns().IndexOf(m.view.Columns[m.colCursor].Key)
	to, okTo := st.Columns().IndexOf(m.view.Columns[target].Key)
	if !okFrom || !okTo {
		m.refresh()
		m.status = staleStatus
		return
	}
	if m.dispatch(grid.ReorderColumns{From: from, To: to}) {
		m.colCursor = target
		m.setView(m.view)
	}
}

func (m *Model) resizeColumn(delta float64) {
	col, ok := m.focused()
	if !ok {
		return
	}
	m.dispatch(grid.ResizeColumn{Key: col.Key, Width: col.Width + delta})
}

func (m *Model) showAllColumns() {
	st, err := m.backend.State(m.ctx, m.gridID)
	if err != nil {
		m.err = err
		return
	}
	for _, c := range st.Columns().Columns() {
		if c.Hidden && !m.dispatch(grid.SetColumnVisibility{Key: c.Key, Visible: true}) {
			return
		}
	}
}

// ── Cursor helpers ─────────────────────────────────────────

func (m *Model) focusColumn(delta int) {
	n := len(m.view.Columns)
	if n == 0 {
		return
	}
	m.colCursor = (m.colCursor + delta + n) % n
	m.setView(m.view)
}

func (m Model) focused() (domain.Column, bool) {
	if m.colCursor < 0 || m.colCursor >= len(m.view.Columns) {
		return domain.Column{}, false
	}
	return m.view.Columns[m.colCursor], true
}

func (m Model) selectedKey() string {
	cur := m.table.Cursor()
	if cur < 0 || cur >= len(m.view.Rows) {
		return ""
	}
	return m.view.Rows[cur].Key
}

func (m *Model) selectRow(key string) {
	for i, r := range m.view.Rows {
		if r.Key == key {
			m.table.SetCursor(i)
			return
		}
	}
}

// stepPageSize moves to the next or previous entry of PageSizeOptions.
func stepPageSize(current, dir int) int {
	opts := domain.PageSizeOptions
	if dir > 0 {
		for _, o := range opts {
			if o > current {
				return o
			}
		}
		return opts[len(opts)-1]
	}
	for i := len(opts) - 1; i >= 0; i-- {
		if opts[i] < current {
			return opts[i]
		}
	}
	return opts[0]
}
