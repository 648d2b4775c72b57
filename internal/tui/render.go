package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

// cellUnit converts column widths to terminal cells.
const cellUnit = 10.0

type styles struct {
	Header lipgloss.Style
	Info   lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
	Search lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f2f2f2")).Background(lipgloss.Color("#101F38")).Padding(0, 1),
		Info:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7785")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
		Search: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a3850")).Padding(0, 1),
	}
}

// setView installs v and rebuilds the table from it.
func (m *Model) setView(v grid.View) {
	m.view = v
	if m.colCursor >= len(v.Columns) {
		m.colCursor = max(len(v.Columns)-1, 0)
	}

	cols := make([]table.Column, len(v.Columns))
	for i, c := range v.Columns {
		cols[i] = table.Column{Title: m.headerTitle(i, c), Width: cellWidth(c.Width)}
	}
	rows := make([]table.Row, len(v.Rows))
	for i, r := range v.Rows {
		row := make(table.Row, len(r.Cells))
		for j, cell := range r.Cells {
			row[j] = cell.Display
		}
		rows[i] = row
	}

	cursor := m.table.Cursor()
	// Rows must be cleared first: the table renders existing rows against
	// the new columns while they are being set.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	m.table.SetCursor(max(cursor, 0))
}

func (m Model) headerTitle(i int, c domain.Column) string {
	title := c.Title
	if title == "" {
		title = c.Key
	}
	if m.view.Sort.ColumnKey == c.Key {
		if m.view.Sort.Desc {
			title += " ↓"
		} else {
			title += " ↑"
		}
	}
	if i == m.colCursor {
		title = "▸" + title
	}
	return title
}

func cellWidth(w float64) int {
	return int(math.Round(w / cellUnit))
}

// View renders the grid with its search bar, status and key help.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render(m.name))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Info.Render(m.summary()))
	sb.WriteString("\n")

	if m.searching || m.view.Query != "" {
		sb.WriteString(m.styles.Search.Render(m.search.View()))
		sb.WriteString("\n")
	}

	if len(m.view.Columns) == 0 {
		sb.WriteString(m.styles.Muted.Render("All columns are hidden. Press H to show them."))
	} else {
		sb.WriteString(m.table.View())
	}
	sb.WriteString("\n")

	switch {
	case m.err != nil:
		sb.WriteString(m.styles.Error.Render("error: " + m.err.Error()))
	case m.status != "":
		sb.WriteString(m.styles.Muted.Render(m.status))
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("/ search  ←/→ page  [/] page size  tab column  </> move column  J/K move row  +/- width  s sort  h hide  H show all  q quit"))
	return sb.String()
}

func (m Model) summary() string {
	v := m.view
	rows := fmt.Sprintf("%d rows", v.TotalRows)
	if v.MatchedRows != v.TotalRows {
		rows = fmt.Sprintf("%d of %d rows", v.MatchedRows, v.TotalRows)
	}
	parts := []string{rows}
	if v.Settings.Pagination {
		parts = append(parts, fmt.Sprintf("page %d/%d", v.PageIndex+1, max(v.PageCount, 1)), fmt.Sprintf("%d per page", v.PageSize))
	}
	if v.Sort.Active() {
		dir := "asc"
		if v.Sort.Desc {
			dir = "desc"
		}
		parts = append(parts, fmt.Sprintf("sorted by %s %s", v.Sort.ColumnKey, dir))
	}
	return strings.Join(parts, " · ")
}
