package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
	"datagrid/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerGridTools() {
	s.mcp.AddTool(mcp.NewTool("list_grids",
		mcp.WithDescription("List all grids with their columns and settings"),
	), s.handleListGrids)

	s.mcp.AddTool(mcp.NewTool("create_grid",
		mcp.WithDescription("Create a grid from column definitions and keyed rows"),
		mcp.WithString("name", mcp.Description("Unique grid name"), mcp.Required()),
		mcp.WithString("columnsJSON", mcp.Description(`Columns as JSON array of {key, title, dataIndex, width, hidden}`), mcp.Required()),
		mcp.WithString("rowsJSON", mcp.Description(`Rows as JSON array of {key, fields: {dataIndex: value}}. Keys must be unique and non-empty.`)),
	), s.handleCreateGrid)

	s.mcp.AddTool(mcp.NewTool("delete_grid",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a grid and all its rows. May require user approval."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteGrid)

	s.mcp.AddTool(mcp.NewTool("get_grid_view",
		mcp.WithDescription("Get the current page of a grid: visible columns in order and the filtered, sorted, paginated rows"),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
	), s.handleGetGridView)

	s.mcp.AddTool(mcp.NewTool("search_grid",
		mcp.WithDescription("Set the search query of a grid (case-insensitive substring over every field). Returns to the first page. An empty query clears the search."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithString("query", mcp.Description("Search text")),
	), s.handleSearchGrid)

	s.mcp.AddTool(mcp.NewTool("set_grid_page",
		mcp.WithDescription("Move to a page and optionally change the page size (15, 25, 50 or 100 are offered; any positive size works)"),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithNumber("page", mcp.Description("Zero-based page index, clamped to the available pages")),
		mcp.WithNumber("pageSize", mcp.Description("Rows per page")),
	), s.handleSetGridPage)

	s.mcp.AddTool(mcp.NewTool("reorder_grid_rows",
		mcp.WithDescription("Move the row at index `from` to index `to` in the stored row order. Rows in between shift by one. The new order is persisted."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithNumber("from", mcp.Description("Current zero-based row index"), mcp.Required()),
		mcp.WithNumber("to", mcp.Description("Target zero-based row index"), mcp.Required()),
	), s.handleReorderGridRows)

	s.mcp.AddTool(mcp.NewTool("move_grid_row",
		mcp.WithDescription("Drop the row `activeKey` onto the position of row `overKey`, like a drag-and-drop. Ignored when row drag is disabled in the grid settings."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithString("activeKey", mcp.Description("Key of the dragged row"), mcp.Required()),
		mcp.WithString("overKey", mcp.Description("Key of the row it was dropped on")),
	), s.handleMoveGridRow)

	s.mcp.AddTool(mcp.NewTool("reorder_grid_columns",
		mcp.WithDescription("Move a column. Pass `from`/`to` indexes, or `activeKey`/`overKey` column keys for a header drag (ignored when column drag is disabled)."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithNumber("from", mcp.Description("Current zero-based column index")),
		mcp.WithNumber("to", mcp.Description("Target zero-based column index")),
		mcp.WithString("activeKey", mcp.Description("Key of the dragged column")),
		mcp.WithString("overKey", mcp.Description("Key of the column it was dropped on")),
	), s.handleReorderGridColumns)

	s.mcp.AddTool(mcp.NewTool("resize_grid_column",
		mcp.WithDescription("Set a column width. Widths below 100 are raised to 100."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithString("columnKey", mcp.Description("Column key"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("New width"), mcp.Required()),
	), s.handleResizeGridColumn)

	s.mcp.AddTool(mcp.NewTool("toggle_grid_column",
		mcp.WithDescription("Show or hide a column. Without `visible` the current visibility is flipped. Hidden columns keep their position."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithString("columnKey", mcp.Description("Column key"), mcp.Required()),
		mcp.WithBoolean("visible", mcp.Description("Desired visibility")),
	), s.handleToggleGridColumn)

	s.mcp.AddTool(mcp.NewTool("sort_grid",
		mcp.WithDescription("Sort the grid view by a column. Sorting never changes the stored row order."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithString("columnKey", mcp.Description("Column key; empty clears the sort")),
		mcp.WithString("direction", mcp.Description("asc, desc, none, or toggle (cycle asc → desc → none)")),
	), s.handleSortGrid)

	s.mcp.AddTool(mcp.NewTool("update_grid_settings",
		mcp.WithDescription("Update behavior toggles. Only the given settings change."),
		mcp.WithString("gridId", mcp.Description("Grid ID or name"), mcp.Required()),
		mcp.WithString("settingsJSON", mcp.Description(`JSON object with any of enableRowDrag, enableColumnDrag, enableColumnResize, searchable, filterable, pagination`), mcp.Required()),
	), s.handleUpdateGridSettings)
}

// gridSummary is the list_grids shape: config without rows.
type gridSummary struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Columns  []string        `json:"columns"`
	Rows     int             `json:"rows"`
	PageSize int             `json:"pageSize"`
	Settings domain.Settings `json:"settings"`
}

func (s *Server) handleListGrids(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	grids, err := s.grids.ListGrids()
	if err != nil {
		return nil, err
	}
	out := make([]gridSummary, len(grids))
	for i, g := range grids {
		cols := make([]string, len(g.Config.Columns))
		for j, c := range g.Config.Columns {
			cols[j] = c.Key
		}
		stats, err := s.grids.Stats(g.ID)
		if err != nil {
			return nil, err
		}
		out[i] = gridSummary{
			ID:       g.ID,
			Name:     g.Name,
			Columns:  cols,
			Rows:     stats.Rows,
			PageSize: g.Config.PageSize,
			Settings: g.Config.Settings,
		}
	}
	return jsonResult(out)
}

func (s *Server) handleCreateGrid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	input := service.CreateGridInput{Name: name}
	if err := parseJSON(req.GetString("columnsJSON", ""), &input.Columns); err != nil {
		return nil, fmt.Errorf("parse columns: %w", err)
	}
	if rows := req.GetString("rowsJSON", ""); rows != "" {
		if err := parseJSON(rows, &input.Rows); err != nil {
			return nil, fmt.Errorf("parse rows: %w", err)
		}
	}

	g, err := s.grids.CreateGrid(ctx, input)
	if err != nil {
		return nil, err
	}
	return jsonResult(g)
}

func (s *Server) handleDeleteGrid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireGrid(req)
	if err != nil {
		return nil, err
	}
	if !s.confirm("delete_grid", fmt.Sprintf("Delete grid %s and all its rows", ref)) {
		return textResult("Action rejected by user"), nil
	}
	if err := s.grids.DeleteGrid(ctx, ref); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Grid %s deleted", ref)), nil
}

func (s *Server) handleGetGridView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireGrid(req)
	if err != nil {
		return nil, err
	}
	v, err := s.grids.View(ctx, ref)
	if err != nil {
		return nil, err
	}
	return jsonResult(v)
}

// dispatch runs one action and returns the resulting view.
func (s *Server) dispatch(ctx context.Context, req mcp.CallToolRequest, action grid.Action) (*mcp.CallToolResult, error) {
	ref, err := requireGrid(req)
	if err != nil {
		return nil, err
	}
	v, err := s.grids.Dispatch(ctx, ref, action)
	if err != nil {
		return nil, err
	}
	return jsonResult(v)
}

func (s *Server) handleSearchGrid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, req, grid.SetQuery{Query: req.GetString("query", "")})
}

func (s *Server) handleSetGridPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireGrid(req)
	if err != nil {
		return nil, err
	}
	args := req.GetArguments()

	size, hasSize, err := intArg(args, "pageSize")
	if err != nil {
		return nil, err
	}
	page, hasPage, err := intArg(args, "page")
	if err != nil {
		return nil, err
	}

	if hasSize {
		if _, err := s.grids.Dispatch(ctx, ref, grid.SetPageSize{Size: size}); err != nil {
			return nil, err
		}
	}
	if hasPage {
		return s.dispatch(ctx, req, grid.SetPage{Index: page})
	}
	v, err := s.grids.View(ctx, ref)
	if err != nil {
		return nil, err
	}
	return jsonResult(v)
}

func (s *Server) handleReorderGridRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, err := indexPair(req.GetArguments())
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, req, grid.ReorderRows{From: from, To: to})
}

func (s *Server) handleMoveGridRow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	active := req.GetString("activeKey", "")
	if active == "" {
		return nil, fmt.Errorf("activeKey is required")
	}
	return s.dispatch(ctx, req, grid.DropRow{ActiveKey: active, OverKey: req.GetString("overKey", "")})
}

func (s *Server) handleReorderGridColumns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if active := req.GetString("activeKey", ""); active != "" {
		return s.dispatch(ctx, req, grid.DropColumn{ActiveKey: active, OverKey: req.GetString("overKey", "")})
	}
	from, to, err := indexPair(req.GetArguments())
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, req, grid.ReorderColumns{From: from, To: to})
}

func (s *Server) handleResizeGridColumn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("columnKey", "")
	width, ok := req.GetArguments()["width"].(float64)
	if key == "" || !ok {
		return nil, fmt.Errorf("columnKey and width are required")
	}
	return s.dispatch(ctx, req, grid.ResizeColumn{Key: key, Width: width})
}

func (s *Server) handleToggleGridColumn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("columnKey", "")
	if key == "" {
		return nil, fmt.Errorf("columnKey is required")
	}
	if visible, ok := req.GetArguments()["visible"].(bool); ok {
		return s.dispatch(ctx, req, grid.SetColumnVisibility{Key: key, Visible: visible})
	}
	return s.dispatch(ctx, req, grid.ToggleColumn{Key: key})
}

func (s *Server) handleSortGrid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := req.GetString("columnKey", "")
	switch dir := req.GetString("direction", "toggle"); dir {
	case "toggle":
		if key == "" {
			return nil, fmt.Errorf("columnKey is required to toggle a sort")
		}
		return s.dispatch(ctx, req, grid.ToggleSort{ColumnKey: key})
	case "asc", "desc":
		return s.dispatch(ctx, req, grid.SetSort{ColumnKey: key, Desc: dir == "desc"})
	case "none", "":
		return s.dispatch(ctx, req, grid.SetSort{})
	default:
		return nil, fmt.Errorf("unknown direction %q", dir)
	}
}

func (s *Server) handleUpdateGridSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireGrid(req)
	if err != nil {
		return nil, err
	}
	state, err := s.grids.State(ctx, ref)
	if err != nil {
		return nil, err
	}

	// Unmarshalling over the current settings leaves omitted fields as they are.
	settings := state.Settings()
	if err := json.Unmarshal([]byte(req.GetString("settingsJSON", "")), &settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return s.dispatch(ctx, req, grid.UpdateSettings{Settings: settings})
}

// indexPair reads the from/to index arguments.
func indexPair(args map[string]any) (int, int, error) {
	from, okFrom, err := intArg(args, "from")
	if err != nil {
		return 0, 0, err
	}
	to, okTo, err := intArg(args, "to")
	if err != nil {
		return 0, 0, err
	}
	if !okFrom || !okTo {
		return 0, 0, fmt.Errorf("from and to are required")
	}
	return from, to, nil
}
