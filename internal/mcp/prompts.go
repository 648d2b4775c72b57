package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("import_file",
		mcp.WithPromptDescription("Load a CSV or JSON file into a grid and check the result"),
		mcp.WithArgument("path",
			mcp.ArgumentDescription("Path of the file to import"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("grid",
			mcp.ArgumentDescription("Name of the target grid"),
			mcp.RequiredArgument(),
		),
	), s.handleImportFilePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_grid",
		mcp.WithPromptDescription("Rearrange the columns and rows of a grid for a given purpose"),
		mcp.WithArgument("grid",
			mcp.ArgumentDescription("Grid ID or name"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the grid should be easy to read for"),
			mcp.RequiredArgument(),
		),
	), s.handleTidyGridPrompt)
}

func (s *Server) handleImportFilePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	path := req.Params.Arguments["path"]
	gridName := req.Params.Arguments["grid"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Import %s into grid %s", path, gridName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Import the file %q into the grid %q. Follow these steps:

1. Use preview_import_source (csv_file or json_file, {"filePath": ...}) to see the fields
2. Pick a field with unique values as keyField, if there is one
3. Create the job with create_import_job and run it with run_import_job
4. Check the result with get_grid_view and report how many rows were written and skipped`, path, gridName),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyGridPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	gridRef := req.Params.Arguments["grid"]
	goal := req.Params.Arguments["goal"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Tidy grid %s", gridRef),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Rearrange the grid %q so it is easy to read for: %s.

1. Read the current layout with get_grid_view
2. Move the most relevant columns first with reorder_grid_columns
3. Hide columns that do not help with toggle_grid_column
4. Widen columns with long values using resize_grid_column
5. If a fixed row order matters, use reorder_grid_rows; otherwise prefer sort_grid, which leaves the stored order alone

Summarize what you changed.`, gridRef, goal),
				},
			},
		},
	}, nil
}
