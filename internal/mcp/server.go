package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"datagrid/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for datagrid.
// It exposes tools, resources and prompts so AI agents can browse and
// rearrange grids and run imports.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue
	log      *slog.Logger

	grids   *service.GridService
	imports *service.ImportService
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Emitter EventEmitter
	Grids   *service.GridService
	Imports *service.ImportService
	Logger  *slog.Logger

	// RequireApproval gates destructive tools behind the approval queue.
	RequireApproval bool
	// ApprovalDB switches the queue to SQLite polling so approvals can be
	// granted from another process (datagrid approvals approve <id>).
	ApprovalDB *sql.DB
	// ApprovalTimeout bounds how long a tool waits for a decision.
	// Zero keeps the queue default.
	ApprovalTimeout time.Duration
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		emitter: deps.Emitter,
		log:     deps.Logger,
		grids:   deps.Grids,
		imports: deps.Imports,
	}
	if deps.RequireApproval {
		s.approval = NewApprovalQueue(ctx, deps.Emitter)
		if deps.ApprovalDB != nil {
			s.approval.SetDB(deps.ApprovalDB)
		}
		if deps.ApprovalTimeout > 0 {
			s.approval.SetTimeout(deps.ApprovalTimeout)
		}
	}

	s.mcp = server.NewMCPServer(
		"datagrid-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerGridTools()
	s.registerImportTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	if s.approval != nil {
		s.approval.Approve(actionID)
	}
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	if s.approval != nil {
		s.approval.Reject(actionID)
	}
}

// ── Helpers ────────────────────────────────────────────────

// confirm asks for approval of a destructive action. Without an
// approval queue every action is allowed.
func (s *Server) confirm(tool, description string) bool {
	if s.approval == nil {
		return true
	}
	approved, err := s.approval.Request(tool, description)
	if err != nil {
		s.log.Warn("mcp: approval failed", "tool", tool, "error", err)
	}
	return err == nil && approved
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// requireGrid returns the gridId argument.
func requireGrid(req mcp.CallToolRequest) (string, error) {
	ref := req.GetString("gridId", "")
	if ref == "" {
		return "", fmt.Errorf("gridId is required")
	}
	return ref, nil
}
