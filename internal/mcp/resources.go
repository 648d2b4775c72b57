package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const gridsURI = "datagrid://grids"

func (s *Server) registerResources() {
	// ── datagrid://grids ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		gridsURI,
		"All Grids",
		mcp.WithMIMEType("application/json"),
	), s.handleGridsResource)

	// ── grid://{id}/view ───────────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"grid://{id}/view",
			"Current view of a grid",
		),
		s.handleGridViewResource,
	)
}

func (s *Server) handleGridsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	grids, err := s.grids.ListGrids()
	if err != nil {
		return nil, err
	}

	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URI  string `json:"uri"`
	}
	out := make([]entry, len(grids))
	for i, g := range grids {
		out[i] = entry{ID: g.ID, Name: g.Name, URI: "grid://" + g.ID + "/view"}
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      gridsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleGridViewResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := gridIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract grid id from URI: %s", uri)
	}

	v, err := s.grids.View(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// gridIDFromURI extracts the id from "grid://{id}/view".
func gridIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "grid://")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/view")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
