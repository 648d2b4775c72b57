package mcpserver

import (
	"context"
	"fmt"

	"datagrid/internal/ingest"
	"datagrid/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerImportTools() {
	s.mcp.AddTool(mcp.NewTool("list_import_sources",
		mcp.WithDescription("List available import source types with their configuration fields"),
	), s.handleListImportSources)

	s.mcp.AddTool(mcp.NewTool("create_import_job",
		mcp.WithDescription("Create an import job that loads a source (CSV, JSON, database) into a grid. The grid is created on the first run; later runs replace its rows and keep column order, widths and visibility."),
		mcp.WithString("name", mcp.Description("Job name (defaults to the grid name)")),
		mcp.WithString("sourceType", mcp.Description("Source type (use list_import_sources to see available types)"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithString("targetGrid", mcp.Description("Name of the grid to load into"), mcp.Required()),
		mcp.WithString("keyField", mcp.Description("Field whose value becomes the row key. Rows repeating a key are skipped. Without it keys are generated.")),
		mcp.WithString("triggerType", mcp.Description("manual (default), schedule or file_watch")),
		mcp.WithString("triggerConfig", mcp.Description("Cron expression for schedule, file path for file_watch")),
	), s.handleCreateImportJob)

	s.mcp.AddTool(mcp.NewTool("list_import_jobs",
		mcp.WithDescription("List import jobs with their last run status"),
	), s.handleListImportJobs)

	s.mcp.AddTool(mcp.NewTool("run_import_job",
		mcp.WithDescription("🛑 DESTRUCTIVE: Run an import job. Replaces the rows of its target grid. May require user approval."),
		mcp.WithString("jobId", mcp.Description("Import job ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunImportJob)

	s.mcp.AddTool(mcp.NewTool("preview_import_source",
		mcp.WithDescription("Preview the first rows and schema of a source without writing anything"),
		mcp.WithString("sourceType", mcp.Description("Source type"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
	), s.handlePreviewImportSource)
}

func (s *Server) handleListImportSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.imports.ListSources())
}

func (s *Server) handleCreateImportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var cfg ingest.SourceConfig
	if err := parseJSON(req.GetString("sourceConfigJSON", ""), &cfg); err != nil {
		return nil, fmt.Errorf("parse sourceConfig: %w", err)
	}

	job, err := s.imports.CreateJob(ctx, service.CreateImportJobInput{
		Name:          req.GetString("name", ""),
		SourceType:    req.GetString("sourceType", ""),
		SourceConfig:  cfg,
		TargetGrid:    req.GetString("targetGrid", ""),
		KeyField:      req.GetString("keyField", ""),
		TriggerType:   req.GetString("triggerType", ingest.TriggerManual),
		TriggerConfig: req.GetString("triggerConfig", ""),
		Enabled:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	return jsonResult(job)
}

func (s *Server) handleListImportJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.imports.ListJobs()
	if err != nil {
		return nil, err
	}
	return jsonResult(jobs)
}

func (s *Server) handleRunImportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}

	job, err := s.imports.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if !s.confirm("run_import_job",
		fmt.Sprintf("Run import job %q (replaces the rows of grid %s)", job.Name, job.TargetGrid)) {
		return textResult("Action rejected by user"), nil
	}

	result, err := s.imports.RunJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("run import job: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handlePreviewImportSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceType := req.GetString("sourceType", "")
	var cfg ingest.SourceConfig
	if err := parseJSON(req.GetString("sourceConfigJSON", ""), &cfg); err != nil || sourceType == "" {
		return nil, fmt.Errorf("sourceType and a valid sourceConfigJSON are required")
	}

	preview, err := s.imports.Preview(ctx, sourceType, cfg)
	if err != nil {
		return nil, fmt.Errorf("preview source: %w", err)
	}
	return jsonResult(preview)
}
