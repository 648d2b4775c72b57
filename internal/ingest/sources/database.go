package sources

import (
	"context"
	"fmt"
	"strconv"

	"datagrid/internal/dbclient"
	"datagrid/internal/ingest"
)

// ── Database Source ────────────────────────────────────────
// Runs a read query against an external database through dbclient.

const fetchSize = 500

type databaseSource struct{}

func init() { ingest.RegisterSource(&databaseSource{}) }

func (s *databaseSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  "database",
		Label: "Database Query",
		ConfigFields: []ingest.ConfigField{
			{Key: "driver", Label: "Driver", Type: "select", Required: true, Options: []string{"sqlite", "postgres", "mysql", "mongodb"}},
			{Key: "host", Label: "Host", Type: "string", Required: true, Help: "Hostname, SQLite file path or MongoDB URI"},
			{Key: "port", Label: "Port", Type: "number"},
			{Key: "database", Label: "Database", Type: "string"},
			{Key: "username", Label: "Username", Type: "string"},
			{Key: "password", Label: "Password", Type: "password"},
			{Key: "sslMode", Label: "SSL Mode", Type: "select", Options: []string{"disable", "require"}},
			{Key: "query", Label: "Query", Type: "string", Required: true, Help: "SELECT statement, or a JSON find for MongoDB"},
		},
	}
}

func connConfig(cfg ingest.SourceConfig) dbclient.ConnConfig {
	port := 0
	switch p := cfg["port"].(type) {
	case float64:
		port = int(p)
	case int:
		port = p
	case string:
		port, _ = strconv.Atoi(p)
	}
	return dbclient.ConnConfig{
		Driver:   dbclient.Driver(cfg.String("driver")),
		Host:     cfg.String("host"),
		Port:     port,
		Database: cfg.String("database"),
		Username: cfg.String("username"),
		Password: cfg.String("password"),
		SSLMode:  cfg.String("sslMode"),
	}
}

func (s *databaseSource) Discover(ctx context.Context, cfg ingest.SourceConfig) (*ingest.Schema, error) {
	conn, err := dbclient.NewConnector(connConfig(cfg))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	page, err := conn.Execute(ctx, cfg.String("query"), 1)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	schema := &ingest.Schema{Fields: make([]ingest.Field, len(page.Columns))}
	for i, col := range page.Columns {
		typ := "text"
		if len(page.Rows) > 0 && i < len(page.Rows[0]) {
			typ = ingest.InferType(page.Rows[0][i])
		}
		schema.Fields[i] = ingest.Field{Name: col, Type: typ}
	}
	return schema, nil
}

func (s *databaseSource) Read(ctx context.Context, cfg ingest.SourceConfig) (<-chan ingest.Record, <-chan error) {
	out := make(chan ingest.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		conn, err := dbclient.NewConnector(connConfig(cfg))
		if err != nil {
			errCh <- err
			return
		}
		defer conn.Close()

		page, err := conn.Execute(ctx, cfg.String("query"), fetchSize)
		if err != nil {
			errCh <- fmt.Errorf("execute: %w", err)
			return
		}
		if !emitPage(ctx, out, page) {
			return
		}

		for page.HasMore {
			page, err = conn.FetchMore(ctx, fetchSize)
			if err != nil {
				errCh <- fmt.Errorf("fetch more: %w", err)
				return
			}
			if !emitPage(ctx, out, page) {
				return
			}
		}
	}()

	return out, errCh
}

func emitPage(ctx context.Context, out chan<- ingest.Record, page *dbclient.QueryPage) bool {
	for _, row := range page.Rows {
		data := make(map[string]any, len(page.Columns))
		for i, col := range page.Columns {
			if i < len(row) {
				data[col] = row[i]
			}
		}
		select {
		case out <- ingest.Record{Data: data}:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
