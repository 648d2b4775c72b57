package ingest

import (
	"context"
	"errors"
	"fmt"

	"datagrid/internal/domain"
)

// ── Destination ────────────────────────────────────────────

// Destination stores keyed records into a named grid and returns its id.
type Destination interface {
	Write(ctx context.Context, gridName string, schema *Schema, records []domain.Record) (string, error)
}

// GridWriter writes into a domain.GridStore. A missing grid is created
// with one column per schema field. For an existing grid, new fields are
// appended as columns while existing columns keep their order, width and
// visibility. Rows are replaced: keys already stored keep their stored
// position, new keys follow in source order, and keys the source no longer
// has are dropped.
type GridWriter struct {
	Store    domain.GridStore
	Settings domain.Settings
	PageSize int
}

func (w *GridWriter) Write(ctx context.Context, gridName string, schema *Schema, records []domain.Record) (string, error) {
	if gridName == "" {
		return "", fmt.Errorf("target grid name is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g, err := w.Store.GetGridByName(gridName)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		g = &domain.Grid{
			Name: gridName,
			Config: domain.GridConfig{
				Settings: w.Settings,
				PageSize: w.PageSize,
			},
		}
		g.Config.Columns = appendColumns(nil, schema)
		if err := w.Store.CreateGrid(g); err != nil {
			return "", fmt.Errorf("create grid: %w", err)
		}
	case err != nil:
		return "", err
	default:
		before := len(g.Config.Columns)
		g.Config.Columns = appendColumns(g.Config.Columns, schema)
		if len(g.Config.Columns) != before {
			if err := w.Store.UpdateGrid(g); err != nil {
				return "", fmt.Errorf("update columns: %w", err)
			}
		}
		stored, err := w.Store.ListRows(g.ID)
		if err != nil {
			return "", fmt.Errorf("load rows: %w", err)
		}
		records = keepStoredOrder(stored, records)
	}

	if err := w.Store.ReplaceRows(g.ID, records); err != nil {
		return "", fmt.Errorf("replace rows: %w", err)
	}
	return g.ID, nil
}

// keepStoredOrder lays out incoming records by the position of their key
// in stored, then appends the records whose key is new.
func keepStoredOrder(stored, incoming []domain.Record) []domain.Record {
	byKey := make(map[string]domain.Record, len(incoming))
	for _, r := range incoming {
		byKey[r.Key] = r
	}
	out := make([]domain.Record, 0, len(incoming))
	placed := make(map[string]bool, len(incoming))
	for _, old := range stored {
		if r, ok := byKey[old.Key]; ok {
			out = append(out, r)
			placed[r.Key] = true
		}
	}
	for _, r := range incoming {
		if !placed[r.Key] {
			out = append(out, r)
		}
	}
	return out
}

// appendColumns adds a column for every schema field not yet present.
func appendColumns(cols []domain.Column, schema *Schema) []domain.Column {
	if schema == nil {
		return cols
	}
	existing := make(map[string]bool, len(cols))
	for _, c := range cols {
		existing[c.Key] = true
		existing[c.DataIndex] = true
	}
	for _, f := range schema.Fields {
		if existing[f.Name] {
			continue
		}
		existing[f.Name] = true
		cols = append(cols, domain.Column{
			Key:       f.Name,
			Title:     f.Name,
			DataIndex: f.Name,
			Width:     domain.DefaultColumnWidth,
		})
	}
	return cols
}
