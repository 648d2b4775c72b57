package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

// ── Engine ─────────────────────────────────────────────────
// read → key → dedupe → derive columns → write.

// Engine runs import jobs using the registered sources and a destination.
type Engine struct {
	Dest Destination
}

// Run executes an import job end to end.
func (e *Engine) Run(ctx context.Context, job *ImportJob) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{JobID: job.ID}
	fail := func(stage string, err error) (*RunResult, error) {
		result.Status = StatusError
		result.Error = fmt.Sprintf("%s: %s", stage, err)
		result.Duration = time.Since(start)
		return result, fmt.Errorf("%s: %w", stage, err)
	}

	source, err := GetSource(job.SourceType)
	if err != nil {
		return fail("source", err)
	}
	if err := source.Spec().Validate(job.SourceCfg); err != nil {
		return fail("config", err)
	}

	schema, err := source.Discover(ctx, job.SourceCfg)
	if err != nil {
		return fail("discover", err)
	}

	recCh, errCh := source.Read(ctx, job.SourceCfg)
	var raw []Record
	for rec := range recCh {
		raw = append(raw, rec)
	}
	if err := <-errCh; err != nil {
		return fail("read", err)
	}
	if err := ctx.Err(); err != nil {
		return fail("read", err)
	}
	result.RowsRead = len(raw)

	records, skipped := AssignKeys(raw, job.KeyField)
	result.RowsSkipped = skipped

	gridID, err := e.Dest.Write(ctx, job.TargetGrid, DeriveSchema(raw, schema), records)
	if err != nil {
		return fail("write", err)
	}

	result.GridID = gridID
	result.Status = StatusSuccess
	result.RowsWritten = len(records)
	result.Duration = time.Since(start)
	return result, nil
}

// Preview reads up to maxRows records without writing anything.
func (e *Engine) Preview(ctx context.Context, sourceType string, cfg SourceConfig, maxRows int) ([]Record, *Schema, error) {
	source, err := GetSource(sourceType)
	if err != nil {
		return nil, nil, err
	}
	if err := source.Spec().Validate(cfg); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schema, err := source.Discover(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("discover: %w", err)
	}

	recCh, errCh := source.Read(ctx, cfg)

	var records []Record
	for rec := range recCh {
		records = append(records, rec)
		if len(records) >= maxRows {
			break
		}
	}
	cancel()
	for range recCh {
	}
	if err := <-errCh; err != nil {
		return records, schema, err
	}
	return records, schema, nil
}

// AssignKeys turns source records into grid records. The key is the string
// form of keyField when set and non-empty, otherwise a generated UUID.
// Records whose key was already seen are dropped; the first one wins.
func AssignKeys(raw []Record, keyField string) ([]domain.Record, int) {
	out := make([]domain.Record, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	skipped := 0
	for _, rec := range raw {
		key := ""
		if keyField != "" {
			key = grid.FormatValue(rec.Data[keyField])
		}
		if key == "" {
			key = uuid.New().String()
		}
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true
		out = append(out, domain.Record{Key: key, Fields: rec.Data})
	}
	return out, skipped
}

// DeriveSchema returns the source schema extended with any field that
// appears in the records but was not discovered.
func DeriveSchema(records []Record, discovered *Schema) *Schema {
	out := &Schema{}
	seen := make(map[string]bool)
	if discovered != nil {
		for _, f := range discovered.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				out.Fields = append(out.Fields, f)
			}
		}
	}

	for _, r := range records {
		for _, k := range sortedKeys(r.Data) {
			if !seen[k] {
				seen[k] = true
				out.Fields = append(out.Fields, Field{Name: k, Type: InferType(r.Data[k])})
			}
		}
	}
	return out
}
