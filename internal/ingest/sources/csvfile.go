package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"datagrid/internal/ingest"
)

// ── CSV File Source ─────────────────────────────────────────

type csvFileSource struct{}

func init() { ingest.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  "csv_file",
		Label: "CSV File",
		ConfigFields: []ingest.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the CSV file"},
			{Key: "delimiter", Label: "Delimiter", Type: "string", Default: ",", Help: "Column delimiter"},
			{Key: "hasHeader", Label: "Has Header", Type: "select", Options: []string{"true", "false"}, Default: "true", Help: "Whether the first row contains column names"},
		},
	}
}

func (s *csvFileSource) Discover(ctx context.Context, cfg ingest.SourceConfig) (*ingest.Schema, error) {
	r, f, err := openCSV(cfg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	headers, _, err := csvHeaders(r, cfg)
	if err != nil {
		return nil, err
	}
	schema := &ingest.Schema{Fields: make([]ingest.Field, len(headers))}
	for i, h := range headers {
		schema.Fields[i] = ingest.Field{Name: h, Type: "text"}
	}
	return schema, nil
}

// Read streams the file row by row instead of loading it whole.
func (s *csvFileSource) Read(ctx context.Context, cfg ingest.SourceConfig) (<-chan ingest.Record, <-chan error) {
	out := make(chan ingest.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		r, f, err := openCSV(cfg)
		if err != nil {
			errCh <- err
			return
		}
		defer f.Close()

		headers, first, err := csvHeaders(r, cfg)
		if err != nil {
			errCh <- err
			return
		}

		row := first
		for {
			if row == nil {
				row, err = r.Read()
				if err == io.EOF {
					return
				}
				if err != nil {
					errCh <- fmt.Errorf("parse csv: %w", err)
					return
				}
			}

			data := make(map[string]any, len(headers))
			for j, h := range headers {
				if j < len(row) {
					data[h] = ingest.InferValue(row[j])
				}
			}
			row = nil

			select {
			case out <- ingest.Record{Data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

func openCSV(cfg ingest.SourceConfig) (*csv.Reader, *os.File, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, nil, fmt.Errorf("filePath is required")
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}

	r := csv.NewReader(f)
	if delim := cfg.String("delimiter"); delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r, f, nil
}

// csvHeaders reads the header row. Without a header, names are generated
// as col_1, col_2, ... and the first data row is returned for reuse.
func csvHeaders(r *csv.Reader, cfg ingest.SourceConfig) ([]string, []string, error) {
	first, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty csv file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}

	if !strings.EqualFold(cfg.String("hasHeader"), "false") {
		headers := make([]string, len(first))
		for i, h := range first {
			headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			if headers[i] == "" {
				headers[i] = fmt.Sprintf("col_%d", i+1)
			}
		}
		return headers, nil, nil
	}

	headers := make([]string, len(first))
	for i := range headers {
		headers[i] = fmt.Sprintf("col_%d", i+1)
	}
	return headers, first, nil
}
