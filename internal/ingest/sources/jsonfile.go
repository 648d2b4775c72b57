package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"datagrid/internal/ingest"
)

// ── JSON File Source ────────────────────────────────────────

type jsonFileSource struct{}

func init() { ingest.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  "json_file",
		Label: "JSON File",
		ConfigFields: []ingest.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the JSON file"},
			{Key: "dataPath", Label: "Data Path", Type: "string", Help: "Dot-separated path to the array (e.g. 'data.items'). Leave empty if the root is an array."},
		},
	}
}

func (s *jsonFileSource) Discover(ctx context.Context, cfg ingest.SourceConfig) (*ingest.Schema, error) {
	records, err := readJSONFile(cfg)
	if err != nil {
		return nil, err
	}
	return ingest.InferSchema(records), nil
}

func (s *jsonFileSource) Read(ctx context.Context, cfg ingest.SourceConfig) (<-chan ingest.Record, <-chan error) {
	out := make(chan ingest.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		records, err := readJSONFile(cfg)
		if err != nil {
			errCh <- err
			return
		}
		for _, rec := range records {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, errCh
}

func readJSONFile(cfg ingest.SourceConfig) ([]ingest.Record, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	raw, err = walkDataPath(raw, cfg.String("dataPath"))
	if err != nil {
		return nil, err
	}
	return toRecords(raw)
}

// walkDataPath follows a dot-separated path of object keys into raw.
func walkDataPath(raw any, path string) (any, error) {
	if path == "" {
		return raw, nil
	}
	for _, part := range strings.Split(path, ".") {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid data path: %q not found", part)
		}
		raw = m[part]
	}
	return raw, nil
}

// toRecords converts an array of objects, or a single object, into records.
func toRecords(raw any) ([]ingest.Record, error) {
	switch v := raw.(type) {
	case []any:
		records := make([]ingest.Record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, ingest.Record{Data: ingest.FlattenMap(m)})
			}
		}
		return records, nil
	case map[string]any:
		return []ingest.Record{{Data: ingest.FlattenMap(v)}}, nil
	default:
		return nil, fmt.Errorf("expected an array of objects, got %T", raw)
	}
}
