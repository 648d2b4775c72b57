package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"datagrid/internal/ingest"
)

// ── HTTP JSON Source ────────────────────────────────────────
// Fetches a JSON document from a REST endpoint.

const httpTimeout = 30 * time.Second

type httpSource struct {
	client *http.Client
}

func init() { ingest.RegisterSource(&httpSource{client: &http.Client{Timeout: httpTimeout}}) }

func (s *httpSource) Spec() ingest.SourceSpec {
	return ingest.SourceSpec{
		Type:  "http_json",
		Label: "HTTP API",
		ConfigFields: []ingest.ConfigField{
			{Key: "url", Label: "URL", Type: "string", Required: true, Help: "Full URL to fetch (e.g. https://api.github.com/users/me/repos)"},
			{Key: "method", Label: "Method", Type: "select", Options: []string{"GET", "POST"}, Default: "GET"},
			{Key: "headers", Label: "Headers", Type: "string", Help: `JSON object of headers (e.g. {"Authorization": "Bearer xxx"})`},
			{Key: "body", Label: "Body", Type: "string", Help: "Request body (for POST)"},
			{Key: "dataPath", Label: "Data Path", Type: "string", Help: "Dot-separated path to the array in the response (e.g. 'data.items')"},
		},
	}
}

func (s *httpSource) Discover(ctx context.Context, cfg ingest.SourceConfig) (*ingest.Schema, error) {
	records, err := s.fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ingest.InferSchema(records), nil
}

func (s *httpSource) Read(ctx context.Context, cfg ingest.SourceConfig) (<-chan ingest.Record, <-chan error) {
	out := make(chan ingest.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		records, err := s.fetch(ctx, cfg)
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

func (s *httpSource) fetch(ctx context.Context, cfg ingest.SourceConfig) ([]ingest.Record, error) {
	url := cfg.String("url")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	method := strings.ToUpper(cfg.String("method"))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if b := cfg.String("body"); b != "" {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h := cfg.String("headers"); h != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(h), &headers); err != nil {
			return nil, fmt.Errorf("parse headers: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var raw any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	raw, err = walkDataPath(raw, cfg.String("dataPath"))
	if err != nil {
		return nil, err
	}
	return toRecords(raw)
}
