package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"datagrid/internal/config"
)

// recordingHandler keeps every record it handles.
type recordingHandler struct {
	level   slog.Level
	records []slog.Record
	attrs   []slog.Attr
	err     error
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return h.err
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{level: h.level, attrs: append(h.attrs, attrs...)}
}

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func TestMultiHandler_RespectsLevels(t *testing.T) {
	debug := &recordingHandler{level: slog.LevelDebug}
	warn := &recordingHandler{level: slog.LevelWarn}
	logger := slog.New(&multiHandler{handlers: []slog.Handler{debug, warn}})

	logger.Debug("grid opened")
	logger.Warn("import watcher: error")

	if len(debug.records) != 2 {
		t.Errorf("debug handler: expected 2 records, got %d", len(debug.records))
	}
	if len(warn.records) != 1 {
		t.Errorf("warn handler: expected 1 record, got %d", len(warn.records))
	}
}

func TestMultiHandler_DisabledBelowAllLevels(t *testing.T) {
	m := &multiHandler{handlers: []slog.Handler{
		&recordingHandler{level: slog.LevelWarn},
		&recordingHandler{level: slog.LevelError},
	}}
	if m.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled when every handler wants warn or above")
	}
}

func TestMultiHandler_KeepsGoingAfterError(t *testing.T) {
	failing := &recordingHandler{err: errors.New("seq down")}
	ok := &recordingHandler{}
	m := &multiHandler{handlers: []slog.Handler{failing, ok}}

	err := slog.New(m).Handler().Handle(context.Background(), slog.NewRecord(
		time.Time{}, slog.LevelInfo, "import: job finished", 0,
	))
	if err == nil {
		t.Error("expected the first handler error to be returned")
	}
	if len(ok.records) != 1 {
		t.Errorf("second handler should still receive the record, got %d", len(ok.records))
	}
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	a := &recordingHandler{}
	m := (&multiHandler{handlers: []slog.Handler{a}}).WithAttrs([]slog.Attr{slog.String("grid", "people")})
	inner := m.(*multiHandler).handlers[0].(*recordingHandler)
	if len(inner.attrs) != 1 || inner.attrs[0].Key != "grid" {
		t.Errorf("attrs not forwarded: %+v", inner.attrs)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_TextAndJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := New(&buf, config.LoggingConfig{Level: "info", Format: "json"})
	if closeFn != nil {
		t.Error("expected no close function without Seq")
	}
	logger.Debug("hidden")
	logger.Info("grid created", "rows", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out, `"msg":"grid created"`) || !strings.Contains(out, `"rows":3`) {
		t.Errorf("unexpected json output: %s", out)
	}

	buf.Reset()
	logger, _ = New(&buf, config.LoggingConfig{Level: "debug", Format: "text"})
	logger.Debug("grid opened", "grid", "people")
	if !strings.Contains(buf.String(), "grid=people") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

func TestSetup_File(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "datagrid.log")
	logger, cleanup, err := Setup(config.LoggingConfig{Level: "info", Format: "text", File: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("import: job finished", "job", "people")
	slog.Info("through the default logger")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "job=people") || !strings.Contains(string(data), "through the default logger") {
		t.Errorf("unexpected log file contents: %s", data)
	}
}
