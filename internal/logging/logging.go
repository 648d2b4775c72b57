package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogseq "github.com/sokkalf/slog-seq"

	"datagrid/internal/config"
)

// multiHandler forwards log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Setup builds the logger described by cfg, installs it as the slog
// default and returns it with a cleanup function that flushes the Seq
// sink and closes the log file.
//
// Records go to cfg.File, or stderr when no file is set. stdout is left
// alone: the MCP server speaks its protocol there.
func Setup(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	var closers []func()

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closers = append(closers, func() { f.Close() })
	}

	logger, closeSeq := New(out, cfg)
	if closeSeq != nil {
		closers = append([]func(){closeSeq}, closers...)
	}
	slog.SetDefault(logger)

	return logger, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// New builds a logger writing to out, fanned out to Seq when cfg.SeqURL is
// set. The returned close function is nil without a Seq sink.
func New(out io.Writer, cfg config.LoggingConfig) (*slog.Logger, func()) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var console slog.Handler
	if cfg.Format == "json" {
		console = slog.NewJSONHandler(out, opts)
	} else {
		console = slog.NewTextHandler(out, opts)
	}

	if cfg.SeqURL == "" {
		return slog.New(console), nil
	}

	_, seqHandler := slogseq.NewLogger(
		cfg.SeqURL,
		slogseq.WithBatchSize(50),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(opts),
	)
	if seqHandler == nil {
		return slog.New(console), nil
	}

	multi := &multiHandler{handlers: []slog.Handler{console, seqHandler}}
	return slog.New(multi), func() { seqHandler.Close() }
}
