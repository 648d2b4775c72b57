package service

import (
	"context"
	"sync"
)

// Event names emitted by the services.
const (
	EventViewChanged   = "grid:view-changed"
	EventRowsChanged   = "grid:rows-changed"
	EventPersistFailed = "grid:persist-failed"
	EventImported      = "grid:imported"
	EventJobFinished   = "import:job-completed"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their front end
// ─────────────────────────────────────────────────────────────

// EventEmitter pushes notifications to whatever adapter is attached
// (terminal UI, MCP server). Services receive this interface so they can
// be tested with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded events with the given name, oldest first.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
