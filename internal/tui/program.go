package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"datagrid/internal/service"
)

// ProgramEmitter forwards grid change events to a running program so the
// open view follows imports and reloads. Events emitted before a program
// is attached are dropped.
type ProgramEmitter struct {
	mu      sync.Mutex
	program *tea.Program
}

// Attach sets the program that receives events. A nil program detaches.
func (e *ProgramEmitter) Attach(p *tea.Program) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.program = p
}

func (e *ProgramEmitter) Emit(_ context.Context, event string, data any) {
	switch event {
	case service.EventViewChanged, service.EventRowsChanged, service.EventImported:
	default:
		return
	}
	id := gridIDOf(data)
	if id == "" {
		return
	}

	e.mu.Lock()
	p := e.program
	e.mu.Unlock()
	if p == nil {
		return
	}
	// Send blocks until the event loop takes the message, and events are
	// emitted from inside Update.
	go p.Send(gridChangedMsg{gridID: id})
}

func gridIDOf(data any) string {
	switch d := data.(type) {
	case map[string]any:
		id, _ := d["gridId"].(string)
		return id
	case map[string]string:
		return d["gridId"]
	}
	return ""
}

// Run opens ref and runs the terminal UI until the user quits or ctx ends.
// When emitter is non-nil it is attached to the program for its lifetime.
func Run(ctx context.Context, backend Backend, ref string, emitter *ProgramEmitter) error {
	m, err := New(ctx, backend, ref)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if emitter != nil {
		emitter.Attach(p)
		defer emitter.Attach(nil)
	}
	_, err = p.Run()
	return err
}
