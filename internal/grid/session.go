package grid

import (
	"fmt"
	"sync"

	"datagrid/internal/domain"
)

// DataChangeFunc receives the full row sequence after a committed row reorder.
type DataChangeFunc func(rows []domain.Record) error

// DataChangeError reports a failed onDataChange. The transition that
// triggered it stays committed.
type DataChangeError struct {
	Err error
}

func (e *DataChangeError) Error() string {
	return fmt.Sprintf("data change: %v", e.Err)
}

func (e *DataChangeError) Unwrap() error { return e.Err }

// Session owns the state of one mounted grid. Dispatches are serialized;
// each one is an atomic transition from one consistent state to the next.
type Session struct {
	mu           sync.Mutex
	state        State
	onDataChange DataChangeFunc

	revision  uint64
	view      View
	viewRev   uint64
	viewValid bool

	// Notifications leave in commit order: each committed row change takes
	// a ticket under mu and waits for its turn on notifyCond.
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	ticket     uint64
	turn       uint64
}

// NewSession starts a session. onDataChange may be nil.
func NewSession(state State, onDataChange DataChangeFunc) *Session {
	s := &Session{state: state, onDataChange: onDataChange}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	return s
}

// State returns the current committed state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Revision increases on every committed transition.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Dispatch applies an action and returns the resulting view.
// onDataChange runs once, outside the state lock, when the row order changed;
// concurrent dispatches notify in the order they committed. A failed
// notification returns the committed view with a *DataChangeError.
func (s *Session) Dispatch(a Action) (View, error) {
	s.mu.Lock()
	prev := s.state
	next, err := Apply(prev, a)
	if err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	s.state = next
	s.revision++
	notify := next.rows != prev.rows && s.onDataChange != nil
	var ticket uint64
	if notify {
		ticket = s.ticket
		s.ticket++
	}
	v := s.viewLocked()
	s.mu.Unlock()

	if !notify {
		return v, nil
	}

	s.notifyMu.Lock()
	for s.turn != ticket {
		s.notifyCond.Wait()
	}
	err = s.onDataChange(next.Rows())
	s.turn++
	s.notifyCond.Broadcast()
	s.notifyMu.Unlock()

	if err != nil {
		return v, &DataChangeError{Err: err}
	}
	return v, nil
}

// Replace swaps in a new state without notifying onDataChange.
func (s *Session) Replace(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.revision++
}

// View returns the composed view, recomputing it only after a transition.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	if !s.viewValid || s.viewRev != s.revision {
		s.view = Compose(s.state)
		s.viewRev = s.revision
		s.viewValid = true
	}
	return s.view
}
