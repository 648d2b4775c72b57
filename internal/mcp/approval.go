package mcpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Approval events.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

// EventEmitter allows the approval queue to notify an attached front end.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// PendingAction is a destructive tool call awaiting a decision.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"`
}

type actionResult struct {
	approved bool
}

// ApprovalQueue holds destructive MCP tool calls (import runs that replace
// rows, grid deletes) until a human decides. It works in two modes:
//   - in-process: channels, with the request announced through the emitter
//   - SQLite: the request is written to mcp_approvals and polled, so a
//     separate `datagrid approvals` process can answer it
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan actionResult
	ctx     context.Context
	emitter EventEmitter
	timeout time.Duration
	poll    time.Duration
	db      *sql.DB
}

func NewApprovalQueue(ctx context.Context, emitter EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		pending: make(map[string]chan actionResult),
		ctx:     ctx,
		emitter: emitter,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// SetDB enables SQLite mode.
func (q *ApprovalQueue) SetDB(db *sql.DB) {
	q.db = db
}

// SetTimeout changes how long a request waits before it is rejected.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	q.timeout = d
}

// Request records an approval request and blocks until it is approved,
// rejected or timed out. metadata is optional JSON context.
func (q *ApprovalQueue) Request(tool, description string, metadata ...string) (bool, error) {
	id := uuid.New().String()
	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}

	if q.db != nil {
		return q.requestViaDB(id, tool, description, meta)
	}
	return q.requestViaChannel(id, tool, description, meta)
}

func (q *ApprovalQueue) requestViaDB(id, tool, description, metadata string) (bool, error) {
	_, err := q.db.Exec(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata, created_at)
		 VALUES (?, ?, ?, 'pending', ?, ?)`,
		id, tool, description, metadata, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert approval: %w", err)
	}
	defer q.db.Exec(`DELETE FROM mcp_approvals WHERE id = ?`, id)

	deadline := time.Now().Add(q.timeout)
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Now().After(deadline) {
				return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
			}
			var status string
			if err := q.db.QueryRow(`SELECT status FROM mcp_approvals WHERE id = ?`, id).Scan(&status); err != nil {
				continue
			}
			switch status {
			case "approved":
				return true, nil
			case "rejected":
				return false, fmt.Errorf("action rejected by user: %s", tool)
			}
		case <-q.ctx.Done():
			return false, fmt.Errorf("context cancelled")
		}
	}
}

func (q *ApprovalQueue) requestViaChannel(id, tool, description, metadata string) (bool, error) {
	ch := make(chan actionResult, 1)

	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(q.ctx, EventApprovalRequired, PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	})

	select {
	case result := <-ch:
		if !result.approved {
			return false, fmt.Errorf("action rejected by user: %s", tool)
		}
		return true, nil
	case <-time.After(q.timeout):
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": id})
		return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-q.ctx.Done():
		return false, fmt.Errorf("context cancelled")
	}
}

// Approve marks a pending in-process action as approved.
func (q *ApprovalQueue) Approve(actionID string) {
	q.resolve(actionID, true)
}

// Reject marks a pending in-process action as rejected.
func (q *ApprovalQueue) Reject(actionID string) {
	q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if ok {
		select {
		case ch <- actionResult{approved: approved}:
		default:
		}
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}

// ── SQLite mode: the answering side ───────────────────────

// ErrNoPendingAction is returned when an id does not name a pending action.
var ErrNoPendingAction = errors.New("no pending action")

// ListPendingApprovals returns the actions waiting in mcp_approvals, oldest first.
func ListPendingApprovals(db *sql.DB) ([]PendingAction, error) {
	rows, err := db.Query(
		`SELECT id, tool, description, metadata, created_at FROM mcp_approvals
		 WHERE status = 'pending' ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingAction
	for rows.Next() {
		var a PendingAction
		var created time.Time
		if err := rows.Scan(&a.ID, &a.Tool, &a.Description, &a.Metadata, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = created.UTC().Format(time.RFC3339)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ResolveApproval answers a pending action stored in mcp_approvals.
func ResolveApproval(db *sql.DB, id string, approved bool) error {
	status := "rejected"
	if approved {
		status = "approved"
	}
	res, err := db.Exec(
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = 'pending'`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoPendingAction, id)
	}
	return nil
}
