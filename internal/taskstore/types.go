// Package taskstore is the Task Store: a read-only projection that
// aggregates the task graph extracted from every session in a project
// into one queryable, cross-session view. It watches for session-file
// updates (via a Refresh call driven by the Session Watcher) to keep
// that view current; it never mutates agent state.
package taskstore

import "github.com/langmartai/lm-assist/internal/session"

// Task is one namespaced task-graph node, aggregated from one session's
// TaskCreate/TaskUpdate tool calls. The id, and every reference to
// another task in Blocks/BlockedBy, is namespaced with the owning
// session's id prefix so tasks from many sessions can share one index
// without collision.
type Task struct {
	ID          string            `json:"id"` // "{sid8}:{rawId}"
	SessionID   string            `json:"sessionId"`
	Subject     string            `json:"subject"`
	Description string            `json:"description"`
	Status      session.TaskStatus `json:"status"`
	Owner       string            `json:"owner,omitempty"`
	Blocks      []string          `json:"blocks,omitempty"`
	BlockedBy   []string          `json:"blockedBy,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// SessionSummary is the Task Store's per-session bookkeeping: how many
// tasks it last produced.
type SessionSummary struct {
	SessionID string `json:"sessionId"`
	TaskCount int    `json:"taskCount"`
}

// DiffKind is the closed set of events Refresh emits after reconciling
// a rescan against the prior state.
type DiffKind string

const (
	EventTaskCreated   DiffKind = "task:created"
	EventTaskUpdated   DiffKind = "task:updated"
	EventTaskCompleted DiffKind = "task:completed"
	EventSessionUpdated DiffKind = "session:updated"
	EventAdhocDetected DiffKind = "adhoc:detected"
)

// DiffEvent describes one change Refresh discovered.
type DiffEvent struct {
	Kind      DiffKind `json:"kind"`
	TaskID    string   `json:"taskId,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
}

// Listener receives diff events as Refresh discovers them. Panics and
// errors from a listener are absorbed — one bad subscriber must not
// stall emission for the rest.
type Listener func(DiffEvent)
