// Package execstore is the Execution Store: it tracks live executions
// started through the agent runner — status, streamed output chunks,
// usage, cost, linked raw events, blocking events (permission prompts,
// user questions), and tracked file changes — layered on top of the
// Session Cache's view of the underlying JSONL session.
package execstore

import "time"

// Status is an execution's lifecycle state. Monotone: once Completed,
// Failed, or Cancelled it never transitions again.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ChunkType is the closed set of streamed output chunk kinds an
// execution accumulates.
type ChunkType string

const (
	ChunkText              ChunkType = "text"
	ChunkToolUse           ChunkType = "tool_use"
	ChunkToolResult        ChunkType = "tool_result"
	ChunkThinking          ChunkType = "thinking"
	ChunkRedactedThinking  ChunkType = "redacted_thinking"
	ChunkMCPToolCall       ChunkType = "mcp_tool_call"
	ChunkMCPToolResult     ChunkType = "mcp_tool_result"
	ChunkHookEvent         ChunkType = "hook_event"
	ChunkSubagentStart     ChunkType = "subagent_start"
	ChunkSubagentResult    ChunkType = "subagent_result"
	ChunkUserQuestion      ChunkType = "user_question"
	ChunkUserAnswer        ChunkType = "user_answer"
)

// OutputChunk is one piece of an execution's streamed output.
type OutputChunk struct {
	Type      ChunkType      `json:"type"`
	Text      string         `json:"text,omitempty"`
	ToolName  string         `json:"toolName,omitempty"`
	ToolInput map[string]any `json:"toolInput,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Usage mirrors internal/session.Usage; duplicated rather than imported
// so the Execution Store has no dependency on the Session Cache package
// — it is a separate runtime construct overlaid on top of sessions.
type Usage struct {
	InputTokens              int `json:"inputTokens"`
	OutputTokens             int `json:"outputTokens"`
	CacheReadInputTokens     int `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int `json:"cacheCreationInputTokens"`
}

// FileChangeSummary mirrors internal/extract's dedup-by-latest-action
// shape for the subset of changes attributable to one execution.
type FileChangeSummary struct {
	Created []string `json:"created,omitempty"`
	Updated []string `json:"updated,omitempty"`
	Deleted []string `json:"deleted,omitempty"`
}

// Execution is the runtime record for one agent invocation started
// through the runner. Not persisted by the agent itself — constructed
// and owned entirely by this store.
type Execution struct {
	ID              string    `json:"id"`
	ClaudeSessionID string    `json:"claudeSessionId,omitempty"` // late-bound
	Tier            string    `json:"tier,omitempty"`
	AgentType       string    `json:"agentType,omitempty"`
	Prompt          string    `json:"prompt"`
	Context         string    `json:"context,omitempty"`

	Status Status `json:"status"`

	Output []OutputChunk `json:"output,omitempty"`
	Usage  Usage         `json:"usage"`
	CostUSD float64      `json:"costUsd"`

	FilesChanged   *FileChangeSummary `json:"filesChanged,omitempty"`
	LinkedEventIDs []string           `json:"linkedEventIds,omitempty"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	DurationMs  int64     `json:"durationMs,omitempty"`

	ResultText string   `json:"resultText,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// BlockingKind is the closed set of things an execution can block on
// while awaiting an operator decision.
type BlockingKind string

const (
	BlockingPermission       BlockingKind = "permission"
	BlockingUserQuestion     BlockingKind = "user_question"
	BlockingSubagentApproval BlockingKind = "subagent_approval"
)

// BlockingStatus is a blocking event's lifecycle state.
type BlockingStatus string

const (
	BlockingPending   BlockingStatus = "pending"
	BlockingResponded BlockingStatus = "responded"
	BlockingTimedOut  BlockingStatus = "timed_out"
	BlockingCancelled BlockingStatus = "cancelled"
)

// BlockingEvent is a permission request, user-question request, or
// subagent-approval request created by the runner while waiting for a
// decision.
type BlockingEvent struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"executionId"`
	Kind        BlockingKind   `json:"kind"`
	Status      BlockingStatus `json:"status"`

	Request  map[string]any `json:"request"`
	Response map[string]any `json:"response,omitempty"`
	Responder string        `json:"responder,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	RespondedAt time.Time `json:"respondedAt,omitempty"`
	WaitMs      int64     `json:"waitMs,omitempty"`
}

// Event is a stored, linked SDK event — the raw evidence behind an
// execution's derived output chunks.
type Event struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"executionId"`
	Kind        string         `json:"kind"` // e.g. "assistant", "hook", "mcp_tool_call", "subagent_start"
	HookType    string         `json:"hookType,omitempty"`
	MCPServer   string         `json:"mcpServer,omitempty"`
	ToolName    string         `json:"toolName,omitempty"`
	SubagentName string        `json:"subagentName,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Stats aggregates execution counts/costs for one tier.
type Stats struct {
	Tier            string  `json:"tier"`
	Total           int     `json:"total"`
	Succeeded       int     `json:"succeeded"`
	Failed          int     `json:"failed"`
	Running         int     `json:"running"`
	TotalCostUSD    float64 `json:"totalCostUsd"`
	AvgDurationMs   float64 `json:"avgDurationMs"`
}
