// Package session owns the Session Cache: a per-file, incrementally
// extended structured view of one Claude Code session JSONL file.
package session

import "time"

// Usage accumulates token counts across a session.
type Usage struct {
	InputTokens             int `json:"inputTokens"`
	OutputTokens            int `json:"outputTokens"`
	CacheReadInputTokens    int `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int `json:"cacheCreationInputTokens"`
}

// Add accumulates delta into u in place.
func (u *Usage) Add(delta Usage) {
	u.InputTokens += delta.InputTokens
	u.OutputTokens += delta.OutputTokens
	u.CacheReadInputTokens += delta.CacheReadInputTokens
	u.CacheCreationInputTokens += delta.CacheCreationInputTokens
}

// ToolUse is a structured call the assistant makes.
type ToolUse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     map[string]any  `json:"input"`
	TurnIndex int             `json:"turnIndex"`
	LineIndex int             `json:"lineIndex"`
}

// ToolResult is the tool_result block matched back to the ToolUse that
// produced it, by tool-use id.
type ToolResult struct {
	ToolUseID string `json:"toolUseId"`
	Text      string `json:"text"`
	IsError   bool   `json:"isError"`
	LineIndex int    `json:"lineIndex"`
}

// TaskStatus is the lifecycle state of a task-graph entry.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskDeleted    TaskStatus = "deleted"
)

// Task is one node in the agent's task graph, materialized from
// TaskCreate/TaskUpdate tool calls.
type Task struct {
	ID          string            `json:"id"`
	Subject     string            `json:"subject"`
	Description string            `json:"description"`
	Status      TaskStatus        `json:"status"`
	Owner       string            `json:"owner,omitempty"`
	Blocks      []string          `json:"blocks,omitempty"`
	BlockedBy   []string          `json:"blockedBy,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	ToolUseID   string            `json:"-"` // the TaskCreate tool-use id, for temp-id reconciliation
}

// Todo is one entry from a TodoWrite tool result.
type Todo struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

// SubagentStatus is the runtime status of a subagent invocation.
type SubagentStatus string

const (
	SubagentPending   SubagentStatus = "pending"
	SubagentRunning   SubagentStatus = "running"
	SubagentCompleted SubagentStatus = "completed"
	SubagentError     SubagentStatus = "error"
)

// SubagentInvocation is derived from a `Task` (or `Teammate`) tool call
// that spawns a nested session.
type SubagentInvocation struct {
	ToolUseID       string         `json:"toolUseId"`
	AgentID         string         `json:"agentId,omitempty"`
	Prompt          string         `json:"prompt"`
	Description     string         `json:"description"`
	SubagentType    string         `json:"subagentType"`
	ParentTurnIndex int            `json:"parentTurnIndex"`
	ParentLineIndex int            `json:"parentLineIndex"`
	UserPromptIndex int            `json:"userPromptIndex"`
	Status          SubagentStatus `json:"status"`
	Result          string         `json:"result,omitempty"`
	FromTeammate    bool           `json:"fromTeammate,omitempty"`
}

// Plan is derived from EnterPlanMode/ExitPlanMode tool calls.
type Plan struct {
	Title          string   `json:"title,omitempty"`
	File           string   `json:"file,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	AllowedPrompts []string `json:"allowedPrompts,omitempty"`
	LineIndex      int      `json:"lineIndex"`
}

// CompactMessage is a user record marking a context-compaction boundary.
type CompactMessage struct {
	CompactOrder int               `json:"compactOrder"`
	LineIndex    int               `json:"lineIndex"`
	Sections     map[string]string `json:"sections"`
}

// TeamOp is derived from Teammate/SendMessage tool calls.
type TeamOp struct {
	Kind      string `json:"kind"` // "teammate" or "send_message"
	TeamName  string `json:"teamName,omitempty"`
	ToName    string `json:"toName,omitempty"`
	Message   string `json:"message,omitempty"`
	LineIndex int    `json:"lineIndex"`
}

// Prompt is one real-text user message.
type Prompt struct {
	UserPromptIndex int    `json:"userPromptIndex"`
	TurnIndex       int    `json:"turnIndex"`
	LineIndex       int    `json:"lineIndex"`
	Text            string `json:"text"`
}

// Response is one assistant text response.
type Response struct {
	TurnIndex  int    `json:"turnIndex"`
	LineIndex  int    `json:"lineIndex"`
	Text       string `json:"text"`
	IsAPIError bool   `json:"isApiError,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

// Thinking is one assistant thinking block.
type Thinking struct {
	TurnIndex int    `json:"turnIndex"`
	LineIndex int    `json:"lineIndex"`
	Text      string `json:"text"`
}

// ProgressUpdate is a capped-text record of a `progress` line, kept for
// later inspection.
type ProgressUpdate struct {
	LineIndex int    `json:"lineIndex"`
	Text      string `json:"text"`
}

// Meta is per-session metadata captured on first sight.
type Meta struct {
	SessionID         string   `json:"sessionId"`
	Cwd               string   `json:"cwd"`
	TeamName          string   `json:"teamName,omitempty"`
	ClaudeCodeVersion string   `json:"claudeCodeVersion,omitempty"`
	Model             string   `json:"model,omitempty"`
	PermissionMode    string   `json:"permissionMode,omitempty"`
	Tools             []string `json:"tools,omitempty"`
	MCPServers        []string `json:"mcpServers,omitempty"`
	SystemPrompt      string   `json:"systemPrompt,omitempty"`
}

// Result carries the authoritative outcome reported by a `result` record.
type Result struct {
	Present      bool     `json:"present"`
	Success      bool     `json:"success"`
	Subtype      string   `json:"subtype,omitempty"`
	DurationMs   int64    `json:"durationMs,omitempty"`
	DurationAPIMs int64   `json:"durationApiMs,omitempty"`
	NumTurns     int      `json:"numTurns,omitempty"`
	TotalCostUSD float64  `json:"totalCostUsd,omitempty"`
	ResultText   string   `json:"resultText,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// StructuredView is the Session Cache's complete per-session derived
// state, the product of folding every record of the file in order.
type StructuredView struct {
	Meta Meta `json:"meta"`

	Prompts    []Prompt    `json:"prompts"`
	Responses  []Response  `json:"responses"`
	Thinking   []Thinking  `json:"thinking"`
	ToolUses   []ToolUse   `json:"toolUses"`
	Progress   []ProgressUpdate `json:"progress"`

	Tasks     map[string]*Task    `json:"tasks"`
	TaskOrder []string            `json:"taskOrder"`
	Todos     []Todo              `json:"todos"`

	Subagents []*SubagentInvocation `json:"subagents"`
	Plans     []Plan                `json:"plans"`
	Compacts  []CompactMessage      `json:"compacts"`
	TeamOps   []TeamOp              `json:"teamOps"`

	// ToolResults indexes every tool_result block seen, by the tool-use
	// id it answers, so later consumers (subagent resolution,
	// conversation summaries) can look up what a call actually returned.
	ToolResults map[string]ToolResult `json:"toolResults"`

	Usage Usage `json:"usage"`
	Result Result `json:"result"`

	// Counters.
	TurnIndex       int `json:"turnIndex"`
	UserPromptCount int `json:"userPromptCount"`

	// Timestamps.
	FirstTimestamp time.Time `json:"firstTimestamp"`
	LastTimestamp  time.Time `json:"lastTimestamp"`

	// Computed (always refreshed post-parse).
	DurationMs int64   `json:"durationMs"`
	CostUSD    float64 `json:"costUsd"`
	NumTurns   int     `json:"numTurns"`

	// Cache bookkeeping — lets incremental re-parses resume exactly
	// where the last parse left off.
	LastByteOffset int64     `json:"lastByteOffset"`
	LastLineIndex  int       `json:"lastLineIndex"` // -1 before any record parsed
	FileSize       int64     `json:"fileSize"`
	ModTime        time.Time `json:"modTime"`

	// pendingTaskCreates maps a TaskCreate tool-use id to its not-yet-
	// assigned Task, removed once the assigned id is resolved. Not
	// serialized — it is scan-local bookkeeping, not queryable state.
	pendingTaskCreates map[string]*Task `json:"-"`
}

// NewStructuredView returns a fresh, empty view ready for folding.
func NewStructuredView() *StructuredView {
	return &StructuredView{
		Tasks:              make(map[string]*Task),
		ToolResults:        make(map[string]ToolResult),
		LastLineIndex:      -1,
		pendingTaskCreates: make(map[string]*Task),
	}
}
