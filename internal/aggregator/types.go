// Package aggregator is the Session Aggregator: the primary read-only
// query surface over the Session Cache. It never mutates a
// StructuredView — every operation here returns a filtered snapshot
// derived from whatever the cache currently holds.
package aggregator

import (
	"encoding/json"
	"time"

	"github.com/langmartai/lm-assist/internal/extract"
	"github.com/langmartai/lm-assist/internal/session"
)

// defaultLastNUserPrompts is the trim threshold applied for "last N
// user prompts" when no explicit range filter is requested.
const defaultLastNUserPrompts = 50

// ReadOptions narrows ReadSession's result. Zero values mean "no filter
// on this axis" except where noted.
type ReadOptions struct {
	IncludeRawMessages bool

	FromLineIndex *int
	ToLineIndex   *int

	FromTurnIndex *int
	ToTurnIndex   *int

	FromUserPromptIndex *int
	ToUserPromptIndex   *int

	LastNUserPrompts *int

	// IfModifiedSince, when set, short-circuits to NotModified when the
	// file's mtime is <= this timestamp.
	IfModifiedSince *time.Time

	// IncludeReads defaults to false for file operations and the file
	// summary.
	IncludeReads bool
}

// SessionView is ReadSession's result: a StructuredView filtered per
// ReadOptions, plus the file operations derived from its tool uses and
// the raw messages when requested.
type SessionView struct {
	NotModified bool      `json:"notModified,omitempty"`
	ModTime     time.Time `json:"modTime"`

	Meta session.Meta `json:"meta"`

	Prompts   []session.Prompt   `json:"prompts"`
	Responses []session.Response `json:"responses"`
	Thinking  []session.Thinking `json:"thinking,omitempty"`
	ToolUses  []session.ToolUse  `json:"toolUses"`

	Tasks     []*session.Task             `json:"tasks"`
	Todos     []session.Todo              `json:"todos"`
	Subagents []*session.SubagentInvocation `json:"subagents"`
	Plans     []session.Plan              `json:"plans"`
	Compacts  []session.CompactMessage    `json:"compacts"`
	TeamOps   []session.TeamOp            `json:"teamOps"`

	FileOps       []extract.FileOp          `json:"fileOps,omitempty"`
	FileSummary   extract.FileChangeSummary `json:"fileSummary"`

	Usage  session.Usage `json:"usage"`
	Result session.Result `json:"result"`

	TurnIndex       int `json:"turnIndex"`
	UserPromptCount int `json:"userPromptCount"`

	DurationMs int64   `json:"durationMs"`
	CostUSD    float64 `json:"costUsd"`

	Status session.Status `json:"status"`

	RawMessages []json.RawMessage `json:"rawMessages,omitempty"`
}

// ListedSession is one row of ListSessions' result.
type ListedSession struct {
	SessionID       string    `json:"sessionId"`
	ProjectPath     string    `json:"projectPath"`
	FilePath        string    `json:"filePath"`
	Size            int64     `json:"size"`
	CreatedAt       time.Time `json:"createdAt"`
	LastModified    time.Time `json:"lastModified"`
	LastUserMessage string    `json:"lastUserMessage"`
	UserPromptCount int       `json:"userPromptCount"`
	TaskCount       int       `json:"taskCount"`
	PlanCount       int       `json:"planCount"`
	AgentFileCount  int       `json:"agentFileCount"`
	TeamName        string    `json:"teamName,omitempty"`
	ForkedFrom      string    `json:"forkedFrom,omitempty"`
	Status          session.Status `json:"status"`
}

// ListedProject is one row of ListProjects' result.
type ListedProject struct {
	ProjectPath  string    `json:"projectPath"`
	SessionCount int       `json:"sessionCount"`
	TotalSize    int64     `json:"totalSize"`
	LatestModTime time.Time `json:"latestModTime"`
}

// ChangeCheckRequest is one entry of a BatchChangeCheck call.
type ChangeCheckRequest struct {
	SessionID       string
	FilePath        string // resolved path, when already known
	KnownFileSize   int64
	KnownAgentCount int
}

// ChangeCheckResult is BatchChangeCheck's per-session result.
type ChangeCheckResult struct {
	SessionID     string    `json:"sessionId"`
	Exists        bool      `json:"exists"`
	ChangeCursor  int64     `json:"changeCursor"` // monotone proxy for file size, not a line count
	FileSize      int64     `json:"fileSize"`
	AgentIDs      []string  `json:"agentIds,omitempty"`
	LastModified  time.Time `json:"lastModified"`
	Changed       bool      `json:"changed"`
	AgentsChanged bool      `json:"agentsChanged"`
}

// ListCheckResult answers "has the project's session list changed".
type ListCheckResult struct {
	TotalSessions int             `json:"totalSessions"`
	LatestModTime time.Time       `json:"latestModTime"`
	Changed       bool            `json:"changed"`
	Sessions      []ListedSession `json:"sessions,omitempty"` // only populated when Changed
}

// ToolDetail controls how much a conversation message reveals about a
// tool use's result.
type ToolDetail string

const (
	ToolDetailNone    ToolDetail = "none"
	ToolDetailSummary ToolDetail = "summary"
	ToolDetailFull    ToolDetail = "full"
)

// ConversationToolUse is one tool invocation rendered into a
// conversation message, with an optional result rendering controlled by
// ToolDetail.
type ConversationToolUse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Input         map[string]any `json:"input"`
	ResultSummary string         `json:"resultSummary,omitempty"`
	Result        string         `json:"result,omitempty"`
}

// ConversationMessage is one flattened, chat-renderable message.
type ConversationMessage struct {
	Role      string                 `json:"role"` // "user" or "assistant"
	TurnIndex int                    `json:"turnIndex"`
	LineIndex int                    `json:"lineIndex"`
	Text      string                 `json:"text,omitempty"`
	ToolUses  []ConversationToolUse  `json:"toolUses,omitempty"`
}
