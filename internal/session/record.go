package session

import (
	"encoding/json"
	"strings"
	"time"
)

// rawRecord is the loose top-level shape every session JSONL line shares,
// regardless of type. Fields not present for a given type decode to zero
// values harmlessly.
type rawRecord struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype"`
	UUID      string          `json:"uuid"`
	ParentUUID string         `json:"parentUuid"`
	SessionID string          `json:"sessionId"`
	Cwd       string          `json:"cwd"`
	TeamName  string          `json:"teamName"`
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp"`

	// system/init fields.
	Model             string          `json:"model"`
	Tools             []string        `json:"tools"`
	MCPServers        []mcpServerRef  `json:"mcp_servers"`
	PermissionMode    string          `json:"permissionMode"`
	ClaudeCodeVersion string          `json:"claude_code_version"`
	Content           json.RawMessage `json:"content"`

	// assistant/user message envelope.
	Message json.RawMessage `json:"message"`

	IsAPIErrorMessage bool `json:"isApiErrorMessage"`

	// progress.
	Data            json.RawMessage `json:"data"`
	ParentToolUseID string          `json:"parentToolUseID"`

	// user tool-result side channel.
	ToolUseResult json.RawMessage `json:"toolUseResult"`

	// result.
	DurationMs    int64           `json:"duration_ms"`
	DurationAPIMs int64           `json:"duration_api_ms"`
	NumTurns      int             `json:"num_turns"`
	TotalCostUSD  float64         `json:"total_cost_usd"`
	IsError       bool            `json:"is_error"`
	ResultText    string          `json:"result"`
	Errors        []string        `json:"errors"`
	ResultUsage   *rawUsage       `json:"usage"`
}

type mcpServerRef struct {
	Name string `json:"name"`
}

type rawUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

func (u *rawUsage) toUsage() Usage {
	if u == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:              u.InputTokens,
		OutputTokens:             u.OutputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
	}
}

// messageEnvelope is the shape of `message` on assistant/user records.
type messageEnvelope struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *rawUsage       `json:"usage"`
	StopReason string       `json:"stop_reason"`
}

// contentBlock is one element of a message's content array. Different
// block types populate different subsets of fields.
type contentBlock struct {
	Type string `json:"type"`

	// text.
	Text string `json:"text"`

	// thinking.
	Thinking string `json:"thinking"`

	// tool_use.
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`

	// tool_result.
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// toolResultText flattens a tool_result block's content into plain text,
// whether it arrives as a bare string or as an array of text blocks.
func (b *contentBlock) toolResultText() string {
	var asString string
	if err := json.Unmarshal(b.Content, &asString); err == nil {
		return asString
	}
	var blocks []contentBlock
	if err := json.Unmarshal(b.Content, &blocks); err == nil {
		var sb strings.Builder
		for _, inner := range blocks {
			if inner.Type == "text" {
				sb.WriteString(inner.Text)
			}
		}
		return sb.String()
	}
	return ""
}

// toolResultNewTodos is the shape of toolUseResult for a TodoWrite result.
type toolResultNewTodos struct {
	NewTodos []struct {
		Content string `json:"content"`
		Status  string `json:"status"`
	} `json:"newTodos"`
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

const compactMarker = "This session is being continued from a previous conversation that ran out of context."
