// Package runnerfeed is the Session Monitor: a thin subscriber that
// mirrors an agent runner's live event stream into the Execution Store.
// It owns no state of its own beyond the Execution Store reference it
// was constructed with — every event it sees is translated and handed
// straight to the store.
package runnerfeed

// RunnerEvent is the shape the agent runner emits for one in-flight
// execution, before translation into execstore.Event/OutputChunk.
//
// Kind is one of: "assistant", "hook", "mcp_tool_call",
// "mcp_tool_result", "subagent_start", "subagent_result",
// "user_question", "user_answer", "permission_request",
// "subagent_approval", "result", "error".
type RunnerEvent struct {
	ExecutionID     string
	ClaudeSessionID string // set once learned, empty otherwise
	Kind            string
	HookType        string
	MCPServer       string
	ToolName        string
	SubagentName    string
	Payload         map[string]any
}
