package session

import (
	"encoding/json"
	"testing"

	"github.com/langmartai/lm-assist/internal/jsonl"
)

func rec(lineIndex int, raw string) jsonl.Record {
	return jsonl.Record{LineIndex: lineIndex, Raw: json.RawMessage(raw)}
}

func TestFoldBasicConversation(t *testing.T) {
	view := NewStructuredView()
	Fold(view, []jsonl.Record{
		rec(0, `{"type":"system","subtype":"init","sessionId":"abc","cwd":"/tmp/proj","model":"claude-sonnet-4-5","tools":["Bash","Read"],"permissionMode":"default","timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"user","message":{"role":"user","content":"hello there"},"timestamp":"2026-01-01T00:00:01Z"}`),
		rec(2, `{"type":"assistant","message":{"role":"assistant","model":"claude-sonnet-4-5","content":[{"type":"text","text":"hi!"}],"usage":{"input_tokens":10,"output_tokens":5}},"timestamp":"2026-01-01T00:00:02Z"}`),
	})
	Finalize(view)

	if view.Meta.SessionID != "abc" {
		t.Errorf("SessionID = %q", view.Meta.SessionID)
	}
	if view.Meta.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", view.Meta.Model)
	}
	if len(view.Prompts) != 1 || view.Prompts[0].Text != "hello there" {
		t.Fatalf("Prompts = %+v", view.Prompts)
	}
	if len(view.Responses) != 1 || view.Responses[0].Text != "hi!" {
		t.Fatalf("Responses = %+v", view.Responses)
	}
	if view.TurnIndex != 2 {
		t.Errorf("TurnIndex = %d, want 2", view.TurnIndex)
	}
	if view.Usage.InputTokens != 10 || view.Usage.OutputTokens != 5 {
		t.Errorf("Usage = %+v", view.Usage)
	}
	if view.LastLineIndex != 2 {
		t.Errorf("LastLineIndex = %d, want 2", view.LastLineIndex)
	}
}

func TestFoldTaskCreateThenResolve(t *testing.T) {
	view := NewStructuredView()
	Fold(view, []jsonl.Record{
		rec(0, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"TaskCreate","input":{"subject":"Fix bug"}}]},"timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"Task #7 created successfully"}]},"timestamp":"2026-01-01T00:00:01Z"}`),
		rec(2, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu2","name":"TaskUpdate","input":{"taskId":"7","status":"completed"}}]},"timestamp":"2026-01-01T00:00:02Z"}`),
	})

	if _, stillPending := view.pendingTaskCreates["tu1"]; stillPending {
		t.Fatal("pending TaskCreate was not resolved")
	}
	task, ok := view.Tasks["7"]
	if !ok {
		t.Fatal("task 7 not found")
	}
	if task.Subject != "Fix bug" {
		t.Errorf("Subject = %q", task.Subject)
	}
	if task.Status != TaskCompleted {
		t.Errorf("Status = %q, want completed", task.Status)
	}
}

func TestFoldTodoWriteDedupByContent(t *testing.T) {
	view := NewStructuredView()
	Fold(view, []jsonl.Record{
		rec(0, `{"type":"user","message":{"role":"user","content":"go"},"toolUseResult":{"newTodos":[{"content":"write tests","status":"pending"}]},"timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"user","message":{"role":"user","content":"go again"},"toolUseResult":{"newTodos":[{"content":"write tests","status":"completed"},{"content":"ship","status":"pending"}]},"timestamp":"2026-01-01T00:00:01Z"}`),
	})

	if len(view.Todos) != 2 {
		t.Fatalf("Todos = %+v, want 2 entries", view.Todos)
	}
	for _, todo := range view.Todos {
		if todo.Content == "write tests" && todo.Status != "completed" {
			t.Errorf("write tests status = %q, want completed (latest wins)", todo.Status)
		}
	}
}

func TestFoldSubagentLifecycle(t *testing.T) {
	view := NewStructuredView()
	Fold(view, []jsonl.Record{
		rec(0, `{"type":"user","message":{"role":"user","content":"spawn a subagent"},"timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"Task","input":{"prompt":"go build","description":"build","subagent_type":"general-purpose"}}]},"timestamp":"2026-01-01T00:00:01Z"}`),
		rec(2, `{"type":"progress","parentToolUseID":"tu1","data":{"type":"agent_progress","agentId":"agent-xyz"},"timestamp":"2026-01-01T00:00:02Z"}`),
		rec(3, `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"build succeeded"}]},"timestamp":"2026-01-01T00:00:03Z"}`),
	})

	if len(view.Subagents) != 1 {
		t.Fatalf("Subagents = %+v", view.Subagents)
	}
	sub := view.Subagents[0]
	if sub.AgentID != "agent-xyz" {
		t.Errorf("AgentID = %q", sub.AgentID)
	}
	if sub.Status != SubagentCompleted {
		t.Errorf("Status = %q, want completed", sub.Status)
	}
	if sub.Result != "build succeeded" {
		t.Errorf("Result = %q", sub.Result)
	}
	if sub.UserPromptIndex != 0 {
		t.Errorf("UserPromptIndex = %d, want 0", sub.UserPromptIndex)
	}
}

func TestFoldSubagentLifecycleBranchesOnIsErrorNotTextEmptiness(t *testing.T) {
	view := NewStructuredView()
	Fold(view, []jsonl.Record{
		rec(0, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu_x","name":"Task","input":{"prompt":"explore repo"}}]},"timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"progress","parentToolUseID":"tu_x","data":{"type":"agent_progress","agentId":"a9afc2c"},"timestamp":"2026-01-01T00:00:01Z"}`),
		rec(2, `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu_x","content":"Done.","is_error":false}]},"timestamp":"2026-01-01T00:00:02Z"}`),
	})

	if len(view.Subagents) != 1 {
		t.Fatalf("Subagents = %+v", view.Subagents)
	}
	sub := view.Subagents[0]
	if sub.AgentID != "a9afc2c" {
		t.Errorf("AgentID = %q", sub.AgentID)
	}
	if sub.Status != SubagentCompleted {
		t.Errorf("Status = %q, want completed", sub.Status)
	}
	if sub.Result != "Done." {
		t.Errorf("Result = %q", sub.Result)
	}

	result, ok := view.ToolResults["tu_x"]
	if !ok {
		t.Fatalf("ToolResults[tu_x] missing")
	}
	if result.IsError {
		t.Errorf("ToolResults[tu_x].IsError = true, want false")
	}
}

func TestFoldSubagentErrorResultWithNonEmptyText(t *testing.T) {
	view := NewStructuredView()
	Fold(view, []jsonl.Record{
		rec(0, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu_y","name":"Task","input":{"prompt":"explore repo"}}]},"timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"progress","parentToolUseID":"tu_y","data":{"type":"agent_progress","agentId":"a000001"},"timestamp":"2026-01-01T00:00:01Z"}`),
		rec(2, `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu_y","content":"partial output before the crash","is_error":true}]},"timestamp":"2026-01-01T00:00:02Z"}`),
	})

	sub := view.Subagents[0]
	if sub.Status != SubagentError {
		t.Errorf("Status = %q, want error (is_error=true should win even though text is non-empty)", sub.Status)
	}
}

func TestFoldCompactMessage(t *testing.T) {
	view := NewStructuredView()
	text := compactMarker + "\n\n1. Primary Request and Intent:\n   Build the thing.\n2. Key Technical Concepts:\n   Uses widgets.\n"
	raw, _ := json.Marshal(map[string]any{
		"type":      "user",
		"timestamp": "2026-01-01T00:00:00Z",
		"message":   map[string]any{"role": "user", "content": text},
	})
	Fold(view, []jsonl.Record{{LineIndex: 0, Raw: raw}})

	if len(view.Compacts) != 1 {
		t.Fatalf("Compacts = %+v", view.Compacts)
	}
	c := view.Compacts[0]
	if c.CompactOrder != 0 {
		t.Errorf("CompactOrder = %d, want 0", c.CompactOrder)
	}
	if c.Sections["Primary Request and Intent"] == "" {
		t.Errorf("missing Primary Request and Intent section, got %+v", c.Sections)
	}
}

func TestFoldResultOverwritesUsage(t *testing.T) {
	view := NewStructuredView()
	Fold(view, []jsonl.Record{
		rec(0, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"partial"}],"usage":{"input_tokens":1,"output_tokens":1}},"timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"result","subtype":"success","is_error":false,"duration_ms":1500,"num_turns":3,"total_cost_usd":0.05,"usage":{"input_tokens":100,"output_tokens":50},"timestamp":"2026-01-01T00:00:02Z"}`),
	})
	Finalize(view)

	if !view.Result.Present || !view.Result.Success {
		t.Fatalf("Result = %+v", view.Result)
	}
	if view.Usage.InputTokens != 100 {
		t.Errorf("Usage.InputTokens = %d, want 100 (result overwrites)", view.Usage.InputTokens)
	}
	if view.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", view.DurationMs)
	}
	if view.NumTurns != 3 {
		t.Errorf("NumTurns = %d, want 3", view.NumTurns)
	}
	if view.CostUSD != 0.05 {
		t.Errorf("CostUSD = %v, want 0.05", view.CostUSD)
	}
}

func TestFoldResumeProducesSameResultAsFullParse(t *testing.T) {
	records := []jsonl.Record{
		rec(0, `{"type":"user","message":{"role":"user","content":"one"},"timestamp":"2026-01-01T00:00:00Z"}`),
		rec(1, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"a"}]},"timestamp":"2026-01-01T00:00:01Z"}`),
		rec(2, `{"type":"user","message":{"role":"user","content":"two"},"timestamp":"2026-01-01T00:00:02Z"}`),
	}

	full := NewStructuredView()
	Fold(full, records)

	resumed := NewStructuredView()
	Fold(resumed, records[:2])
	Fold(resumed, records[2:])

	if len(full.Prompts) != len(resumed.Prompts) {
		t.Fatalf("prompt count mismatch: %d vs %d", len(full.Prompts), len(resumed.Prompts))
	}
	if full.TurnIndex != resumed.TurnIndex {
		t.Errorf("TurnIndex mismatch: %d vs %d", full.TurnIndex, resumed.TurnIndex)
	}
}
