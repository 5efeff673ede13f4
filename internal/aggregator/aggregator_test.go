package aggregator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/langmartai/lm-assist/internal/session"
)

func writeSessionFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func fixtureLines() []string {
	return []string{
		`{"type":"system","subtype":"init","sessionId":"abc","cwd":"/tmp/proj","model":"claude-sonnet-4-5","tools":["Bash","Read"],"permissionMode":"default","timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"user","message":{"role":"user","content":"first question"},"timestamp":"2026-01-01T00:00:01Z"}`,
		`{"type":"assistant","message":{"role":"assistant","model":"claude-sonnet-4-5","content":[{"type":"text","text":"first answer"}],"usage":{"input_tokens":10,"output_tokens":5}},"timestamp":"2026-01-01T00:00:02Z"}`,
		`{"type":"user","message":{"role":"user","content":"second question"},"timestamp":"2026-01-01T00:00:03Z"}`,
		`{"type":"assistant","message":{"role":"assistant","model":"claude-sonnet-4-5","content":[{"type":"text","text":"second answer"}],"usage":{"input_tokens":10,"output_tokens":5}},"timestamp":"2026-01-01T00:00:04Z"}`,
		`{"type":"result","subtype":"success","is_error":false,"duration_ms":100,"duration_api_ms":80,"num_turns":4,"total_cost_usd":0.01,"result":"done","timestamp":"2026-01-01T00:00:05Z"}`,
	}
}

func TestReadSessionAppliesUserPromptRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, path, fixtureLines()...)

	cache := session.NewCache("")
	agg := New(cache)

	from, to := 0, 0
	view, err := agg.ReadSession("11111111-aaaa-bbbb-cccc-222222222222", dir, ReadOptions{
		FromUserPromptIndex: &from,
		ToUserPromptIndex:   &to,
	})
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if len(view.Prompts) != 1 || view.Prompts[0].Text != "first question" {
		t.Fatalf("Prompts = %+v, want only the first question", view.Prompts)
	}
	if len(view.Responses) != 1 || view.Responses[0].Text != "first answer" {
		t.Fatalf("Responses = %+v, want only the first answer", view.Responses)
	}
}

func TestReadSessionNotModifiedShortCircuit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, path, fixtureLines()...)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	future := info.ModTime().Add(1)

	cache := session.NewCache("")
	agg := New(cache)

	view, err := agg.ReadSession("11111111-aaaa-bbbb-cccc-222222222222", dir, ReadOptions{
		IfModifiedSince: &future,
	})
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if !view.NotModified {
		t.Error("expected NotModified = true")
	}
	if len(view.Prompts) != 0 {
		t.Error("not-modified sentinel should carry no parsed content")
	}
}

func TestReadSessionMissingFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	cache := session.NewCache("")
	agg := New(cache)

	_, err := agg.ReadSession("does-not-exist", dir, ReadOptions{})
	if err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestReadSessionDeltaFastPathKeepsAccumulatedState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, path,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"TaskCreate","input":{"subject":"ship v1"}}]},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"Task #7 created successfully"}]},"timestamp":"2026-01-01T00:00:01Z"}`,
		`{"type":"user","message":{"role":"user","content":"hi"},"timestamp":"2026-01-01T00:00:02Z"}`,
	)

	cache := session.NewCache("")
	agg := New(cache)

	from := 2
	view, err := agg.ReadSession("11111111-aaaa-bbbb-cccc-222222222222", dir, ReadOptions{FromLineIndex: &from})
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if len(view.Prompts) != 1 {
		t.Fatalf("Prompts = %+v, want only line 2's prompt", view.Prompts)
	}
	if len(view.Tasks) != 1 {
		t.Errorf("Tasks should remain in full even with a line filter, got %+v", view.Tasks)
	}
}

func TestListSessionsExcludesEmptyAndSortsByRecency(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "33333333-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, empty, `{"type":"system","subtype":"init","sessionId":"x","timestamp":"2026-01-01T00:00:00Z"}`)

	withPrompt := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, withPrompt, fixtureLines()...)

	cache := session.NewCache("")
	agg := New(cache)

	sessions, err := agg.ListSessions(dir)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1 (empty session excluded)", len(sessions))
	}
	if sessions[0].UserPromptCount != 2 {
		t.Errorf("UserPromptCount = %d, want 2", sessions[0].UserPromptCount)
	}
}

func TestBatchChangeCheckDetectsSizeChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, path, fixtureLines()...)

	cache := session.NewCache("")
	agg := New(cache)

	results := agg.BatchChangeCheck([]ChangeCheckRequest{
		{SessionID: "11111111-aaaa-bbbb-cccc-222222222222", FilePath: path, KnownFileSize: 1},
	}, dir)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Changed {
		t.Error("expected Changed = true for mismatched known size")
	}
	if !results[0].Exists {
		t.Error("expected Exists = true")
	}
}

func TestConversationViewCoalescesTextAndToolUses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, path,
		`{"type":"user","message":{"role":"user","content":"please read the file"},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"sure"},{"type":"tool_use","id":"tu1","name":"Read","input":{"file_path":"/tmp/x"}}]},"timestamp":"2026-01-01T00:00:01Z"}`,
	)

	cache := session.NewCache("")
	agg := New(cache)

	messages, err := agg.ConversationView("11111111-aaaa-bbbb-cccc-222222222222", dir, ToolDetailSummary, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("ConversationView: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	assistantMsg := messages[1]
	if assistantMsg.Role != "assistant" || len(assistantMsg.ToolUses) != 1 {
		t.Fatalf("assistant message = %+v", assistantMsg)
	}
	if assistantMsg.ToolUses[0].ResultSummary == "" {
		t.Error("expected a non-empty ResultSummary at toolDetail=summary")
	}
}

func TestConversationViewResultSummaryUsesRealToolResultCounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-333333333333.jsonl")
	writeSessionFile(t, path,
		`{"type":"user","message":{"role":"user","content":"please read the file"},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"sure"},{"type":"tool_use","id":"tu1","name":"Read","input":{"file_path":"/tmp/x"}}]},"timestamp":"2026-01-01T00:00:01Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"line one\nline two\nline three"}]},"timestamp":"2026-01-01T00:00:02Z"}`,
	)

	cache := session.NewCache("")
	agg := New(cache)

	messages, err := agg.ConversationView("11111111-aaaa-bbbb-cccc-333333333333", dir, ToolDetailSummary, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("ConversationView: %v", err)
	}
	var assistantMsg *ConversationMessage
	for i := range messages {
		if messages[i].Role == "assistant" {
			assistantMsg = &messages[i]
		}
	}
	if assistantMsg == nil || len(assistantMsg.ToolUses) != 1 {
		t.Fatalf("assistant message = %+v", assistantMsg)
	}
	if got := assistantMsg.ToolUses[0].ResultSummary; got != "Read 3 lines" {
		t.Errorf("ResultSummary = %q, want %q", got, "Read 3 lines")
	}
}

func TestCompactMessagesOrderedByAppearance(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSessionFile(t, path,
		`{"type":"user","message":{"role":"user","content":"This session is being continued from a previous conversation that ran out of context.\n1. Section one\n2. Section two"},"timestamp":"2026-01-01T00:00:00Z"}`,
	)

	cache := session.NewCache("")
	agg := New(cache)

	compacts, err := agg.CompactMessages("11111111-aaaa-bbbb-cccc-222222222222", dir)
	if err != nil {
		t.Fatalf("CompactMessages: %v", err)
	}
	if len(compacts) != 1 {
		t.Fatalf("got %d compacts, want 1", len(compacts))
	}
}
