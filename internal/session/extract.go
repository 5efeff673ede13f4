package session

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/langmartai/lm-assist/internal/jsonl"
	"github.com/langmartai/lm-assist/internal/pricing"
)

const (
	progressTextCap = 500
	resultTextCap   = 2000
)

// taskCreatedRe matches the tool-result text TaskCreate produces, e.g.
// "Task #7 created successfully".
var taskCreatedRe = regexp.MustCompile(`Task #(\d+) created successfully`)

// Fold applies records, in order, to view. It is the single code path
// used both for a from-scratch parse and for extending an existing view
// from a resumed byte offset — the same rules run either way.
func Fold(view *StructuredView, records []jsonl.Record) {
	for _, rec := range records {
		foldOne(view, rec)
	}
}

func foldOne(view *StructuredView, rec jsonl.Record) {
	var raw rawRecord
	if err := json.Unmarshal(rec.Raw, &raw); err != nil {
		return
	}

	// Rule 1: capture session metadata on first sight.
	if view.Meta.SessionID == "" && raw.SessionID != "" {
		view.Meta.SessionID = raw.SessionID
	}
	if view.Meta.Cwd == "" && raw.Cwd != "" {
		view.Meta.Cwd = raw.Cwd
	}
	if view.Meta.TeamName == "" && raw.TeamName != "" {
		view.Meta.TeamName = raw.TeamName
	}
	if view.Meta.ClaudeCodeVersion == "" && raw.ClaudeCodeVersion != "" {
		view.Meta.ClaudeCodeVersion = raw.ClaudeCodeVersion
	}

	if ts, ok := parseTimestamp(raw.Timestamp); ok {
		if view.FirstTimestamp.IsZero() {
			view.FirstTimestamp = ts
		}
		view.LastTimestamp = ts
	}

	switch raw.Type {
	case "system":
		foldSystem(view, raw, rec.LineIndex)
	case "assistant":
		foldAssistant(view, raw, rec.LineIndex)
	case "user":
		foldUser(view, raw, rec.LineIndex)
	case "progress":
		foldProgress(view, raw, rec.LineIndex)
	case "result":
		foldResult(view, raw)
	}

	view.LastLineIndex = rec.LineIndex
}

// Rule 2: system/init populates session-wide metadata.
// Rule 6: a plain system/content record (no init subtype) captures the
// system prompt on first sighting.
func foldSystem(view *StructuredView, raw rawRecord, lineIndex int) {
	if raw.Subtype == "init" {
		if raw.Model != "" {
			view.Meta.Model = raw.Model
		}
		if raw.PermissionMode != "" {
			view.Meta.PermissionMode = raw.PermissionMode
		}
		if len(raw.Tools) > 0 {
			view.Meta.Tools = raw.Tools
		}
		if len(raw.MCPServers) > 0 {
			names := make([]string, 0, len(raw.MCPServers))
			for _, s := range raw.MCPServers {
				names = append(names, s.Name)
			}
			view.Meta.MCPServers = names
		}
		return
	}

	if view.Meta.SystemPrompt == "" && len(raw.Content) > 0 {
		var text string
		if err := json.Unmarshal(raw.Content, &text); err == nil && text != "" {
			view.Meta.SystemPrompt = text
		}
	}
}

// Rule 3: assistant records bump the turn index and extract text,
// thinking, tool uses, and usage deltas.
func foldAssistant(view *StructuredView, raw rawRecord, lineIndex int) {
	view.TurnIndex++

	var msg messageEnvelope
	if err := json.Unmarshal(raw.Message, &msg); err != nil {
		return
	}
	if msg.Model != "" {
		view.Meta.Model = msg.Model
	}
	view.Usage.Add(msg.Usage.toUsage())

	var blocks []contentBlock
	_ = json.Unmarshal(msg.Content, &blocks)

	for _, b := range blocks {
		switch b.Type {
		case "text":
			resp := Response{TurnIndex: view.TurnIndex, LineIndex: lineIndex, Text: b.Text}
			if raw.IsAPIErrorMessage {
				resp.IsAPIError = true
				resp.RequestID = extractRequestID(b.Text)
			}
			view.Responses = append(view.Responses, resp)
		case "thinking":
			view.Thinking = append(view.Thinking, Thinking{TurnIndex: view.TurnIndex, LineIndex: lineIndex, Text: b.Thinking})
		case "tool_use":
			handleToolUse(view, b, lineIndex)
		}
	}
}

// extractRequestID pulls a request_id out of an API-error message's JSON
// body, when present; the body shape varies so this is best-effort.
func extractRequestID(text string) string {
	var payload struct {
		RequestID string `json:"request_id"`
	}
	if json.Unmarshal([]byte(text), &payload) == nil {
		return payload.RequestID
	}
	return ""
}

func handleToolUse(view *StructuredView, b contentBlock, lineIndex int) {
	var input map[string]any
	_ = json.Unmarshal(b.Input, &input)

	view.ToolUses = append(view.ToolUses, ToolUse{
		ID:        b.ID,
		Name:      b.Name,
		Input:     input,
		TurnIndex: view.TurnIndex,
		LineIndex: lineIndex,
	})

	switch b.Name {
	case "TaskCreate":
		handleTaskCreate(view, b.ID, input)
	case "TaskUpdate":
		handleTaskUpdate(view, input)
	case "Task":
		handleSubagentSpawn(view, b.ID, input, lineIndex)
	case "Teammate":
		handleTeammate(view, input, lineIndex)
	case "SendMessage":
		handleSendMessage(view, input, lineIndex)
	case "EnterPlanMode":
		handleEnterPlanMode(view, input, lineIndex)
	case "ExitPlanMode":
		handleExitPlanMode(view, input, lineIndex)
	}
}

func handleTaskCreate(view *StructuredView, toolUseID string, input map[string]any) {
	t := &Task{
		Subject:     stringField(input, "subject"),
		Description: stringField(input, "description"),
		Status:      TaskPending,
		ToolUseID:   toolUseID,
	}
	view.pendingTaskCreates[toolUseID] = t
}

func handleTaskUpdate(view *StructuredView, input map[string]any) {
	id := stringField(input, "taskId")
	if id == "" {
		return
	}
	t, ok := view.Tasks[id]
	if !ok {
		return
	}
	if v := stringField(input, "status"); v != "" {
		t.Status = TaskStatus(v)
	}
	if v := stringField(input, "subject"); v != "" {
		t.Subject = v
	}
	if v := stringField(input, "description"); v != "" {
		t.Description = v
	}
	if v := stringField(input, "owner"); v != "" {
		t.Owner = v
	}
	if md, ok := input["metadata"].(map[string]any); ok {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any)
		}
		for k, v := range md {
			t.Metadata[k] = v
		}
	}
	t.Blocks = append(t.Blocks, stringSliceField(input, "addBlocks")...)
	t.BlockedBy = append(t.BlockedBy, stringSliceField(input, "addBlockedBy")...)
}

func handleSubagentSpawn(view *StructuredView, toolUseID string, input map[string]any, lineIndex int) {
	view.Subagents = append(view.Subagents, &SubagentInvocation{
		ToolUseID:       toolUseID,
		Prompt:          stringField(input, "prompt"),
		Description:     stringField(input, "description"),
		SubagentType:    stringField(input, "subagent_type"),
		ParentTurnIndex: view.TurnIndex,
		ParentLineIndex: lineIndex,
		UserPromptIndex: view.UserPromptCount - 1,
		Status:          SubagentPending,
	})
}

func handleTeammate(view *StructuredView, input map[string]any, lineIndex int) {
	view.TeamOps = append(view.TeamOps, TeamOp{
		Kind:      "teammate",
		TeamName:  stringField(input, "name"),
		LineIndex: lineIndex,
	})
}

func handleSendMessage(view *StructuredView, input map[string]any, lineIndex int) {
	view.TeamOps = append(view.TeamOps, TeamOp{
		Kind:      "send_message",
		ToName:    stringField(input, "to"),
		Message:   stringField(input, "message"),
		LineIndex: lineIndex,
	})
}

func handleEnterPlanMode(view *StructuredView, input map[string]any, lineIndex int) {
	view.Plans = append(view.Plans, Plan{
		Title:     stringField(input, "title"),
		File:      stringField(input, "file"),
		LineIndex: lineIndex,
	})
}

func handleExitPlanMode(view *StructuredView, input map[string]any, lineIndex int) {
	plan := Plan{
		Summary:   stringField(input, "plan"),
		LineIndex: lineIndex,
	}
	if prompts := stringSliceField(input, "allowedPrompts"); len(prompts) > 0 {
		plan.AllowedPrompts = prompts
	}
	view.Plans = append(view.Plans, plan)
}

// Rule 4: user records bump the turn index; real-text content also bumps
// the user-prompt index and scans tool results for task-id resolution,
// subagent-result attachment, and TodoWrite newTodos.
func foldUser(view *StructuredView, raw rawRecord, lineIndex int) {
	view.TurnIndex++

	var msg messageEnvelope
	if err := json.Unmarshal(raw.Message, &msg); err != nil {
		return
	}

	if len(raw.ToolUseResult) > 0 {
		var todos toolResultNewTodos
		if json.Unmarshal(raw.ToolUseResult, &todos) == nil && len(todos.NewTodos) > 0 {
			applyNewTodos(view, todos.NewTodos)
		}
	}

	// Content may be a bare string or an array of blocks.
	var asString string
	if err := json.Unmarshal(msg.Content, &asString); err == nil {
		if strings.TrimSpace(asString) != "" {
			recordUserText(view, asString, lineIndex)
		}
		return
	}

	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return
	}

	var realText strings.Builder
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			realText.WriteString(b.Text)
		}
	}
	if realText.Len() > 0 {
		recordUserText(view, realText.String(), lineIndex)
	}

	for _, b := range blocks {
		if b.Type != "tool_result" {
			continue
		}
		resultText := b.toolResultText()
		view.ToolResults[b.ToolUseID] = ToolResult{
			ToolUseID: b.ToolUseID,
			Text:      resultText,
			IsError:   b.IsError,
			LineIndex: lineIndex,
		}

		if m := taskCreatedRe.FindStringSubmatch(resultText); m != nil {
			resolveTaskCreate(view, b.ToolUseID, m[1])
		}
		resolveSubagentResult(view, b.ToolUseID, resultText, b.IsError)
	}
}

func recordUserText(view *StructuredView, text string, lineIndex int) {
	if strings.HasPrefix(strings.TrimSpace(text), compactMarker) {
		view.Compacts = append(view.Compacts, CompactMessage{
			CompactOrder: len(view.Compacts),
			LineIndex:    lineIndex,
			Sections:     parseCompactSections(text),
		})
	}

	view.UserPromptCount++
	view.Prompts = append(view.Prompts, Prompt{
		UserPromptIndex: view.UserPromptCount - 1,
		TurnIndex:       view.TurnIndex,
		LineIndex:       lineIndex,
		Text:            text,
	})
}

// parseCompactSections splits a compact-message body into numbered
// markdown sections (e.g. "1. Primary Request and Intent:") keyed by
// their heading text.
func parseCompactSections(text string) map[string]string {
	sections := make(map[string]string)
	headingRe := regexp.MustCompile(`(?m)^\s*\d+\.\s+([A-Za-z][A-Za-z \-/]+?):\s*$`)
	matches := headingRe.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		heading := text[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		sections[heading] = strings.TrimSpace(text[bodyStart:bodyEnd])
	}
	return sections
}

func resolveTaskCreate(view *StructuredView, toolUseID, assignedID string) {
	t, ok := view.pendingTaskCreates[toolUseID]
	if !ok {
		return
	}
	t.ID = assignedID
	view.Tasks[assignedID] = t
	view.TaskOrder = append(view.TaskOrder, assignedID)
	delete(view.pendingTaskCreates, toolUseID)
}

func resolveSubagentResult(view *StructuredView, toolUseID, resultText string, isError bool) {
	for _, sub := range view.Subagents {
		if sub.ToolUseID != toolUseID {
			continue
		}
		if isError {
			sub.Status = SubagentError
		} else {
			sub.Status = SubagentCompleted
		}
		if len(resultText) > resultTextCap {
			resultText = resultText[:resultTextCap]
		}
		sub.Result = resultText
		return
	}
}

func applyNewTodos(view *StructuredView, newTodos []struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}) {
	byContent := make(map[string]int, len(view.Todos))
	for i, t := range view.Todos {
		byContent[t.Content] = i
	}
	for _, nt := range newTodos {
		if idx, ok := byContent[nt.Content]; ok {
			view.Todos[idx].Status = nt.Status
			continue
		}
		byContent[nt.Content] = len(view.Todos)
		view.Todos = append(view.Todos, Todo{Content: nt.Content, Status: nt.Status})
	}
}

// Rule 5: progress records with data.type = agent_progress bind an agent
// id to a pending subagent invocation and mark it running; every
// progress record is also appended (capped) for later inspection.
func foldProgress(view *StructuredView, raw rawRecord, lineIndex int) {
	var data struct {
		Type    string `json:"type"`
		AgentID string `json:"agentId"`
		Text    string `json:"text"`
	}
	_ = json.Unmarshal(raw.Data, &data)

	if data.Type == "agent_progress" && raw.ParentToolUseID != "" {
		for _, sub := range view.Subagents {
			if sub.ToolUseID == raw.ParentToolUseID {
				sub.AgentID = data.AgentID
				sub.Status = SubagentRunning
				break
			}
		}
	}

	text := data.Text
	if len(text) > progressTextCap {
		text = text[:progressTextCap]
	}
	view.Progress = append(view.Progress, ProgressUpdate{LineIndex: lineIndex, Text: text})
}

// Rule 7: result records are authoritative and overwrite running usage
// and counters.
func foldResult(view *StructuredView, raw rawRecord) {
	view.Result = Result{
		Present:       true,
		Success:       !raw.IsError,
		Subtype:       raw.Subtype,
		DurationMs:    raw.DurationMs,
		DurationAPIMs: raw.DurationAPIMs,
		NumTurns:      raw.NumTurns,
		TotalCostUSD:  raw.TotalCostUSD,
		ResultText:    raw.ResultText,
		Errors:        raw.Errors,
	}
	if raw.ResultUsage != nil {
		view.Usage = raw.ResultUsage.toUsage()
	}
}

// Finalize runs the cheap post-parse computations that are always
// refreshed: duration, cost, and turn count, each falling back to a
// derived value only when the `result` record didn't supply one.
func Finalize(view *StructuredView) {
	if view.Result.Present && view.Result.DurationMs > 0 {
		view.DurationMs = view.Result.DurationMs
	} else if !view.FirstTimestamp.IsZero() && !view.LastTimestamp.IsZero() {
		view.DurationMs = view.LastTimestamp.Sub(view.FirstTimestamp).Milliseconds()
	}

	if view.Result.Present && view.Result.TotalCostUSD > 0 {
		view.CostUSD = view.Result.TotalCostUSD
	} else {
		rates := pricing.ForModel(view.Meta.Model)
		view.CostUSD = pricing.Cost(rates, view.Usage.InputTokens, view.Usage.OutputTokens,
			view.Usage.CacheReadInputTokens, view.Usage.CacheCreationInputTokens)
	}

	if view.Result.Present && view.Result.NumTurns > 0 {
		view.NumTurns = view.Result.NumTurns
	} else {
		view.NumTurns = view.TurnIndex
	}
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	if v, ok := m[key].(float64); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func stringSliceField(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		} else if f, ok := v.(float64); ok {
			out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	return out
}
