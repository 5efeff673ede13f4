package aggregator

import (
	"fmt"
	"strings"

	"github.com/langmartai/lm-assist/internal/session"
)

// readLikeTools get a "Read N lines" result summary.
var readLikeTools = map[string]bool{
	"Read": true,
}

var bashTools = map[string]bool{
	"Bash": true,
}

var searchTools = map[string]bool{
	"Glob": true,
	"Grep": true,
}

var writeLikeTools = map[string]bool{
	"Write": true,
	"Edit":  true,
}

// ConversationView builds a flat, chat-renderable message list for
// sessionID.
func (a *Aggregator) ConversationView(sessionID, cwd string, toolDetail ToolDetail, lastN *int, beforeLine *int, fromTurnIndex, toTurnIndex *int) ([]ConversationMessage, error) {
	path, err := a.resolvePath(sessionID, cwd)
	if err != nil {
		return nil, err
	}
	view, err := a.cache.GetView(path)
	if err != nil {
		return nil, err
	}

	messages := flattenMessages(view, toolDetail)

	if fromTurnIndex != nil || toTurnIndex != nil {
		var filtered []ConversationMessage
		for _, m := range messages {
			if fromTurnIndex != nil && m.TurnIndex < *fromTurnIndex {
				continue
			}
			if toTurnIndex != nil && m.TurnIndex > *toTurnIndex {
				continue
			}
			filtered = append(filtered, m)
		}
		messages = filtered
	}

	if beforeLine != nil {
		var filtered []ConversationMessage
		for _, m := range messages {
			if m.LineIndex < *beforeLine {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}

	if lastN != nil && len(messages) > *lastN {
		messages = messages[len(messages)-*lastN:]
	}

	return messages, nil
}

func flattenMessages(view *session.StructuredView, toolDetail ToolDetail) []ConversationMessage {
	toolsByTurn := make(map[int][]session.ToolUse)
	for _, tu := range view.ToolUses {
		toolsByTurn[tu.TurnIndex] = append(toolsByTurn[tu.TurnIndex], tu)
	}

	var out []ConversationMessage
	for _, p := range view.Prompts {
		out = append(out, ConversationMessage{
			Role:      "user",
			TurnIndex: p.TurnIndex,
			LineIndex: p.LineIndex,
			Text:      p.Text,
		})
	}
	for _, r := range view.Responses {
		msg := ConversationMessage{
			Role:      "assistant",
			TurnIndex: r.TurnIndex,
			LineIndex: r.LineIndex,
			Text:      r.Text,
		}
		for _, tu := range toolsByTurn[r.TurnIndex] {
			msg.ToolUses = append(msg.ToolUses, renderToolUse(tu, toolDetail, view.ToolResults))
		}
		out = append(out, msg)
	}

	sortMessages(out)
	return out
}

func sortMessages(messages []ConversationMessage) {
	for i := 1; i < len(messages); i++ {
		for j := i; j > 0 && messages[j-1].LineIndex > messages[j].LineIndex; j-- {
			messages[j-1], messages[j] = messages[j], messages[j-1]
		}
	}
}

func renderToolUse(tu session.ToolUse, toolDetail ToolDetail, toolResults map[string]session.ToolResult) ConversationToolUse {
	out := ConversationToolUse{ID: tu.ID, Name: tu.Name, Input: tu.Input}
	if toolDetail == ToolDetailNone {
		return out
	}
	out.ResultSummary = resultSummary(tu, toolResults[tu.ID])
	if toolDetail == ToolDetailFull {
		out.Result = truncate(toolResults[tu.ID].Text, 2000)
	}
	return out
}

// resultSummary renders a tool-specific summary, using the tool_result
// text matched back to this ToolUse by id (the same id-matching
// technique resolveSubagentResult uses for Task-tool results).
func resultSummary(tu session.ToolUse, result session.ToolResult) string {
	switch {
	case readLikeTools[tu.Name]:
		return fmt.Sprintf("Read %d lines", lineCount(result.Text))
	case bashTools[tu.Name]:
		return fmt.Sprintf("%d lines of output", lineCount(result.Text))
	case searchTools[tu.Name]:
		return fmt.Sprintf("%d matches found", lineCount(result.Text))
	case writeLikeTools[tu.Name]:
		return "File modified"
	default:
		return truncate(fmt.Sprintf("%v", tu.Input), 150)
	}
}

// lineCount counts the lines a tool_result's text would render as; an
// empty or whitespace-only result counts as zero.
func lineCount(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// CompactMessages returns every compact boundary recorded in the
// session, ordered by appearance.
func (a *Aggregator) CompactMessages(sessionID, cwd string) ([]session.CompactMessage, error) {
	path, err := a.resolvePath(sessionID, cwd)
	if err != nil {
		return nil, err
	}
	view, err := a.cache.GetView(path)
	if err != nil {
		return nil, err
	}
	return view.Compacts, nil
}

// MessagesFromPosition is a lightweight slice by line index, used for
// catch-up reads after a compact boundary.
func (a *Aggregator) MessagesFromPosition(sessionID, cwd string, fromLineIndex int, limit int) ([]ConversationMessage, error) {
	path, err := a.resolvePath(sessionID, cwd)
	if err != nil {
		return nil, err
	}
	view, err := a.cache.GetView(path)
	if err != nil {
		return nil, err
	}

	messages := flattenMessages(view, ToolDetailSummary)
	var out []ConversationMessage
	for _, m := range messages {
		if m.LineIndex >= fromLineIndex {
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
