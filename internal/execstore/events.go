package execstore

// translateEvent maps one stored SDK event into the output chunks it
// produces, applying per-event-kind rules. Assistant-block events may
// fan out into several chunks (text/tool_use/thinking all arriving on
// one "assistant" event); every other recognized kind maps to exactly
// one chunk, and an unrecognized kind produces none.
func translateEvent(ev Event) []OutputChunk {
	switch ev.Kind {
	case "assistant":
		return translateAssistantEvent(ev)
	case "hook":
		return []OutputChunk{{
			Type:      ChunkHookEvent,
			Metadata:  map[string]any{"hookType": ev.HookType},
			Timestamp: ev.Timestamp,
		}}
	case "mcp_tool_call":
		return []OutputChunk{{
			Type:      ChunkMCPToolCall,
			ToolName:  ev.ToolName,
			Metadata:  map[string]any{"mcpServer": ev.MCPServer},
			Timestamp: ev.Timestamp,
		}}
	case "mcp_tool_result":
		return []OutputChunk{{
			Type:      ChunkMCPToolResult,
			ToolName:  ev.ToolName,
			Metadata:  map[string]any{"mcpServer": ev.MCPServer},
			Timestamp: ev.Timestamp,
		}}
	case "subagent_start":
		return []OutputChunk{{
			Type:      ChunkSubagentStart,
			Metadata:  map[string]any{"subagentName": ev.SubagentName},
			Timestamp: ev.Timestamp,
		}}
	case "subagent_result":
		return []OutputChunk{{
			Type:      ChunkSubagentResult,
			Metadata:  map[string]any{"subagentName": ev.SubagentName},
			Timestamp: ev.Timestamp,
		}}
	case "user_question":
		return []OutputChunk{{Type: ChunkUserQuestion, Timestamp: ev.Timestamp}}
	case "user_answer":
		return []OutputChunk{{Type: ChunkUserAnswer, Timestamp: ev.Timestamp}}
	default:
		return nil
	}
}

// assistantBlock is the minimal shape translateAssistantEvent expects in
// ev.Payload["blocks"] — a loosely-typed stand-in for the SDK's
// content-block union, mirroring internal/session's contentBlock but
// kept local since this package must not depend on internal/session.
type assistantBlock struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Thinking string         `json:"thinking,omitempty"`
	Name     string         `json:"name,omitempty"`
	Input    map[string]any `json:"input,omitempty"`
	Redacted bool           `json:"redacted,omitempty"`
}

func translateAssistantEvent(ev Event) []OutputChunk {
	raw, _ := ev.Payload["blocks"].([]any)
	var chunks []OutputChunk
	for _, b := range raw {
		m, ok := b.(map[string]any)
		if !ok {
			continue
		}
		block := blockFromMap(m)
		switch block.Type {
		case "text":
			chunks = append(chunks, OutputChunk{Type: ChunkText, Text: block.Text, Timestamp: ev.Timestamp})
		case "thinking":
			typ := ChunkThinking
			if block.Redacted {
				typ = ChunkRedactedThinking
			}
			chunks = append(chunks, OutputChunk{Type: typ, Text: block.Thinking, Timestamp: ev.Timestamp})
		case "tool_use":
			chunks = append(chunks, OutputChunk{
				Type:      ChunkToolUse,
				ToolName:  block.Name,
				ToolInput: block.Input,
				Timestamp: ev.Timestamp,
			})
		case "tool_result":
			chunks = append(chunks, OutputChunk{Type: ChunkToolResult, Timestamp: ev.Timestamp})
		}
	}
	return chunks
}

func blockFromMap(m map[string]any) assistantBlock {
	var b assistantBlock
	if v, ok := m["type"].(string); ok {
		b.Type = v
	}
	if v, ok := m["text"].(string); ok {
		b.Text = v
	}
	if v, ok := m["thinking"].(string); ok {
		b.Thinking = v
	}
	if v, ok := m["name"].(string); ok {
		b.Name = v
	}
	if v, ok := m["input"].(map[string]any); ok {
		b.Input = v
	}
	if v, ok := m["redacted"].(bool); ok {
		b.Redacted = v
	}
	return b
}
