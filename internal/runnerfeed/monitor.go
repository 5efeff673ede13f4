package runnerfeed

import (
	"github.com/langmartai/lm-assist/internal/execstore"
)

// Feed mirrors a runner's live event stream into an Execution Store.
type Feed struct {
	store *execstore.Store
}

// New returns a Feed writing into store.
func New(store *execstore.Store) *Feed {
	return &Feed{store: store}
}

// HandleEvent routes one RunnerEvent to the Execution Store, learning
// the Claude session id on first sight and dispatching by Kind the same
// way the agent-runner's own activity classifier does: a closed switch
// with a conservative default.
func (f *Feed) HandleEvent(ev RunnerEvent) error {
	if ev.ClaudeSessionID != "" {
		if err := f.store.UpdateClaudeSessionID(ev.ExecutionID, ev.ClaudeSessionID); err != nil {
			return err
		}
	}

	switch ev.Kind {
	case "permission_request":
		_, err := f.store.CreateBlockingEvent(ev.ExecutionID, execstore.BlockingPermission, ev.Payload)
		return err
	case "user_question":
		_, err := f.store.CreateBlockingEvent(ev.ExecutionID, execstore.BlockingUserQuestion, ev.Payload)
		return err
	case "subagent_approval":
		_, err := f.store.CreateBlockingEvent(ev.ExecutionID, execstore.BlockingSubagentApproval, ev.Payload)
		return err
	case "result":
		return f.handleResult(ev)
	case "error":
		return f.handleError(ev)
	default:
		_, err := f.store.RecordEvent(ev.ExecutionID, toStoreEvent(ev))
		return err
	}
}

func toStoreEvent(ev RunnerEvent) execstore.Event {
	return execstore.Event{
		Kind:         ev.Kind,
		HookType:     ev.HookType,
		MCPServer:    ev.MCPServer,
		ToolName:     ev.ToolName,
		SubagentName: ev.SubagentName,
		Payload:      ev.Payload,
	}
}

func (f *Feed) handleResult(ev RunnerEvent) error {
	resultText, _ := ev.Payload["result"].(string)
	usage := usageFromPayload(ev.Payload)
	costUSD, _ := ev.Payload["totalCostUsd"].(float64)
	return f.store.Complete(ev.ExecutionID, execstore.StatusCompleted, resultText, nil, usage, costUSD, nil)
}

func (f *Feed) handleError(ev RunnerEvent) error {
	msg, _ := ev.Payload["error"].(string)
	var errs []string
	if msg != "" {
		errs = []string{msg}
	}
	usage := usageFromPayload(ev.Payload)
	return f.store.Complete(ev.ExecutionID, execstore.StatusFailed, "", errs, usage, 0, nil)
}

func usageFromPayload(payload map[string]any) execstore.Usage {
	raw, ok := payload["usage"].(map[string]any)
	if !ok {
		return execstore.Usage{}
	}
	return execstore.Usage{
		InputTokens:              intField(raw, "input_tokens"),
		OutputTokens:             intField(raw, "output_tokens"),
		CacheReadInputTokens:     intField(raw, "cache_read_input_tokens"),
		CacheCreationInputTokens: intField(raw, "cache_creation_input_tokens"),
	}
}

func intField(m map[string]any, key string) int {
	v, ok := m[key].(float64)
	if !ok {
		return 0
	}
	return int(v)
}
