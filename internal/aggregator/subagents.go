package aggregator

import (
	"github.com/langmartai/lm-assist/internal/session"
	"github.com/langmartai/lm-assist/internal/sessionpath"
)

const subagentLoadConcurrency = 8

// SubagentInvocation augments a parsed session.SubagentInvocation with
// the file path its subagent session was discovered at, if any.
type SubagentInvocation struct {
	session.SubagentInvocation
	FilePath string `json:"filePath,omitempty"`
}

// SubagentsForSession returns the union of subagent invocations parsed
// from the parent's Task tool calls and subagent files discovered on
// disk, with each discovered session's runtime status propagated back
// onto the matching invocation.
func (a *Aggregator) SubagentsForSession(sessionID, cwd string) ([]*SubagentInvocation, error) {
	path, err := a.resolvePath(sessionID, cwd)
	if err != nil {
		return nil, err
	}
	projectDir := parentDir(path)

	view, err := a.cache.GetView(path)
	if err != nil {
		return nil, err
	}

	byAgentID := make(map[string]*SubagentInvocation, len(view.Subagents))
	out := make([]*SubagentInvocation, 0, len(view.Subagents))
	for _, inv := range view.Subagents {
		wrapped := &SubagentInvocation{SubagentInvocation: *inv}
		out = append(out, wrapped)
		if inv.AgentID != "" {
			byAgentID[inv.AgentID] = wrapped
		}
	}

	direct, _ := sessionpath.DiscoverDirectAgentFiles(projectDir, sessionID)
	nested, _ := sessionpath.DiscoverNestedAgentFiles(projectDir, sessionID)
	allPaths := append(append([]string{}, direct...), nested...)

	var expectedTeammates []sessionpath.TeamMember
	for _, op := range view.TeamOps {
		if op.Kind != "teammate" || op.TeamName == "" {
			continue
		}
		expectedTeammates = append(expectedTeammates, sessionpath.TeamMember{Name: op.TeamName, TeamName: view.Meta.TeamName})
	}
	teamPaths, _ := sessionpath.DiscoverTeamSessions(projectDir, sessionID, expectedTeammates)
	fromTeammate := make(map[string]bool, len(teamPaths))
	for _, p := range teamPaths {
		fromTeammate[p] = true
	}
	allPaths = append(allPaths, teamPaths...)

	type loaded struct {
		agentID string
		path    string
		view    *session.StructuredView
	}

	sem := make(chan struct{}, subagentLoadConcurrency)
	results := make(chan loaded, len(allPaths))
	for _, p := range allPaths {
		p := p
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			sv, err := a.cache.GetView(p)
			if err != nil {
				results <- loaded{}
				return
			}
			results <- loaded{agentID: sessionpath.SessionIDFromPath(p), path: p, view: sv}
		}()
	}

	for range allPaths {
		r := <-results
		if r.view == nil {
			continue
		}
		status := computeStatus(r.view)
		if inv, ok := byAgentID[r.agentID]; ok {
			inv.FilePath = r.path
			inv.Status = statusToSubagentStatus(status)
			continue
		}
		// A discovered file with no matching Task-call invocation — still
		// surfaced so the UI can show it (e.g. a Teammate-spawned session).
		out = append(out, &SubagentInvocation{
			SubagentInvocation: session.SubagentInvocation{
				AgentID:      r.agentID,
				Status:       statusToSubagentStatus(status),
				FromTeammate: fromTeammate[r.path],
			},
			FilePath: r.path,
		})
	}

	return out, nil
}

func statusToSubagentStatus(s session.Status) session.SubagentStatus {
	switch s {
	case session.StatusCompleted:
		return session.SubagentCompleted
	case session.StatusError:
		return session.SubagentError
	case session.StatusRunning:
		return session.SubagentRunning
	default:
		return session.SubagentPending
	}
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
