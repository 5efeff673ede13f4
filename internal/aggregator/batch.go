package aggregator

import (
	"os"

	"github.com/langmartai/lm-assist/internal/sessionpath"
)

// BatchChangeCheck answers, for each requested session, whether it has
// changed since the caller's last known state. File size is used as a
// monotone "changed" proxy: a session file only ever grows or gets
// replaced wholesale, so any size difference from KnownFileSize means
// new content arrived.
func (a *Aggregator) BatchChangeCheck(reqs []ChangeCheckRequest, projectDir string) []ChangeCheckResult {
	out := make([]ChangeCheckResult, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, a.changeCheckOne(req, projectDir))
	}
	return out
}

func (a *Aggregator) changeCheckOne(req ChangeCheckRequest, projectDir string) ChangeCheckResult {
	path := req.FilePath
	if path == "" {
		var err error
		path, err = sessionpath.FindSessionFile(projectDir, req.SessionID)
		if err != nil {
			return ChangeCheckResult{SessionID: req.SessionID, Exists: false}
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return ChangeCheckResult{SessionID: req.SessionID, Exists: false}
	}

	agentFiles, _ := sessionpath.DiscoverDirectAgentFiles(projectDir, req.SessionID)
	nested, _ := sessionpath.DiscoverNestedAgentFiles(projectDir, req.SessionID)
	agentIDs := agentIDsFromPaths(append(agentFiles, nested...))

	return ChangeCheckResult{
		SessionID:     req.SessionID,
		Exists:        true,
		ChangeCursor:  info.Size(),
		FileSize:      info.Size(),
		AgentIDs:      agentIDs,
		LastModified:  info.ModTime(),
		Changed:       info.Size() != req.KnownFileSize,
		AgentsChanged: len(agentIDs) != req.KnownAgentCount,
	}
}

func agentIDsFromPaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		out = append(out, sessionpath.SessionIDFromPath(p))
	}
	return out
}

// ListCheck answers "has this project's session list changed" by
// comparing the current session count and latest modification time
// against what the caller already knows. When changed, the full list is
// returned so the caller doesn't need a second round trip.
func (a *Aggregator) ListCheck(projectDir string, knownTotal int, knownLatest int64) (ListCheckResult, error) {
	sessions, err := a.ListSessions(projectDir)
	if err != nil {
		return ListCheckResult{}, err
	}

	var latest int64
	for _, s := range sessions {
		if ts := s.LastModified.UnixNano(); ts > latest {
			latest = ts
		}
	}

	changed := len(sessions) != knownTotal || latest != knownLatest
	result := ListCheckResult{
		TotalSessions: len(sessions),
		Changed:       changed,
	}
	if len(sessions) > 0 {
		result.LatestModTime = sessions[0].LastModified
		for _, s := range sessions {
			if s.LastModified.After(result.LatestModTime) {
				result.LatestModTime = s.LastModified
			}
		}
	}
	if changed {
		result.Sessions = sessions
	}
	return result, nil
}
