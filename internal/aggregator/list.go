package aggregator

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/langmartai/lm-assist/internal/sessionpath"
)

// ListSessions returns every real session under projectDir (excluding
// subagent files and sessions with no real user prompt), newest first.
func (a *Aggregator) ListSessions(projectDir string) ([]ListedSession, error) {
	paths, err := sessionpath.FindAllSessionFiles(projectDir)
	if err != nil {
		return nil, err
	}

	var out []ListedSession
	for _, p := range paths {
		ls, ok := a.describeSession(projectDir, p)
		if !ok {
			continue
		}
		out = append(out, ls)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

func (a *Aggregator) describeSession(projectDir, path string) (ListedSession, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return ListedSession{}, false
	}

	view, err := a.cache.GetView(path)
	if err != nil {
		return ListedSession{}, false
	}
	if view.UserPromptCount == 0 {
		return ListedSession{}, false
	}

	sessionID := sessionpath.SessionIDFromPath(path)
	agentFiles, _ := sessionpath.DiscoverDirectAgentFiles(projectDir, sessionID)
	nested, _ := sessionpath.DiscoverNestedAgentFiles(projectDir, sessionID)

	lastUserMessage := ""
	if n := len(view.Prompts); n > 0 {
		lastUserMessage = truncate(view.Prompts[n-1].Text, 200)
	}

	createdAt := view.FirstTimestamp
	if createdAt.IsZero() {
		createdAt = info.ModTime()
	}

	return ListedSession{
		SessionID:       sessionID,
		ProjectPath:     projectDir,
		FilePath:        path,
		Size:            info.Size(),
		CreatedAt:       createdAt,
		LastModified:    info.ModTime(),
		LastUserMessage: lastUserMessage,
		UserPromptCount: view.UserPromptCount,
		TaskCount:       len(view.Tasks),
		PlanCount:       len(view.Plans),
		AgentFileCount:  len(agentFiles) + len(nested),
		TeamName:        view.Meta.TeamName,
		Status:          computeStatus(view),
	}, true
}

// ListProjects enumerates every known project directory with a
// session-count/size/freshness summary.
func (a *Aggregator) ListProjects() ([]ListedProject, error) {
	dirs, err := sessionpath.ListProjectDirs()
	if err != nil {
		return nil, err
	}

	var out []ListedProject
	for _, dir := range dirs {
		paths, err := sessionpath.FindAllSessionFiles(dir)
		if err != nil || len(paths) == 0 {
			continue
		}

		var totalSize int64
		var latest time.Time
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				continue
			}
			totalSize += info.Size()
			if info.ModTime().After(latest) {
				latest = info.ModTime()
			}
		}

		out = append(out, ListedProject{
			ProjectPath:   decodeProjectPath(dir),
			SessionCount:  len(paths),
			TotalSize:     totalSize,
			LatestModTime: latest,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LatestModTime.After(out[j].LatestModTime) })
	return out, nil
}

func decodeProjectPath(dir string) string {
	return sessionpath.DecodeProjectKey(filepath.Base(dir))
}
