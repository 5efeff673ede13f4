// Package sessionpath is the Session Reader: it maps a session id (and
// optionally a working directory) to an on-disk file path, including
// nested subagent files, and scans project directories to locate
// sessions whose working directory is unknown.
package sessionpath

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EncodeProjectKey implements the legacy encoding rule exactly: the
// absolute working directory is lowercased, a leading "/" is replaced
// by "-", and every subsequent "/" is also replaced by "-". Because
// this is ambiguous for paths containing literal hyphens, the canonical
// project path must always be re-derived from a session's `cwd` field
// rather than decoded back out of the key.
func EncodeProjectKey(workingDir string) string {
	clean := filepath.Clean(workingDir)
	lower := strings.ToLower(clean)
	return strings.ReplaceAll(lower, "/", "-")
}

// DecodeProjectKey makes a best-effort attempt to recover a working
// directory from an encoded key by treating every "-" as a path
// separator and checking each candidate split against the filesystem.
// Ambiguous by construction; callers that have a `cwd` field available
// should prefer it over this function's result.
func DecodeProjectKey(encoded string) string {
	if !strings.HasPrefix(encoded, "-") {
		return encoded
	}
	allSlashes := strings.ReplaceAll(encoded, "-", "/")
	if _, err := os.Stat(allSlashes); err == nil {
		return allSlashes
	}

	parts := strings.Split(strings.TrimPrefix(encoded, "-"), "-")
	for numSlashes := len(parts) - 1; numSlashes > 0; numSlashes-- {
		candidate := "/" + strings.Join(parts[:numSlashes], "/")
		if numSlashes < len(parts) {
			candidate += "/" + strings.Join(parts[numSlashes:], "-")
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return allSlashes
}

// ClaudeHome returns {home}/.claude, the root that holds projects/.
func ClaudeHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude"), nil
}

// ExternalTaskDir returns {home}/.claude/tasks/{sessionId}, where an
// external task manager may drop per-task JSON files for a session
// outside of the transcript itself.
func ExternalTaskDir(sessionID string) (string, error) {
	claudeHome, err := ClaudeHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(claudeHome, "tasks", sessionID), nil
}

// ProjectDir returns the projects directory for a working directory,
// resolving worktrees to their main repo root first (Claude stores
// sessions keyed by the main tree's path, not a worktree's).
func ProjectDir(workingDir string) (string, error) {
	claudeHome, err := ClaudeHome()
	if err != nil {
		return "", err
	}
	resolved := resolveGitRoot(workingDir)
	return filepath.Join(claudeHome, "projects", EncodeProjectKey(resolved)), nil
}

// resolveGitRoot walks up from dir looking for a .git entry. If it finds
// a worktree's .git *file* (not directory), it follows the "gitdir: ..."
// pointer back to the main repository root. Falls back to dir itself
// when nothing git-related is found.
func resolveGitRoot(dir string) string {
	current := filepath.Clean(dir)
	for {
		gitPath := filepath.Join(current, ".git")
		info, err := os.Lstat(gitPath)
		if err == nil {
			if info.IsDir() {
				return current
			}
			if root, ok := mainRootFromWorktreeFile(gitPath); ok {
				return root
			}
			return dir
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}

func mainRootFromWorktreeFile(gitFile string) (string, bool) {
	data, err := os.ReadFile(gitFile)
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "gitdir: ") {
		return "", false
	}
	gitdir := strings.TrimPrefix(content, "gitdir: ")
	mainGitDir := filepath.Clean(filepath.Join(gitdir, "..", ".."))
	mainRoot := filepath.Dir(mainGitDir)
	if fi, err := os.Stat(filepath.Join(mainRoot, ".git")); err == nil && fi.IsDir() {
		return mainRoot, true
	}
	return "", false
}

// FindSessionFile resolves a session id to its file path given a known
// working directory.
func FindSessionFile(workingDir, sessionID string) (string, error) {
	dir, err := ProjectDir(workingDir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// FindAllSessionFiles lists every top-level (non-subagent) session file
// directly under a project directory.
func FindAllSessionFiles(projectDir string) ([]string, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		if strings.HasPrefix(e.Name(), "agent-") {
			continue
		}
		paths = append(paths, filepath.Join(projectDir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// SessionIDFromPath extracts a session id from a top-level session
// file's path (its basename minus the .jsonl suffix).
func SessionIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

// AgentFilePaths returns the two candidate locations a subagent file may
// live at for a given project/parent-session pair, in the order they
// should be probed: the flat legacy layout first, then the nested one.
func AgentFilePaths(projectDir, parentSessionID, agentID string) []string {
	return []string{
		filepath.Join(projectDir, "agent-"+agentID+".jsonl"),
		filepath.Join(projectDir, parentSessionID, "subagents", "agent-"+agentID+".jsonl"),
	}
}

// firstLineFields is the minimal shape read off a subagent file's first
// line to discover its parent session linkage.
type firstLineFields struct {
	SessionID string `json:"sessionId"`
	ParentUUID string `json:"parentUuid"`
	AgentName string `json:"agentName"`
	TeamName  string `json:"teamName"`
}

// ReadFirstLine reads and decodes the first JSONL line of path. Returns
// ok=false if the file can't be opened, is empty, or the first line
// isn't valid JSON.
func ReadFirstLine(path string) (firstLineFields, bool) {
	f, err := os.Open(path)
	if err != nil {
		return firstLineFields{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		return firstLineFields{}, false
	}
	var fields firstLineFields
	if err := json.Unmarshal(scanner.Bytes(), &fields); err != nil {
		return firstLineFields{}, false
	}
	return fields, true
}

// DiscoverDirectAgentFiles finds agent-*.jsonl files directly under
// projectDir whose first-line sessionId matches parentSessionID.
func DiscoverDirectAgentFiles(projectDir, parentSessionID string) ([]string, error) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "agent-") || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(projectDir, e.Name())
		fields, ok := ReadFirstLine(path)
		if ok && fields.SessionID == parentSessionID {
			matches = append(matches, path)
		}
	}
	return matches, nil
}

// DiscoverNestedAgentFiles lists every agent-*.jsonl file under
// {projectDir}/{parentSessionID}/subagents/, included whole (no
// first-line verification needed — the directory name already scopes
// them to the parent).
func DiscoverNestedAgentFiles(projectDir, parentSessionID string) ([]string, error) {
	dir := filepath.Join(projectDir, parentSessionID, "subagents")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "agent-") && strings.HasSuffix(e.Name(), ".jsonl") {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}
	return matches, nil
}

// TeamMember is an expected team-session identity parsed from the
// parent's Teammate tool calls.
type TeamMember struct {
	Name     string
	TeamName string
}

// DiscoverTeamSessions finds team-member session files. Team-spawned
// agents create independent session files at the project root
// ({projectDir}/{uuid}.jsonl, not under a subagents/ directory); their
// first line carries agentName/teamName fields identifying which team
// member they belong to.
func DiscoverTeamSessions(projectDir, parentSessionID string, expected []TeamMember) ([]string, error) {
	if len(expected) == 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return nil, err
	}

	byIdentity := make(map[TeamMember]bool, len(expected))
	for _, m := range expected {
		byIdentity[m] = true
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		if e.Name() == parentSessionID+".jsonl" || strings.HasPrefix(e.Name(), "agent-") {
			continue
		}
		path := filepath.Join(projectDir, e.Name())
		fields, ok := ReadFirstLine(path)
		if !ok || fields.AgentName == "" || fields.TeamName == "" {
			continue
		}
		if byIdentity[TeamMember{Name: fields.AgentName, TeamName: fields.TeamName}] {
			matches = append(matches, path)
		}
	}
	return matches, nil
}

// ListProjectDirs enumerates every encoded project directory under the
// Claude home.
func ListProjectDirs() ([]string, error) {
	claudeHome, err := ClaudeHome()
	if err != nil {
		return nil, err
	}
	root := filepath.Join(claudeHome, "projects")
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

// FindRecentSessionFiles finds top-level session files across every
// project modified within the given window, for cold-start discovery of
// sessions whose working directory the caller doesn't yet know.
func FindRecentSessionFiles(within time.Duration) ([]string, error) {
	dirs, err := ListProjectDirs()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-within)
	var results []string
	for _, dir := range dirs {
		paths, err := FindAllSessionFiles(dir)
		if err != nil {
			continue
		}
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				results = append(results, p)
			}
		}
	}
	return results, nil
}
