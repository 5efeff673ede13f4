package taskstore

import (
	"github.com/langmartai/lm-assist/internal/store"
)

const snapshotVersion = 1

// snapshot is the versioned, on-disk shape of task-store.json. Load
// only applies a snapshot whose version and project path match.
type snapshot struct {
	Version    int                        `json:"version"`
	ProjectPath string                    `json:"projectPath"`
	SavedAt    string                     `json:"savedAt"`
	SessionScans map[string]scanState     `json:"sessionScans"`
	Sessions   map[string]*SessionSummary `json:"sessions"`
	Tasks      map[string]*Task           `json:"tasks"`
}

// persist writes the current state to task-store.json.
func (s *Store) persist() error {
	s.mu.Lock()
	snap := snapshot{
		Version:      snapshotVersion,
		ProjectPath:  s.projectDir,
		SessionScans: s.scans,
		Sessions:     s.sessions,
		Tasks:        s.tasks,
	}
	s.mu.Unlock()
	return store.SaveJSON(persistPath(s.persistDir), snap)
}

// Load restores a persisted snapshot, applying it only if its version
// and project path match this store's. Returns ok=false (no error)
// when nothing usable was found.
func (s *Store) Load() (ok bool, err error) {
	if s.persistDir == "" {
		return false, nil
	}
	var snap snapshot
	found, err := store.LoadJSON(persistPath(s.persistDir), &snap)
	if err != nil || !found {
		return false, err
	}
	if snap.Version != snapshotVersion || snap.ProjectPath != s.projectDir {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.SessionScans != nil {
		s.scans = snap.SessionScans
	}
	if snap.Sessions != nil {
		s.sessions = snap.Sessions
	}
	if snap.Tasks != nil {
		s.tasks = snap.Tasks
	}
	return true, nil
}

// Stats summarizes store contents; a persisted snapshot, loaded
// fresh, must produce the same Stats as the process that saved it.
type Stats struct {
	SessionCount int `json:"sessionCount"`
	TaskCount    int `json:"taskCount"`
	ReadyCount   int `json:"readyCount"`
}

// GetStats summarizes the current store state.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	sessionCount := len(s.sessions)
	taskCount := 0
	for _, t := range s.tasks {
		if t.Status != "deleted" {
			taskCount++
		}
	}
	s.mu.Unlock()

	return Stats{
		SessionCount: sessionCount,
		TaskCount:    taskCount,
		ReadyCount:   len(s.ReadyTasks()),
	}
}
