package taskstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/langmartai/lm-assist/internal/session"
	"github.com/langmartai/lm-assist/internal/sessionpath"
)

// scanState is the last-seen (size, mtime) for one session file,
// mirroring the Session Cache's own validation invariant so a refresh
// can skip rebuilding a session that has not changed.
type scanState struct {
	FileSize int64
	ModTime  time.Time
}

// Store is the process-wide, per-project Task Store singleton.
type Store struct {
	projectDir string
	cache      *session.Cache
	persistDir string

	mu       sync.Mutex
	scans    map[string]scanState // session file path -> last scan
	tasks    map[string]*Task     // namespaced id -> Task
	sessions map[string]*SessionSummary

	refreshMu sync.Mutex
	inFlight  *sync.WaitGroup
	lastErr   error

	listenersMu sync.Mutex
	listeners   []Listener
}

// New creates an empty Store for one project directory, sharing the
// given Session Cache (so a task-graph rebuild reuses whatever the
// cache already has rather than re-parsing).
func New(projectDir string, cache *session.Cache, persistDir string) *Store {
	return &Store{
		projectDir: projectDir,
		cache:      cache,
		persistDir: persistDir,
		scans:      make(map[string]scanState),
		tasks:      make(map[string]*Task),
		sessions:   make(map[string]*SessionSummary),
	}
}

// Subscribe registers a listener for diff events emitted by future
// Refresh calls.
func (s *Store) Subscribe(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) emit(ev DiffEvent) {
	s.listenersMu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.listenersMu.Unlock()

	for _, l := range ls {
		func() {
			defer func() { recover() }() // absorb listener panics
			l(ev)
		}()
	}
}

// Refresh rescans every session file in the project, reconciling the
// task graph and emitting diff events for what changed. Concurrent
// callers coalesce onto a single in-flight scan: refreshes are
// single-flight per project.
func (s *Store) Refresh() error {
	s.refreshMu.Lock()
	if s.inFlight != nil {
		wg := s.inFlight
		s.refreshMu.Unlock()
		wg.Wait()
		s.refreshMu.Lock()
		err := s.lastErr
		s.refreshMu.Unlock()
		return err
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	s.inFlight = wg
	s.refreshMu.Unlock()

	err := s.doRefresh()

	s.refreshMu.Lock()
	s.lastErr = err
	s.inFlight = nil
	s.refreshMu.Unlock()
	wg.Done()
	return err
}

func (s *Store) doRefresh() error {
	paths, err := sessionpath.FindAllSessionFiles(s.projectDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	tempTasks := make(map[string]*Task)
	tempSessions := make(map[string]*SessionSummary)
	tempScans := make(map[string]scanState)
	var events []DiffEvent

	s.mu.Lock()
	prevTasks := s.tasks
	s.mu.Unlock()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		sessionID := sessionpath.SessionIDFromPath(path)
		cur := scanState{FileSize: info.Size(), ModTime: info.ModTime()}
		tempScans[path] = cur

		// The Session Cache already validates (size, mtime) on its own and
		// reuses its in-memory view unchanged when nothing moved, so a
		// session whose scanState is unchanged from the prior refresh costs
		// only a stat here, not a reparse.
		view, err := s.cache.GetView(path)
		if err != nil || view == nil {
			continue
		}

		sid8 := sessionID
		if len(sid8) > 8 {
			sid8 = sid8[:8]
		}

		count := 0
		for _, rawID := range view.TaskOrder {
			src := view.Tasks[rawID]
			if src == nil {
				continue
			}
			count++
			namespaced := namespaceTask(sid8, src, sessionID)
			tempTasks[namespaced.ID] = namespaced
		}

		// External task-manager files for this session, when present,
		// take precedence over whatever was last extracted from the
		// transcript (they reflect the manager's live state).
		for _, t := range s.scanExternalTasks(sid8, sessionID) {
			if _, existed := tempTasks[t.ID]; !existed {
				count++
			}
			tempTasks[t.ID] = t
		}
		tempSessions[sessionID] = &SessionSummary{SessionID: sessionID, TaskCount: count}

		if count == 0 {
			if _, existed := prevSessionHadTasks(prevTasks, sessionID); !existed {
				events = append(events, DiffEvent{Kind: EventAdhocDetected, SessionID: sessionID})
				continue
			}
		}
		events = append(events, DiffEvent{Kind: EventSessionUpdated, SessionID: sessionID})
	}

	for id, t := range tempTasks {
		prev, existed := prevTasks[id]
		switch {
		case !existed:
			events = append(events, DiffEvent{Kind: EventTaskCreated, TaskID: id, SessionID: t.SessionID})
		case prev.Status != t.Status && t.Status == session.TaskCompleted:
			events = append(events, DiffEvent{Kind: EventTaskCompleted, TaskID: id, SessionID: t.SessionID})
		case !taskEqual(prev, t):
			events = append(events, DiffEvent{Kind: EventTaskUpdated, TaskID: id, SessionID: t.SessionID})
		}
	}

	s.mu.Lock()
	s.tasks = tempTasks
	s.sessions = tempSessions
	s.scans = tempScans
	s.mu.Unlock()

	if s.persistDir != "" {
		_ = s.persist()
	}

	for _, ev := range events {
		s.emit(ev)
	}
	return nil
}

// scanExternalTasks reads ~/.claude/tasks/{sessionId}/*.json, one task
// per file, shaped the same as a transcript-extracted Task. Missing
// directories and unparsable files are skipped; an external task
// manager writing these files is not assumed to exist for most
// sessions.
func (s *Store) scanExternalTasks(sid8, sessionID string) []*Task {
	dir, err := sessionpath.ExternalTaskDir(sessionID)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var out []*Task
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var src session.Task
		if err := json.Unmarshal(data, &src); err != nil || src.ID == "" {
			continue
		}
		out = append(out, namespaceTask(sid8, &src, sessionID))
	}
	return out
}

func prevSessionHadTasks(prevTasks map[string]*Task, sessionID string) (string, bool) {
	for id, t := range prevTasks {
		if t.SessionID == sessionID {
			return id, true
		}
	}
	return "", false
}

func taskEqual(a, b *Task) bool {
	if a.Subject != b.Subject || a.Description != b.Description || a.Status != b.Status || a.Owner != b.Owner {
		return false
	}
	if len(a.Blocks) != len(b.Blocks) || len(a.BlockedBy) != len(b.BlockedBy) {
		return false
	}
	for i := range a.Blocks {
		if a.Blocks[i] != b.Blocks[i] {
			return false
		}
	}
	for i := range a.BlockedBy {
		if a.BlockedBy[i] != b.BlockedBy[i] {
			return false
		}
	}
	return true
}

func namespaceTask(sid8 string, src *session.Task, sessionID string) *Task {
	t := &Task{
		ID:          sid8 + ":" + src.ID,
		SessionID:   sessionID,
		Subject:     src.Subject,
		Description: src.Description,
		Status:      src.Status,
		Owner:       src.Owner,
		Metadata:    src.Metadata,
	}
	for _, b := range src.Blocks {
		t.Blocks = append(t.Blocks, sid8+":"+b)
	}
	for _, b := range src.BlockedBy {
		t.BlockedBy = append(t.BlockedBy, sid8+":"+b)
	}
	return t
}

// Get returns one task by its namespaced id.
func (s *Store) Get(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// All returns a snapshot of every known task, excluding deleted ones
// unless includeDeleted is set.
func (s *Store) All(includeDeleted bool) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !includeDeleted && t.Status == session.TaskDeleted {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ForSession returns every task belonging to one session id.
func (s *Store) ForSession(sessionID string) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, t := range s.tasks {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out
}

func persistPath(dir string) string {
	return filepath.Join(dir, "task-store.json")
}
