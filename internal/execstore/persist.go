package execstore

import (
	"path/filepath"

	"github.com/langmartai/lm-assist/internal/store"
)

// persistSnapshotLocked writes every completed-or-failed execution (up
// to maxExecutions) to executions.json. Must be called with mu held.
func (s *Store) persistSnapshotLocked() error {
	var snapshot []*Execution
	for _, id := range s.order {
		ex := s.executions[id]
		if ex != nil && ex.Status.Terminal() {
			snapshot = append(snapshot, ex)
		}
	}
	return store.SaveJSON(filepath.Join(s.persistDir, "executions.json"), snapshot)
}

// persistBlockingLocked rewrites blocking-events.json from the current
// in-memory map. Must be called with mu held.
func (s *Store) persistBlockingLocked() error {
	list := make([]*BlockingEvent, 0, len(s.blockingEvents))
	for _, be := range s.blockingEvents {
		list = append(list, be)
	}
	return store.SaveJSON(filepath.Join(s.persistDir, "blocking-events.json"), list)
}

// persistSessionChangesLocked rewrites session-changes.json with every
// execution's currently-known file-change summary. Must be called with
// mu held.
func (s *Store) persistSessionChangesLocked() error {
	type entry struct {
		ExecutionID string             `json:"executionId"`
		Changes     *FileChangeSummary `json:"changes"`
	}
	var list []entry
	for _, ex := range s.executions {
		if ex.FilesChanged != nil {
			list = append(list, entry{ExecutionID: ex.ID, Changes: ex.FilesChanged})
		}
	}
	return store.SaveJSON(filepath.Join(s.persistDir, "session-changes.json"), list)
}

// Load restores executions and blocking events from a prior persistence
// directory. Safe to call on a fresh, empty Store only.
func (s *Store) Load() error {
	if s.persistDir == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var execs []*Execution
	if ok, err := store.LoadJSON(filepath.Join(s.persistDir, "executions.json"), &execs); err != nil {
		return err
	} else if ok {
		for _, ex := range execs {
			s.executions[ex.ID] = ex
			s.order = append(s.order, ex.ID)
		}
	}

	var blocking []*BlockingEvent
	if ok, err := store.LoadJSON(filepath.Join(s.persistDir, "blocking-events.json"), &blocking); err != nil {
		return err
	} else if ok {
		for _, be := range blocking {
			s.blockingEvents[be.ID] = be
		}
	}
	return nil
}
