package taskstore

import "github.com/langmartai/lm-assist/internal/session"

// Ready reports whether a task's dependencies are all satisfied: its
// own status is neither completed nor deleted, and every task named in
// its BlockedBy list is completed.
func (s *Store) Ready(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	return s.readyLocked(t)
}

func (s *Store) readyLocked(t *Task) bool {
	if t.Status == session.TaskCompleted || t.Status == session.TaskDeleted {
		return false
	}
	for _, dep := range t.BlockedBy {
		blocker, ok := s.tasks[dep]
		if !ok || blocker.Status != session.TaskCompleted {
			return false
		}
	}
	return true
}

// ReadyTasks returns every task whose dependencies are fully satisfied.
func (s *Store) ReadyTasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, t := range s.tasks {
		if s.readyLocked(t) {
			out = append(out, t)
		}
	}
	return out
}

func isIntent(t *Task) bool {
	v, _ := t.Metadata["isIntent"].(bool)
	return v
}

func parentTaskID(t *Task) (string, bool) {
	v, ok := t.Metadata["parentTaskId"].(string)
	return v, ok && v != ""
}

// Children returns a parent task's children: preferentially the tasks
// referenced in its own BlockedBy list, falling back to the legacy
// metadata.parentTaskId back-reference when BlockedBy names none.
func (s *Store) Children(parentID string) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.tasks[parentID]
	if !ok || !isIntent(parent) {
		return nil
	}

	var out []*Task
	for _, dep := range parent.BlockedBy {
		if child, ok := s.tasks[dep]; ok {
			out = append(out, child)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, t := range s.tasks {
		if pid, ok := parentTaskID(t); ok && pid == parentID {
			out = append(out, t)
		}
	}
	return out
}

// AutoCompletable reports whether a parent (isIntent) task has children
// and every one of them is completed or deleted.
func (s *Store) AutoCompletable(parentID string) bool {
	children := s.Children(parentID)
	if len(children) == 0 {
		return false
	}
	for _, c := range children {
		if c.Status != session.TaskCompleted && c.Status != session.TaskDeleted {
			return false
		}
	}
	return true
}
