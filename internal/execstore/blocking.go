package execstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/langmartai/lm-assist/internal/apierr"
)

// CreateBlockingEvent registers a new pending blocking event for an
// execution and returns its id.
func (s *Store) CreateBlockingEvent(executionID string, kind BlockingKind, request map[string]any) (*BlockingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[executionID]; !ok {
		return nil, apierr.New(apierr.NotFound, executionID)
	}

	be := &BlockingEvent{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Kind:        kind,
		Status:      BlockingPending,
		Request:     request,
		CreatedAt:   time.Now(),
	}
	s.blockingEvents[be.ID] = be

	if s.persistDir != "" {
		_ = s.persistBlockingLocked()
	}

	cp := *be
	s.emitBlockingEvent(cp)
	return &cp, nil
}

// RespondToBlockingEvent records a responder's decision. Returns
// apierr.Conflict if the event is not currently pending.
func (s *Store) RespondToBlockingEvent(id, responder string, response map[string]any) error {
	return s.resolveBlockingEvent(id, BlockingResponded, responder, response)
}

// TimeoutBlockingEvent marks a pending blocking event as timed out,
// unblocking any waiter.
func (s *Store) TimeoutBlockingEvent(id string) error {
	return s.resolveBlockingEvent(id, BlockingTimedOut, "", nil)
}

// CancelBlockingEvent marks a pending blocking event as cancelled.
func (s *Store) CancelBlockingEvent(id string) error {
	return s.resolveBlockingEvent(id, BlockingCancelled, "", nil)
}

func (s *Store) resolveBlockingEvent(id string, status BlockingStatus, responder string, response map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	be, ok := s.blockingEvents[id]
	if !ok {
		return apierr.New(apierr.NotFound, id)
	}
	if be.Status != BlockingPending {
		return apierr.New(apierr.Conflict, "blocking event "+id+" is already "+string(be.Status))
	}

	be.Status = status
	be.Responder = responder
	be.Response = response
	be.RespondedAt = time.Now()
	be.WaitMs = be.RespondedAt.Sub(be.CreatedAt).Milliseconds()

	if s.persistDir != "" {
		_ = s.persistBlockingLocked()
	}
	s.emitBlockingEvent(*be)
	return nil
}

// GetBlockingEvent returns a copy of one blocking event.
func (s *Store) GetBlockingEvent(id string) (*BlockingEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	be, ok := s.blockingEvents[id]
	if !ok {
		return nil, false
	}
	cp := *be
	return &cp, true
}

// PendingBlockingEvents returns every currently-pending blocking event
// for an execution.
func (s *Store) PendingBlockingEvents(executionID string) []*BlockingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*BlockingEvent
	for _, be := range s.blockingEvents {
		if be.ExecutionID == executionID && be.Status == BlockingPending {
			cp := *be
			pending = append(pending, &cp)
		}
	}
	return pending
}

// StoreSessionChanges attaches a file-change summary bundle to an
// execution, as reported by the runner's change tracker.
func (s *Store) StoreSessionChanges(executionID string, summary FileChangeSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.executions[executionID]
	if !ok {
		return apierr.New(apierr.NotFound, executionID)
	}
	ex.FilesChanged = &summary
	if s.persistDir != "" {
		_ = s.persistSessionChangesLocked()
	}
	return nil
}
