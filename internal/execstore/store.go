package execstore

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/langmartai/lm-assist/internal/apierr"
	"github.com/langmartai/lm-assist/internal/store"
)

// Store is the process-wide Execution Store singleton. Its mutable maps
// (executions, blocking events, events) are guarded by a single lock for
// writes; reads take a snapshot under the lock and release it before any
// I/O. Update-then-notify methods hold the lock across the whole
// update *and* the notify callback — callers' callbacks must not
// re-enter the store.
type Store struct {
	mu sync.Mutex

	executions     map[string]*Execution
	order          []string // insertion order, oldest first — ring eviction scans from the front
	blockingEvents map[string]*BlockingEvent
	events         map[string]*Event

	maxExecutions int

	persistDir string
	eventLog   *store.JSONLAppender

	listenersMu sync.Mutex
	listeners   []Listener
}

// Listener receives a copy of a blocking event every time it is created
// or resolved (responded, timed out, or cancelled).
type Listener func(BlockingEvent)

// Subscribe registers a listener for future blocking-event updates.
func (s *Store) Subscribe(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) emitBlockingEvent(be BlockingEvent) {
	s.listenersMu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.listenersMu.Unlock()
	for _, l := range ls {
		l(be)
	}
}

// New creates an empty Store. persistDir, when non-empty, is the
// directory used for snapshots and the events.jsonl append log.
func New(maxExecutions int, persistDir string) *Store {
	s := &Store{
		executions:     make(map[string]*Execution),
		blockingEvents: make(map[string]*BlockingEvent),
		events:         make(map[string]*Event),
		maxExecutions:  maxExecutions,
		persistDir:     persistDir,
	}
	if persistDir != "" {
		s.eventLog = store.NewJSONLAppender(filepath.Join(persistDir, "events.jsonl"))
	}
	return s
}

// Start creates a new running execution and returns its id.
func (s *Store) Start(prompt, context, tier, agentType string) (*Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.evictForCapacityLocked(); err != nil {
		return nil, err
	}

	ex := &Execution{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Context:   context,
		Tier:      tier,
		AgentType: agentType,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	s.executions[ex.ID] = ex
	s.order = append(s.order, ex.ID)

	s.appendEventLocked(Event{
		ID:          uuid.NewString(),
		ExecutionID: ex.ID,
		Kind:        "execution_start",
		Timestamp:   ex.StartedAt,
	})

	cp := *ex
	return &cp, nil
}

// evictForCapacityLocked drops the oldest completed-or-failed execution
// when the store is at capacity. Returns apierr.OverCapacity if the ring
// is full of running executions (nothing evictable). Must be called
// with mu held.
func (s *Store) evictForCapacityLocked() error {
	if s.maxExecutions <= 0 || len(s.executions) < s.maxExecutions {
		return nil
	}
	for i, id := range s.order {
		ex := s.executions[id]
		if ex != nil && ex.Status.Terminal() {
			delete(s.executions, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			return nil
		}
	}
	return apierr.New(apierr.OverCapacity, "execution ring full of running executions")
}

// UpdateClaudeSessionID patches the late-bound Claude session id onto an
// execution, learned after the runner's first SDK event.
func (s *Store) UpdateClaudeSessionID(executionID, claudeSessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.executions[executionID]
	if !ok {
		return apierr.New(apierr.NotFound, executionID)
	}
	ex.ClaudeSessionID = claudeSessionID
	return nil
}

// AppendOutput pushes a streamed chunk onto a running execution.
func (s *Store) AppendOutput(executionID string, chunk OutputChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.executions[executionID]
	if !ok {
		return apierr.New(apierr.NotFound, executionID)
	}
	if chunk.Timestamp.IsZero() {
		chunk.Timestamp = time.Now()
	}
	ex.Output = append(ex.Output, chunk)
	return nil
}

// RecordEvent stores a raw SDK event, links it to its execution, and
// returns the translated output chunks so the caller (runnerfeed) can
// append them in one pass.
func (s *Store) RecordEvent(executionID string, ev Event) ([]OutputChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.executions[executionID]
	if !ok {
		return nil, apierr.New(apierr.NotFound, executionID)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.ExecutionID = executionID
	s.events[ev.ID] = &ev
	ex.LinkedEventIDs = append(ex.LinkedEventIDs, ev.ID)

	s.appendEventLocked(ev)

	chunks := translateEvent(ev)
	ex.Output = append(ex.Output, chunks...)
	return chunks, nil
}

// appendEventLocked writes ev to the JSONL event log. Must be called
// with mu held; append failures are discarded since the in-memory
// record remains authoritative.
func (s *Store) appendEventLocked(ev Event) {
	if s.eventLog == nil {
		return
	}
	_ = s.eventLog.Append(ev)
}

// Complete finalizes an execution. status must be a terminal status.
func (s *Store) Complete(executionID string, status Status, resultText string, errs []string, usage Usage, costUSD float64, filesChanged *FileChangeSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.executions[executionID]
	if !ok {
		return apierr.New(apierr.NotFound, executionID)
	}
	if ex.Status.Terminal() {
		return nil // monotone: already terminal, no-op
	}

	ex.Status = status
	ex.CompletedAt = time.Now()
	ex.DurationMs = ex.CompletedAt.Sub(ex.StartedAt).Milliseconds()
	ex.ResultText = resultText
	ex.Errors = errs
	ex.Usage = usage
	ex.CostUSD = costUSD
	ex.FilesChanged = filesChanged

	kind := "execution_complete"
	if status != StatusCompleted {
		kind = "execution_error"
	}
	s.appendEventLocked(Event{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Kind:        kind,
		Timestamp:   ex.CompletedAt,
	})

	if s.persistDir != "" {
		_ = s.persistSnapshotLocked()
	}
	return nil
}

// Abort stops a running execution: marks it cancelled, writes a
// cancellation event, and removes it from the in-memory active set.
func (s *Store) Abort(executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.executions[executionID]
	if !ok {
		return apierr.New(apierr.NotFound, executionID)
	}
	if ex.Status.Terminal() {
		return nil
	}
	ex.Status = StatusCancelled
	ex.CompletedAt = time.Now()
	ex.DurationMs = ex.CompletedAt.Sub(ex.StartedAt).Milliseconds()

	s.appendEventLocked(Event{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Kind:        "execution_cancelled",
		Timestamp:   ex.CompletedAt,
	})
	return nil
}

// Get returns a copy of one execution's current state.
func (s *Store) Get(executionID string) (*Execution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex, ok := s.executions[executionID]
	if !ok {
		return nil, false
	}
	cp := *ex
	return &cp, true
}

// QueryFilter narrows Query's results. Zero-valued fields are ignored.
type QueryFilter struct {
	Tier            string
	AgentType       string
	Status          Status
	ClaudeSessionID string
	Since           time.Time
	Until           time.Time
	Offset          int
	Limit           int
}

// Query returns executions matching filter, newest-started first, with
// offset/limit pagination.
func (s *Store) Query(filter QueryFilter) []*Execution {
	s.mu.Lock()
	snapshot := make([]*Execution, 0, len(s.executions))
	for _, ex := range s.executions {
		cp := *ex
		snapshot = append(snapshot, &cp)
	}
	s.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].StartedAt.After(snapshot[j].StartedAt)
	})

	var matched []*Execution
	for _, ex := range snapshot {
		if filter.Tier != "" && ex.Tier != filter.Tier {
			continue
		}
		if filter.AgentType != "" && ex.AgentType != filter.AgentType {
			continue
		}
		if filter.Status != "" && ex.Status != filter.Status {
			continue
		}
		if filter.ClaudeSessionID != "" && ex.ClaudeSessionID != filter.ClaudeSessionID {
			continue
		}
		if !filter.Since.IsZero() && ex.StartedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && ex.StartedAt.After(filter.Until) {
			continue
		}
		matched = append(matched, ex)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched
}

// StatsByTier computes Stats for the given tier ("" matches every tier).
func (s *Store) StatsByTier(tier string) Stats {
	execs := s.Query(QueryFilter{Tier: tier})
	st := Stats{Tier: tier}
	var totalDuration int64
	var durationCount int
	for _, ex := range execs {
		st.Total++
		switch ex.Status {
		case StatusCompleted:
			st.Succeeded++
		case StatusFailed, StatusCancelled:
			st.Failed++
		case StatusRunning, StatusPending:
			st.Running++
		}
		st.TotalCostUSD += ex.CostUSD
		if ex.Status.Terminal() {
			totalDuration += ex.DurationMs
			durationCount++
		}
	}
	if durationCount > 0 {
		st.AvgDurationMs = float64(totalDuration) / float64(durationCount)
	}
	return st
}
