package session

import "time"

// Status is a session's classification, always computed from evidence
// rather than stored.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusRunning     Status = "running"
	StatusInterrupted Status = "interrupted"
	StatusIdle        Status = "idle"
	StatusStale       Status = "stale"
)

const (
	runningIdleThreshold     = 60 * time.Second
	shortIdleThreshold       = 10 * time.Minute
	completedTailIdleThreshold = 10 * time.Minute
)

// lastRecordKind classifies the last meaningful record for the
// completed/interrupted tail heuristics.
type lastRecordKind int

const (
	lastUnknown lastRecordKind = iota
	lastUser
	lastAssistant
	lastSystem
)

// Classify computes a session's status per the documented state machine.
// fileModTime and now let the caller supply wall-clock boundaries without
// the package depending on a live clock internally. lastKind/secondLastKind
// describe the final two raw record types seen, needed for the
// "assistant-then-system" completed-tail heuristic.
func Classify(view *StructuredView, fileModTime, now time.Time, lastKind, secondLastKind lastRecordKind, hasAssistantResponse bool) Status {
	activity := fileModTime
	if view.LastTimestamp.After(activity) {
		activity = view.LastTimestamp
	}
	idle := now.Sub(activity)

	if view.Result.Present {
		if len(view.Result.Errors) > 0 {
			return StatusError
		}
		if view.Result.Success {
			return StatusCompleted
		}
	}

	if lastKind == lastSystem && secondLastKind == lastAssistant && idle >= completedTailIdleThreshold {
		return StatusCompleted
	}

	if idle < runningIdleThreshold {
		return StatusRunning
	}

	if lastKind == lastUser {
		if !hasAssistantResponse || idle >= shortIdleThreshold {
			return StatusInterrupted
		}
	}

	if idle < shortIdleThreshold {
		return StatusIdle
	}

	return StatusStale
}

// LastRecordKind exposes the three tail classifications Classify needs;
// callers derive it from the final raw record type they observed.
func LastRecordKind(recordType string) lastRecordKind {
	switch recordType {
	case "user":
		return lastUser
	case "assistant":
		return lastAssistant
	case "system":
		return lastSystem
	default:
		return lastUnknown
	}
}
