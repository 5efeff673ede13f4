package session

import (
	"testing"
	"time"
)

func TestClassifyCompletedOnSuccessResult(t *testing.T) {
	view := NewStructuredView()
	view.Result = Result{Present: true, Success: true}
	now := time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC)
	mtime := now.Add(-1 * time.Minute)
	got := Classify(view, mtime, now, lastAssistant, lastUser, true)
	if got != StatusCompleted {
		t.Errorf("Classify = %q, want completed", got)
	}
}

func TestClassifyErrorOnNonEmptyErrors(t *testing.T) {
	view := NewStructuredView()
	view.Result = Result{Present: true, Success: false, Errors: []string{"boom"}}
	now := time.Now()
	got := Classify(view, now, now, lastAssistant, lastUser, true)
	if got != StatusError {
		t.Errorf("Classify = %q, want error", got)
	}
}

func TestClassifyRunningWhenRecentActivity(t *testing.T) {
	view := NewStructuredView()
	now := time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC)
	mtime := now.Add(-10 * time.Second)
	got := Classify(view, mtime, now, lastAssistant, lastUser, true)
	if got != StatusRunning {
		t.Errorf("Classify = %q, want running", got)
	}
}

func TestClassifyInterruptedWhenLastMessageIsUserWithNoResponse(t *testing.T) {
	view := NewStructuredView()
	now := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	mtime := now.Add(-5 * time.Minute)
	got := Classify(view, mtime, now, lastUser, lastAssistant, false)
	if got != StatusInterrupted {
		t.Errorf("Classify = %q, want interrupted", got)
	}
}

func TestClassifyIdleWhenModeratelyStale(t *testing.T) {
	view := NewStructuredView()
	now := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
	mtime := now.Add(-5 * time.Minute)
	got := Classify(view, mtime, now, lastAssistant, lastUser, true)
	if got != StatusIdle {
		t.Errorf("Classify = %q, want idle", got)
	}
}

func TestClassifyCompletedOnAssistantThenSystemTail(t *testing.T) {
	view := NewStructuredView()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	mtime := now.Add(-1 * time.Hour)
	got := Classify(view, mtime, now, lastSystem, lastAssistant, true)
	if got != StatusCompleted {
		t.Errorf("Classify = %q, want completed", got)
	}
}

func TestClassifyStaleWhenOldAndNoResult(t *testing.T) {
	view := NewStructuredView()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	mtime := now.Add(-1 * time.Hour)
	got := Classify(view, mtime, now, lastAssistant, lastAssistant, true)
	if got != StatusStale {
		t.Errorf("Classify = %q, want stale", got)
	}
}

func TestLastRecordKind(t *testing.T) {
	if LastRecordKind("user") != lastUser {
		t.Error("user mismatch")
	}
	if LastRecordKind("assistant") != lastAssistant {
		t.Error("assistant mismatch")
	}
	if LastRecordKind("system") != lastSystem {
		t.Error("system mismatch")
	}
	if LastRecordKind("progress") != lastUnknown {
		t.Error("progress should be unknown")
	}
}
