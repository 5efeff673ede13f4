package taskstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/langmartai/lm-assist/internal/session"
)

func writeSession(t *testing.T, path string, lines ...string) {
	t.Helper()
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRefreshNamespacesTasksBySession(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSession(t, path,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"TaskCreate","input":{"subject":"ship v1"}}]},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"Task #7 created successfully"}]},"timestamp":"2026-01-01T00:00:01Z"}`,
	)

	cache := session.NewCache("")
	store := New(dir, cache, "")
	if err := store.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	tasks := store.All(false)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	want := "11111111:7"
	if tasks[0].ID != want {
		t.Errorf("task id = %q, want %q", tasks[0].ID, want)
	}
	if tasks[0].Subject != "ship v1" {
		t.Errorf("subject = %q", tasks[0].Subject)
	}
}

func TestRefreshMergesExternalTaskManagerFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSession(t, path,
		`{"type":"system","subtype":"init","sessionId":"11111111-aaaa-bbbb-cccc-222222222222","timestamp":"2026-01-01T00:00:00Z"}`,
	)

	taskDir := filepath.Join(home, ".claude", "tasks", "11111111-aaaa-bbbb-cccc-222222222222")
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		t.Fatal(err)
	}
	externalTask := `{"id":"42","subject":"review PR","status":"pending"}`
	if err := os.WriteFile(filepath.Join(taskDir, "42.json"), []byte(externalTask), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := session.NewCache("")
	store := New(dir, cache, "")
	if err := store.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	tasks := store.All(false)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	want := "11111111:42"
	if tasks[0].ID != want {
		t.Errorf("task id = %q, want %q", tasks[0].ID, want)
	}
	if tasks[0].Subject != "review PR" {
		t.Errorf("subject = %q", tasks[0].Subject)
	}
}

func TestRefreshIsIdempotentAcrossReruns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSession(t, path,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"TaskCreate","input":{"subject":"ship v1"}}]},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"Task #7 created successfully"}]},"timestamp":"2026-01-01T00:00:01Z"}`,
	)

	cache := session.NewCache("")
	store := New(dir, cache, "")
	if err := store.Refresh(); err != nil {
		t.Fatal(err)
	}
	if err := store.Refresh(); err != nil {
		t.Fatal(err)
	}

	if len(store.All(false)) != 1 {
		t.Fatalf("got %d tasks after two refreshes, want 1 (no duplication)", len(store.All(false)))
	}
}

func TestReadyRequiresBlockedByCompleted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSession(t, path,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"TaskCreate","input":{"subject":"first"}}]},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"Task #1 created successfully"}]},"timestamp":"2026-01-01T00:00:01Z"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu2","name":"TaskCreate","input":{"subject":"second"}}]},"timestamp":"2026-01-01T00:00:02Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu2","content":"Task #2 created successfully"}]},"timestamp":"2026-01-01T00:00:03Z"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu3","name":"TaskUpdate","input":{"taskId":"2","addBlockedBy":["1"]}}]},"timestamp":"2026-01-01T00:00:04Z"}`,
	)

	cache := session.NewCache("")
	store := New(dir, cache, "")
	if err := store.Refresh(); err != nil {
		t.Fatal(err)
	}

	sid8 := "11111111"
	if store.Ready(sid8 + ":2") {
		t.Error("task 2 should not be ready — its blocker (1) is not completed")
	}
	if !store.Ready(sid8 + ":1") {
		t.Error("task 1 should be ready — no blockers")
	}
}

func TestPersistAndLoadRoundTripStats(t *testing.T) {
	dir := t.TempDir()
	persistDir := filepath.Join(dir, ".lm-assist")
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSession(t, path,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"TaskCreate","input":{"subject":"ship v1"}}]},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"Task #7 created successfully"}]},"timestamp":"2026-01-01T00:00:01Z"}`,
	)

	cache := session.NewCache("")
	store1 := New(dir, cache, persistDir)
	if err := store1.Refresh(); err != nil {
		t.Fatal(err)
	}
	wantStats := store1.GetStats()

	store2 := New(dir, session.NewCache(""), persistDir)
	ok, err := store2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load: ok = false, want true")
	}
	if got := store2.GetStats(); got != wantStats {
		t.Errorf("reloaded stats = %+v, want %+v", got, wantStats)
	}
}

func TestDiffEventsEmittedOnRefresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "11111111-aaaa-bbbb-cccc-222222222222.jsonl")
	writeSession(t, path,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"tu1","name":"TaskCreate","input":{"subject":"ship v1"}}]},"timestamp":"2026-01-01T00:00:00Z"}`,
		`{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu1","content":"Task #7 created successfully"}]},"timestamp":"2026-01-01T00:00:01Z"}`,
	)

	var events []DiffEvent
	cache := session.NewCache("")
	store := New(dir, cache, "")
	store.Subscribe(func(ev DiffEvent) { events = append(events, ev) })

	if err := store.Refresh(); err != nil {
		t.Fatal(err)
	}

	var sawCreated bool
	for _, ev := range events {
		if ev.Kind == EventTaskCreated {
			sawCreated = true
		}
	}
	if !sawCreated {
		t.Errorf("no task:created event among %+v", events)
	}
}
