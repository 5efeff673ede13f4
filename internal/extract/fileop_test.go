package extract

import "testing"

func TestExtractFileOpsDirectTools(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Read", Input: map[string]any{"file_path": "/a/b.go"}},
		{ID: "2", Name: "Write", Input: map[string]any{"file_path": "/a/c.go"}, LineIndex: 1},
		{ID: "3", Name: "Edit", Input: map[string]any{"file_path": "/a/d.go"}, LineIndex: 2},
	}
	ops := ExtractFileOps(toolUses)
	if len(ops) != 3 {
		t.Fatalf("ops = %+v, want 3", ops)
	}
	if ops[0].Action != ActionRead || ops[0].Category != FileRead {
		t.Errorf("Read op = %+v", ops[0])
	}
	if ops[1].Action != ActionWrite || ops[1].Category != FileCreated {
		t.Errorf("Write op = %+v", ops[1])
	}
	if ops[2].Action != ActionEdit || ops[2].Category != FileUpdated {
		t.Errorf("Edit op = %+v", ops[2])
	}
}

func TestExtractFileOpsBashCopyAndMove(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Bash", Input: map[string]any{"command": "cp src/a.txt dest/b.txt"}},
		{ID: "2", Name: "Bash", Input: map[string]any{"command": "mv old.txt new.txt"}, LineIndex: 1},
	}
	ops := ExtractFileOps(toolUses)
	if len(ops) != 2 {
		t.Fatalf("ops = %+v, want 2", ops)
	}
	if ops[0].Action != ActionCopy || ops[0].Path != "dest/b.txt" {
		t.Errorf("cp op = %+v", ops[0])
	}
	if ops[1].Action != ActionMove || ops[1].Path != "new.txt" {
		t.Errorf("mv op = %+v", ops[1])
	}
}

func TestExtractFileOpsRejectsBadCandidates(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Bash", Input: map[string]any{"command": "rm $TMPFILE"}},
		{ID: "2", Name: "Bash", Input: map[string]any{"command": "cat a.txt 2> /dev/null"}},
	}
	ops := ExtractFileOps(toolUses)
	for _, op := range ops {
		if op.Path == "$TMPFILE" || op.Path == "/dev/null" {
			t.Errorf("rejected candidate leaked through: %+v", op)
		}
	}
}

func TestExtractFileOpsSSHWrapperCarriesRemote(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Bash", Input: map[string]any{"command": `ssh deploy@example.com "rm /tmp/stale.log"`}},
	}
	ops := ExtractFileOps(toolUses)
	if len(ops) != 1 {
		t.Fatalf("ops = %+v, want 1", ops)
	}
	if ops[0].Remote != "example.com" {
		t.Errorf("Remote = %q, want example.com", ops[0].Remote)
	}
	if ops[0].Path != "/tmp/stale.log" {
		t.Errorf("Path = %q", ops[0].Path)
	}
}

func TestSummarizeDedupesByLatestLineIndex(t *testing.T) {
	ops := []FileOp{
		{Path: "a.go", Category: FileUpdated, LineIndex: 1},
		{Path: "a.go", Category: FileDeleted, LineIndex: 5},
		{Path: "b.go", Category: FileRead, LineIndex: 2},
	}
	summary := Summarize(ops, false)
	if len(summary.Deleted) != 1 || summary.Deleted[0] != "a.go" {
		t.Errorf("Deleted = %+v, want [a.go] (latest action wins)", summary.Deleted)
	}
	if len(summary.Read) != 0 {
		t.Errorf("Read = %+v, want empty (includeReads=false)", summary.Read)
	}
}

func TestSummarizeIncludesReadsWhenRequested(t *testing.T) {
	ops := []FileOp{{Path: "b.go", Category: FileRead, LineIndex: 2}}
	summary := Summarize(ops, true)
	if len(summary.Read) != 1 {
		t.Errorf("Read = %+v, want 1 entry", summary.Read)
	}
}
