package extract

import (
	"reflect"
	"sort"
	"testing"
)

func TestExtractDBOpsClassifiesMigrateFromDDL(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Bash", Input: map[string]any{"command": `psql -c "CREATE TABLE users (id int)"`}},
	}
	ops := ExtractDBOps(toolUses)
	if len(ops) != 1 {
		t.Fatalf("ops = %+v, want 1", ops)
	}
	if ops[0].Operation != DBMigrate {
		t.Errorf("Operation = %q, want migrate", ops[0].Operation)
	}
	if len(ops[0].Tables) != 1 || ops[0].Tables[0] != "users" {
		t.Errorf("Tables = %+v, want [users]", ops[0].Tables)
	}
}

func TestExtractDBOpsQuerySelectColumns(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Bash", Input: map[string]any{"command": `mysql -e "SELECT id, name FROM accounts"`}},
	}
	ops := ExtractDBOps(toolUses)
	if len(ops) != 1 {
		t.Fatalf("ops = %+v", ops)
	}
	if ops[0].Operation != DBQuery {
		t.Errorf("Operation = %q, want query", ops[0].Operation)
	}
	if len(ops[0].Tables) != 1 || ops[0].Tables[0] != "accounts" {
		t.Errorf("Tables = %+v", ops[0].Tables)
	}
	want := []string{"id", "name"}
	got := append([]string{}, ops[0].Columns...)
	sort.Strings(got)
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Columns = %+v, want %+v", got, want)
	}
}

func TestExtractDBOpsNonDBBashIsIgnored(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Bash", Input: map[string]any{"command": "ls -la"}},
	}
	if ops := ExtractDBOps(toolUses); len(ops) != 0 {
		t.Errorf("ops = %+v, want none", ops)
	}
}

func TestExtractDBOpsBackup(t *testing.T) {
	toolUses := []ToolUseInput{
		{ID: "1", Name: "Bash", Input: map[string]any{"command": "pg_dump mydb > backup.sql && psql -c 'select 1'"}},
	}
	ops := ExtractDBOps(toolUses)
	if len(ops) != 1 {
		t.Fatalf("ops = %+v", ops)
	}
	if ops[0].Operation != DBBackup {
		t.Errorf("Operation = %q, want backup", ops[0].Operation)
	}
}
