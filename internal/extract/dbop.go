package extract

import (
	"regexp"
	"strings"
)

var dbToolRe = regexp.MustCompile(`\b(psql|mysql|sqlite3|mongosh|mongo|redis-cli|prisma|knex)\b`)

var (
	migrateForceRe = regexp.MustCompile(`(?i)\b(create|alter|drop)\s+table\b`)
	seedRe         = regexp.MustCompile(`(?i)\bseed\b`)
	dropRe         = regexp.MustCompile(`(?i)\bdrop\s+(database|table)\b`)
	createRe       = regexp.MustCompile(`(?i)\bcreate\s+(database|table)\b`)
	backupRe       = regexp.MustCompile(`(?i)\b(pg_dump|mysqldump|dump)\b`)
	migrateCmdRe   = regexp.MustCompile(`(?i)\bmigrat\w*\b`)
	connectOnlyRe  = regexp.MustCompile(`(?i)^\s*(psql|mysql|sqlite3|mongosh|mongo|redis-cli)\s+[^|;&]*$`)

	tableFromRe   = regexp.MustCompile(`(?i)\bfrom\s+` + "`?" + `([a-zA-Z_][\w.]*)` + "`?")
	tableIntoRe   = regexp.MustCompile(`(?i)\binto\s+` + "`?" + `([a-zA-Z_][\w.]*)` + "`?")
	tableUpdateRe = regexp.MustCompile(`(?i)\bupdate\s+` + "`?" + `([a-zA-Z_][\w.]*)` + "`?")
	tableDDLRe    = regexp.MustCompile(`(?i)\b(?:create|alter|drop)\s+table\s+(?:if\s+(?:not\s+)?exists\s+)?` + "`?" + `([a-zA-Z_][\w.]*)` + "`?")
	tableWhereRe  = regexp.MustCompile(`(?i)\btable_name\s*=\s*'([^']+)'`)

	columnsSelectRe = regexp.MustCompile(`(?i)\bselect\s+(.+?)\s+from\s`)
	columnsInsertRe = regexp.MustCompile(`(?i)\binsert\s+into\s+[\w.` + "`" + `]+\s*\(([^)]+)\)`)
	columnsUpdateRe = regexp.MustCompile(`(?i)\bset\s+(.+?)(?:\s+where\b|$)`)
	columnWhereRe   = regexp.MustCompile(`(?i)\b([a-zA-Z_]\w*)\s*=\s*'[^']*'`)
)

// ExtractDBOps derives database operations from Bash tool uses.
func ExtractDBOps(toolUses []ToolUseInput) []DBOp {
	var ops []DBOp
	for _, tu := range toolUses {
		if tu.Name != "Bash" {
			continue
		}
		cmd := stringField(tu.Input, "command")
		if cmd == "" {
			continue
		}
		inner, remote := peelWrapper(cmd)

		toolMatch := dbToolRe.FindStringSubmatch(inner)
		if toolMatch == nil {
			continue
		}

		op := DBOp{
			Tool:      toolMatch[1],
			Operation: classifyDBOperation(inner),
			SQL:       cleanSQL(inner),
			Remote:    remote,
			ToolUseID: tu.ID,
			LineIndex: tu.LineIndex,
		}
		op.Tables = extractTables(inner)
		op.Columns = extractColumns(inner)
		ops = append(ops, op)
	}
	return ops
}

func classifyDBOperation(cmd string) DBOperationType {
	if migrateForceRe.MatchString(cmd) || migrateCmdRe.MatchString(cmd) {
		return DBMigrate
	}
	if seedRe.MatchString(cmd) {
		return DBSeed
	}
	if dropRe.MatchString(cmd) {
		return DBDrop
	}
	if createRe.MatchString(cmd) {
		return DBCreate
	}
	if backupRe.MatchString(cmd) {
		return DBBackup
	}
	if connectOnlyRe.MatchString(cmd) && cleanSQL(cmd) == strings.TrimSpace(cmd) {
		return DBConnect
	}
	return DBQuery
}

// cleanSQL extracts the SQL payload from a -c/-e flag or heredoc, falling
// back to the raw command trimmed of tool invocation noise.
func cleanSQL(cmd string) string {
	flagRe := regexp.MustCompile(`(?:-c|-e)\s+['"](.+)['"]`)
	if m := flagRe.FindStringSubmatch(cmd); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(cmd)
}

func extractTables(cmd string) []string {
	seen := make(map[string]bool)
	var tables []string
	add := func(name string) {
		name = strings.Trim(name, "`\"")
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		tables = append(tables, name)
	}
	for _, re := range []*regexp.Regexp{tableDDLRe, tableFromRe, tableIntoRe, tableUpdateRe} {
		if m := re.FindStringSubmatch(cmd); m != nil {
			add(m[1])
		}
	}
	for _, m := range tableWhereRe.FindAllStringSubmatch(cmd, -1) {
		add(m[1])
	}
	return tables
}

func extractColumns(cmd string) []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || name == "*" || seen[name] {
			return
		}
		seen[name] = true
		cols = append(cols, name)
	}

	if m := columnsSelectRe.FindStringSubmatch(cmd); m != nil {
		for _, c := range strings.Split(m[1], ",") {
			add(c)
		}
	}
	if m := columnsInsertRe.FindStringSubmatch(cmd); m != nil {
		for _, c := range strings.Split(m[1], ",") {
			add(c)
		}
	}
	if m := columnsUpdateRe.FindStringSubmatch(cmd); m != nil {
		for _, assign := range strings.Split(m[1], ",") {
			if eq := strings.Index(assign, "="); eq > 0 {
				add(assign[:eq])
			}
		}
	}
	for _, m := range columnWhereRe.FindAllStringSubmatch(cmd, -1) {
		add(m[1])
	}
	return cols
}
