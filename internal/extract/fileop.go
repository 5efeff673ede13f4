package extract

import "regexp"

// bashFileActionRe pairs a regex (matched against the de-wrapped inner
// command) with the action it implies when it matches. Capture group 1
// is always the candidate path. Every pattern that matches contributes
// an operation; the order only sets the order in which they are emitted.
type bashFileAction struct {
	re     *regexp.Regexp
	action FileAction
}

var bashFileActions = []bashFileAction{
	{regexp.MustCompile(`\bcp\s+(?:-\S+\s+)*\S+\s+([^\s|;&]+)\s*$`), ActionCopy},
	{regexp.MustCompile(`\bmv\s+(?:-\S+\s+)*\S+\s+([^\s|;&]+)\s*$`), ActionMove},
	{regexp.MustCompile(`\brm\s+(?:-\S+\s+)*([^\s|;&]+)`), ActionDelete},
	{regexp.MustCompile(`\bmkdir\s+(?:-\S+\s+)*([^\s|;&]+)`), ActionCreate},
	{regexp.MustCompile(`\btouch\s+([^\s|;&]+)`), ActionCreate},
	{regexp.MustCompile(`\bchmod\s+(?:-\S+\s+)*\S+\s+([^\s|;&]+)`), ActionPermission},
	{regexp.MustCompile(`\bln\s+(?:-\S+\s+)*\S+\s+([^\s|;&]+)`), ActionLink},
	{regexp.MustCompile(`\btar\s+(?:-\S+\s+)*(?:-[a-zA-Z]*c[a-zA-Z]*f|--create\S*)\s+([^\s|;&]+)`), ActionArchive},
	{regexp.MustCompile(`\btar\s+(?:-\S+\s+)*(?:-[a-zA-Z]*x[a-zA-Z]*f|--extract\S*)\s+([^\s|;&]+)`), ActionExtract},
	{regexp.MustCompile(`\bunzip\s+(?:-\S+\s+)*([^\s|;&]+)`), ActionExtract},
	{regexp.MustCompile(`\bzip\s+(?:-\S+\s+)*([^\s|;&]+)`), ActionArchive},
	{regexp.MustCompile(`\b(?:curl|wget)\s+(?:-\S+\s+)*.*\s+-[oO]\s+([^\s|;&]+)`), ActionDownload},
	// redirect to a file, excluding stderr (2>) via a non-digit lookbehind
	{regexp.MustCompile(`(?:[^2\d]|^)>>?\s*([^\s|;&]+)\s*$`), ActionWrite},
}

var rejectCandidateRe = regexp.MustCompile(
	`^\$|^/dev/null$|^<|^>|^\d+$|[.*+?^${}()|[\]\\]{2,}|/[gi]{1,2}$`,
)

// isRejectedPath reports whether a candidate path looks like a shell
// variable, process substitution, /dev/null, an HTML/XML fragment, a
// pure numeric, a regex metacharacter sequence, or a sed-style trailing
// flag — none of which are real file paths.
func isRejectedPath(p string) bool {
	if p == "" {
		return true
	}
	return rejectCandidateRe.MatchString(p)
}

// directToolActions maps non-Bash tool names straight to a fixed action.
var directToolActions = map[string]FileAction{
	"Read":         ActionRead,
	"Write":        ActionWrite,
	"Edit":         ActionEdit,
	"NotebookEdit": ActionEdit,
	"Glob":         ActionRead,
	"Grep":         ActionRead,
}

// ExtractFileOps derives file operations from a tool-use list.
func ExtractFileOps(toolUses []ToolUseInput) []FileOp {
	var ops []FileOp
	for _, tu := range toolUses {
		if action, ok := directToolActions[tu.Name]; ok {
			path := stringField(tu.Input, "file_path")
			if path == "" {
				path = stringField(tu.Input, "pattern")
			}
			if path == "" {
				continue
			}
			ops = append(ops, FileOp{
				Path: path, Category: CategoryFor(action), Action: action,
				ToolUseID: tu.ID, LineIndex: tu.LineIndex,
			})
			continue
		}

		if tu.Name != "Bash" {
			continue
		}
		cmd := stringField(tu.Input, "command")
		if cmd == "" {
			continue
		}
		inner, remote := peelWrapper(cmd)

		for _, ba := range bashFileActions {
			m := ba.re.FindStringSubmatch(inner)
			if m == nil {
				continue
			}
			path := m[len(m)-1]
			if isRejectedPath(path) {
				continue
			}
			ops = append(ops, FileOp{
				Path: path, Category: CategoryFor(ba.action), Action: ba.action,
				Remote: remote, ToolUseID: tu.ID, LineIndex: tu.LineIndex,
			})
		}
	}
	return ops
}

// FileChangeSummary deduplicates ops by path; the latest action (highest
// line index) wins. Returns four disjoint lists.
type FileChangeSummary struct {
	Created []string
	Updated []string
	Deleted []string
	Read    []string
}

// Summarize builds a FileChangeSummary from a file-op list. When
// includeReads is false, read-category operations are omitted entirely
// (the default — UIs rarely care about reads).
func Summarize(ops []FileOp, includeReads bool) FileChangeSummary {
	latest := make(map[string]FileOp)
	for _, op := range ops {
		if existing, ok := latest[op.Path]; !ok || op.LineIndex > existing.LineIndex {
			latest[op.Path] = op
		}
	}

	var summary FileChangeSummary
	for path, op := range latest {
		switch op.Category {
		case FileCreated:
			summary.Created = append(summary.Created, path)
		case FileUpdated:
			summary.Updated = append(summary.Updated, path)
		case FileDeleted:
			summary.Deleted = append(summary.Deleted, path)
		case FileRead:
			if includeReads {
				summary.Read = append(summary.Read, path)
			}
		}
	}
	return summary
}
