// Package extract implements the Derived Extractors: pure, I/O-free
// functions that turn an assistant's tool-use stream into structured
// file, database, and git operations. Extractors have no dependency on
// the Session Cache — they operate on the tool-use list the caller
// already has in hand.
package extract

// FileCategory is the coarse bucket a file operation falls into.
type FileCategory string

const (
	FileRead    FileCategory = "read"
	FileCreated FileCategory = "created"
	FileUpdated FileCategory = "updated"
	FileDeleted FileCategory = "deleted"
)

// FileAction is the specific operation recognized on a file path.
type FileAction string

const (
	ActionRead       FileAction = "read"
	ActionWrite      FileAction = "write"
	ActionEdit       FileAction = "edit"
	ActionDelete     FileAction = "delete"
	ActionCreate     FileAction = "create"
	ActionCopy       FileAction = "copy"
	ActionMove       FileAction = "move"
	ActionDownload   FileAction = "download"
	ActionArchive    FileAction = "archive"
	ActionExtract    FileAction = "extract"
	ActionPermission FileAction = "permission"
	ActionLink       FileAction = "link"
)

// actionCategory is the fixed total mapping from action to category.
var actionCategory = map[FileAction]FileCategory{
	ActionRead:       FileRead,
	ActionWrite:      FileCreated,
	ActionEdit:       FileUpdated,
	ActionDelete:     FileDeleted,
	ActionCreate:     FileCreated,
	ActionCopy:       FileCreated,
	ActionMove:       FileUpdated,
	ActionDownload:   FileCreated,
	ActionArchive:    FileCreated,
	ActionExtract:    FileCreated,
	ActionPermission: FileUpdated,
	ActionLink:       FileCreated,
}

// CategoryFor resolves the category for an action via the fixed mapping.
func CategoryFor(a FileAction) FileCategory {
	return actionCategory[a]
}

// FileOp is one derived file operation.
type FileOp struct {
	Path       string       `json:"path"`
	Category   FileCategory `json:"category"`
	Action     FileAction   `json:"action"`
	Remote     string       `json:"remote,omitempty"`
	ToolUseID  string       `json:"toolUseId"`
	LineIndex  int          `json:"lineIndex"`
}

// DBOperationType is a closed set of database operation classifications.
type DBOperationType string

const (
	DBQuery   DBOperationType = "query"
	DBMigrate DBOperationType = "migrate"
	DBSeed    DBOperationType = "seed"
	DBCreate  DBOperationType = "create"
	DBDrop    DBOperationType = "drop"
	DBConnect DBOperationType = "connect"
	DBBackup  DBOperationType = "backup"
)

// DBOp is one derived database operation.
type DBOp struct {
	Tool      string          `json:"tool"`
	Operation DBOperationType `json:"operation"`
	SQL       string          `json:"sql,omitempty"`
	Tables    []string        `json:"tables,omitempty"`
	Columns   []string        `json:"columns,omitempty"`
	Remote    string          `json:"remote,omitempty"`
	ToolUseID string          `json:"toolUseId"`
	LineIndex int             `json:"lineIndex"`
}

// GitOperationType is a closed set of git operation classifications.
type GitOperationType string

const (
	GitCommit   GitOperationType = "commit"
	GitPush     GitOperationType = "push"
	GitPull     GitOperationType = "pull"
	GitFetch    GitOperationType = "fetch"
	GitCheckout GitOperationType = "checkout"
	GitBranch   GitOperationType = "branch"
	GitMerge    GitOperationType = "merge"
	GitRebase   GitOperationType = "rebase"
	GitStash    GitOperationType = "stash"
	GitTag      GitOperationType = "tag"
	GitClone    GitOperationType = "clone"
	GitLog      GitOperationType = "log"
	GitDiff     GitOperationType = "diff"
	GitStatus   GitOperationType = "status"
	GitReset    GitOperationType = "reset"
	GitRemote   GitOperationType = "remote"
	GitPR       GitOperationType = "pr"
)

// GitOp is one derived git/gh operation.
type GitOp struct {
	Operation     GitOperationType `json:"operation"`
	Branch        string           `json:"branch,omitempty"`
	CommitRef     string           `json:"commitRef,omitempty"`
	CommitMessage string           `json:"commitMessage,omitempty"`
	RemoteName    string           `json:"remoteName,omitempty"`
	RepoURL       string           `json:"repoUrl,omitempty"`
	PRNumber      string           `json:"prNumber,omitempty"`
	Tag           string           `json:"tag,omitempty"`
	StashRef      string           `json:"stashRef,omitempty"`
	Remote        string           `json:"remote,omitempty"`
	ToolUseID     string           `json:"toolUseId"`
	LineIndex     int              `json:"lineIndex"`
}

// ToolUseInput is the minimal shape extractors need from a tool use;
// kept separate from internal/session.ToolUse so this package has no
// import-cycle dependency on the cache.
type ToolUseInput struct {
	ID        string
	Name      string
	Input     map[string]any
	LineIndex int
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
