package extract

import "regexp"

// gitInvocationRe requires `git`/`gh` to appear at the start of the
// command, after a shell connective (&&, ||, ;), or inside a quoted SSH
// payload — never merely as a substring of a filename.
var gitInvocationRe = regexp.MustCompile(`(?:^|&&|\|\||;)\s*(git|gh)\b`)

var gitSubcommandRe = regexp.MustCompile(`\b(?:git|gh)\s+([a-z-]+)`)

var gitOperationBySubcommand = map[string]GitOperationType{
	"commit":   GitCommit,
	"push":     GitPush,
	"pull":     GitPull,
	"fetch":    GitFetch,
	"checkout": GitCheckout,
	"switch":   GitCheckout,
	"branch":   GitBranch,
	"merge":    GitMerge,
	"rebase":   GitRebase,
	"stash":    GitStash,
	"tag":      GitTag,
	"clone":    GitClone,
	"log":      GitLog,
	"diff":     GitDiff,
	"status":   GitStatus,
	"reset":    GitReset,
	"remote":   GitRemote,
	"pr":       GitPR,
}

var (
	branchFlagRe   = regexp.MustCompile(`\b(?:-b|--branch)\s+(\S+)`)
	checkoutArgRe  = regexp.MustCompile(`\bcheckout\s+(?:-b\s+)?(\S+)`)
	commitQuotedRe = regexp.MustCompile(`-m\s+\\?"((?:[^"\\]|\\.)*)\\?"`)
	commitSingleRe = regexp.MustCompile(`-m\s+'([^']*)'`)
	commitHeredocRe = regexp.MustCompile(`(?s)-m\s+\\?"\$\(cat\s+<<['"]?EOF['"]?\n(.*?)\nEOF\s*\)\\?"`)
	remoteNameRe   = regexp.MustCompile(`\b(?:push|pull|fetch)\s+(\S+)`)
	repoURLRe      = regexp.MustCompile(`\b(?:clone|remote add \S+)\s+(\S+(?:\.git)?)`)
	prNumberRe     = regexp.MustCompile(`\b(?:pr|issue)\s+(?:view|checkout|merge|close)?\s*(?:#)?(\d+)`)
	tagNameRe      = regexp.MustCompile(`\btag\s+(?:-a\s+)?(\S+)`)
	stashRefRe     = regexp.MustCompile(`\bstash\s+(?:pop|apply|drop)\s+(stash@\{\d+\})`)
	commitRefRe    = regexp.MustCompile(`\b(?:checkout|reset|diff|cherry-pick)\s+(?:--\S+\s+)*([0-9a-f]{7,40})\b`)
)

// ExtractGitOps derives git/gh operations from Bash tool uses. Commands
// whose operation type cannot be identified are dropped, not emitted as
// a generic "other" kind.
func ExtractGitOps(toolUses []ToolUseInput) []GitOp {
	var ops []GitOp
	for _, tu := range toolUses {
		if tu.Name != "Bash" {
			continue
		}
		cmd := stringField(tu.Input, "command")
		if cmd == "" {
			continue
		}
		inner, remote := peelWrapper(cmd)

		if !gitInvocationRe.MatchString(inner) {
			continue
		}

		sub := gitSubcommandRe.FindStringSubmatch(inner)
		if sub == nil {
			continue
		}
		opType, known := gitOperationBySubcommand[sub[1]]
		if !known {
			continue
		}

		op := GitOp{Operation: opType, Remote: remote, ToolUseID: tu.ID, LineIndex: tu.LineIndex}

		if m := branchFlagRe.FindStringSubmatch(inner); m != nil {
			op.Branch = m[1]
		} else if opType == GitCheckout {
			if m := checkoutArgRe.FindStringSubmatch(inner); m != nil {
				op.Branch = m[1]
			}
		}

		if m := commitHeredocRe.FindStringSubmatch(inner); m != nil {
			op.CommitMessage = m[1]
		} else if m := commitQuotedRe.FindStringSubmatch(inner); m != nil {
			op.CommitMessage = m[1]
		} else if m := commitSingleRe.FindStringSubmatch(inner); m != nil {
			op.CommitMessage = m[1]
		}

		if m := remoteNameRe.FindStringSubmatch(inner); m != nil {
			op.RemoteName = m[1]
		}
		if m := repoURLRe.FindStringSubmatch(inner); m != nil {
			op.RepoURL = m[1]
		}
		if m := prNumberRe.FindStringSubmatch(inner); m != nil {
			op.PRNumber = m[1]
		}
		if m := tagNameRe.FindStringSubmatch(inner); m != nil {
			op.Tag = m[1]
		}
		if m := stashRefRe.FindStringSubmatch(inner); m != nil {
			op.StashRef = m[1]
		}
		if m := commitRefRe.FindStringSubmatch(inner); m != nil {
			op.CommitRef = m[1]
		}

		ops = append(ops, op)
	}
	return ops
}
