package aggregator

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/langmartai/lm-assist/internal/apierr"
	"github.com/langmartai/lm-assist/internal/extract"
	"github.com/langmartai/lm-assist/internal/session"
	"github.com/langmartai/lm-assist/internal/sessionpath"
)

// Aggregator is the Session Aggregator. It takes the Session Cache as
// an explicit collaborator rather than reaching for a package-level
// singleton.
type Aggregator struct {
	cache *session.Cache
}

// New returns an Aggregator backed by cache.
func New(cache *session.Cache) *Aggregator {
	return &Aggregator{cache: cache}
}

// ReadSession resolves sessionID to a file (using cwd as a hint when
// given), loads its structured view, and applies every filter named in
// opts.
func (a *Aggregator) ReadSession(sessionID, cwd string, opts ReadOptions) (*SessionView, error) {
	path, err := a.resolvePath(sessionID, cwd)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apierr.Wrap(apierr.NotFound, sessionID, err)
	}

	if opts.IfModifiedSince != nil && !info.ModTime().After(*opts.IfModifiedSince) {
		return &SessionView{NotModified: true, ModTime: info.ModTime()}, nil
	}

	view, err := a.cache.GetView(path)
	if err != nil {
		return nil, err
	}

	out := buildView(view, opts)

	if opts.IncludeRawMessages {
		raw, err := a.cache.GetRawMessages(path)
		if err == nil {
			out.RawMessages = raw
		}
	}

	return out, nil
}

func (a *Aggregator) resolvePath(sessionID, cwd string) (string, error) {
	if cwd != "" {
		// direct hit: cwd is already the project's storage directory.
		direct := filepath.Join(cwd, sessionID+".jsonl")
		if _, err := os.Stat(direct); err == nil {
			return direct, nil
		}
		// cwd is the coding session's real working directory; translate
		// it through the Session Reader's git-aware encoding.
		if path, err := sessionpath.FindSessionFile(cwd, sessionID); err == nil {
			return path, nil
		}
	}
	// Cold-start discovery: scan recently-modified sessions across every
	// project for a matching filename, since the working directory is
	// unknown.
	paths, err := sessionpath.FindRecentSessionFiles(30 * 24 * time.Hour)
	if err != nil {
		return "", apierr.Wrap(apierr.NotFound, sessionID, err)
	}
	for _, p := range paths {
		if sessionpath.SessionIDFromPath(p) == sessionID {
			return p, nil
		}
	}
	return "", apierr.New(apierr.NotFound, sessionID)
}

// buildView applies opts's filter semantics to view. Prompts, responses,
// thinking and tool uses are filtered to the resolved line range, and
// file operations are extracted from the filtered tool uses. Subagents
// are filtered by user-prompt index only; the other accumulating arrays
// (tasks/todos/plans/compacts/teamOps) are returned unfiltered since
// they represent accumulated state a UI needs full context for.
func buildView(view *session.StructuredView, opts ReadOptions) *SessionView {
	lo, hi := resolveLineRange(view, opts)

	out := &SessionView{
		ModTime: view.ModTime,
		Meta:    view.Meta,

		Tasks:     orderedTasks(view),
		Todos:     view.Todos,
		Subagents: filterSubagents(view.Subagents, opts),
		Plans:     view.Plans,
		Compacts:  view.Compacts,
		TeamOps:   view.TeamOps,

		Usage:  view.Usage,
		Result: view.Result,

		TurnIndex:       view.TurnIndex,
		UserPromptCount: view.UserPromptCount,
		DurationMs:      view.DurationMs,
		CostUSD:         view.CostUSD,
	}

	for _, p := range view.Prompts {
		if inRange(p.LineIndex, lo, hi) {
			out.Prompts = append(out.Prompts, p)
		}
	}
	for _, r := range view.Responses {
		if inRange(r.LineIndex, lo, hi) {
			out.Responses = append(out.Responses, r)
		}
	}
	for _, th := range view.Thinking {
		if inRange(th.LineIndex, lo, hi) {
			out.Thinking = append(out.Thinking, th)
		}
	}

	var toolUses []session.ToolUse
	for _, tu := range view.ToolUses {
		if inRange(tu.LineIndex, lo, hi) {
			toolUses = append(toolUses, tu)
		}
	}
	out.ToolUses = toolUses

	fileOps := extract.ExtractFileOps(toToolUseInputs(toolUses))
	out.FileOps = nil
	if opts.IncludeReads {
		out.FileOps = fileOps
	} else {
		for _, op := range fileOps {
			if op.Category != extract.FileRead {
				out.FileOps = append(out.FileOps, op)
			}
		}
	}
	out.FileSummary = extract.Summarize(fileOps, opts.IncludeReads)

	out.Status = computeStatus(view)

	return out
}

func toToolUseInputs(toolUses []session.ToolUse) []extract.ToolUseInput {
	out := make([]extract.ToolUseInput, len(toolUses))
	for i, tu := range toolUses {
		out[i] = extract.ToolUseInput{ID: tu.ID, Name: tu.Name, Input: tu.Input, LineIndex: tu.LineIndex}
	}
	return out
}

func orderedTasks(view *session.StructuredView) []*session.Task {
	out := make([]*session.Task, 0, len(view.TaskOrder))
	for _, id := range view.TaskOrder {
		if t, ok := view.Tasks[id]; ok && t.Status != session.TaskDeleted {
			out = append(out, t)
		}
	}
	return out
}

func filterSubagents(subs []*session.SubagentInvocation, opts ReadOptions) []*session.SubagentInvocation {
	if opts.FromUserPromptIndex == nil && opts.ToUserPromptIndex == nil {
		return subs
	}
	var out []*session.SubagentInvocation
	for _, s := range subs {
		if opts.FromUserPromptIndex != nil && s.UserPromptIndex < *opts.FromUserPromptIndex {
			continue
		}
		if opts.ToUserPromptIndex != nil && s.UserPromptIndex > *opts.ToUserPromptIndex {
			continue
		}
		out = append(out, s)
	}
	return out
}

// resolveLineRange computes the [lo, hi] line-index bounds implied by
// opts, applying turn-range / user-prompt-range / last-N-prompts
// translation to a line-index hull.
func resolveLineRange(view *session.StructuredView, opts ReadOptions) (lo, hi int) {
	lo, hi = 0, view.LastLineIndex

	if opts.FromLineIndex != nil {
		lo = *opts.FromLineIndex
	}
	if opts.ToLineIndex != nil {
		hi = *opts.ToLineIndex
	}

	if opts.FromTurnIndex != nil || opts.ToTurnIndex != nil {
		tlo, thi := turnRangeToLineHull(view, opts.FromTurnIndex, opts.ToTurnIndex)
		lo, hi = tlo, thi
	}

	if opts.FromUserPromptIndex != nil || opts.ToUserPromptIndex != nil {
		lo, hi = userPromptRangeToLineHull(view, opts.FromUserPromptIndex, opts.ToUserPromptIndex)
	}

	if opts.FromLineIndex == nil && opts.ToLineIndex == nil &&
		opts.FromTurnIndex == nil && opts.ToTurnIndex == nil &&
		opts.FromUserPromptIndex == nil && opts.ToUserPromptIndex == nil {
		n := defaultLastNUserPrompts
		if opts.LastNUserPrompts != nil {
			n = *opts.LastNUserPrompts
		}
		if len(view.Prompts) > n {
			cutoffIdx := len(view.Prompts) - n
			lo = view.Prompts[cutoffIdx].LineIndex
		}
	}

	return lo, hi
}

func turnRangeToLineHull(view *session.StructuredView, from, to *int) (int, int) {
	lo, hi := 0, view.LastLineIndex
	minLine, maxLine := -1, -1
	consider := func(turnIdx, lineIdx int) {
		if from != nil && turnIdx < *from {
			return
		}
		if to != nil && turnIdx > *to {
			return
		}
		if minLine == -1 || lineIdx < minLine {
			minLine = lineIdx
		}
		if lineIdx > maxLine {
			maxLine = lineIdx
		}
	}
	for _, p := range view.Prompts {
		consider(p.TurnIndex, p.LineIndex)
	}
	for _, r := range view.Responses {
		consider(r.TurnIndex, r.LineIndex)
	}
	if minLine != -1 {
		lo = minLine
	}
	if maxLine != -1 {
		hi = maxLine
	}
	return lo, hi
}

func userPromptRangeToLineHull(view *session.StructuredView, from, to *int) (int, int) {
	lo, hi := 0, view.LastLineIndex
	var selected []session.Prompt
	for _, p := range view.Prompts {
		if from != nil && p.UserPromptIndex < *from {
			continue
		}
		if to != nil && p.UserPromptIndex > *to {
			continue
		}
		selected = append(selected, p)
	}
	if len(selected) == 0 {
		return lo, hi
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].LineIndex < selected[j].LineIndex })
	lo = selected[0].LineIndex

	// Upper bound is the line immediately before the next prompt after
	// the selected range, or the file's end if there is none.
	hi = view.LastLineIndex
	lastSelected := selected[len(selected)-1]
	for _, p := range view.Prompts {
		if p.LineIndex > lastSelected.LineIndex {
			hi = p.LineIndex - 1
			break
		}
	}
	return lo, hi
}

func inRange(lineIndex, lo, hi int) bool {
	return lineIndex >= lo && lineIndex <= hi
}

func computeStatus(view *session.StructuredView) session.Status {
	lastKind := session.LastRecordKind("")
	secondLastKind := session.LastRecordKind("")
	if len(view.Responses) > 0 {
		lastKind = session.LastRecordKind("assistant")
	}
	if len(view.Prompts) > 0 {
		last := view.Prompts[len(view.Prompts)-1]
		if last.LineIndex == view.LastLineIndex {
			lastKind = session.LastRecordKind("user")
		}
	}
	hasAssistantResponse := len(view.Responses) > 0
	return session.Classify(view, view.ModTime, time.Now(), lastKind, secondLastKind, hasAssistantResponse)
}
