package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/langmartai/lm-assist/internal/apierr"
	"github.com/langmartai/lm-assist/internal/jsonl"
)

// entry is the per-file cache slot. entryMu serializes structured-view
// extension for one file so concurrent "get structured view" callers
// share a single extension (single-flight by mutual exclusion rather
// than a dedicated singleflight library, matching the rest of the core).
type entry struct {
	mu sync.Mutex

	view *StructuredView

	rawMu      sync.Mutex
	raw        []json.RawMessage
	rawOffset  int64
	rawLineIdx int
}

// Cache owns one structured view per session file, process-wide, keyed
// by absolute path.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	persistDir string // empty disables persistence
}

// NewCache creates an empty Cache. persistDir, when non-empty, is the
// directory Persist writes to and GetView reloads from: one
// "<basename>.cache.json" file per session file.
func NewCache(persistDir string) *Cache {
	return &Cache{
		entries:    make(map[string]*entry),
		persistDir: persistDir,
	}
}

func (c *Cache) entryFor(path string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok {
		e = &entry{}
		c.entries[path] = e
	}
	return e
}

// GetView returns the cached structured view for path, extending it
// first if the file has grown since the last scan.
func (c *Cache) GetView(path string) (*StructuredView, error) {
	e := c.entryFor(path)
	e.mu.Lock()
	defer e.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierr.New(apierr.NotFound, path)
		}
		return nil, apierr.Wrap(apierr.IoError, "stat "+path, err)
	}

	if e.view == nil {
		if ok, err := c.tryReload(path, e, info); err != nil {
			return nil, err
		} else if !ok {
			e.view = NewStructuredView()
		}
	}

	if err := c.extend(path, e, info); err != nil {
		return nil, err
	}

	return e.view, nil
}

// extend advances e.view from its lastByteOffset to the file's current
// contents, rebuilding from scratch if the file appears to have been
// rewritten underneath it (size shrank, or a stale cache doesn't match).
func (c *Cache) extend(path string, e *entry, info os.FileInfo) error {
	v := e.view

	if v.FileSize > info.Size() {
		// Earlier bytes were rewritten; the incremental offset is no
		// longer trustworthy. Rebuild from scratch.
		e.view = NewStructuredView()
		v = e.view
	} else if v.FileSize == info.Size() && v.ModTime.Equal(info.ModTime()) {
		return nil
	}

	result, err := jsonl.Parse(path, v.LastByteOffset, v.LastLineIndex+1)
	if err != nil {
		return apierr.Wrap(apierr.IoError, "parse "+path, err)
	}

	Fold(v, result.Records)
	Finalize(v)

	v.LastByteOffset = result.NextOffset
	v.FileSize = info.Size()
	v.ModTime = info.ModTime()

	if c.persistDir != "" {
		_ = c.Persist(path, v)
	}
	return nil
}

// GetRawMessages returns every raw record decoded so far, extending the
// raw cache incrementally and independently of the structured view's
// own offset bookkeeping — some consumers want raw records without
// paying for structured extraction.
func (c *Cache) GetRawMessages(path string) ([]json.RawMessage, error) {
	e := c.entryFor(path)
	e.rawMu.Lock()
	defer e.rawMu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierr.New(apierr.NotFound, path)
		}
		return nil, apierr.Wrap(apierr.IoError, "stat "+path, err)
	}
	if info.Size() == e.rawOffset && len(e.raw) > 0 {
		return e.raw, nil
	}

	result, err := jsonl.Parse(path, e.rawOffset, e.rawLineIdx)
	if err != nil {
		return nil, apierr.Wrap(apierr.IoError, "parse "+path, err)
	}
	for _, rec := range result.Records {
		e.raw = append(e.raw, rec.Raw)
	}
	e.rawOffset = result.NextOffset
	e.rawLineIdx += len(result.Records)

	return e.raw, nil
}

// Warm eagerly parses every *.jsonl file directly under projectDir,
// bounded by concurrency (0 means runtime.NumCPU()).
func (c *Cache) Warm(projectDir string, concurrency int) error {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return apierr.Wrap(apierr.IoError, "readdir "+projectDir, err)
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".jsonl" {
			continue
		}
		path := filepath.Join(projectDir, de.Name())
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			_, _ = c.GetView(path)
		}()
	}
	wg.Wait()
	return nil
}

// Invalidate drops the cached entry for path, used when an unlink event
// arrives from the watcher.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// persistedView is the on-disk shape of a cached structured view,
// validated on reload by (size, mtime) per the invariant.
type persistedView struct {
	FileSize int64           `json:"fileSize"`
	ModTime  int64           `json:"modTime"` // unix nanos
	View     *StructuredView `json:"view"`
}

func (c *Cache) cacheFilePath(path string) string {
	name := filepath.Base(path) + ".cache.json"
	return filepath.Join(c.persistDir, name)
}

// Persist serializes v to its cache file under persistDir.
func (c *Cache) Persist(path string, v *StructuredView) error {
	if c.persistDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.persistDir, 0o755); err != nil {
		return apierr.Wrap(apierr.IoError, "mkdir "+c.persistDir, err)
	}

	data, err := json.Marshal(persistedView{
		FileSize: v.FileSize,
		ModTime:  v.ModTime.UnixNano(),
		View:     v,
	})
	if err != nil {
		return apierr.Wrap(apierr.IoError, "marshal cache for "+path, err)
	}

	dest := c.cacheFilePath(path)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apierr.Wrap(apierr.IoError, "write "+tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return apierr.Wrap(apierr.IoError, "rename "+tmp, err)
	}
	return nil
}

// tryReload attempts to load a persisted view for path, validating it
// against info's current (size, mtime). A validation failure is not an
// error to the caller — it just means the cache must be rebuilt.
func (c *Cache) tryReload(path string, e *entry, info os.FileInfo) (bool, error) {
	if c.persistDir == "" {
		return false, nil
	}
	data, err := os.ReadFile(c.cacheFilePath(path))
	if err != nil {
		return false, nil
	}

	var pv persistedView
	if err := json.Unmarshal(data, &pv); err != nil {
		return false, nil // StaleCache: rebuild transparently
	}
	if pv.FileSize != info.Size() || pv.ModTime != info.ModTime().UnixNano() {
		return false, nil // StaleCache: rebuild transparently
	}
	if pv.View.pendingTaskCreates == nil {
		pv.View.pendingTaskCreates = make(map[string]*Task)
	}
	if pv.View.Tasks == nil {
		pv.View.Tasks = make(map[string]*Task)
	}
	e.view = pv.View
	return true, nil
}
