package main

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/langmartai/lm-assist/internal/aggregator"
	"github.com/langmartai/lm-assist/internal/config"
	"github.com/langmartai/lm-assist/internal/execstore"
	"github.com/langmartai/lm-assist/internal/runnerfeed"
	"github.com/langmartai/lm-assist/internal/session"
	"github.com/langmartai/lm-assist/internal/sessionpath"
	"github.com/langmartai/lm-assist/internal/taskstore"
	"github.com/langmartai/lm-assist/internal/watch"
)

// daemon wires the process-wide singletons together as explicit
// collaborators: one Session Cache, one Execution Store, one Task
// Store per watched project, and one Watcher feeding all of them.
type daemon struct {
	cfg *config.Config

	cache      *session.Cache
	aggregator *aggregator.Aggregator
	execStore  *execstore.Store
	feed       *runnerfeed.Feed
	watcher    *watch.Watcher

	taskStores map[string]*taskstore.Store
}

func newDaemon(cfg *config.Config, stateDir string) (*daemon, error) {
	cachePersistDir := ""
	if cfg.Cache.PersistEnabled {
		cachePersistDir = filepath.Join(stateDir, "cache")
	}
	cache := session.NewCache(cachePersistDir)

	execStoreDir := filepath.Join(stateDir, "executions")
	execStore := execstore.New(cfg.Store.MaxExecutions, execStoreDir)
	if err := execStore.Load(); err != nil {
		log.Printf("lm-assistd: execution store load: %v", err)
	}

	w, err := watch.New(time.Duration(cfg.Watch.WatchDebounceMs)*time.Millisecond, nil)
	if err != nil {
		return nil, err
	}

	return &daemon{
		cfg:        cfg,
		cache:      cache,
		aggregator: aggregator.New(cache),
		execStore:  execStore,
		feed:       runnerfeed.New(execStore),
		watcher:    w,
		taskStores: make(map[string]*taskstore.Store),
	}, nil
}

// watchProject starts watching dir (a project's session directory) and
// registers a Task Store for it, restoring any persisted snapshot.
func (d *daemon) watchProject(dir, stateDir string) error {
	if err := d.watcher.AddDir(dir); err != nil {
		return err
	}

	key := watch.ProjectKey(dir)
	if _, ok := d.taskStores[key]; ok {
		return nil
	}
	ts := taskstore.New(dir, d.cache, filepath.Join(stateDir, "tasks", key))
	if _, err := ts.Load(); err != nil {
		log.Printf("lm-assistd: task store load for %s: %v", dir, err)
	}
	d.taskStores[key] = ts
	return nil
}

// run processes watcher events until ctx is cancelled: a Changed event
// extends the Session Cache's view and triggers the owning project's
// Task Store refresh; a Removed event invalidates the cache entry.
func (d *daemon) run(ctx context.Context) {
	go d.watcher.Run()
	defer d.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.handleEvent(ev)
		}
	}
}

func (d *daemon) handleEvent(ev watch.Event) {
	if ev.Kind == watch.Removed {
		d.cache.Invalidate(ev.Path)
		return
	}

	if _, err := d.cache.GetView(ev.Path); err != nil {
		log.Printf("lm-assistd: extend %s: %v", ev.Path, err)
		return
	}

	projectDir := filepath.Dir(ev.Path)
	ts, ok := d.taskStores[watch.ProjectKey(projectDir)]
	if !ok {
		return
	}
	if err := ts.Refresh(); err != nil {
		log.Printf("lm-assistd: task store refresh for %s: %v", projectDir, err)
	}
}

// allProjectDirs discovers every project directory currently known
// under the Claude home, for startup warming/watching.
func allProjectDirs() ([]string, error) {
	return sessionpath.ListProjectDirs()
}
