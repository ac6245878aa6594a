package provider

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/paneruntime/workbench/internal/applog"
	"github.com/paneruntime/workbench/internal/ids"
)

// FSNotifyWatcher is the default FSEventStreamClient, backed by fsnotify,
// generalized to watch an arbitrary set of registered roots plus any
// directory created under them.
type FSNotifyWatcher struct {
	log *applog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	roots   map[ids.WorktreeID]string
	watched map[string]struct{}

	out    chan FSEventBatch
	done   chan struct{}
	closed bool
}

// NewFSNotifyWatcher constructs and starts a watcher. Callers must call
// Shutdown when finished.
func NewFSNotifyWatcher(log *applog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if log == nil {
		log = applog.Noop()
	}
	fw := &FSNotifyWatcher{
		log:     log,
		watcher: w,
		roots:   make(map[ids.WorktreeID]string),
		watched: make(map[string]struct{}),
		out:     make(chan FSEventBatch, 64),
		done:    make(chan struct{}),
	}
	go fw.run()
	return fw, nil
}

func (w *FSNotifyWatcher) Subscribe() <-chan FSEventBatch { return w.out }

func (w *FSNotifyWatcher) Register(worktreeID ids.WorktreeID, repoID ids.RepoID, rootPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.roots[worktreeID] = rootPath
	w.addTreeLocked(rootPath)
	return nil
}

func (w *FSNotifyWatcher) Unregister(worktreeID ids.WorktreeID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.roots, worktreeID)
	return nil
}

func (w *FSNotifyWatcher) Shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	_ = w.watcher.Close()
}

func (w *FSNotifyWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("fsnotify error: %v", err)
		}
	}
}

func (w *FSNotifyWatcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		w.mu.Lock()
		w.maybeWatchNewDirLocked(ev.Name)
		w.mu.Unlock()
	}

	w.mu.Lock()
	owner, ownerPath := w.ownerLocked(ev.Name)
	w.mu.Unlock()
	if owner.Zero() {
		return
	}

	rel, err := filepath.Rel(ownerPath, ev.Name)
	if err != nil {
		rel = ev.Name
	}

	select {
	case <-w.done:
		return
	case w.out <- FSEventBatch{WorktreeID: owner, Paths: []string{rel}}:
	default:
		w.log.Warnf("fsnotify output channel full, dropping event for %s", ev.Name)
	}
}

func (w *FSNotifyWatcher) ownerLocked(path string) (ids.WorktreeID, string) {
	var best ids.WorktreeID
	var bestRoot string
	bestLen := -1
	for id, root := range w.roots {
		if path == root || len(path) > len(root) && path[:len(root)] == root && path[len(root)] == filepath.Separator {
			if len(root) > bestLen {
				bestLen = len(root)
				best = id
				bestRoot = root
			}
		}
	}
	return best, bestRoot
}

func (w *FSNotifyWatcher) maybeWatchNewDirLocked(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	w.addDirLocked(path)
}

func (w *FSNotifyWatcher) addDirLocked(path string) {
	if path == "" {
		return
	}
	if _, ok := w.watched[path]; ok {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		w.log.Warnf("fsnotify add failed for %s: %v", path, err)
		return
	}
	w.watched[path] = struct{}{}
}

func (w *FSNotifyWatcher) addTreeLocked(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		w.addDirLocked(path)
		return nil
	})
}
