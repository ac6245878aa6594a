// Package fsactor implements the Filesystem Actor (spec §4.4): the single
// ingress point for all filesystem change notifications. It debounces,
// priority-orders, and chunks raw path batches into FilesChanged envelopes
// published on the bus.
//
// An fsnotify-backed watcher feeds a debounce window and non-blocking
// signal channel, generalized here into a multi-root actor with per-root
// pending state, filter reload, chunking, and priority-ordered flush as
// spec §4.4 requires.
package fsactor

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paneruntime/workbench/internal/applog"
	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/events"
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/ownership"
	"github.com/paneruntime/workbench/internal/pathfilter"
	"github.com/paneruntime/workbench/internal/provider"
)

// DefaultDebounceWindow is the minimum idle time between raw events before
// a flush is considered due (spec §4.4).
const DefaultDebounceWindow = 500 * time.Millisecond

// DefaultMaxFlushLatency is the maximum age of the oldest pending change
// before a flush is forced regardless of debounce (spec §4.4).
const DefaultMaxFlushLatency = 2 * time.Second

// DefaultChunkSize is the maximum number of paths per FilesChanged envelope
// (spec §4.4).
const DefaultChunkSize = 256

// Config holds the Actor's injectable tunables.
type Config struct {
	DebounceWindow  time.Duration
	MaxFlushLatency time.Duration
	ChunkSize       int
	CaseInsensitive *bool
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if c.MaxFlushLatency <= 0 {
		c.MaxFlushLatency = DefaultMaxFlushLatency
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

type pendingChanges struct {
	projectedPaths     []string
	projectedSet       map[string]struct{}
	containsGitInternal bool
	suppressedIgnored   int
	suppressedGitInternal int
	requiresFilterReload bool
	firstPending        ids.Instant
	lastPending          ids.Instant
}

func newPendingChanges() *pendingChanges {
	return &pendingChanges{projectedSet: make(map[string]struct{})}
}

func (p *pendingChanges) isEmpty() bool {
	return len(p.projectedPaths) == 0 && !p.containsGitInternal &&
		p.suppressedIgnored == 0 && p.suppressedGitInternal == 0
}

func (p *pendingChanges) touch(now ids.Instant) {
	if p.firstPending.IsZero() {
		p.firstPending = now
	}
	p.lastPending = now
}

func (p *pendingChanges) addProjected(rel string) {
	if _, ok := p.projectedSet[rel]; ok {
		return
	}
	p.projectedSet[rel] = struct{}{}
	p.projectedPaths = append(p.projectedPaths, rel)
}

type rootEntry struct {
	worktreeID    ids.WorktreeID
	repoID        ids.RepoID
	rootPath      string
	isActiveInApp bool
	nextBatchSeq  uint64
	filter        *pathfilter.Filter
	pending       *pendingChanges
}

// priorityKey matches spec §4.4's priority rule: 0 = active-in-app and
// focused, 1 = active-in-app but unfocused, 2 = background.
func (e *rootEntry) priorityKey(activePane ids.WorktreeID, hasActivePane bool) int {
	if e.isActiveInApp && hasActivePane && e.worktreeID == activePane {
		return 0
	}
	if e.isActiveInApp {
		return 1
	}
	return 2
}

// Actor is the Filesystem Actor described in spec §4.4.
type Actor struct {
	bus     *busx.Bus
	router  *ownership.Router
	watcher provider.FSEventStreamClient
	log     *applog.Logger
	cfg     Config
	seq     uint64 // atomic producer seq

	mu                 sync.Mutex
	roots              map[ids.WorktreeID]*rootEntry
	activePaneWorktree ids.WorktreeID
	hasActivePane      bool
	closed             bool

	wakeCh chan struct{}
	doneCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Filesystem Actor and starts its ingress and drain tasks.
func New(bus *busx.Bus, router *ownership.Router, watcher provider.FSEventStreamClient, log *applog.Logger, cfg Config) *Actor {
	if log == nil {
		log = applog.Noop()
	}
	a := &Actor{
		bus:     bus,
		router:  router,
		watcher: watcher,
		log:     log,
		cfg:     cfg.withDefaults(),
		roots:   make(map[ids.WorktreeID]*rootEntry),
		wakeCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}
	a.wg.Add(2)
	go a.ingressLoop()
	go a.drainLoop()
	return a
}

func (a *Actor) wake() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

func (a *Actor) nextSeq() uint64 { return atomic.AddUint64(&a.seq, 1) - 1 }

// Register creates or updates a RootState, preserving IsActiveInApp,
// NextBatchSeq, and existing pending changes if the worktree was
// previously known (spec §4.4). rootPath is standardized by resolving
// symlinks before it reaches the router or the watcher, so a worktree
// reached through a symlink still routes and watches identically to one
// reached directly (spec §4.3's deepest-root ownership routing compares
// canonical paths, which only match if every root resolves the same way).
func (a *Actor) Register(worktreeID ids.WorktreeID, repoID ids.RepoID, rootPath string) error {
	rootPath = resolveRootPath(rootPath)

	a.mu.Lock()
	entry, existed := a.roots[worktreeID]
	if existed {
		entry.repoID = repoID
		entry.rootPath = rootPath
		entry.filter = pathfilter.New(rootPath)
	} else {
		entry = &rootEntry{
			worktreeID: worktreeID,
			repoID:     repoID,
			rootPath:   rootPath,
			filter:     pathfilter.New(rootPath),
			pending:    newPendingChanges(),
		}
		a.roots[worktreeID] = entry
	}
	a.mu.Unlock()

	a.router.Register(worktreeID, rootPath)
	if err := a.watcher.Register(worktreeID, repoID, rootPath); err != nil {
		return fmt.Errorf("registering watcher for %s: %w", rootPath, err)
	}

	a.post(events.WorktreeRegistered{WorktreeID: worktreeID, RepoID: repoID, RootPath: rootPath})
	return nil
}

// resolveRootPath resolves symlinks in rootPath so registration, routing,
// and the underlying filesystem watch all key off the same real path. A
// root that cannot be resolved (not yet created, permission denied) falls
// back to its as-given form rather than failing registration outright.
func resolveRootPath(rootPath string) string {
	resolved, err := filepath.EvalSymlinks(rootPath)
	if err != nil {
		return rootPath
	}
	return resolved
}

// Unregister removes state, calls the watcher's unregister, clears the
// active-pane pointer if it targeted this worktree, and emits
// WorktreeUnregistered (spec §4.4).
func (a *Actor) Unregister(worktreeID ids.WorktreeID) error {
	a.mu.Lock()
	entry, ok := a.roots[worktreeID]
	if !ok {
		a.mu.Unlock()
		return nil
	}
	delete(a.roots, worktreeID)
	if a.hasActivePane && a.activePaneWorktree == worktreeID {
		a.hasActivePane = false
	}
	a.mu.Unlock()

	a.router.Unregister(worktreeID)
	if err := a.watcher.Unregister(worktreeID); err != nil {
		return fmt.Errorf("unregistering watcher: %w", err)
	}

	a.post(events.WorktreeUnregistered{WorktreeID: worktreeID, RepoID: entry.repoID})
	return nil
}

// EnqueueRawPaths is the test/programmatic ingress path; production
// ingress flows through the watcher's stream (see ingressLoop).
func (a *Actor) EnqueueRawPaths(worktreeID ids.WorktreeID, paths []string) {
	now := ids.Now()
	a.mu.Lock()
	for _, raw := range paths {
		a.ingestOneLocked(worktreeID, raw, now)
	}
	a.mu.Unlock()
	a.wake()
}

// SetActivity toggles a worktree's priority class.
func (a *Actor) SetActivity(worktreeID ids.WorktreeID, isActive bool) {
	a.mu.Lock()
	if e, ok := a.roots[worktreeID]; ok {
		e.isActiveInApp = isActive
	}
	a.mu.Unlock()
}

// SetActivePaneWorktree marks the worktree that currently owns user focus.
func (a *Actor) SetActivePaneWorktree(worktreeID *ids.WorktreeID) {
	a.mu.Lock()
	if worktreeID == nil {
		a.hasActivePane = false
	} else {
		a.hasActivePane = true
		a.activePaneWorktree = *worktreeID
	}
	a.mu.Unlock()
	a.wake()
}

// Shutdown cancels both tasks, awaits their termination, clears all state,
// and shuts down the watcher. Idempotent.
func (a *Actor) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	close(a.doneCh)
	a.wg.Wait()

	a.mu.Lock()
	a.roots = make(map[ids.WorktreeID]*rootEntry)
	a.mu.Unlock()

	a.watcher.Shutdown()
}

func (a *Actor) post(event events.Event) busx.PostReport {
	env := events.Envelope{
		Source:    events.SourceFilesystem,
		Seq:       a.nextSeq(),
		Timestamp: ids.Now().WallClock(),
		Event:     event,
	}
	report := a.bus.Post(env)
	if report.Dropped > 0 {
		a.log.Warnf("filesystem actor: %d subscribers dropped an envelope", report.Dropped)
	}
	return report
}

func (a *Actor) ingressLoop() {
	defer a.wg.Done()
	sub := a.watcher.Subscribe()
	for {
		select {
		case <-a.doneCh:
			return
		case batch, ok := <-sub:
			if !ok {
				return
			}
			now := ids.Now()
			a.mu.Lock()
			for _, raw := range batch.Paths {
				a.ingestOneLocked(batch.WorktreeID, raw, now)
			}
			a.mu.Unlock()
			a.wake()
		}
	}
}

// ingestOneLocked implements spec §4.4's per-path ingress algorithm. Caller
// must hold a.mu.
func (a *Actor) ingestOneLocked(sourceWorktreeID ids.WorktreeID, rawPath string, now ids.Instant) {
	resolution, ok := a.router.Route(sourceWorktreeID, rawPath)
	if !ok {
		return // unroutable, dropped silently (spec §7)
	}
	entry, ok := a.roots[resolution.WorktreeID]
	if !ok {
		return
	}

	switch entry.filter.Classify(resolution.RelativePath) {
	case pathfilter.Projected:
		entry.pending.addProjected(resolution.RelativePath)
		if resolution.RelativePath == pathfilter.GitignoreFilename {
			entry.pending.requiresFilterReload = true
		}
	case pathfilter.GitInternal:
		entry.pending.containsGitInternal = true
		entry.pending.suppressedGitInternal++
	case pathfilter.IgnoredByPolicy:
		entry.pending.suppressedIgnored++
	}
	entry.pending.touch(now)
}

func (a *Actor) drainLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.doneCh:
			return
		default:
		}

		next, wait, hasWork := a.nextDueEntry()
		if next == nil {
			if !hasWork {
				// Nothing pending anywhere; block until woken.
				select {
				case <-a.doneCh:
					return
				case <-a.wakeCh:
				}
				continue
			}
			timer := time.NewTimer(wait)
			select {
			case <-a.doneCh:
				timer.Stop()
				return
			case <-a.wakeCh:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		a.flush(next)
	}
}

// nextDueEntry returns the highest-priority due worktree, or nil plus the
// duration until the nearest deadline if none are due yet. hasWork reports
// whether any worktree has pending state at all.
func (a *Actor) nextDueEntry() (worktreeID *ids.WorktreeID, waitFor time.Duration, hasWork bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := ids.Now()
	var dueCandidates []*rootEntry
	var nearest time.Duration = -1

	for _, e := range a.roots {
		if e.pending.isEmpty() {
			continue
		}
		hasWork = true

		debounceDeadline := e.pending.lastPending.Add(a.cfg.DebounceWindow)
		latencyDeadline := e.pending.firstPending.Add(a.cfg.MaxFlushLatency)

		if !now.Before(debounceDeadline) || !now.Before(latencyDeadline) {
			dueCandidates = append(dueCandidates, e)
			continue
		}

		untilDebounce := debounceDeadline.Sub(now)
		untilLatency := latencyDeadline.Sub(now)
		d := untilDebounce
		if untilLatency < d {
			d = untilLatency
		}
		if nearest < 0 || d < nearest {
			nearest = d
		}
	}

	if len(dueCandidates) == 0 {
		if nearest < 0 {
			nearest = 0
		}
		return nil, nearest, hasWork
	}

	sort.Slice(dueCandidates, func(i, j int) bool {
		ei, ej := dueCandidates[i], dueCandidates[j]
		pi := ei.priorityKey(a.activePaneWorktree, a.hasActivePane)
		pj := ej.priorityKey(a.activePaneWorktree, a.hasActivePane)
		if pi != pj {
			return pi < pj
		}
		if ei.rootPath != ej.rootPath {
			return ei.rootPath < ej.rootPath
		}
		return ei.worktreeID.String() < ej.worktreeID.String()
	})

	id := dueCandidates[0].worktreeID
	return &id, 0, hasWork
}

// flush implements spec §4.4's flush action: atomically swap pending state,
// reload the filter if needed, sort + chunk projected paths, and emit one
// or more FilesChanged envelopes.
func (a *Actor) flush(worktreeID *ids.WorktreeID) {
	a.mu.Lock()
	entry, ok := a.roots[*worktreeID]
	if !ok {
		a.mu.Unlock()
		return
	}
	swapped := entry.pending
	entry.pending = newPendingChanges()
	rootPath := entry.rootPath
	repoID := entry.repoID
	filter := entry.filter
	a.mu.Unlock()

	if swapped.requiresFilterReload {
		filter.Reload()
	}

	paths := append([]string(nil), swapped.projectedPaths...)
	sort.Strings(paths)

	chunkSize := a.cfg.ChunkSize
	var chunks [][]string
	if len(paths) == 0 {
		chunks = [][]string{nil}
	} else {
		for i := 0; i < len(paths); i += chunkSize {
			end := i + chunkSize
			if end > len(paths) {
				end = len(paths)
			}
			chunks = append(chunks, paths[i:end])
		}
	}

	timestamp := ids.Now().WallClock()
	for _, chunk := range chunks {
		a.mu.Lock()
		entry.nextBatchSeq++
		batchSeq := entry.nextBatchSeq
		a.mu.Unlock()

		a.post(events.FilesChanged{Changeset: events.Changeset{
			WorktreeID:                 *worktreeID,
			RepoID:                     repoID,
			RootPath:                   rootPath,
			Paths:                      chunk,
			ContainsGitInternal:        swapped.containsGitInternal,
			SuppressedIgnoredCount:     swapped.suppressedIgnored,
			SuppressedGitInternalCount: swapped.suppressedGitInternal,
			Timestamp:                  timestamp,
			BatchSeq:                   batchSeq,
		}})
	}
}
