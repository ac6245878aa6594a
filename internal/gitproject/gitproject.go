// Package gitproject implements the Git Working-Directory Projector (spec
// §4.5): it subscribes to the bus, computes git working-tree status off the
// event thread, and publishes SnapshotChanged / BranchChanged.
//
// Porcelain parsing is left to the status provider
// (internal/provider/gitstatus.go). Each worktree runs a per-worktree "one
// compute in flight, coalesce the rest" task instead of a single global
// watcher.
package gitproject

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paneruntime/workbench/internal/applog"
	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/events"
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/provider"
)

// Config holds the Projector's injectable tunables.
type Config struct {
	// CoalescingWindow is an optional pause inserted before running the
	// external status command, giving a burst of changesets a chance to
	// collapse into one compute (spec §4.5). Zero means no pause.
	CoalescingWindow time.Duration
}

type worktreeState struct {
	repoID     ids.RepoID
	rootPath   string
	suppressed bool
	computing  bool

	hasPending bool
	pending    *events.Changeset // nil represents the eager zero-path changeset

	lastKnownBranch *string
	lastKnownOrigin *string
}

// Projector is the Git Working-Directory Projector described in spec §4.5.
type Projector struct {
	bus      *busx.Bus
	sub      *busx.Subscription
	status   provider.GitWorkingTreeStatusProvider
	log      *applog.Logger
	cfg      Config
	seq      uint64

	mu        sync.Mutex
	worktrees map[ids.WorktreeID]*worktreeState
	closed    bool

	doneCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Projector, subscribes to the bus, and starts its
// dispatch loop.
func New(bus *busx.Bus, statusProvider provider.GitWorkingTreeStatusProvider, log *applog.Logger, cfg Config) *Projector {
	if log == nil {
		log = applog.Noop()
	}
	if statusProvider == nil {
		statusProvider = provider.NoopGitStatusProvider{}
	}
	p := &Projector{
		bus:       bus,
		sub:       bus.Subscribe(busx.Unbounded()),
		status:    statusProvider,
		log:       log,
		cfg:       cfg,
		worktrees: make(map[ids.WorktreeID]*worktreeState),
		doneCh:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.dispatchLoop()
	return p
}

// Shutdown cancels the subscription and awaits the dispatch loop's exit.
// In-flight compute goroutines are allowed to finish; their results are
// simply posted to the bus as usual.
func (p *Projector) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.doneCh)
	p.sub.Cancel()
	p.wg.Wait()
}

func (p *Projector) nextSeq() uint64 { return atomic.AddUint64(&p.seq, 1) - 1 }

func (p *Projector) post(event events.Event, facets map[string]string) {
	env := events.Envelope{
		Source:       events.SourceGit,
		SourceFacets: facets,
		Seq:          p.nextSeq(),
		Timestamp:    ids.Now().WallClock(),
		Event:        event,
	}
	report := p.bus.Post(env)
	if report.Dropped > 0 {
		p.log.Warnf("git projector: %d subscribers dropped an envelope", report.Dropped)
	}
}

func (p *Projector) dispatchLoop() {
	defer p.wg.Done()
	for {
		env, ok := p.sub.Recv()
		if !ok {
			return
		}
		// Loop-prevention (spec §4.5): only react to filesystem-sourced
		// facts. Our own SnapshotChanged/BranchChanged, and anything from
		// the forge or store, are never re-consumed here.
		if env.Source != events.SourceFilesystem {
			continue
		}
		switch e := env.Event.(type) {
		case events.WorktreeRegistered:
			p.handleRegistered(e)
		case events.WorktreeUnregistered:
			p.handleUnregistered(e)
		case events.FilesChanged:
			p.handleFilesChanged(e)
		}
	}
}

// handleRegistered implements the eager-materialization rule: enqueue a
// zero-path changeset so an initial snapshot is produced before any diff
// events arrive.
func (p *Projector) handleRegistered(e events.WorktreeRegistered) {
	p.mu.Lock()
	st, ok := p.worktrees[e.WorktreeID]
	if !ok {
		st = &worktreeState{}
		p.worktrees[e.WorktreeID] = st
	}
	st.repoID = e.RepoID
	st.rootPath = e.RootPath
	st.suppressed = false
	st.hasPending = true
	st.pending = nil
	needsCompute := !st.computing
	if needsCompute {
		st.computing = true
	}
	p.mu.Unlock()

	if needsCompute {
		p.wg.Add(1)
		go p.computeLoop(e.WorktreeID)
	}
}

// handleUnregistered marks the worktree suppressed and discards any pending
// compute for it; an in-flight compute is allowed to finish but its result
// is dropped on arrival (spec §4.5, and DESIGN.md's unregister-race
// decision).
func (p *Projector) handleUnregistered(e events.WorktreeUnregistered) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.worktrees[e.WorktreeID]
	if !ok {
		return
	}
	st.suppressed = true
	st.hasPending = false
	st.pending = nil
	if !st.computing {
		delete(p.worktrees, e.WorktreeID)
	}
}

// handleFilesChanged sets the pending changeset (last-writer-wins
// coalescing) and kicks off a compute task if none is in flight.
func (p *Projector) handleFilesChanged(e events.FilesChanged) {
	p.mu.Lock()
	st, ok := p.worktrees[e.Changeset.WorktreeID]
	if !ok || st.suppressed {
		p.mu.Unlock()
		return
	}
	changeset := e.Changeset
	st.pending = &changeset
	st.hasPending = true
	needsCompute := !st.computing
	if needsCompute {
		st.computing = true
	}
	p.mu.Unlock()

	if needsCompute {
		p.wg.Add(1)
		go p.computeLoop(e.Changeset.WorktreeID)
	}
}

// computeLoop runs exactly one compute at a time for worktreeID, coalescing
// any changesets that arrive while a compute is in flight (spec §4.5:
// "exactly one compute task per worktree at a time").
func (p *Projector) computeLoop(worktreeID ids.WorktreeID) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		st, ok := p.worktrees[worktreeID]
		if !ok || st.suppressed || !st.hasPending {
			if ok {
				st.computing = false
				if st.suppressed {
					delete(p.worktrees, worktreeID)
				}
			}
			p.mu.Unlock()
			return
		}
		st.hasPending = false
		rootPath := st.rootPath
		repoID := st.repoID
		p.mu.Unlock()

		if p.cfg.CoalescingWindow > 0 {
			select {
			case <-time.After(p.cfg.CoalescingWindow):
			case <-p.doneCh:
			}
		}

		p.computeOne(worktreeID, repoID, rootPath)
	}
}

func (p *Projector) computeOne(worktreeID ids.WorktreeID, repoID ids.RepoID, rootPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), provider.GitStatusTimeout)
	defer cancel()

	status, ok := p.status.Status(ctx, rootPath)
	if !ok {
		p.log.Warnf("git projector: status compute failed for %s, dropping change", rootPath)
		return
	}

	p.mu.Lock()
	st, stillKnown := p.worktrees[worktreeID]
	if !stillKnown || st.suppressed {
		p.mu.Unlock()
		return
	}
	previousBranch := st.lastKnownBranch
	previousOrigin := st.lastKnownOrigin
	st.lastKnownBranch = status.Branch
	if status.Origin != nil {
		st.lastKnownOrigin = status.Origin
	}
	p.mu.Unlock()

	p.post(events.SnapshotChanged{Snapshot: events.Snapshot{
		WorktreeID: worktreeID,
		RepoID:     repoID,
		Summary: events.StatusSummary{
			Changed:   status.Changed,
			Staged:    status.Staged,
			Untracked: status.Untracked,
		},
		Branch: status.Branch,
		Origin: status.Origin,
	}}, nil)

	if previousBranch != nil && status.Branch != nil && *previousBranch != *status.Branch {
		p.post(events.BranchChanged{
			WorktreeID: worktreeID,
			RepoID:     repoID,
			From:       *previousBranch,
			To:         *status.Branch,
		}, nil)
	}

	if status.Origin != nil && (previousOrigin == nil || *previousOrigin != *status.Origin) {
		p.post(events.OriginChanged{RepoID: repoID, To: *status.Origin}, nil)
	}
}
