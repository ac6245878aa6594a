// Package forge implements the Forge Projector (spec §4.6): it tracks
// per-repo branch sets from git events, polls a ForgeStatusProvider for
// pull-request counts on a schedule and on relevant events, and publishes
// PullRequestCountsChanged / RefreshFailed.
//
// PR lookups run through a TTL cache (go-cache) keyed per repo, and
// gh-JSON parsing is shared through internal/provider/forge.go. The
// bounded-concurrency poll fan-out uses golang.org/x/sync's semaphore.
package forge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"

	"github.com/paneruntime/workbench/internal/applog"
	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/events"
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/provider"
)

// DefaultPollInterval matches spec §4.6's 45-second default.
const DefaultPollInterval = 45 * time.Second

// dedupeWindow bounds how often an individual repo may be re-shelled to the
// provider when an immediate (event-triggered) refresh races a recent poll
// or another immediate refresh; this is the supplemented TTL-cache
// behavior, additive to the polling design (see DESIGN.md).
const dedupeWindow = 5 * time.Second

// maxConcurrentRefreshes bounds how many repos are refreshed in parallel
// during a poll tick.
const maxConcurrentRefreshes = 4

// Config holds the Projector's injectable tunables.
type Config struct {
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

type repoState struct {
	origin   string
	branches map[string]struct{}
}

func newRepoState() *repoState {
	return &repoState{branches: make(map[string]struct{})}
}

func (r *repoState) branchList() []string {
	out := make([]string, 0, len(r.branches))
	for b := range r.branches {
		out = append(out, b)
	}
	return out
}

// Projector is the Forge Projector described in spec §4.6.
type Projector struct {
	bus      *busx.Bus
	sub      *busx.Subscription
	provider provider.ForgeStatusProvider
	cache    *cache.Cache
	sem      *semaphore.Weighted
	log      *applog.Logger
	cfg      Config
	seq      uint64

	mu     sync.Mutex
	repos  map[ids.RepoID]*repoState
	closed bool

	doneCh    chan struct{}
	refreshCh chan ids.RepoID
	wg        sync.WaitGroup
}

// New constructs a Projector, subscribes to the bus, and starts its
// dispatch and polling loops.
func New(bus *busx.Bus, forgeProvider provider.ForgeStatusProvider, log *applog.Logger, cfg Config) *Projector {
	if log == nil {
		log = applog.Noop()
	}
	if forgeProvider == nil {
		forgeProvider = provider.NoopForgeProvider{}
	}
	p := &Projector{
		bus:       bus,
		sub:       bus.Subscribe(busx.Unbounded()),
		provider:  forgeProvider,
		cache:     cache.New(dedupeWindow, 2*dedupeWindow),
		sem:       semaphore.NewWeighted(maxConcurrentRefreshes),
		log:       log,
		cfg:       cfg.withDefaults(),
		repos:     make(map[ids.RepoID]*repoState),
		doneCh:    make(chan struct{}),
		refreshCh: make(chan ids.RepoID, 64),
	}
	p.wg.Add(2)
	go p.dispatchLoop()
	go p.pollLoop()
	return p
}

// Shutdown stops both loops and awaits their termination. Idempotent.
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

func (p *Projector) post(event events.Event) {
	env := events.Envelope{
		Source:       events.SourceForge,
		SourceFacets: map[string]string{"provider": p.provider.Name()},
		Seq:          p.nextSeq(),
		Timestamp:    ids.Now().WallClock(),
		Event:        event,
	}
	report := p.bus.Post(env)
	if report.Dropped > 0 {
		p.log.Warnf("forge projector: %d subscribers dropped an envelope", report.Dropped)
	}
}

func (p *Projector) dispatchLoop() {
	defer p.wg.Done()
	for {
		env, ok := p.sub.Recv()
		if !ok {
			return
		}
		if env.Source == events.SourceForge {
			continue // loop-prevention: never re-consume our own output
		}
		switch e := env.Event.(type) {
		case events.SnapshotChanged:
			if e.Snapshot.Branch != nil && *e.Snapshot.Branch != "" {
				p.addBranch(e.Snapshot.RepoID, *e.Snapshot.Branch)
			}
		case events.BranchChanged:
			p.addBranch(e.RepoID, e.To)
			p.requestImmediateRefresh(e.RepoID)
		case events.OriginChanged:
			p.setOrigin(e.RepoID, e.To)
		case events.WorktreeDiscovered:
			p.addBranch(e.RepoID, e.Branch)
		}
	}
}

func (p *Projector) addBranch(repoID ids.RepoID, branch string) {
	p.mu.Lock()
	st, ok := p.repos[repoID]
	if !ok {
		st = newRepoState()
		p.repos[repoID] = st
	}
	st.branches[branch] = struct{}{}
	p.mu.Unlock()
}

func (p *Projector) setOrigin(repoID ids.RepoID, origin string) {
	p.mu.Lock()
	st, ok := p.repos[repoID]
	if !ok {
		st = newRepoState()
		p.repos[repoID] = st
	}
	st.origin = origin
	p.mu.Unlock()
}

func (p *Projector) requestImmediateRefresh(repoID ids.RepoID) {
	select {
	case p.refreshCh <- repoID:
	default:
		// Channel full: a poll is already due soon enough; drop the
		// immediate request rather than block the dispatch loop.
	}
}

func (p *Projector) pollLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.doneCh:
			return
		case <-ticker.C:
			p.refreshAll(false)
		case repoID := <-p.refreshCh:
			p.refreshOne(repoID, false)
		}
	}
}

// refreshAll fans out a bounded-concurrency refresh across every known
// repo (spec §4.6's polling schedule).
func (p *Projector) refreshAll(force bool) {
	p.mu.Lock()
	repoIDs := make([]ids.RepoID, 0, len(p.repos))
	for id := range p.repos {
		repoIDs = append(repoIDs, id)
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range repoIDs {
		id := id
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release(1)
			p.refreshOne(id, force)
		}()
	}
	wg.Wait()
}

// refreshOne refreshes a single repo's PR counts, deduping against a very
// recent refresh unless force is set (supplemented TTL-cache behavior; see
// DESIGN.md).
func (p *Projector) refreshOne(repoID ids.RepoID, force bool) {
	p.mu.Lock()
	st, ok := p.repos[repoID]
	if !ok {
		p.mu.Unlock()
		return
	}
	origin := st.origin
	branches := st.branchList()
	p.mu.Unlock()

	if origin == "" {
		return // no known remote yet; nothing to query
	}

	cacheKey := repoID.String()
	if !force {
		if _, found := p.cache.Get(cacheKey); found {
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), provider.ForgeRefreshTimeout)
	defer cancel()

	counts, err := p.provider.PullRequestCounts(ctx, origin, branches)
	if err != nil {
		p.post(events.RefreshFailed{RepoID: repoID, ErrorText: err.Error()})
		return
	}

	p.cache.Set(cacheKey, counts, cache.DefaultExpiration)
	p.post(events.PullRequestCountsChanged{RepoID: repoID, CountsByBranch: counts})
}
