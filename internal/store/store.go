// Package store implements the Workspace Store Facade (spec §4.8): it
// applies validated paneaction.Action values to the workspace model,
// bridges pane/worktree lifecycle to the Filesystem Actor, bumps a
// monotonic view_revision as the last step of every mutation, and runs a
// TTL-based undo buffer for closed panes.
//
// Tab/pane bookkeeping and close-with-undo follow the worktree/terminal-tab
// lifecycle shape, generalized into an explicit facade guarded by its own
// mutex rather than a single mutable model behind an update loop, per spec
// §9's "single application composition root wires them" design note.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paneruntime/workbench/internal/applog"
	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/events"
	"github.com/paneruntime/workbench/internal/fsactor"
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/paneaction"
	"github.com/paneruntime/workbench/internal/persist"
)

// DefaultUndoTTL is the window closed panes remain recoverable before the
// store emits ExpireUndoEntry.
const DefaultUndoTTL = 10 * time.Second

// Config holds the Store's injectable tunables.
type Config struct {
	UndoTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.UndoTTL <= 0 {
		c.UndoTTL = DefaultUndoTTL
	}
	return c
}

// WorktreeBinding associates a pane with the worktree whose content it
// displays; not every pane is worktree-bound (e.g. a detached terminal).
type WorktreeBinding struct {
	WorktreeID ids.WorktreeID
	RepoID     ids.RepoID
	RootPath   string
}

type undoEntry struct {
	pane    ids.PaneID
	binding *WorktreeBinding
	expires ids.Instant
}

// Store is the Workspace Store Facade described in spec §4.8.
type Store struct {
	bus     *busx.Bus
	fsActor *fsactor.Actor
	log     *applog.Logger
	cfg     Config
	seq     uint64

	mu                  sync.Mutex
	tabs                []*paneaction.Tab
	activeTabID         *ids.TabID
	drawers             map[ids.PaneID]*paneaction.Drawer
	drawerParentByPane  map[ids.PaneID]ids.PaneID
	paneWorktree        map[ids.PaneID]*WorktreeBinding
	worktreeRefCount    map[ids.WorktreeID]int
	viewRevision        uint64
	managementModeOn    bool
	undoBuffer          map[ids.PaneID]*undoEntry

	doneCh   chan struct{}
	wakeCh   chan struct{}
	changeCh chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Store bound to the given Filesystem Actor and starts
// its undo-expiry task.
func New(bus *busx.Bus, fsActor *fsactor.Actor, log *applog.Logger, cfg Config) *Store {
	if log == nil {
		log = applog.Noop()
	}
	s := &Store{
		bus:                bus,
		fsActor:            fsActor,
		log:                log,
		cfg:                cfg.withDefaults(),
		drawers:            make(map[ids.PaneID]*paneaction.Drawer),
		drawerParentByPane: make(map[ids.PaneID]ids.PaneID),
		paneWorktree:       make(map[ids.PaneID]*WorktreeBinding),
		worktreeRefCount:   make(map[ids.WorktreeID]int),
		undoBuffer:         make(map[ids.PaneID]*undoEntry),
		doneCh:             make(chan struct{}),
		wakeCh:             make(chan struct{}, 1),
		changeCh:           make(chan struct{}, 1),
	}
	s.wg.Add(1)
	go s.undoExpiryLoop()
	return s
}

// Changes returns a channel that receives a (coalesced, non-blocking) signal
// every time Apply or OpenWorktreePane mutates the model. A persistence
// layer can select on this to drive a debounced save without the store
// itself knowing anything about disk I/O.
func (s *Store) Changes() <-chan struct{} {
	return s.changeCh
}

// Shutdown stops the undo-expiry task. Idempotent is not required here:
// the store owns no other background resource.
func (s *Store) Shutdown() {
	close(s.doneCh)
	s.wg.Wait()
}

func (s *Store) nextSeq() uint64 { return atomic.AddUint64(&s.seq, 1) - 1 }

func (s *Store) post(event events.Event) {
	env := events.Envelope{
		Source:    events.SourceStore,
		Seq:       s.nextSeq(),
		Timestamp: ids.Now().WallClock(),
		Event:     event,
	}
	report := s.bus.Post(env)
	if report.Dropped > 0 {
		s.log.Warnf("store: %d subscribers dropped an envelope", report.Dropped)
	}
}

// ViewRevision reports the current monotonic revision counter.
func (s *Store) ViewRevision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewRevision
}

// SetManagementMode toggles the workspace-wide drag/drop management gate
// the drop planner consults (spec §4.7).
func (s *Store) SetManagementMode(on bool) {
	s.mu.Lock()
	s.managementModeOn = on
	s.mu.Unlock()
}

// Snapshot builds an immutable ActionStateSnapshot for the resolver/
// validator/drop-planner (spec §4.7: "Resolver and validator observe only
// the snapshot; they never read global state").
func (s *Store) Snapshot() *paneaction.ActionStateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tabs := make([]paneaction.TabSnapshot, 0, len(s.tabs))
	for _, tab := range s.tabs {
		tabs = append(tabs, paneaction.TabSnapshot{Tab: tab})
	}
	drawerParent := make(map[ids.PaneID]ids.PaneID, len(s.drawerParentByPane))
	for k, v := range s.drawerParentByPane {
		drawerParent[k] = v
	}
	known := make(map[ids.WorktreeID]struct{}, len(s.worktreeRefCount))
	for w := range s.worktreeRefCount {
		known[w] = struct{}{}
	}

	var activeTabID *ids.TabID
	if s.activeTabID != nil {
		id := *s.activeTabID
		activeTabID = &id
	}

	return &paneaction.ActionStateSnapshot{
		Tabs:                   tabs,
		ActiveTabID:            activeTabID,
		IsManagementModeActive: s.managementModeOn,
		KnownWorktreeIDs:       known,
		DrawerParentByPaneID:   drawerParent,
	}
}

// ExportState builds the persisted workspace model (spec §6: "serializes
// its model as JSON with a schema_version"). It does not touch disk;
// callers pass the result to persist.Save.
func (s *Store) ExportState() persist.WorkspaceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := persist.NewWorkspaceState()
	if s.activeTabID != nil {
		id := *s.activeTabID
		state.ActiveTabID = &id
	}

	for _, tab := range s.tabs {
		minimized := make([]ids.PaneID, 0, len(tab.MinimizedPaneIDs))
		for paneID := range tab.MinimizedPaneIDs {
			minimized = append(minimized, paneID)
		}
		var zoomed *ids.PaneID
		if tab.ZoomedPaneID != nil {
			id := *tab.ZoomedPaneID
			zoomed = &id
		}
		state.Tabs = append(state.Tabs, persist.TabState{
			ID:               tab.ID,
			Tree:             tab.Tree.ToDTO(),
			ActivePaneID:     tab.ActivePaneID,
			ZoomedPaneID:     zoomed,
			MinimizedPaneIDs: minimized,
		})
	}

	for parentPaneID, drawer := range s.drawers {
		state.Drawers = append(state.Drawers, persist.DrawerState{
			ParentPaneID: parentPaneID,
			Tree:         drawer.Tree.ToDTO(),
			ActivePaneID: drawer.ActivePaneID,
		})
	}

	for paneID, binding := range s.paneWorktree {
		state.Bindings = append(state.Bindings, persist.BindingState{
			PaneID:     paneID,
			WorktreeID: binding.WorktreeID,
			RepoID:     binding.RepoID,
			RootPath:   binding.RootPath,
		})
	}

	return state
}

// RestoreState replaces the workspace model with a previously persisted
// one, re-registering every bound worktree with the Filesystem Actor (spec
// §4.8's registration bridge applies equally on restore as on first open).
// Callers pass the result of persist.Load after a process restart.
func (s *Store) RestoreState(state persist.WorkspaceState) error {
	tabs := make([]*paneaction.Tab, 0, len(state.Tabs))
	for _, ts := range state.Tabs {
		minimized := make(map[ids.PaneID]struct{}, len(ts.MinimizedPaneIDs))
		for _, paneID := range ts.MinimizedPaneIDs {
			minimized[paneID] = struct{}{}
		}
		var zoomed *ids.PaneID
		if ts.ZoomedPaneID != nil {
			id := *ts.ZoomedPaneID
			zoomed = &id
		}
		tabs = append(tabs, &paneaction.Tab{
			ID:               ts.ID,
			Tree:             paneaction.SplitTreeFromDTO(ts.Tree),
			ActivePaneID:     ts.ActivePaneID,
			ZoomedPaneID:     zoomed,
			MinimizedPaneIDs: minimized,
		})
	}

	drawers := make(map[ids.PaneID]*paneaction.Drawer, len(state.Drawers))
	drawerParentByPane := make(map[ids.PaneID]ids.PaneID, len(state.Drawers))
	for _, ds := range state.Drawers {
		drawers[ds.ParentPaneID] = &paneaction.Drawer{
			ParentPaneID: ds.ParentPaneID,
			Tree:         paneaction.SplitTreeFromDTO(ds.Tree),
			ActivePaneID: ds.ActivePaneID,
		}
		for _, paneID := range paneaction.SplitTreeFromDTO(ds.Tree).Leaves() {
			drawerParentByPane[paneID] = ds.ParentPaneID
		}
	}

	paneWorktree := make(map[ids.PaneID]*WorktreeBinding, len(state.Bindings))
	worktreeRefCount := make(map[ids.WorktreeID]int)
	for _, bs := range state.Bindings {
		paneWorktree[bs.PaneID] = &WorktreeBinding{WorktreeID: bs.WorktreeID, RepoID: bs.RepoID, RootPath: bs.RootPath}
		worktreeRefCount[bs.WorktreeID]++
	}

	var activeTabID *ids.TabID
	if state.ActiveTabID != nil {
		id := *state.ActiveTabID
		activeTabID = &id
	}

	s.mu.Lock()
	s.tabs = tabs
	s.activeTabID = activeTabID
	s.drawers = drawers
	s.drawerParentByPane = drawerParentByPane
	s.paneWorktree = paneWorktree
	s.worktreeRefCount = worktreeRefCount
	s.mu.Unlock()

	for _, bs := range state.Bindings {
		if err := s.fsActor.Register(bs.WorktreeID, bs.RepoID, bs.RootPath); err != nil {
			return fmt.Errorf("store: restore register %s: %w", bs.WorktreeID, err)
		}
	}

	s.bumpRevision()
	return nil
}

// OpenWorktreePane creates a new single-pane tab bound to a worktree and
// registers it with the Filesystem Actor (spec §4.8's "Registration
// bridge"). This is the store's sole pane-creation entry point that
// originates a worktree binding; InsertPane/MergeTab from the resolver
// move or duplicate an already-bound pane without creating a new binding.
func (s *Store) OpenWorktreePane(worktreeID ids.WorktreeID, repoID ids.RepoID, rootPath string) (ids.TabID, ids.PaneID, error) {
	paneID := ids.NewPaneID()
	tabID := ids.NewTabID()

	s.mu.Lock()
	tab := &paneaction.Tab{
		ID:               tabID,
		Tree:             paneaction.NewLeaf(paneID),
		ActivePaneID:     paneID,
		MinimizedPaneIDs: make(map[ids.PaneID]struct{}),
	}
	s.tabs = append(s.tabs, tab)
	s.activeTabID = &tabID
	s.paneWorktree[paneID] = &WorktreeBinding{WorktreeID: worktreeID, RepoID: repoID, RootPath: rootPath}
	firstRef := s.worktreeRefCount[worktreeID] == 0
	s.worktreeRefCount[worktreeID]++
	s.mu.Unlock()

	if firstRef {
		if err := s.fsActor.Register(worktreeID, repoID, rootPath); err != nil {
			return ids.TabID{}, ids.PaneID{}, err
		}
	}
	s.bumpRevision()
	return tabID, paneID, nil
}

// Apply applies a previously validated Action to the model (spec §4.8:
// "applies a validated action"). Callers must run paneaction.Validate
// first; Apply does not re-validate.
func (s *Store) Apply(action paneaction.Action) {
	s.mu.Lock()
	switch a := action.(type) {
	case paneaction.InsertPane:
		s.applyInsertPaneLocked(a)
	case paneaction.ClosePane:
		s.applyClosePaneLocked(a)
	case paneaction.CloseTab:
		s.applyCloseTabLocked(a)
	case paneaction.SelectTab:
		s.activeTabID = &a.TabID
	case paneaction.FocusPane:
		s.applyFocusPaneLocked(a)
	case paneaction.ResizePane:
		s.applyResizePaneLocked(a)
	case paneaction.MinimizePane:
		s.applyMinimizePaneLocked(a, true)
	case paneaction.ExpandPane:
		s.applyMinimizePaneLocked(paneaction.MinimizePane{TabID: a.TabID, PaneID: a.PaneID}, false)
	case paneaction.MoveTab:
		s.applyMoveTabLocked(a)
	case paneaction.EqualizePanes:
		s.applyEqualizePanesLocked(a.TabID)
	case paneaction.MergeTab:
		s.applyMergeTabLocked(a)
	case paneaction.ExtractPaneToTab:
		s.applyExtractPaneToTabLocked(a.TabID, a.PaneID, a.NewTabID)
	case paneaction.ExtractPaneToTabThenMove:
		newTabID := s.applyExtractPaneToTabLocked(a.SourceTabID, a.PaneID, a.NewTabID)
		if newTabID != (ids.TabID{}) {
			s.applyMoveTabLocked(paneaction.MoveTab{TabID: newTabID, ToIndex: a.ToIndex})
		}
	case paneaction.BreakUpTab:
		s.applyBreakUpTabLocked(a.TabID)
	case paneaction.AddDrawerPane:
		s.applyAddDrawerPaneLocked(a)
	case paneaction.RemoveDrawerPane:
		s.applyRemoveDrawerPaneLocked(a)
	case paneaction.MoveDrawerPane:
		s.applyMoveDrawerPaneLocked(a)
	case paneaction.InsertDrawerPane:
		s.applyInsertDrawerPaneLocked(a)
	case paneaction.ResizeDrawerPane:
		s.applyResizeDrawerPaneLocked(a)
	case paneaction.EqualizeDrawerPanes:
		if d, ok := s.drawers[a.ParentPaneID]; ok {
			d.Tree = equalizeTree(d.Tree)
		}
	case paneaction.SetActiveDrawerPane:
		if d, ok := s.drawers[a.ParentPaneID]; ok {
			d.ActivePaneID = a.DrawerPaneID
		}
	}
	s.mu.Unlock()

	s.bumpRevision()
}

func (s *Store) findTabLocked(tabID ids.TabID) (*paneaction.Tab, int) {
	for i, t := range s.tabs {
		if t.ID == tabID {
			return t, i
		}
	}
	return nil, -1
}

func (s *Store) applyInsertPaneLocked(a paneaction.InsertPane) {
	if a.Source == paneaction.SourceExistingPane {
		s.removePaneFromOriginLocked(a.SourcePaneID, a.TargetTabID)
	}

	tab, _ := s.findTabLocked(a.TargetTabID)
	if tab == nil {
		return
	}
	newTree, ok := paneaction.InsertPane(tab.Tree, a.TargetPaneID, a.NewPaneID, a.SplitID, a.Direction)
	if !ok {
		return
	}
	tab.Tree = newTree
	tab.ActivePaneID = a.NewPaneID
}

// removePaneFromOriginLocked removes paneID from whichever tab (other than
// skipTabID) currently owns it, collapsing that tab if paneID was its only
// pane. InsertPane with Source == SourceExistingPane moves a pane rather
// than creating one, so its prior location must be cleared atomically with
// the insert (invariant 6: a pane ID appears in at most one tree at a
// time). The moved pane is still alive, so this never stashes an undo
// entry for it the way applyCloseTabLocked does for panes actually closed.
func (s *Store) removePaneFromOriginLocked(paneID ids.PaneID, skipTabID ids.TabID) {
	for _, tab := range s.tabs {
		if tab.ID == skipTabID || !tab.Tree.Contains(paneID) {
			continue
		}
		if tab.HasSinglePane() {
			s.closeTabWithoutUndoLocked(tab.ID)
			return
		}
		newTree, ok := paneaction.RemovePane(tab.Tree, paneID)
		if !ok {
			return
		}
		tab.Tree = newTree
		if tab.ActivePaneID == paneID {
			if leaves := newTree.Leaves(); len(leaves) > 0 {
				tab.ActivePaneID = leaves[0]
			}
		}
		return
	}
}

// closeTabWithoutUndoLocked removes a tab from the model without stashing
// undo entries for its panes, for callers where the pane is relocating
// elsewhere rather than being closed.
func (s *Store) closeTabWithoutUndoLocked(tabID ids.TabID) {
	_, idx := s.findTabLocked(tabID)
	if idx < 0 {
		return
	}
	s.removeTabLocked(idx, tabID)
}

func (s *Store) applyClosePaneLocked(a paneaction.ClosePane) {
	tab, _ := s.findTabLocked(a.TabID)
	if tab == nil {
		return
	}
	if tab.HasSinglePane() {
		s.applyCloseTabLocked(paneaction.CloseTab{TabID: a.TabID})
		return
	}
	s.stashUndoLocked(a.PaneID)
	newTree, ok := paneaction.RemovePane(tab.Tree, a.PaneID)
	if !ok {
		return
	}
	tab.Tree = newTree
	if tab.ActivePaneID == a.PaneID {
		leaves := newTree.Leaves()
		if len(leaves) > 0 {
			tab.ActivePaneID = leaves[0]
		}
	}
}

func (s *Store) applyCloseTabLocked(a paneaction.CloseTab) {
	tab, idx := s.findTabLocked(a.TabID)
	if tab == nil {
		return
	}
	for _, paneID := range tab.Tree.Leaves() {
		s.stashUndoLocked(paneID)
	}
	s.removeTabLocked(idx, a.TabID)
}

// removeTabLocked drops the tab at idx from s.tabs and reassigns
// activeTabID if it pointed at the removed tab.
func (s *Store) removeTabLocked(idx int, tabID ids.TabID) {
	s.tabs = append(s.tabs[:idx], s.tabs[idx+1:]...)
	if s.activeTabID != nil && *s.activeTabID == tabID {
		s.activeTabID = nil
		if len(s.tabs) > 0 {
			id := s.tabs[0].ID
			s.activeTabID = &id
		}
	}
}

// stashUndoLocked moves a closing pane's worktree binding (if any) into
// the undo buffer and, if it was the last pane referencing that worktree,
// unregisters it from the Filesystem Actor (spec §4.8).
func (s *Store) stashUndoLocked(paneID ids.PaneID) {
	binding := s.paneWorktree[paneID]
	delete(s.paneWorktree, paneID)

	s.undoBuffer[paneID] = &undoEntry{
		pane:    paneID,
		binding: binding,
		expires: ids.Now().Add(s.cfg.UndoTTL),
	}
	s.wake()

	if binding == nil {
		return
	}
	s.worktreeRefCount[binding.WorktreeID]--
	if s.worktreeRefCount[binding.WorktreeID] <= 0 {
		delete(s.worktreeRefCount, binding.WorktreeID)
		worktreeID := binding.WorktreeID
		go func() {
			if err := s.fsActor.Unregister(worktreeID); err != nil {
				s.log.Warnf("store: unregistering worktree %s: %v", worktreeID, err)
			}
		}()
	}
}

func (s *Store) applyFocusPaneLocked(a paneaction.FocusPane) {
	tab, _ := s.findTabLocked(a.TabID)
	if tab == nil {
		return
	}
	tab.ActivePaneID = a.PaneID
	s.activeTabID = &a.TabID

	if binding, ok := s.paneWorktree[a.PaneID]; ok {
		worktreeID := binding.WorktreeID
		s.fsActor.SetActivePaneWorktree(&worktreeID)
	}
}

func (s *Store) applyResizePaneLocked(a paneaction.ResizePane) {
	tab, _ := s.findTabLocked(a.TabID)
	if tab == nil {
		return
	}
	if newTree, ok := paneaction.ResizeSplit(tab.Tree, a.SplitID, a.Ratio); ok {
		tab.Tree = newTree
	}
}

func (s *Store) applyMinimizePaneLocked(a paneaction.MinimizePane, minimize bool) {
	tab, _ := s.findTabLocked(a.TabID)
	if tab == nil {
		return
	}
	if minimize {
		tab.MinimizedPaneIDs[a.PaneID] = struct{}{}
	} else {
		delete(tab.MinimizedPaneIDs, a.PaneID)
	}
}

func (s *Store) applyMoveTabLocked(a paneaction.MoveTab) {
	_, idx := s.findTabLocked(a.TabID)
	if idx < 0 {
		return
	}
	tab := s.tabs[idx]
	s.tabs = append(s.tabs[:idx], s.tabs[idx+1:]...)

	to := a.ToIndex
	if to > len(s.tabs) {
		to = len(s.tabs)
	}
	if to < 0 {
		to = 0
	}
	s.tabs = append(s.tabs[:to], append([]*paneaction.Tab{tab}, s.tabs[to:]...)...)
}

// applyEqualizePanesLocked resets every split in the tab's tree to 0.5,
// generalizing "equalize" from a fixed two-pane layout to an arbitrary
// tree depth.
func (s *Store) applyEqualizePanesLocked(tabID ids.TabID) {
	tab, _ := s.findTabLocked(tabID)
	if tab == nil {
		return
	}
	tab.Tree = equalizeTree(tab.Tree)
}

func equalizeTree(tree *paneaction.SplitTree) *paneaction.SplitTree {
	if tree == nil || tree.IsLeaf() {
		return tree
	}
	left := equalizeTree(tree.Left())
	right := equalizeTree(tree.Right())
	return paneaction.NewSplit(tree.SplitID(), tree.SplitDirection(), 0.5, left, right)
}

// applyMergeTabLocked grafts the source tab's entire tree into the target
// tab at the target pane's position and removes the now-empty source tab
// (spec §4.7's MergeTab, produced by the drop planner for multi-pane drops).
func (s *Store) applyMergeTabLocked(a paneaction.MergeTab) {
	sourceTab, sourceIdx := s.findTabLocked(a.SourceTabID)
	targetTab, _ := s.findTabLocked(a.TargetTabID)
	if sourceTab == nil || targetTab == nil || sourceIdx < 0 {
		return
	}
	newTargetTree, ok := paneaction.GraftTree(targetTab.Tree, a.TargetPaneID, sourceTab.Tree, a.SplitID, a.Direction)
	if !ok {
		return
	}
	targetTab.Tree = newTargetTree
	targetTab.ActivePaneID = sourceTab.ActivePaneID

	s.tabs = append(s.tabs[:sourceIdx], s.tabs[sourceIdx+1:]...)
	if s.activeTabID != nil && *s.activeTabID == a.SourceTabID {
		s.activeTabID = &a.TargetTabID
	}
}

// applyExtractPaneToTabLocked removes paneID from tabID's tree and appends a
// new single-pane tab holding it, returning the new tab's ID. It returns a
// zero ids.TabID if the source tab or pane doesn't exist, letting
// ExtractPaneToTabThenMove's caller skip the follow-up move (spec §4.7).
func (s *Store) applyExtractPaneToTabLocked(tabID ids.TabID, paneID ids.PaneID, newTabID ids.TabID) ids.TabID {
	tab, _ := s.findTabLocked(tabID)
	if tab == nil || !tab.Tree.Contains(paneID) {
		return ids.TabID{}
	}

	newTree, ok := paneaction.RemovePane(tab.Tree, paneID)
	if !ok {
		return ids.TabID{}
	}
	tab.Tree = newTree
	if tab.ActivePaneID == paneID {
		if leaves := newTree.Leaves(); len(leaves) > 0 {
			tab.ActivePaneID = leaves[0]
		}
	}

	newTab := &paneaction.Tab{
		ID:               newTabID,
		Tree:             paneaction.NewLeaf(paneID),
		ActivePaneID:     paneID,
		MinimizedPaneIDs: make(map[ids.PaneID]struct{}),
	}
	s.tabs = append(s.tabs, newTab)
	return newTabID
}

// applyBreakUpTabLocked splits every leaf of tabID's tree out into its own
// fresh single-pane tab and removes the original (spec §4.7's BreakUpTab).
func (s *Store) applyBreakUpTabLocked(tabID ids.TabID) {
	tab, idx := s.findTabLocked(tabID)
	if tab == nil {
		return
	}
	leaves := tab.Tree.Leaves()
	s.tabs = append(s.tabs[:idx], s.tabs[idx+1:]...)

	var lastID *ids.TabID
	for _, paneID := range leaves {
		newTab := &paneaction.Tab{
			ID:               ids.NewTabID(),
			Tree:             paneaction.NewLeaf(paneID),
			ActivePaneID:     paneID,
			MinimizedPaneIDs: make(map[ids.PaneID]struct{}),
		}
		s.tabs = append(s.tabs, newTab)
		id := newTab.ID
		lastID = &id
	}
	if s.activeTabID != nil && *s.activeTabID == tabID && lastID != nil {
		s.activeTabID = lastID
	}
}

// applyAddDrawerPaneLocked inserts a's NewPaneID into the drawer attached to
// ParentPaneID, creating the drawer if this is its first pane (spec §4.7).
func (s *Store) applyAddDrawerPaneLocked(a paneaction.AddDrawerPane) {
	drawer, ok := s.drawers[a.ParentPaneID]
	if !ok {
		drawer = &paneaction.Drawer{
			ParentPaneID: a.ParentPaneID,
			Tree:         paneaction.NewLeaf(a.NewPaneID),
			ActivePaneID: a.NewPaneID,
		}
		s.drawers[a.ParentPaneID] = drawer
	} else {
		newTree, grafted := paneaction.InsertPane(drawer.Tree, drawer.ActivePaneID, a.NewPaneID, ids.NewSplitID(), paneaction.Down)
		if !grafted {
			return
		}
		drawer.Tree = newTree
		drawer.ActivePaneID = a.NewPaneID
	}
	s.drawerParentByPane[a.NewPaneID] = a.ParentPaneID
}

// applyRemoveDrawerPaneLocked removes a pane from its parent's drawer,
// tearing the drawer down entirely once it holds no more panes (spec §4.7).
func (s *Store) applyRemoveDrawerPaneLocked(a paneaction.RemoveDrawerPane) {
	drawer, ok := s.drawers[a.ParentPaneID]
	if !ok {
		return
	}
	newTree, removed := paneaction.RemovePane(drawer.Tree, a.DrawerPaneID)
	delete(s.drawerParentByPane, a.DrawerPaneID)
	if !removed || newTree == nil {
		delete(s.drawers, a.ParentPaneID)
		return
	}
	drawer.Tree = newTree
	if drawer.ActivePaneID == a.DrawerPaneID {
		if leaves := newTree.Leaves(); len(leaves) > 0 {
			drawer.ActivePaneID = leaves[0]
		}
	}
}

// applyMoveDrawerPaneLocked relocates an existing drawer pane next to
// another pane within the same drawer (spec §4.7's MoveDrawerPane).
func (s *Store) applyMoveDrawerPaneLocked(a paneaction.MoveDrawerPane) {
	drawer, ok := s.drawers[a.ParentPaneID]
	if !ok {
		return
	}
	without, removed := paneaction.RemovePane(drawer.Tree, a.DrawerPaneID)
	if !removed || without == nil {
		return
	}
	newTree, inserted := paneaction.InsertPane(without, a.TargetDrawerPaneID, a.DrawerPaneID, ids.NewSplitID(), a.Direction)
	if !inserted {
		return
	}
	drawer.Tree = newTree
}

// applyInsertDrawerPaneLocked splits a new pane into the drawer next to an
// existing drawer pane (spec §4.7's InsertDrawerPane).
func (s *Store) applyInsertDrawerPaneLocked(a paneaction.InsertDrawerPane) {
	drawer, ok := s.drawers[a.ParentPaneID]
	if !ok {
		return
	}
	newTree, inserted := paneaction.InsertPane(drawer.Tree, a.TargetDrawerPaneID, a.NewPaneID, ids.NewSplitID(), a.Direction)
	if !inserted {
		return
	}
	drawer.Tree = newTree
	drawer.ActivePaneID = a.NewPaneID
	s.drawerParentByPane[a.NewPaneID] = a.ParentPaneID
}

// applyResizeDrawerPaneLocked resizes a split within a drawer's tree (spec
// §4.7's ResizeDrawerPane).
func (s *Store) applyResizeDrawerPaneLocked(a paneaction.ResizeDrawerPane) {
	drawer, ok := s.drawers[a.ParentPaneID]
	if !ok {
		return
	}
	if newTree, ok := paneaction.ResizeSplit(drawer.Tree, a.SplitID, a.Ratio); ok {
		drawer.Tree = newTree
	}
}

func (s *Store) bumpRevision() {
	s.mu.Lock()
	s.viewRevision++
	s.mu.Unlock()
	select {
	case s.changeCh <- struct{}{}:
	default:
	}
}

func (s *Store) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// undoExpiryLoop emits ExpireUndoEntry for every undo-buffer entry whose
// TTL has elapsed (spec §4.8).
func (s *Store) undoExpiryLoop() {
	defer s.wg.Done()
	for {
		wait, hasEntries := s.nextUndoDeadline()
		if !hasEntries {
			select {
			case <-s.doneCh:
				return
			case <-s.wakeCh:
			}
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.doneCh:
			timer.Stop()
			return
		case <-s.wakeCh:
			timer.Stop()
		case <-timer.C:
		}
		s.expireDueUndoEntries()
	}
}

func (s *Store) nextUndoDeadline() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undoBuffer) == 0 {
		return 0, false
	}
	now := ids.Now()
	nearest := time.Duration(-1)
	for _, e := range s.undoBuffer {
		d := e.expires.Sub(now)
		if nearest < 0 || d < nearest {
			nearest = d
		}
	}
	if nearest < 0 {
		nearest = 0
	}
	return nearest, true
}

func (s *Store) expireDueUndoEntries() {
	now := ids.Now()
	var expired []ids.PaneID

	s.mu.Lock()
	for paneID, e := range s.undoBuffer {
		if !now.Before(e.expires) {
			expired = append(expired, paneID)
			delete(s.undoBuffer, paneID)
		}
	}
	s.mu.Unlock()

	for _, paneID := range expired {
		s.post(events.ExpireUndoEntry{PaneID: paneID})
	}
}
