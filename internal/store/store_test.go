package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/events"
	"github.com/paneruntime/workbench/internal/fsactor"
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/ownership"
	"github.com/paneruntime/workbench/internal/paneaction"
	"github.com/paneruntime/workbench/internal/provider"
	"github.com/paneruntime/workbench/internal/store"
)

func newStore(t *testing.T, cfg store.Config) (*store.Store, *busx.Bus, func()) {
	t.Helper()
	bus := busx.New()
	router := ownership.New(boolPtr(false))
	watcher := provider.NewNoopFSEventStreamClient()
	fsActor := fsactor.New(bus, router, watcher, nil, fsactor.Config{})
	s := store.New(bus, fsActor, nil, cfg)
	return s, bus, func() {
		s.Shutdown()
		fsActor.Shutdown()
	}
}

func boolPtr(b bool) *bool { return &b }

func waitForExpireUndoEntry(sub *busx.Subscription, timeout time.Duration) (events.ExpireUndoEntry, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		env, ok := sub.TryRecv()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if e, ok := env.Event.(events.ExpireUndoEntry); ok {
			return e, true
		}
	}
	return events.ExpireUndoEntry{}, false
}

func waitForWorktreeUnregistered(sub *busx.Subscription, worktreeID ids.WorktreeID, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		env, ok := sub.TryRecv()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if u, ok := env.Event.(events.WorktreeUnregistered); ok && u.WorktreeID == worktreeID {
			return true
		}
	}
	return false
}

func TestOpenWorktreePaneRegistersWithFilesystemActor(t *testing.T) {
	s, bus, cleanup := newStore(t, store.Config{})
	defer cleanup()

	sub := bus.Subscribe(busx.Unbounded())
	worktreeID := ids.NewWorktreeID()
	repoID := ids.NewRepoID()
	root := t.TempDir()

	tabID, paneID, err := s.OpenWorktreePane(worktreeID, repoID, root)
	require.NoError(t, err)
	require.NotEqual(t, ids.TabID{}, tabID)
	require.NotEqual(t, ids.PaneID{}, paneID)

	found := false
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && !found {
		env, ok := sub.TryRecv()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if r, ok := env.Event.(events.WorktreeRegistered); ok && r.WorktreeID == worktreeID {
			found = true
		}
	}
	require.True(t, found, "expected WorktreeRegistered for the newly opened worktree")

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 1)
	require.Equal(t, tabID, snap.Tabs[0].Tab.ID)
	_, known := snap.KnownWorktreeIDs[worktreeID]
	require.True(t, known)
}

func TestViewRevisionBumpsAfterEveryApply(t *testing.T) {
	s, _, cleanup := newStore(t, store.Config{})
	defer cleanup()

	before := s.ViewRevision()
	tabID, paneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)
	afterOpen := s.ViewRevision()
	require.Greater(t, afterOpen, before)

	s.Apply(paneaction.FocusPane{TabID: tabID, PaneID: paneID})
	afterFocus := s.ViewRevision()
	require.Greater(t, afterFocus, afterOpen)
}

func TestClosingLastPaneUnregistersWorktreeAndStashesUndo(t *testing.T) {
	s, bus, cleanup := newStore(t, store.Config{UndoTTL: 30 * time.Millisecond})
	defer cleanup()

	sub := bus.Subscribe(busx.Unbounded())
	worktreeID := ids.NewWorktreeID()
	tabID, paneID, err := s.OpenWorktreePane(worktreeID, ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)

	s.Apply(paneaction.ClosePane{TabID: tabID, PaneID: paneID})

	require.True(t, waitForWorktreeUnregistered(sub, 500*time.Millisecond))

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 0)

	entry, ok := waitForExpireUndoEntry(sub, 500*time.Millisecond)
	require.True(t, ok)
	require.Equal(t, paneID, entry.PaneID)
}

func TestMergeTabGraftsSourceTreeIntoTargetAndRemovesSourceTab(t *testing.T) {
	s, _, cleanup := newStore(t, store.Config{})
	defer cleanup()

	targetTabID, targetPaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)
	sourceTabID, sourcePaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)

	s.Apply(paneaction.MergeTab{
		SourceTabID:  sourceTabID,
		TargetTabID:  targetTabID,
		TargetPaneID: targetPaneID,
		SplitID:      ids.NewSplitID(),
		Direction:    paneaction.Right,
	})

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 1)
	tab := snap.Tabs[0].Tab
	require.Equal(t, targetTabID, tab.ID)
	require.True(t, tab.Tree.Contains(targetPaneID))
	require.True(t, tab.Tree.Contains(sourcePaneID))
}

func TestExtractPaneToTabThenMoveCreatesAndRelocatesNewTab(t *testing.T) {
	s, _, cleanup := newStore(t, store.Config{})
	defer cleanup()

	tabID, firstPaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)

	secondPaneID := ids.NewPaneID()
	s.Apply(paneaction.InsertPane{
		Source:       paneaction.SourceNewTerminal,
		TargetTabID:  tabID,
		TargetPaneID: firstPaneID,
		NewPaneID:    secondPaneID,
		SplitID:      ids.NewSplitID(),
		Direction:    paneaction.Right,
	})

	newTabID := ids.NewTabID()
	s.Apply(paneaction.ExtractPaneToTabThenMove{
		PaneID:      secondPaneID,
		SourceTabID: tabID,
		NewTabID:    newTabID,
		ToIndex:     0,
	})

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 2)
	require.Equal(t, newTabID, snap.Tabs[0].Tab.ID)
	require.True(t, snap.Tabs[0].Tab.Tree.Contains(secondPaneID))
	require.True(t, snap.Tabs[1].Tab.Tree.Contains(firstPaneID))
}

func TestInsertPaneFromExistingPaneRemovesItFromSourceTab(t *testing.T) {
	s, _, cleanup := newStore(t, store.Config{})
	defer cleanup()

	targetTabID, targetPaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)
	sourceTabID, sourcePaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)

	s.Apply(paneaction.InsertPane{
		Source:       paneaction.SourceExistingPane,
		SourcePaneID: sourcePaneID,
		TargetTabID:  targetTabID,
		TargetPaneID: targetPaneID,
		NewPaneID:    sourcePaneID,
		SplitID:      ids.NewSplitID(),
		Direction:    paneaction.Right,
	})

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 1, "source tab had only the dragged pane, so it must collapse away")
	tab := snap.Tabs[0].Tab
	require.Equal(t, targetTabID, tab.ID)
	require.True(t, tab.Tree.Contains(targetPaneID))
	require.True(t, tab.Tree.Contains(sourcePaneID))

	for _, ts := range snap.Tabs {
		require.NotEqual(t, sourceTabID, ts.Tab.ID)
	}
}

func TestInsertPaneFromExistingPaneLeavesMultiPaneSourceTabIntact(t *testing.T) {
	s, _, cleanup := newStore(t, store.Config{})
	defer cleanup()

	targetTabID, targetPaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)
	sourceTabID, firstSourcePaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)

	secondSourcePaneID := ids.NewPaneID()
	s.Apply(paneaction.InsertPane{
		Source:       paneaction.SourceNewTerminal,
		TargetTabID:  sourceTabID,
		TargetPaneID: firstSourcePaneID,
		NewPaneID:    secondSourcePaneID,
		SplitID:      ids.NewSplitID(),
		Direction:    paneaction.Right,
	})

	s.Apply(paneaction.InsertPane{
		Source:       paneaction.SourceExistingPane,
		SourcePaneID: secondSourcePaneID,
		TargetTabID:  targetTabID,
		TargetPaneID: targetPaneID,
		NewPaneID:    secondSourcePaneID,
		SplitID:      ids.NewSplitID(),
		Direction:    paneaction.Right,
	})

	snap := s.Snapshot()
	require.Len(t, snap.Tabs, 2)

	var sourceTab, targetTab *paneaction.Tab
	for i := range snap.Tabs {
		switch snap.Tabs[i].Tab.ID {
		case sourceTabID:
			sourceTab = snap.Tabs[i].Tab
		case targetTabID:
			targetTab = snap.Tabs[i].Tab
		}
	}
	require.NotNil(t, sourceTab)
	require.NotNil(t, targetTab)

	require.True(t, sourceTab.Tree.Contains(firstSourcePaneID))
	require.False(t, sourceTab.Tree.Contains(secondSourcePaneID))
	require.True(t, targetTab.Tree.Contains(targetPaneID))
	require.True(t, targetTab.Tree.Contains(secondSourcePaneID))
}

func TestDrawerPaneLifecycle(t *testing.T) {
	s, _, cleanup := newStore(t, store.Config{})
	defer cleanup()

	_, parentPaneID, err := s.OpenWorktreePane(ids.NewWorktreeID(), ids.NewRepoID(), t.TempDir())
	require.NoError(t, err)

	drawerPaneID := ids.NewPaneID()
	s.Apply(paneaction.AddDrawerPane{ParentPaneID: parentPaneID, NewPaneID: drawerPaneID})

	snap := s.Snapshot()
	parent, ok := snap.DrawerParentByPaneID[drawerPaneID]
	require.True(t, ok)
	require.Equal(t, parentPaneID, parent)

	s.Apply(paneaction.RemoveDrawerPane{ParentPaneID: parentPaneID, DrawerPaneID: drawerPaneID})

	snap = s.Snapshot()
	_, stillThere := snap.DrawerParentByPaneID[drawerPaneID]
	require.False(t, stillThere)
}

func TestExportStateThenRestoreStateReproducesWorkspace(t *testing.T) {
	s, _, cleanup := newStore(t, store.Config{})
	defer cleanup()

	worktreeID := ids.NewWorktreeID()
	repoID := ids.NewRepoID()
	root := t.TempDir()
	tabID, firstPaneID, err := s.OpenWorktreePane(worktreeID, repoID, root)
	require.NoError(t, err)

	secondPaneID := ids.NewPaneID()
	s.Apply(paneaction.InsertPane{
		Source:       paneaction.SourceNewTerminal,
		TargetTabID:  tabID,
		TargetPaneID: firstPaneID,
		NewPaneID:    secondPaneID,
		SplitID:      ids.NewSplitID(),
		Direction:    paneaction.Right,
	})

	state := s.ExportState()
	require.Len(t, state.Tabs, 1)
	require.Len(t, state.Bindings, 1)

	s2, _, cleanup2 := newStore(t, store.Config{})
	defer cleanup2()

	require.NoError(t, s2.RestoreState(state))

	snap := s2.Snapshot()
	require.Len(t, snap.Tabs, 1)
	require.Equal(t, tabID, snap.Tabs[0].Tab.ID)
	require.True(t, snap.Tabs[0].Tab.Tree.Contains(firstPaneID))
	require.True(t, snap.Tabs[0].Tab.Tree.Contains(secondPaneID))
	_, known := snap.KnownWorktreeIDs[worktreeID]
	require.True(t, known)
}
