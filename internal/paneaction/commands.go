package paneaction

import "github.com/paneruntime/workbench/internal/ids"

// AppCommand is the closed set of user intents the resolver accepts
// (spec §4.7).
type AppCommand int

const (
	CmdCloseTab AppCommand = iota
	CmdSplitRight
	CmdSplitBelow
	CmdFocusPaneLeft
	CmdFocusPaneRight
	CmdFocusPaneUp
	CmdFocusPaneDown
	CmdNextTab
	CmdPrevTab
	CmdSelectTab1
	CmdSelectTab2
	CmdSelectTab3
	CmdSelectTab4
	CmdSelectTab5
	CmdSelectTab6
	CmdSelectTab7
	CmdSelectTab8
	CmdSelectTab9
	CmdEqualizePanes
	CmdBreakUpTab
	CmdExtractPaneToTab
)

// focusDirections maps the focus-neighbor commands to their Direction.
var focusDirections = map[AppCommand]Direction{
	CmdFocusPaneLeft:  Left,
	CmdFocusPaneRight: Right,
	CmdFocusPaneUp:    Up,
	CmdFocusPaneDown:  Down,
}

// selectTabIndex maps SelectTabN commands to their 1-based index.
var selectTabIndex = map[AppCommand]int{
	CmdSelectTab1: 1, CmdSelectTab2: 2, CmdSelectTab3: 3,
	CmdSelectTab4: 4, CmdSelectTab5: 5, CmdSelectTab6: 6,
	CmdSelectTab7: 7, CmdSelectTab8: 8, CmdSelectTab9: 9,
}

// IDAllocator mints fresh IDs for actions that create new panes/splits. The
// resolver is otherwise pure; ID generation is its only side-effecting
// dependency, injected so tests can supply deterministic IDs.
type IDAllocator interface {
	NewPaneID() ids.PaneID
	NewTabID() ids.TabID
	NewSplitID() ids.SplitID
}

// ResolveCommand implements spec §4.7's command resolution rules,
// returning (action, true) or (nil, false) ("None").
func ResolveCommand(snapshot *ActionStateSnapshot, cmd AppCommand, alloc IDAllocator) (Action, bool) {
	if cmd == CmdSplitBelow {
		// "Vertical splits (SplitBelow) return None — drawers own the
		// bottom space; only horizontal splits are produced by commands."
		return nil, false
	}

	if direction, ok := focusDirections[cmd]; ok {
		return resolveFocusNeighbor(snapshot, direction)
	}

	if index, ok := selectTabIndex[cmd]; ok {
		return resolveSelectTabN(snapshot, index)
	}

	active, hasActive := snapshot.activeTab()
	if !hasActive {
		return nil, false
	}

	switch cmd {
	case CmdCloseTab:
		return CloseTab{TabID: active.Tab.ID}, true
	case CmdSplitRight:
		return InsertPane{
			Source:       SourceNewTerminal,
			TargetTabID:  active.Tab.ID,
			TargetPaneID: active.Tab.ActivePaneID,
			NewPaneID:    alloc.NewPaneID(),
			SplitID:      alloc.NewSplitID(),
			Direction:    Right,
		}, true
	case CmdNextTab:
		return resolveAdjacentTab(snapshot, active, 1)
	case CmdPrevTab:
		return resolveAdjacentTab(snapshot, active, -1)
	case CmdEqualizePanes:
		return EqualizePanes{TabID: active.Tab.ID}, true
	case CmdBreakUpTab:
		return BreakUpTab{TabID: active.Tab.ID}, true
	case CmdExtractPaneToTab:
		if active.Tab.HasSinglePane() {
			return nil, false
		}
		return ExtractPaneToTab{TabID: active.Tab.ID, PaneID: active.Tab.ActivePaneID, NewTabID: alloc.NewTabID()}, true
	default:
		return nil, false
	}
}

func resolveFocusNeighbor(snapshot *ActionStateSnapshot, direction Direction) (Action, bool) {
	active, hasActive := snapshot.activeTab()
	if !hasActive {
		return nil, false
	}
	neighbor, ok := Neighbor(active.Tab.Tree, active.Tab.ActivePaneID, direction)
	if !ok {
		return nil, false
	}
	return FocusPane{TabID: active.Tab.ID, PaneID: neighbor}, true
}

func resolveSelectTabN(snapshot *ActionStateSnapshot, index int) (Action, bool) {
	if index < 1 || index > len(snapshot.Tabs) {
		return nil, false
	}
	return SelectTab{TabID: snapshot.Tabs[index-1].Tab.ID}, true
}

func resolveAdjacentTab(snapshot *ActionStateSnapshot, active *TabSnapshot, delta int) (Action, bool) {
	if len(snapshot.Tabs) == 0 {
		return nil, false
	}
	idx := -1
	for i := range snapshot.Tabs {
		if snapshot.Tabs[i].Tab.ID == active.Tab.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	n := len(snapshot.Tabs)
	next := ((idx+delta)%n + n) % n // wrap around, per spec §4.7
	return SelectTab{TabID: snapshot.Tabs[next].Tab.ID}, true
}
