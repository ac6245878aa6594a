package paneaction

import "github.com/paneruntime/workbench/internal/ids"

// DropPayloadKind distinguishes what's being dragged (spec §4.7's
// SplitDropPayload).
type DropPayloadKind int

const (
	PayloadExistingTab DropPayloadKind = iota
	PayloadExistingPane
	PayloadNewTerminal
)

// SplitDropPayload is the thing being dragged.
type SplitDropPayload struct {
	Kind         DropPayloadKind
	TabID        ids.TabID  // valid when Kind == PayloadExistingTab
	PaneID       ids.PaneID // valid when Kind == PayloadExistingPane
	SourceTabID  ids.TabID  // valid when Kind == PayloadExistingPane
}

// DestinationKind distinguishes where a drop lands (spec §4.7's
// PaneDropDestination).
type DestinationKind int

const (
	DestinationSplit DestinationKind = iota
	DestinationTabBarInsertion
)

// PaneDropDestination is where the payload is dropped.
type PaneDropDestination struct {
	Kind DestinationKind

	// valid when Kind == DestinationSplit
	TargetPaneID             ids.PaneID
	TargetTabID               ids.TabID
	Direction                Direction
	TargetDrawerParentPaneID *ids.PaneID

	// valid when Kind == DestinationTabBarInsertion
	TargetTabIndex int
}

// PlanDrop implements spec §4.7's PaneDropPlanner, returning (action,
// true) or (nil, false) ("Ineligible").
func PlanDrop(snapshot *ActionStateSnapshot, payload SplitDropPayload, dest PaneDropDestination, alloc IDAllocator) (Action, bool) {
	if !snapshot.IsManagementModeActive {
		// "Management mode gate: If is_management_mode_active == false,
		// every drop decision is Ineligible."
		return nil, false
	}

	switch dest.Kind {
	case DestinationTabBarInsertion:
		return planTabBarDrop(snapshot, payload, dest, alloc)
	case DestinationSplit:
		return planSplitDrop(snapshot, payload, dest, alloc)
	default:
		return nil, false
	}
}

// planTabBarDrop implements "Tab-bar drop of a pane" (spec §4.7).
func planTabBarDrop(snapshot *ActionStateSnapshot, payload SplitDropPayload, dest PaneDropDestination, alloc IDAllocator) (Action, bool) {
	if payload.Kind != PayloadExistingPane {
		return nil, false
	}
	if _, isDrawerChild := snapshot.DrawerParentByPaneID[payload.PaneID]; isDrawerChild {
		return nil, false // "if the pane lives in a drawer -> Ineligible"
	}
	sourceTab, ok := snapshot.findTab(payload.SourceTabID)
	if !ok {
		return nil, false
	}
	if sourceTab.Tab.HasSinglePane() {
		return MoveTab{TabID: payload.SourceTabID, ToIndex: dest.TargetTabIndex}, true
	}
	return ExtractPaneToTabThenMove{
		PaneID:      payload.PaneID,
		SourceTabID: payload.SourceTabID,
		NewTabID:    alloc.NewTabID(),
		ToIndex:     dest.TargetTabIndex,
	}, true
}

// planSplitDrop implements "Split drop into a drawer" and "Split drop into
// a layout pane" (spec §4.7).
func planSplitDrop(snapshot *ActionStateSnapshot, payload SplitDropPayload, dest PaneDropDestination, alloc IDAllocator) (Action, bool) {
	if dest.TargetDrawerParentPaneID != nil {
		return planDrawerSplitDrop(snapshot, payload, dest)
	}

	switch payload.Kind {
	case PayloadNewTerminal:
		return InsertPane{
			Source:       SourceNewTerminal,
			TargetTabID:  dest.TargetTabID,
			TargetPaneID: dest.TargetPaneID,
			NewPaneID:    alloc.NewPaneID(),
			SplitID:      alloc.NewSplitID(),
			Direction:    dest.Direction,
		}, true

	case PayloadExistingPane:
		if payload.PaneID == dest.TargetPaneID {
			return nil, false // self-insert
		}
		targetTab, ok := snapshot.findTab(dest.TargetTabID)
		if !ok || !targetTab.Tab.Tree.Contains(dest.TargetPaneID) {
			return nil, false
		}
		if targetTab.Tab.HasSinglePane() {
			return InsertPane{
				Source:       SourceExistingPane,
				SourcePaneID: payload.PaneID,
				TargetTabID:  dest.TargetTabID,
				TargetPaneID: dest.TargetPaneID,
				NewPaneID:    payload.PaneID,
				SplitID:      alloc.NewSplitID(),
				Direction:    dest.Direction,
			}, true
		}
		return MergeTab{
			SourceTabID:  payload.SourceTabID,
			TargetTabID:  dest.TargetTabID,
			TargetPaneID: dest.TargetPaneID,
			SplitID:      alloc.NewSplitID(),
			Direction:    dest.Direction,
		}, true

	case PayloadExistingTab:
		targetTab, ok := snapshot.findTab(dest.TargetTabID)
		if !ok || !targetTab.Tab.Tree.Contains(dest.TargetPaneID) {
			return nil, false
		}
		if payload.TabID == dest.TargetTabID && targetTab.Tab.HasSinglePane() {
			return nil, false // "self-merge... Ineligible"
		}
		return MergeTab{
			SourceTabID:  payload.TabID,
			TargetTabID:  dest.TargetTabID,
			TargetPaneID: dest.TargetPaneID,
			SplitID:      alloc.NewSplitID(),
			Direction:    dest.Direction,
		}, true

	default:
		return nil, false
	}
}

func planDrawerSplitDrop(snapshot *ActionStateSnapshot, payload SplitDropPayload, dest PaneDropDestination) (Action, bool) {
	if payload.Kind != PayloadExistingPane {
		return nil, false
	}
	sourceParent, isDrawerChild := snapshot.DrawerParentByPaneID[payload.PaneID]
	if !isDrawerChild || sourceParent != *dest.TargetDrawerParentPaneID {
		return nil, false // cross-parent drawer moves are Ineligible
	}
	return MoveDrawerPane{
		ParentPaneID:       sourceParent,
		DrawerPaneID:       payload.PaneID,
		TargetDrawerPaneID: dest.TargetPaneID,
		Direction:          dest.Direction,
	}, true
}
