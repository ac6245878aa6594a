package paneaction

import "github.com/paneruntime/workbench/internal/ids"

// PaneSource identifies where a new pane's content comes from when
// inserted via InsertPane (spec §4.7).
type PaneSource int

const (
	SourceNewTerminal PaneSource = iota
	SourceExistingPane
)

// Action is the closed union of validated outcomes the resolver and
// drop planner may produce (spec §4.7's "Output action variants"). Only
// this package's variants satisfy it, via the unexported marker method.
type Action interface {
	isAction()
}

type InsertPane struct {
	Source       PaneSource
	SourcePaneID ids.PaneID // valid when Source == SourceExistingPane
	TargetTabID  ids.TabID
	TargetPaneID ids.PaneID
	NewPaneID    ids.PaneID
	SplitID      ids.SplitID
	Direction    Direction
}

type ClosePane struct {
	TabID  ids.TabID
	PaneID ids.PaneID
}

type ExtractPaneToTab struct {
	TabID  ids.TabID
	PaneID ids.PaneID
	NewTabID ids.TabID
}

type MergeTab struct {
	SourceTabID  ids.TabID
	TargetTabID  ids.TabID
	TargetPaneID ids.PaneID
	SplitID      ids.SplitID
	Direction    Direction
}

type MoveTab struct {
	TabID   ids.TabID
	ToIndex int
}

type ExtractPaneToTabThenMove struct {
	PaneID       ids.PaneID
	SourceTabID  ids.TabID
	NewTabID     ids.TabID
	ToIndex      int
}

type CloseTab struct {
	TabID ids.TabID
}

type SelectTab struct {
	TabID ids.TabID
}

type EqualizePanes struct {
	TabID ids.TabID
}

type BreakUpTab struct {
	TabID ids.TabID
}

type FocusPane struct {
	TabID  ids.TabID
	PaneID ids.PaneID
}

type ResizePane struct {
	TabID   ids.TabID
	SplitID ids.SplitID
	Ratio   float64
}

type MinimizePane struct {
	TabID  ids.TabID
	PaneID ids.PaneID
}

type ExpandPane struct {
	TabID  ids.TabID
	PaneID ids.PaneID
}

type AddDrawerPane struct {
	ParentPaneID ids.PaneID
	NewPaneID    ids.PaneID
}

type RemoveDrawerPane struct {
	ParentPaneID ids.PaneID
	DrawerPaneID ids.PaneID
}

type MoveDrawerPane struct {
	ParentPaneID       ids.PaneID
	DrawerPaneID       ids.PaneID
	TargetDrawerPaneID ids.PaneID
	Direction          Direction
}

type InsertDrawerPane struct {
	ParentPaneID       ids.PaneID
	TargetDrawerPaneID ids.PaneID
	NewPaneID          ids.PaneID
	Direction          Direction
}

type MinimizeDrawerPane struct {
	ParentPaneID ids.PaneID
	DrawerPaneID ids.PaneID
}

type ExpandDrawerPane struct {
	ParentPaneID ids.PaneID
	DrawerPaneID ids.PaneID
}

type ResizeDrawerPane struct {
	ParentPaneID ids.PaneID
	SplitID      ids.SplitID
	Ratio        float64
}

type EqualizeDrawerPanes struct {
	ParentPaneID ids.PaneID
}

type SetActiveDrawerPane struct {
	ParentPaneID ids.PaneID
	DrawerPaneID ids.PaneID
}

type ToggleDrawer struct {
	ParentPaneID ids.PaneID
}

// RepairKind enumerates the structural repairs Repair can express; the
// source's repair vocabulary is not specified beyond "RepairAction", so
// this is deliberately small and closed.
type RepairKind int

const (
	RepairReassignActivePane RepairKind = iota
	RepairCollapseEmptySplit
)

type Repair struct {
	Kind   RepairKind
	TabID  ids.TabID
	PaneID ids.PaneID
}

type ExpireUndoEntry struct {
	PaneID ids.PaneID
}

func (InsertPane) isAction()              {}
func (ClosePane) isAction()               {}
func (ExtractPaneToTab) isAction()        {}
func (MergeTab) isAction()                {}
func (MoveTab) isAction()                 {}
func (ExtractPaneToTabThenMove) isAction() {}
func (CloseTab) isAction()                {}
func (SelectTab) isAction()               {}
func (EqualizePanes) isAction()           {}
func (BreakUpTab) isAction()              {}
func (FocusPane) isAction()               {}
func (ResizePane) isAction()              {}
func (MinimizePane) isAction()            {}
func (ExpandPane) isAction()              {}
func (AddDrawerPane) isAction()           {}
func (RemoveDrawerPane) isAction()        {}
func (MoveDrawerPane) isAction()          {}
func (InsertDrawerPane) isAction()        {}
func (MinimizeDrawerPane) isAction()      {}
func (ExpandDrawerPane) isAction()        {}
func (ResizeDrawerPane) isAction()        {}
func (EqualizeDrawerPanes) isAction()     {}
func (SetActiveDrawerPane) isAction()     {}
func (ToggleDrawer) isAction()            {}
func (Repair) isAction()                  {}
func (ExpireUndoEntry) isAction()         {}
