package paneaction

import "fmt"

// ValidationError is the closed enumeration of ways an Action can fail
// validation (spec §4.7). Validation is total: Validate never panics.
type ValidationError int

const (
	ErrUnknownTab ValidationError = iota
	ErrUnknownPane
	ErrRatioOutOfRange
	ErrSelfTabMerge
	ErrManagementModeRequired
	ErrDrawerConstraintViolation
)

func (e ValidationError) Error() string {
	switch e {
	case ErrUnknownTab:
		return "unknown tab"
	case ErrUnknownPane:
		return "unknown pane"
	case ErrRatioOutOfRange:
		return "ratio out of range"
	case ErrSelfTabMerge:
		return "merge target equals source tab"
	case ErrManagementModeRequired:
		return "management mode is required"
	case ErrDrawerConstraintViolation:
		return "drawer constraint violated"
	default:
		return fmt.Sprintf("validation error %d", int(e))
	}
}

// Validate checks a resolved Action against the snapshot it was resolved
// from (spec §4.7: "referenced tabs/panes exist; ratio is in [0.1, 0.9];
// MergeTab.source_tab_id != target_tab_id; known_worktree_ids covers any
// source that depends on it").
func Validate(snapshot *ActionStateSnapshot, action Action) error {
	switch a := action.(type) {
	case InsertPane:
		if _, ok := snapshot.findTab(a.TargetTabID); !ok {
			return ErrUnknownTab
		}
		if a.Source == SourceExistingPane {
			if _, ok := snapshot.paneTab(a.SourcePaneID); !ok {
				return ErrUnknownPane
			}
		}
		return nil

	case ClosePane:
		tab, ok := snapshot.findTab(a.TabID)
		if !ok {
			return ErrUnknownTab
		}
		if !tab.Tab.Tree.Contains(a.PaneID) {
			return ErrUnknownPane
		}
		return nil

	case ExtractPaneToTab:
		tab, ok := snapshot.findTab(a.TabID)
		if !ok {
			return ErrUnknownTab
		}
		if !tab.Tab.Tree.Contains(a.PaneID) {
			return ErrUnknownPane
		}
		return nil

	case MergeTab:
		if a.SourceTabID == a.TargetTabID {
			return ErrSelfTabMerge
		}
		if _, ok := snapshot.findTab(a.SourceTabID); !ok {
			return ErrUnknownTab
		}
		target, ok := snapshot.findTab(a.TargetTabID)
		if !ok {
			return ErrUnknownTab
		}
		if !target.Tab.Tree.Contains(a.TargetPaneID) {
			return ErrUnknownPane
		}
		return nil

	case MoveTab:
		if _, ok := snapshot.findTab(a.TabID); !ok {
			return ErrUnknownTab
		}
		return nil

	case ExtractPaneToTabThenMove:
		tab, ok := snapshot.findTab(a.SourceTabID)
		if !ok {
			return ErrUnknownTab
		}
		if !tab.Tab.Tree.Contains(a.PaneID) {
			return ErrUnknownPane
		}
		return nil

	case CloseTab, SelectTab, EqualizePanes, BreakUpTab:
		return validateTabOnly(snapshot, action)

	case FocusPane:
		tab, ok := snapshot.findTab(a.TabID)
		if !ok {
			return ErrUnknownTab
		}
		if !tab.Tab.Tree.Contains(a.PaneID) {
			return ErrUnknownPane
		}
		return nil

	case ResizePane:
		if _, ok := snapshot.findTab(a.TabID); !ok {
			return ErrUnknownTab
		}
		if a.Ratio < minRatio || a.Ratio > maxRatio {
			return ErrRatioOutOfRange
		}
		return nil

	case MinimizePane, ExpandPane:
		return validatePaneInTab(snapshot, action)

	case AddDrawerPane:
		return nil

	case RemoveDrawerPane:
		if parent, ok := snapshot.DrawerParentByPaneID[a.DrawerPaneID]; !ok || parent != a.ParentPaneID {
			return ErrDrawerConstraintViolation
		}
		return nil

	case MoveDrawerPane:
		if parent, ok := snapshot.DrawerParentByPaneID[a.DrawerPaneID]; !ok || parent != a.ParentPaneID {
			return ErrDrawerConstraintViolation
		}
		if parent, ok := snapshot.DrawerParentByPaneID[a.TargetDrawerPaneID]; !ok || parent != a.ParentPaneID {
			return ErrDrawerConstraintViolation
		}
		return nil

	case InsertDrawerPane:
		if parent, ok := snapshot.DrawerParentByPaneID[a.TargetDrawerPaneID]; !ok || parent != a.ParentPaneID {
			return ErrDrawerConstraintViolation
		}
		return nil

	case MinimizeDrawerPane, ExpandDrawerPane, EqualizeDrawerPanes, SetActiveDrawerPane:
		return nil

	case ResizeDrawerPane:
		if a.Ratio < minRatio || a.Ratio > maxRatio {
			return ErrRatioOutOfRange
		}
		return nil

	case ToggleDrawer, Repair, ExpireUndoEntry:
		return nil

	default:
		return nil
	}
}

func validateTabOnly(snapshot *ActionStateSnapshot, action Action) error {
	switch a := action.(type) {
	case CloseTab:
		if _, ok := snapshot.findTab(a.TabID); !ok {
			return ErrUnknownTab
		}
	case SelectTab:
		if _, ok := snapshot.findTab(a.TabID); !ok {
			return ErrUnknownTab
		}
	case EqualizePanes:
		if _, ok := snapshot.findTab(a.TabID); !ok {
			return ErrUnknownTab
		}
	case BreakUpTab:
		if _, ok := snapshot.findTab(a.TabID); !ok {
			return ErrUnknownTab
		}
	}
	return nil
}

func validatePaneInTab(snapshot *ActionStateSnapshot, action Action) error {
	switch a := action.(type) {
	case MinimizePane:
		tab, ok := snapshot.findTab(a.TabID)
		if !ok {
			return ErrUnknownTab
		}
		if !tab.Tab.Tree.Contains(a.PaneID) {
			return ErrUnknownPane
		}
	case ExpandPane:
		tab, ok := snapshot.findTab(a.TabID)
		if !ok {
			return ErrUnknownTab
		}
		if !tab.Tab.Tree.Contains(a.PaneID) {
			return ErrUnknownPane
		}
	}
	return nil
}
