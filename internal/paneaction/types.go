// Package paneaction implements the pure, dependency-free layout model and
// Action Resolver & Validator described in spec §3 ("Layout model") and
// §4.7: a persistent SplitTree/Tab/Drawer data model plus reducers that
// turn a user intent into a validated PaneAction or a rejection.
//
// Pane geometry invariants (zoom-mode handling, direction-biased sizing,
// focused-pane / layout-mode state) are reworked from a single concrete
// two-pane-plus-sidebar layout into the generic persistent binary SplitTree
// §3 requires, naming things the way terminal-workspace UIs already do
// (Direction, zoom, minimized panes) wherever that vocabulary fits.
package paneaction

import (
	"github.com/paneruntime/workbench/internal/ids"
)

// Direction is a cardinal direction, used for split placement and for
// focus-neighbor/move commands. Split orientation is SplitDirection.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

// SplitDirection is the orientation of a Split node.
type SplitDirection int

const (
	Horizontal SplitDirection = iota // children sit side-by-side
	Vertical                         // children are stacked
)

const (
	minRatio = 0.1
	maxRatio = 0.9
)

// ClampRatio enforces spec §3 invariant 4: ratio is always clamped on
// write.
func ClampRatio(r float64) float64 {
	if r < minRatio {
		return minRatio
	}
	if r > maxRatio {
		return maxRatio
	}
	return r
}

// SplitTree is either a Leaf(PaneId) or a Split{id, direction, ratio,
// left, right}. The zero value is invalid; use NewLeaf/NewSplit.
type SplitTree struct {
	leaf  *ids.PaneID
	split *splitNode
}

type splitNode struct {
	id        ids.SplitID
	direction SplitDirection
	ratio     float64
	left      *SplitTree
	right     *SplitTree
}

// NewLeaf constructs a leaf node wrapping a pane.
func NewLeaf(paneID ids.PaneID) *SplitTree {
	id := paneID
	return &SplitTree{leaf: &id}
}

// NewSplit constructs a split node; ratio is clamped per invariant 4.
func NewSplit(id ids.SplitID, direction SplitDirection, ratio float64, left, right *SplitTree) *SplitTree {
	return &SplitTree{split: &splitNode{
		id:        id,
		direction: direction,
		ratio:     ClampRatio(ratio),
		left:      left,
		right:     right,
	}}
}

// IsLeaf reports whether this node is a Leaf.
func (t *SplitTree) IsLeaf() bool { return t != nil && t.leaf != nil }

// PaneID returns the leaf's pane ID; only valid when IsLeaf() is true.
func (t *SplitTree) PaneID() ids.PaneID { return *t.leaf }

// SplitID returns the split node's ID; only valid when IsLeaf() is false.
func (t *SplitTree) SplitID() ids.SplitID { return t.split.id }

// SplitDirection returns the split node's orientation.
func (t *SplitTree) SplitDirection() SplitDirection { return t.split.direction }

// Ratio returns the split node's current ratio.
func (t *SplitTree) Ratio() float64 { return t.split.ratio }

// Left returns the split node's first child.
func (t *SplitTree) Left() *SplitTree { return t.split.left }

// Right returns the split node's second child.
func (t *SplitTree) Right() *SplitTree { return t.split.right }

// Leaves returns every pane ID in the tree, in left-to-right traversal
// order.
func (t *SplitTree) Leaves() []ids.PaneID {
	if t == nil {
		return nil
	}
	if t.IsLeaf() {
		return []ids.PaneID{t.PaneID()}
	}
	out := t.split.left.Leaves()
	out = append(out, t.split.right.Leaves()...)
	return out
}

// Contains reports whether paneID appears anywhere in the tree.
func (t *SplitTree) Contains(paneID ids.PaneID) bool {
	if t == nil {
		return false
	}
	if t.IsLeaf() {
		return t.PaneID() == paneID
	}
	return t.split.left.Contains(paneID) || t.split.right.Contains(paneID)
}

// Drawer is a nested tree overlaying the bottom portion of a parent pane
// (spec §3: "A Pane may own an optional Drawer").
type Drawer struct {
	ParentPaneID   ids.PaneID
	Tree           *SplitTree
	ActivePaneID   ids.PaneID
}

// Tab owns a tree, an active pane, an optional zoomed pane, and a set of
// minimized pane IDs (spec §3).
type Tab struct {
	ID               ids.TabID
	Tree             *SplitTree
	ActivePaneID     ids.PaneID
	ZoomedPaneID     *ids.PaneID
	MinimizedPaneIDs map[ids.PaneID]struct{}
}

// HasSinglePane reports whether the tab's tree is a single leaf.
func (tb *Tab) HasSinglePane() bool { return tb.Tree.IsLeaf() }

// TabSnapshot is the read-only view of a Tab the resolver/validator
// consume (spec §4.7's ActionStateSnapshot.tabs).
type TabSnapshot struct {
	Tab    *Tab
	Drawer map[ids.PaneID]*Drawer // drawer owned by a pane in this tab, keyed by parent pane ID
}

// ActionStateSnapshot is the resolver/validator's sole input (spec §4.7).
type ActionStateSnapshot struct {
	Tabs                  []TabSnapshot
	ActiveTabID           *ids.TabID
	IsManagementModeActive bool
	KnownWorktreeIDs      map[ids.WorktreeID]struct{}
	DrawerParentByPaneID  map[ids.PaneID]ids.PaneID
}

func (s *ActionStateSnapshot) findTab(tabID ids.TabID) (*TabSnapshot, bool) {
	for i := range s.Tabs {
		if s.Tabs[i].Tab.ID == tabID {
			return &s.Tabs[i], true
		}
	}
	return nil, false
}

func (s *ActionStateSnapshot) activeTab() (*TabSnapshot, bool) {
	if s.ActiveTabID == nil {
		return nil, false
	}
	return s.findTab(*s.ActiveTabID)
}

// paneTab finds the tab (if any) whose layout tree contains paneID.
func (s *ActionStateSnapshot) paneTab(paneID ids.PaneID) (*TabSnapshot, bool) {
	for i := range s.Tabs {
		if s.Tabs[i].Tab.Tree.Contains(paneID) {
			return &s.Tabs[i], true
		}
	}
	return nil, false
}
