package paneaction

import "github.com/paneruntime/workbench/internal/ids"

// InsertPane returns a new tree with newPane inserted as a sibling of
// targetPane, split in direction, with a fresh split ID and a 0.5 ratio.
// ok is false if targetPane is not present in the tree.
func InsertPane(tree *SplitTree, targetPane ids.PaneID, newPane ids.PaneID, splitID ids.SplitID, direction Direction) (*SplitTree, bool) {
	if tree == nil {
		return nil, false
	}
	if tree.IsLeaf() {
		if tree.PaneID() != targetPane {
			return tree, false
		}
		return buildSplitAround(NewLeaf(targetPane), NewLeaf(newPane), splitID, direction), true
	}

	left, leftOK := InsertPane(tree.Left(), targetPane, newPane, splitID, direction)
	if leftOK {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), left, tree.Right()), true
	}
	right, rightOK := InsertPane(tree.Right(), targetPane, newPane, splitID, direction)
	if rightOK {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), tree.Left(), right), true
	}
	return tree, false
}

// GraftTree returns a new tree with targetPane replaced by a split between
// its former leaf and the root of subtree, ordered by direction. It is
// InsertPane's generalization for MergeTab, where the inserted content is an
// entire dragged tab's tree rather than a single fresh leaf.
func GraftTree(tree *SplitTree, targetPane ids.PaneID, subtree *SplitTree, splitID ids.SplitID, direction Direction) (*SplitTree, bool) {
	if tree == nil || subtree == nil {
		return tree, false
	}
	if tree.IsLeaf() {
		if tree.PaneID() != targetPane {
			return tree, false
		}
		return buildSplitAround(NewLeaf(targetPane), subtree, splitID, direction), true
	}

	left, leftOK := GraftTree(tree.Left(), targetPane, subtree, splitID, direction)
	if leftOK {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), left, tree.Right()), true
	}
	right, rightOK := GraftTree(tree.Right(), targetPane, subtree, splitID, direction)
	if rightOK {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), tree.Left(), right), true
	}
	return tree, false
}

// buildSplitAround wraps existing (the leaf being split) and fresh in a new
// split node ordered so that Left/Right direction commands put fresh to
// the expected side.
func buildSplitAround(existing, fresh *SplitTree, splitID ids.SplitID, direction Direction) *SplitTree {
	switch direction {
	case Right:
		return NewSplit(splitID, Horizontal, 0.5, existing, fresh)
	case Left:
		return NewSplit(splitID, Horizontal, 0.5, fresh, existing)
	case Down:
		return NewSplit(splitID, Vertical, 0.5, existing, fresh)
	default: // Up
		return NewSplit(splitID, Vertical, 0.5, fresh, existing)
	}
}

// RemovePane returns a new tree with paneID removed, collapsing its parent
// split and promoting the sibling subtree in its place (spec §3 invariant
// 4: splits never have more than two children, so removal always
// collapses exactly one level). ok is false if the tree becomes empty
// (paneID was the tree's only leaf) or paneID was not found.
func RemovePane(tree *SplitTree, paneID ids.PaneID) (*SplitTree, bool) {
	if tree == nil || tree.IsLeaf() {
		return tree, false // caller must detect "last pane in tab" before calling
	}

	left, right := tree.Left(), tree.Right()
	if left.IsLeaf() && left.PaneID() == paneID {
		return right, true
	}
	if right.IsLeaf() && right.PaneID() == paneID {
		return left, true
	}

	if newLeft, ok := RemovePane(left, paneID); ok {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), newLeft, right), true
	}
	if newRight, ok := RemovePane(right, paneID); ok {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), left, newRight), true
	}
	return tree, false
}

// ResizeSplit returns a new tree with the split identified by splitID
// resized to ratio (clamped per invariant 4). ok is false if splitID is
// not present.
func ResizeSplit(tree *SplitTree, splitID ids.SplitID, ratio float64) (*SplitTree, bool) {
	if tree == nil || tree.IsLeaf() {
		return tree, false
	}
	if tree.SplitID() == splitID {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), ratio, tree.Left(), tree.Right()), true
	}
	if left, ok := ResizeSplit(tree.Left(), splitID, ratio); ok {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), left, tree.Right()), true
	}
	if right, ok := ResizeSplit(tree.Right(), splitID, ratio); ok {
		return NewSplit(tree.SplitID(), tree.SplitDirection(), tree.Ratio(), tree.Left(), right), true
	}
	return tree, false
}

// rect is a unit-square sub-rectangle used by Neighbor's geometric search.
type rect struct {
	x0, y0, x1, y1 float64
}

// leafRects walks the tree, assigning each leaf a rectangle within the
// unit square according to split ratios and orientation.
func leafRects(tree *SplitTree, r rect, out map[ids.PaneID]rect) {
	if tree == nil {
		return
	}
	if tree.IsLeaf() {
		out[tree.PaneID()] = r
		return
	}
	if tree.SplitDirection() == Horizontal {
		splitX := r.x0 + (r.x1-r.x0)*tree.Ratio()
		leafRects(tree.Left(), rect{r.x0, r.y0, splitX, r.y1}, out)
		leafRects(tree.Right(), rect{splitX, r.y0, r.x1, r.y1}, out)
	} else {
		splitY := r.y0 + (r.y1-r.y0)*tree.Ratio()
		leafRects(tree.Left(), rect{r.x0, r.y0, r.x1, splitY}, out)
		leafRects(tree.Right(), rect{r.x0, splitY, r.x1, r.y1}, out)
	}
}

// Neighbor finds the geometrically nearest leaf in direction from
// fromPane, per spec §4.7's "use tree topology to find a neighbor."
// Candidates must overlap fromPane's extent on the perpendicular axis and
// lie beyond it on the primary axis; ties break on proximity then
// traversal order.
func Neighbor(tree *SplitTree, fromPane ids.PaneID, direction Direction) (ids.PaneID, bool) {
	rects := make(map[ids.PaneID]rect)
	leafRects(tree, rect{0, 0, 1, 1}, rects)

	from, ok := rects[fromPane]
	if !ok {
		return ids.PaneID{}, false
	}

	var best ids.PaneID
	haveBest := false
	var bestDist float64

	for _, leaf := range tree.Leaves() {
		if leaf == fromPane {
			continue
		}
		r := rects[leaf]
		var dist float64
		var eligible bool
		switch direction {
		case Left:
			eligible = r.x1 <= from.x0 && overlapsY(r, from)
			dist = from.x0 - r.x1
		case Right:
			eligible = r.x0 >= from.x1 && overlapsY(r, from)
			dist = r.x0 - from.x1
		case Up:
			eligible = r.y1 <= from.y0 && overlapsX(r, from)
			dist = from.y0 - r.y1
		case Down:
			eligible = r.y0 >= from.y1 && overlapsX(r, from)
			dist = r.y0 - from.y1
		}
		if !eligible {
			continue
		}
		if !haveBest || dist < bestDist {
			best = leaf
			bestDist = dist
			haveBest = true
		}
	}
	return best, haveBest
}

func overlapsX(a, b rect) bool { return a.x0 < b.x1 && b.x0 < a.x1 }
func overlapsY(a, b rect) bool { return a.y0 < b.y1 && b.y0 < a.y1 }
