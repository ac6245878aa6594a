package paneaction

import (
	"github.com/paneruntime/workbench/internal/ids"
)

// SplitTreeDTO is the JSON-serializable projection of a SplitTree (spec §6's
// persisted workspace schema). SplitTree's fields are unexported by design
// (external packages mutate the tree only through the pure reducers in this
// package), so persist.WorkspaceState carries this DTO instead of the tree
// itself.
type SplitTreeDTO struct {
	Leaf  *ids.PaneID   `json:"leaf,omitempty"`
	Split *SplitNodeDTO `json:"split,omitempty"`
}

// SplitNodeDTO is the non-leaf case of SplitTreeDTO.
type SplitNodeDTO struct {
	ID        ids.SplitID    `json:"id"`
	Direction SplitDirection `json:"direction"`
	Ratio     float64        `json:"ratio"`
	Left      SplitTreeDTO   `json:"left"`
	Right     SplitTreeDTO   `json:"right"`
}

// ToDTO converts a SplitTree to its serializable form.
func (t *SplitTree) ToDTO() SplitTreeDTO {
	if t == nil {
		return SplitTreeDTO{}
	}
	if t.IsLeaf() {
		id := t.PaneID()
		return SplitTreeDTO{Leaf: &id}
	}
	return SplitTreeDTO{Split: &SplitNodeDTO{
		ID:        t.SplitID(),
		Direction: t.SplitDirection(),
		Ratio:     t.Ratio(),
		Left:      t.Left().ToDTO(),
		Right:     t.Right().ToDTO(),
	}}
}

// SplitTreeFromDTO rebuilds a SplitTree from its serializable form. Returns
// nil for a zero-value DTO (neither leaf nor split populated).
func SplitTreeFromDTO(dto SplitTreeDTO) *SplitTree {
	if dto.Leaf != nil {
		return NewLeaf(*dto.Leaf)
	}
	if dto.Split == nil {
		return nil
	}
	left := SplitTreeFromDTO(dto.Split.Left)
	right := SplitTreeFromDTO(dto.Split.Right)
	return NewSplit(dto.Split.ID, dto.Split.Direction, dto.Split.Ratio, left, right)
}
