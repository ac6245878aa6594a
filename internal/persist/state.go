// Package persist implements the Workspace Store's JSON persistence (spec
// §6: "The Workspace Store serializes its model as JSON with a
// schema_version: u32"). schema_version 2 is current; version 1 is
// discarded outright (greenfield) rather than migrated; unknown future
// versions fail safe by returning an error instead of a partially decoded
// state.
//
// Reads and writes go straight through os.ReadFile/os.WriteFile over a JSON
// payload with 0o600 perms; there's no temp-file-then-rename dance.
package persist

import (
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/paneaction"
)

// CurrentSchemaVersion is the schema_version this package writes and the
// only version it hydrates on load.
const CurrentSchemaVersion uint32 = 2

// discardedSchemaVersion is the legacy version spec §6 says to discard
// rather than migrate.
const discardedSchemaVersion uint32 = 1

// TabState is the persisted projection of a paneaction.Tab.
type TabState struct {
	ID               ids.TabID               `json:"id"`
	Tree             paneaction.SplitTreeDTO `json:"tree"`
	ActivePaneID     ids.PaneID              `json:"active_pane_id"`
	ZoomedPaneID     *ids.PaneID             `json:"zoomed_pane_id,omitempty"`
	MinimizedPaneIDs []ids.PaneID            `json:"minimized_pane_ids,omitempty"`
}

// DrawerState is the persisted projection of a paneaction.Drawer.
type DrawerState struct {
	ParentPaneID ids.PaneID              `json:"parent_pane_id"`
	Tree         paneaction.SplitTreeDTO `json:"tree"`
	ActivePaneID ids.PaneID              `json:"active_pane_id"`
}

// BindingState is the persisted projection of a store.WorktreeBinding,
// keyed by the pane it's attached to.
type BindingState struct {
	PaneID     ids.PaneID     `json:"pane_id"`
	WorktreeID ids.WorktreeID `json:"worktree_id"`
	RepoID     ids.RepoID     `json:"repo_id"`
	RootPath   string         `json:"root_path"`
}

// WorkspaceState is the Workspace Store's full persisted model: tabs,
// drawers, the active tab, and pane-to-worktree bindings. Non-structural
// state (window frame, sidebar width) is out of scope per spec §6 — this
// package only ever carries structural workspace state.
type WorkspaceState struct {
	SchemaVersion uint32         `json:"schema_version"`
	Tabs          []TabState     `json:"tabs"`
	ActiveTabID   *ids.TabID     `json:"active_tab_id,omitempty"`
	Drawers       []DrawerState  `json:"drawers"`
	Bindings      []BindingState `json:"bindings"`
}

// NewWorkspaceState returns an empty state stamped with the current schema
// version, the shape a fresh workspace (or a discarded v1 file) starts from.
func NewWorkspaceState() WorkspaceState {
	return WorkspaceState{SchemaVersion: CurrentSchemaVersion}
}
