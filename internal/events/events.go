// Package events defines the envelope and event taxonomy that flows across
// the pane runtime's event bus (spec §3 "Event envelope" / "Event taxonomy").
package events

import (
	"time"

	"github.com/paneruntime/workbench/internal/ids"
)

// Source identifies the producing component. Consumers use this (plus
// SourceFacets) to avoid re-consuming their own output (spec §4.5
// "Loop-prevention").
type Source string

const (
	SourceFilesystem Source = "filesystem"
	SourceGit        Source = "git-working-directory"
	SourceForge      Source = "forge"
	SourceStore      Source = "store"
)

// Envelope wraps every event posted to the bus.
type Envelope struct {
	Source        Source
	SourceFacets  map[string]string
	Seq           uint64
	CorrelationID *string
	Timestamp     time.Time
	Event         Event
}

// Event is the closed union of payloads carried on the bus. Concrete types
// below each implement it via the unexported marker method, so only this
// package's types satisfy it.
type Event interface {
	isEvent()
}

// WorktreeRegistered announces a new worktree registration.
type WorktreeRegistered struct {
	WorktreeID ids.WorktreeID
	RepoID     ids.RepoID
	RootPath   string
}

// WorktreeUnregistered announces a worktree's removal.
type WorktreeUnregistered struct {
	WorktreeID ids.WorktreeID
	RepoID     ids.RepoID
}

// Changeset is the payload of FilesChanged.
type Changeset struct {
	WorktreeID                ids.WorktreeID
	RepoID                    ids.RepoID
	RootPath                  string
	Paths                     []string
	ContainsGitInternal       bool
	SuppressedIgnoredCount    int
	SuppressedGitInternalCount int
	Timestamp                 time.Time
	BatchSeq                  uint64
}

// FilesChanged carries a flushed Changeset from the Filesystem Actor.
type FilesChanged struct {
	Changeset Changeset
}

// StatusSummary mirrors spec §3's {changed, staged, untracked} tuple.
type StatusSummary struct {
	Changed   int
	Staged    int
	Untracked int
}

// Snapshot is the payload of SnapshotChanged.
type Snapshot struct {
	WorktreeID ids.WorktreeID
	RepoID     ids.RepoID
	Summary    StatusSummary
	Branch     *string
	Origin     *string
}

// SnapshotChanged is emitted whenever the Git Working-Directory Projector
// successfully computes a new status snapshot.
type SnapshotChanged struct {
	Snapshot Snapshot
}

// BranchChanged is emitted when the observed branch name transitions between
// two non-empty values.
type BranchChanged struct {
	WorktreeID ids.WorktreeID
	RepoID     ids.RepoID
	From       string
	To         string
}

// OriginChanged is emitted when a worktree's remote origin URL changes.
type OriginChanged struct {
	RepoID ids.RepoID
	To     string
}

// WorktreeDiscovered lets a collaborator contribute a branch to a repo's
// tracked-branch set without a full snapshot (e.g. bulk worktree discovery).
type WorktreeDiscovered struct {
	RepoID ids.RepoID
	Branch string
}

// PullRequestCountsChanged carries fresh per-branch PR counts for a repo.
type PullRequestCountsChanged struct {
	RepoID        ids.RepoID
	CountsByBranch map[string]uint32
}

// RefreshFailed is emitted when a forge refresh attempt fails.
type RefreshFailed struct {
	RepoID    ids.RepoID
	ErrorText string
}

// ExpireUndoEntry is emitted by the Workspace Store Facade when a closed
// pane's undo-buffer entry's TTL elapses (spec §4.8).
type ExpireUndoEntry struct {
	PaneID ids.PaneID
}

func (WorktreeRegistered) isEvent()         {}
func (WorktreeUnregistered) isEvent()       {}
func (FilesChanged) isEvent()               {}
func (SnapshotChanged) isEvent()            {}
func (BranchChanged) isEvent()              {}
func (OriginChanged) isEvent()              {}
func (WorktreeDiscovered) isEvent()         {}
func (PullRequestCountsChanged) isEvent()   {}
func (RefreshFailed) isEvent()              {}
func (ExpireUndoEntry) isEvent()            {}
