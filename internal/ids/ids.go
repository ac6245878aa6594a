// Package ids defines the identifier and time types shared across the
// pane runtime: 128-bit UUIDs for every entity, and a monotonic instant
// used for scheduling decisions (debounce, max-latency, TTLs).
package ids

import (
	"time"

	"github.com/google/uuid"
)

// WorktreeID identifies a single worktree registration.
type WorktreeID uuid.UUID

// RepoID identifies the repository a worktree belongs to.
type RepoID uuid.UUID

// PaneID identifies a pane within a tab or drawer tree.
type PaneID uuid.UUID

// TabID identifies a tab within the workspace.
type TabID uuid.UUID

// SplitID identifies a split node within a SplitTree.
type SplitID uuid.UUID

// NewWorktreeID mints a new random WorktreeID.
func NewWorktreeID() WorktreeID { return WorktreeID(uuid.New()) }

// NewRepoID mints a new random RepoID.
func NewRepoID() RepoID { return RepoID(uuid.New()) }

// NewPaneID mints a new random PaneID.
func NewPaneID() PaneID { return PaneID(uuid.New()) }

// NewTabID mints a new random TabID.
func NewTabID() TabID { return TabID(uuid.New()) }

// NewSplitID mints a new random SplitID.
func NewSplitID() SplitID { return SplitID(uuid.New()) }

func (w WorktreeID) String() string { return uuid.UUID(w).String() }
func (r RepoID) String() string     { return uuid.UUID(r).String() }
func (p PaneID) String() string     { return uuid.UUID(p).String() }
func (t TabID) String() string      { return uuid.UUID(t).String() }
func (s SplitID) String() string    { return uuid.UUID(s).String() }

// ParseWorktreeID parses a canonical UUID string into a WorktreeID.
func ParseWorktreeID(s string) (WorktreeID, error) {
	u, err := uuid.Parse(s)
	return WorktreeID(u), err
}

// ParseRepoID parses a canonical UUID string into a RepoID.
func ParseRepoID(s string) (RepoID, error) {
	u, err := uuid.Parse(s)
	return RepoID(u), err
}

// ParsePaneID parses a canonical UUID string into a PaneID.
func ParsePaneID(s string) (PaneID, error) {
	u, err := uuid.Parse(s)
	return PaneID(u), err
}

// ParseTabID parses a canonical UUID string into a TabID.
func ParseTabID(s string) (TabID, error) {
	u, err := uuid.Parse(s)
	return TabID(u), err
}

// ParseSplitID parses a canonical UUID string into a SplitID.
func ParseSplitID(s string) (SplitID, error) {
	u, err := uuid.Parse(s)
	return SplitID(u), err
}

// Zero reports whether the WorktreeID is the nil UUID.
func (w WorktreeID) Zero() bool { return w == WorktreeID{} }

// MarshalText implements encoding.TextMarshaler so every ID type round-trips
// through JSON as its canonical UUID string (spec §6's persisted schema).
func (w WorktreeID) MarshalText() ([]byte, error) { return uuid.UUID(w).MarshalText() }
func (r RepoID) MarshalText() ([]byte, error)     { return uuid.UUID(r).MarshalText() }
func (p PaneID) MarshalText() ([]byte, error)     { return uuid.UUID(p).MarshalText() }
func (t TabID) MarshalText() ([]byte, error)      { return uuid.UUID(t).MarshalText() }
func (s SplitID) MarshalText() ([]byte, error)    { return uuid.UUID(s).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler, the counterpart to
// MarshalText.
func (w *WorktreeID) UnmarshalText(text []byte) error { return (*uuid.UUID)(w).UnmarshalText(text) }
func (r *RepoID) UnmarshalText(text []byte) error     { return (*uuid.UUID)(r).UnmarshalText(text) }
func (p *PaneID) UnmarshalText(text []byte) error     { return (*uuid.UUID)(p).UnmarshalText(text) }
func (t *TabID) UnmarshalText(text []byte) error      { return (*uuid.UUID)(t).UnmarshalText(text) }
func (s *SplitID) UnmarshalText(text []byte) error    { return (*uuid.UUID)(s).UnmarshalText(text) }

// Instant is a monotonic point in time used for all scheduling decisions.
// A wall-clock Timestamp is carried separately and only for display.
type Instant struct {
	mono time.Time
}

// Now returns the current Instant using the monotonic clock reading
// embedded in time.Time by the Go runtime.
func Now() Instant { return Instant{mono: time.Now()} }

// Add returns the Instant offset by d.
func (i Instant) Add(d time.Duration) Instant { return Instant{mono: i.mono.Add(d)} }

// Before reports whether i occurs before o.
func (i Instant) Before(o Instant) bool { return i.mono.Before(o.mono) }

// Sub returns the duration between two instants (i - o).
func (i Instant) Sub(o Instant) time.Duration { return i.mono.Sub(o.mono) }

// IsZero reports whether this Instant was never set.
func (i Instant) IsZero() bool { return i.mono.IsZero() }

// WallClock returns the wall-clock time for display purposes only; it must
// never be used for ordering or scheduling decisions.
func (i Instant) WallClock() time.Time { return i.mono }
