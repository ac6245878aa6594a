// Package provider defines the polymorphic collaborator interfaces the
// pane runtime depends on (spec §6, §9 "Dynamic dispatch / protocols"):
// the filesystem watcher, the process executor, and the git/forge status
// providers. Each ships a real default implementation; the watcher and the
// git/forge status providers also ship a Noop stand-in for bring-up and
// tests (the process executor has none). Every dependency on an external
// process is injected rather than reached for as a package-level global.
package provider

import (
	"context"
	"time"

	"github.com/paneruntime/workbench/internal/ids"
)

// FSEventBatch is a raw notification batch from the filesystem watcher,
// not yet classified or routed.
type FSEventBatch struct {
	WorktreeID ids.WorktreeID
	Paths      []string
}

// FSEventStreamClient is the inbound filesystem watcher boundary (spec §6).
// On macOS the natural backing is FSEvents; any recursive directory-watch
// API satisfies this contract. The stream is expected to coalesce bursts at
// the OS level; application-level debouncing happens in internal/fsactor.
type FSEventStreamClient interface {
	Subscribe() <-chan FSEventBatch
	Register(worktreeID ids.WorktreeID, repoID ids.RepoID, rootPath string) error
	Unregister(worktreeID ids.WorktreeID) error
	Shutdown()
}

// ProcessResult is the outcome of a single external command invocation.
type ProcessResult struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Succeeded bool
}

// ProcessError reports an executor-level failure distinct from a non-zero
// exit code (spec §6).
type ProcessError struct {
	Command string
	Seconds float64
	TimedOut bool
	Err      error
}

func (e *ProcessError) Error() string {
	if e.TimedOut {
		return "process timed out: " + e.Command
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "process error: " + e.Command
}

func (e *ProcessError) Unwrap() error { return e.Err }

// ProcessExecutor runs external commands (git, gh) with a bounded timeout.
// The default implementation applies a 2s timeout unless overridden via
// context.
type ProcessExecutor interface {
	Execute(ctx context.Context, command string, args []string, cwd string, env map[string]string) (ProcessResult, error)
}

// DefaultProcessTimeout matches spec §6's default for ProcessExecutor.
const DefaultProcessTimeout = 2 * time.Second

// GitStatusTimeout is the timeout for `git status` invocations (spec §4.5,
// §5).
const GitStatusTimeout = 2 * time.Second

// ForgeRefreshTimeout is the timeout for `gh pr list` invocations (spec §5).
const ForgeRefreshTimeout = 8 * time.Second

// Status is the parsed result of a git status invocation.
type Status struct {
	Branch    *string
	Origin    *string
	Changed   int
	Staged    int
	Untracked int
}

// GitWorkingTreeStatusProvider computes working-tree status for a worktree
// root (spec §4.5).
type GitWorkingTreeStatusProvider interface {
	Status(ctx context.Context, rootPath string) (*Status, bool)
}

// ForgeStatusProvider fetches pull-request counts per branch for a repo
// (spec §4.6).
type ForgeStatusProvider interface {
	Name() string
	PullRequestCounts(ctx context.Context, origin string, branches []string) (map[string]uint32, error)
}

// SessionWindowSpec describes one window/tab a restored multiplexer session
// should open (spec §1: "Session/tmux/zellij restore backends").
type SessionWindowSpec struct {
	Name    string
	Command string
	Cwd     string
}

// SessionRestoreRequest is a backend-agnostic description of a session a
// SessionRestoreProvider should create-or-attach-to for a worktree.
type SessionRestoreRequest struct {
	WorktreeID  ids.WorktreeID
	SessionName string
	Windows     []SessionWindowSpec
	Env         map[string]string
	DefaultCwd  string
	Attach      bool
	OnExists    string // one of "attach", "kill", "new", "switch"
}

// DefaultSessionRestoreTimeout bounds a single session create-or-attach
// invocation; session scripts spawn background multiplexer servers and
// return promptly once the session exists.
const DefaultSessionRestoreTimeout = 10 * time.Second

// SessionRestoreProvider recreates a terminal multiplexer session for a
// worktree's panes (spec §1: "a provider abstraction is specified;
// implementations are not"). Concrete backends live in internal/multiplexer.
type SessionRestoreProvider interface {
	Name() string
	Restore(ctx context.Context, req SessionRestoreRequest) error
}
