package fsactor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/events"
	"github.com/paneruntime/workbench/internal/fsactor"
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/ownership"
	"github.com/paneruntime/workbench/internal/provider"
)

func newActor(t *testing.T, cfg fsactor.Config) (*fsactor.Actor, *busx.Bus, func()) {
	t.Helper()
	bus := busx.New()
	router := ownership.New(boolPtr(false))
	watcher := provider.NewNoopFSEventStreamClient()
	a := fsactor.New(bus, router, watcher, nil, cfg)
	return a, bus, func() { a.Shutdown() }
}

func boolPtr(b bool) *bool { return &b }

func filesChangedEnvelopes(sub *busx.Subscription, want int, timeout time.Duration) []events.FilesChanged {
	var out []events.FilesChanged
	deadline := time.Now().Add(timeout)
	for len(out) < want && time.Now().Before(deadline) {
		env, ok := sub.TryRecv()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if fc, ok := env.Event.(events.FilesChanged); ok {
			out = append(out, fc)
		}
	}
	return out
}

// TestDeepestRootOwnershipScenario matches spec §8 scenario 1 end-to-end
// through the actor: register A=/repo and B=/repo/sub, enqueue a path
// against source A, expect the FilesChanged to be scoped to B.
func TestDeepestRootOwnershipScenario(t *testing.T) {
	dirA := t.TempDir()
	dirB := filepath.Join(dirA, "sub")
	require.NoError(t, os.MkdirAll(dirB, 0o755))

	a, bus, cleanup := newActor(t, fsactor.Config{DebounceWindow: 20 * time.Millisecond, MaxFlushLatency: 50 * time.Millisecond})
	defer cleanup()

	sub := bus.Subscribe(busx.Unbounded())

	worktreeA := ids.NewWorktreeID()
	worktreeB := ids.NewWorktreeID()
	require.NoError(t, a.Register(worktreeA, ids.NewRepoID(), dirA))
	require.NoError(t, a.Register(worktreeB, ids.NewRepoID(), dirB))

	a.EnqueueRawPaths(worktreeA, []string{filepath.Join(dirB, "x.txt")})

	got := filesChangedEnvelopes(sub, 1, 500*time.Millisecond)
	require.Len(t, got, 1)
	require.Equal(t, worktreeB, got[0].Changeset.WorktreeID)
	require.Equal(t, []string{"x.txt"}, got[0].Changeset.Paths)
}

// TestRegisterResolvesSymlinkedRoot matches spec §4.3: a worktree root
// reached through a symlink must still route (and nest) correctly, since
// the registered canonical path and the path fsnotify reports for changes
// underneath it must agree.
func TestRegisterResolvesSymlinkedRoot(t *testing.T) {
	realDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(realDir, "sub"), 0o755))

	linkDir := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(realDir, linkDir))

	a, bus, cleanup := newActor(t, fsactor.Config{DebounceWindow: 20 * time.Millisecond, MaxFlushLatency: 50 * time.Millisecond})
	defer cleanup()
	sub := bus.Subscribe(busx.Unbounded())

	worktreeID := ids.NewWorktreeID()
	// Register through the symlink; fsnotify-style consumers always report
	// paths through the real (resolved) directory.
	require.NoError(t, a.Register(worktreeID, ids.NewRepoID(), linkDir))

	a.EnqueueRawPaths(worktreeID, []string{filepath.Join(realDir, "sub", "x.txt")})

	got := filesChangedEnvelopes(sub, 1, 500*time.Millisecond)
	require.Len(t, got, 1)
	require.Equal(t, worktreeID, got[0].Changeset.WorktreeID)
	require.Equal(t, []string{filepath.Join("sub", "x.txt")}, got[0].Changeset.Paths)
}

// TestMaxFlushLatencyForcesFlushUnderContinuousChurn matches spec §8
// scenario 2: a steady stream of changes, each arriving within the
// debounce window (so debounce alone never goes quiet), must still force
// a flush once MaxFlushLatency has elapsed since the oldest pending
// change.
func TestMaxFlushLatencyForcesFlushUnderContinuousChurn(t *testing.T) {
	dir := t.TempDir()
	a, bus, cleanup := newActor(t, fsactor.Config{
		DebounceWindow:  80 * time.Millisecond,
		MaxFlushLatency: 150 * time.Millisecond,
	})
	defer cleanup()
	sub := bus.Subscribe(busx.Unbounded())

	worktreeID := ids.NewWorktreeID()
	require.NoError(t, a.Register(worktreeID, ids.NewRepoID(), dir))

	stop := time.Now().Add(400 * time.Millisecond)
	i := 0
	for time.Now().Before(stop) {
		a.EnqueueRawPaths(worktreeID, []string{filepath.Join(dir, "file"+itoa(i)+".txt")})
		i++
		time.Sleep(30 * time.Millisecond)
	}

	got := filesChangedEnvelopes(sub, 1, 600*time.Millisecond)
	require.NotEmpty(t, got, "continuous churn within the debounce window must still flush at MaxFlushLatency")
}

// TestChunkingAt257Paths matches spec §8's boundary behavior: 257 paths ->
// exactly two envelopes (256 + 1) with strictly increasing batch_seq.
func TestChunkingAt257Paths(t *testing.T) {
	dir := t.TempDir()
	a, bus, cleanup := newActor(t, fsactor.Config{DebounceWindow: 20 * time.Millisecond, MaxFlushLatency: 50 * time.Millisecond})
	defer cleanup()
	sub := bus.Subscribe(busx.Unbounded())

	worktreeID := ids.NewWorktreeID()
	require.NoError(t, a.Register(worktreeID, ids.NewRepoID(), dir))

	paths := make([]string, 257)
	for i := range paths {
		paths[i] = filepath.Join(dir, "file"+itoa(i)+".txt")
	}
	a.EnqueueRawPaths(worktreeID, paths)

	got := filesChangedEnvelopes(sub, 2, 500*time.Millisecond)
	require.Len(t, got, 2)
	require.Len(t, got[0].Changeset.Paths, 256)
	require.Len(t, got[1].Changeset.Paths, 1)
	require.Less(t, got[0].Changeset.BatchSeq, got[1].Changeset.BatchSeq)
}

// TestEmptyChangesetWithSuppressionEmitsOneEnvelope matches spec §8's
// boundary behavior for suppressed-only batches.
func TestEmptyChangesetWithSuppressionEmitsOneEnvelope(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n"), 0o644))

	a, bus, cleanup := newActor(t, fsactor.Config{DebounceWindow: 20 * time.Millisecond, MaxFlushLatency: 50 * time.Millisecond})
	defer cleanup()
	sub := bus.Subscribe(busx.Unbounded())

	worktreeID := ids.NewWorktreeID()
	require.NoError(t, a.Register(worktreeID, ids.NewRepoID(), dir))

	a.EnqueueRawPaths(worktreeID, []string{filepath.Join(dir, "debug.log")})

	got := filesChangedEnvelopes(sub, 1, 500*time.Millisecond)
	require.Len(t, got, 1)
	require.Empty(t, got[0].Changeset.Paths)
	require.Equal(t, 1, got[0].Changeset.SuppressedIgnoredCount)
}

// TestPriorityFlushOrder matches spec §8 scenario 3: W1 background, W2
// active-not-focused, W3 active-and-focused -> flush order W3, W2, W1.
func TestPriorityFlushOrder(t *testing.T) {
	dir1, dir2, dir3 := t.TempDir(), t.TempDir(), t.TempDir()
	a, bus, cleanup := newActor(t, fsactor.Config{DebounceWindow: 30 * time.Millisecond, MaxFlushLatency: 2 * time.Second})
	defer cleanup()
	sub := bus.Subscribe(busx.Unbounded())

	w1, w2, w3 := ids.NewWorktreeID(), ids.NewWorktreeID(), ids.NewWorktreeID()
	require.NoError(t, a.Register(w1, ids.NewRepoID(), dir1))
	require.NoError(t, a.Register(w2, ids.NewRepoID(), dir2))
	require.NoError(t, a.Register(w3, ids.NewRepoID(), dir3))

	a.SetActivity(w2, true)
	a.SetActivity(w3, true)
	a.SetActivePaneWorktree(&w3)

	a.EnqueueRawPaths(w1, []string{filepath.Join(dir1, "a.txt")})
	a.EnqueueRawPaths(w2, []string{filepath.Join(dir2, "a.txt")})
	a.EnqueueRawPaths(w3, []string{filepath.Join(dir3, "a.txt")})

	got := filesChangedEnvelopes(sub, 3, 800*time.Millisecond)
	require.Len(t, got, 3)
	require.Equal(t, w3, got[0].Changeset.WorktreeID)
	require.Equal(t, w2, got[1].Changeset.WorktreeID)
	require.Equal(t, w1, got[2].Changeset.WorktreeID)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
