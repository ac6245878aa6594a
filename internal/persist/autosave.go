package persist

import (
	"time"
)

// DefaultDebounceWindow matches the drag/resize debounce named for
// persistence: high-frequency structural churn (a pane being resized by
// holding a drag) coalesces into one save instead of one per tick.
const DefaultDebounceWindow = 500 * time.Millisecond

// Source is the subset of *store.Store the Autosaver depends on. Declared
// here instead of importing internal/store to keep this package a leaf:
// store already imports persist for the DTO types.
type Source interface {
	Changes() <-chan struct{}
	ExportState() WorkspaceState
}

// Autosaver watches a Source's change signal and persists its exported
// state to path, debouncing bursts of rapid changes into a single write the
// way internal/fsactor coalesces filesystem bursts via DebounceWindow.
type Autosaver struct {
	source Source
	path   string
	window time.Duration
	log    func(format string, args ...any)

	doneCh chan struct{}
}

// NewAutosaver constructs an Autosaver. window <= 0 uses DefaultDebounceWindow.
// onSaveError, if non-nil, is invoked with any error Save returns; a nil
// logger silently drops save failures, matching how callers that don't care
// about persistence (e.g. tests) can omit it.
func NewAutosaver(source Source, path string, window time.Duration, onSaveError func(format string, args ...any)) *Autosaver {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Autosaver{
		source: source,
		path:   path,
		window: window,
		log:    onSaveError,
		doneCh: make(chan struct{}),
	}
}

// Run blocks, saving on a debounce timer after each change signal, until
// Stop is called. Intended to be launched with `go autosaver.Run()`.
func (a *Autosaver) Run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-a.doneCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case _, ok := <-a.source.Changes():
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(a.window)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(a.window)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			if err := Save(a.path, a.source.ExportState()); err != nil && a.log != nil {
				a.log("persist: autosave %s: %v", a.path, err)
			}
		}
	}
}

// Stop signals Run to exit. Idempotent is not required: callers stop the
// autosaver exactly once during shutdown, mirroring fsactor.Shutdown and
// store.Shutdown.
func (a *Autosaver) Stop() {
	close(a.doneCh)
}

// SaveNow persists the source's current state immediately, bypassing the
// debounce timer. Used for the final save on clean shutdown.
func (a *Autosaver) SaveNow() error {
	return Save(a.path, a.source.ExportState())
}
