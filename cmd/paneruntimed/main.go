package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	urfavecli "github.com/urfave/cli/v2"

	"github.com/paneruntime/workbench/internal/applog"
	"github.com/paneruntime/workbench/internal/busx"
	"github.com/paneruntime/workbench/internal/config"
	"github.com/paneruntime/workbench/internal/events"
	"github.com/paneruntime/workbench/internal/forge"
	"github.com/paneruntime/workbench/internal/fsactor"
	"github.com/paneruntime/workbench/internal/gitproject"
	"github.com/paneruntime/workbench/internal/ids"
	"github.com/paneruntime/workbench/internal/multiplexer"
	"github.com/paneruntime/workbench/internal/ownership"
	"github.com/paneruntime/workbench/internal/persist"
	"github.com/paneruntime/workbench/internal/provider"
	"github.com/paneruntime/workbench/internal/store"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cliApp := &urfavecli.App{
		Name:     "paneruntimed",
		Usage:    "Runs the pane workspace core: filesystem/git/forge projection plus the workspace store",
		Version:  version,
		Flags:    globalFlags(),
		Action:   run,
		Commands: []*urfavecli.Command{restoreSessionCommand()},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(c *urfavecli.Context) error {
	cfg, err := config.LoadConfig(c.String("config-file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	if worktreeDir := c.String("worktree-dir"); worktreeDir != "" {
		cfg.WorktreeDir = worktreeDir
	}

	if err := config.ApplyGitConfigOverlay(cfg, cfg.WorktreeDir, c.StringSlice("config")); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying git config overlay: %v\n", err)
	}

	debugLog := c.String("debug-log")
	if debugLog == "" {
		debugLog = cfg.DebugLog
	}
	log, err := applog.New(debugLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening debug log %q: %v\n", debugLog, err)
		log = applog.Noop()
	}
	defer log.Sync() //nolint:errcheck

	bus := busx.New()
	router := ownership.New(cfg.CaseInsensitiveRouting)

	watcher, err := provider.NewFSNotifyWatcher(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting filesystem watcher: %v\n", err)
		return err
	}
	defer watcher.Shutdown()

	fsActor := fsactor.New(bus, router, watcher, log, fsactor.Config{
		DebounceWindow:  cfg.DebounceWindow,
		MaxFlushLatency: cfg.MaxFlushLatency,
		ChunkSize:       cfg.ChunkSize,
		CaseInsensitive: cfg.CaseInsensitiveRouting,
	})
	defer fsActor.Shutdown()

	executor := provider.NewExecProcessExecutor()
	gitStatus := provider.NewDefaultGitStatusProvider(executor, log)
	gitProjector := gitproject.New(bus, gitStatus, log, gitproject.Config{
		CoalescingWindow: cfg.CoalescingWindow,
	})
	defer gitProjector.Shutdown()

	forgeProvider := provider.NewGitHubCLIForgeProvider(executor, log)
	forgeProjector := forge.New(bus, forgeProvider, log, forge.Config{
		PollInterval: cfg.ForgePollInterval,
	})
	defer forgeProjector.Shutdown()

	st := store.New(bus, fsActor, log, store.Config{UndoTTL: cfg.UndoTTL})
	defer st.Shutdown()

	stateFile := c.String("state-file")
	if stateFile == "" {
		stateFile = defaultStateFile()
	}

	loaded, err := persist.Load(stateFile)
	if err != nil {
		log.Warnf("persist: could not load %s, starting fresh: %v", stateFile, err)
		loaded = persist.NewWorkspaceState()
	}
	if len(loaded.Tabs) > 0 || len(loaded.Bindings) > 0 {
		if err := st.RestoreState(loaded); err != nil {
			log.Warnf("persist: could not restore state from %s: %v", stateFile, err)
		}
	}

	autosaver := persist.NewAutosaver(st, stateFile, persist.DefaultDebounceWindow, func(format string, args ...any) {
		log.Warnf(format, args...)
	})
	go autosaver.Run()
	defer func() {
		autosaver.Stop()
		if err := autosaver.SaveNow(); err != nil {
			log.Warnf("persist: final save to %s failed: %v", stateFile, err)
		}
	}()

	for _, root := range c.StringSlice("root") {
		worktreeID := ids.NewWorktreeID()
		repoID := ids.NewRepoID()
		if _, _, err := st.OpenWorktreePane(worktreeID, repoID, root); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering root %q: %v\n", root, err)
		}
	}

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if c.Bool("print-events") {
		sub := bus.Subscribe(busx.Unbounded())
		defer sub.Cancel()
		go printEvents(sub)
	}

	<-ctx.Done()
	return nil
}

// restoreSessionCommand implements "paneruntimed restore-session": it asks
// a multiplexer.SessionRestoreProvider to create-or-attach the named
// terminal multiplexer session for a worktree root, independent of the
// long-running core started by the default action.
func restoreSessionCommand() *urfavecli.Command {
	return &urfavecli.Command{
		Name:  "restore-session",
		Usage: "Create or attach to a tmux/zellij session for a worktree root",
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{Name: "multiplexer", Value: "tmux", Usage: "Which backend to use: tmux or zellij"},
			&urfavecli.StringFlag{Name: "session-name", Required: true, Usage: "Multiplexer session name to create or attach"},
			&urfavecli.StringFlag{Name: "root", Required: true, Usage: "Worktree root to open the session's windows in"},
			&urfavecli.StringFlag{Name: "on-exists", Value: "switch", Usage: "What to do if the session already exists: attach, kill, new, switch"},
			&urfavecli.BoolFlag{Name: "attach", Value: true, Usage: "Attach to the session once it is created (tmux only)"},
		},
		Action: runRestoreSession,
	}
}

func runRestoreSession(c *urfavecli.Context) error {
	executor := provider.NewExecProcessExecutor()

	var restoreProvider provider.SessionRestoreProvider
	switch c.String("multiplexer") {
	case "zellij":
		restoreProvider = multiplexer.NewZellijSessionRestoreProvider(executor)
	case "tmux":
		restoreProvider = multiplexer.NewTmuxSessionRestoreProvider(executor)
	default:
		return fmt.Errorf("restore-session: unknown --multiplexer %q (want tmux or zellij)", c.String("multiplexer"))
	}

	root := c.String("root")
	req := provider.SessionRestoreRequest{
		SessionName: c.String("session-name"),
		DefaultCwd:  root,
		Windows:     []provider.SessionWindowSpec{{Name: "shell", Cwd: root}},
		Attach:      c.Bool("attach"),
		OnExists:    c.String("on-exists"),
	}

	ctx, cancel := context.WithTimeout(c.Context, provider.DefaultSessionRestoreTimeout)
	defer cancel()

	if err := restoreProvider.Restore(ctx, req); err != nil {
		return fmt.Errorf("restore-session: %w", err)
	}
	return nil
}

// printEvents drains the bus and prints a one-line summary per envelope
// until its subscription is cancelled, the minimal "print bus traffic"
// surface this composition root exposes.
func printEvents(sub *busx.Subscription) {
	for {
		env, ok := sub.Recv()
		if !ok {
			return
		}
		printEnvelope(env)
	}
}

func printEnvelope(env events.Envelope) {
	fmt.Printf("[%s] seq=%d source=%s %T\n", env.Timestamp.Format(time.RFC3339), env.Seq, env.Source, env.Event)
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "paneruntime-state.json"
	}
	return filepath.Join(home, ".local", "share", "paneruntime", "state.json")
}
