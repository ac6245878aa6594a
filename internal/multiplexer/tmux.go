package multiplexer

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/paneruntime/workbench/internal/provider"
)

const tmuxExistsCheck = `tmux has-session -t "$1" 2>/dev/null`

// SanitizeTmuxSessionName removes invalid characters from a tmux session name.
func SanitizeTmuxSessionName(name string) string { return sanitizeSessionName(name) }

// ReadSessionFile reads the session name from a file, returning fallback if the file cannot be read or is empty.
func ReadSessionFile(path, fallback string) string {
	// #nosec G304 -- file path is created by the current process
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return fallback
	}
	return value
}

// resolveWindows expands environment variables into each window spec,
// falling back to a generated name and the request's default cwd.
func resolveWindows(windows []provider.SessionWindowSpec, env map[string]string, defaultCwd string) []ResolvedWindow {
	if len(windows) == 0 {
		return nil
	}
	resolved := make([]ResolvedWindow, 0, len(windows))
	for i, window := range windows {
		name := strings.TrimSpace(ExpandWithEnv(window.Name, env))
		if name == "" {
			name = fmt.Sprintf("window-%d", i+1)
		}
		cwd := strings.TrimSpace(ExpandWithEnv(window.Cwd, env))
		if cwd == "" {
			cwd = defaultCwd
		}
		command := BuildTmuxWindowCommand(strings.TrimSpace(window.Command), env)
		resolved = append(resolved, ResolvedWindow{Name: name, Command: command, Cwd: cwd})
	}
	return resolved
}

// BuildTmuxWindowCommand builds the command string for a tmux window with environment exports.
func BuildTmuxWindowCommand(command string, env map[string]string) string {
	prefix := ExportEnvCommand(env)
	if prefix != "" {
		prefix += " "
	}
	if command == "" {
		return prefix + "exec ${SHELL:-bash}"
	}
	return prefix + command
}

// tmuxSetEnvLines renders one "tmux set-environment" line per env entry, in
// sorted key order so the generated script is reproducible across runs.
func tmuxSetEnvLines(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("  tmux set-environment -t \"$session\" %s %s\n", ShellQuote(key), ShellQuote(env[key])))
	}
	return lines
}

// BuildTmuxScript generates a shell script that creates or attaches to a
// tmux session for req, honoring req.OnExists and req.Attach.
func BuildTmuxScript(req provider.SessionRestoreRequest) string {
	windows := resolveWindows(req.Windows, req.Env, req.DefaultCwd)
	if len(windows) == 0 {
		return ""
	}
	onExists := normalizeOnExists(req.OnExists)
	sessionName := sanitizeSessionName(req.SessionName)

	var b strings.Builder
	b.WriteString("set -e\n")
	b.WriteString(sessionGuardScript(sessionName, tmuxExistsCheck, `tmux kill-session -t "$session"`, onExists))

	b.WriteString("if ! session_exists \"$session\"; then\n")
	first := windows[0]
	fmt.Fprintf(&b, "  tmux new-session -d -s \"$session\" -n %s -c %s -- bash -lc %s\n",
		ShellQuote(first.Name), ShellQuote(first.Cwd), ShellQuote(first.Command))
	for _, line := range tmuxSetEnvLines(req.Env) {
		b.WriteString(line)
	}
	for _, window := range windows[1:] {
		fmt.Fprintf(&b, "  tmux new-window -t \"$session\" -n %s -c %s -- bash -lc %s\n",
			ShellQuote(window.Name), ShellQuote(window.Cwd), ShellQuote(window.Command))
	}
	b.WriteString("fi\n")

	if req.Attach {
		if onExists == OnExistsAttach {
			b.WriteString("tmux attach -t \"$session\" || true\n")
		} else {
			b.WriteString("if [ -n \"$TMUX\" ]; then tmux switch-client -t \"$session\" || true; else tmux attach -t \"$session\" || true; fi\n")
		}
	}
	return b.String()
}

// TmuxSessionRestoreProvider implements provider.SessionRestoreProvider by
// rendering BuildTmuxScript's output and running it through an injected
// ProcessExecutor.
type TmuxSessionRestoreProvider struct {
	Executor provider.ProcessExecutor
}

// NewTmuxSessionRestoreProvider constructs a tmux-backed session restore
// provider.
func NewTmuxSessionRestoreProvider(executor provider.ProcessExecutor) *TmuxSessionRestoreProvider {
	return &TmuxSessionRestoreProvider{Executor: executor}
}

func (p *TmuxSessionRestoreProvider) Name() string { return "tmux" }

func (p *TmuxSessionRestoreProvider) Restore(ctx context.Context, req provider.SessionRestoreRequest) error {
	script := BuildTmuxScript(req)
	if script == "" {
		return fmt.Errorf("multiplexer: tmux restore for %q has no windows to create", req.SessionName)
	}
	result, err := p.Executor.Execute(ctx, "bash", []string{"-c", script}, req.DefaultCwd, req.Env)
	if err != nil {
		return fmt.Errorf("multiplexer: tmux restore for %q: %w", req.SessionName, err)
	}
	if !result.Succeeded {
		return fmt.Errorf("multiplexer: tmux restore for %q exited %d: %s", req.SessionName, result.ExitCode, result.Stderr)
	}
	return nil
}
