package multiplexer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/paneruntime/workbench/internal/provider"
)

const (
	zellijExistsCheck = `zellij list-sessions --short --no-formatting 2>/dev/null | grep -Fxq "$1"`
	zellijWaitTries   = 50
	zellijWaitStep    = "0.1"
)

// SanitizeZellijSessionName removes invalid characters from a zellij session name.
func SanitizeZellijSessionName(name string) string { return sanitizeSessionName(name) }

// KdlQuote quotes a string for use in KDL (Zellij layout format).
func KdlQuote(input string) string {
	escaped := strings.ReplaceAll(input, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return "\"" + escaped + "\""
}

// BuildZellijTabLayout generates a KDL layout for a single zellij tab.
func BuildZellijTabLayout(window ResolvedWindow) string {
	var b strings.Builder
	b.WriteString("layout {\n")
	fmt.Fprintf(&b, "    tab name=%s {\n", KdlQuote(window.Name))
	b.WriteString("        pane {\n")
	if window.Cwd != "" {
		fmt.Fprintf(&b, "            cwd %s\n", KdlQuote(window.Cwd))
	}
	fmt.Fprintf(&b, "            command %s\n", KdlQuote("bash"))
	fmt.Fprintf(&b, "            args %s %s\n", KdlQuote("-lc"), KdlQuote(window.Command))
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}

// WriteZellijLayouts creates one temporary KDL layout file per window.
// Caller must remove them via CleanupZellijLayouts; on a partial write
// failure the layouts created so far are cleaned up before returning.
func WriteZellijLayouts(windows []ResolvedWindow) ([]string, error) {
	paths := make([]string, 0, len(windows))
	for _, window := range windows {
		path, err := writeOneZellijLayout(window)
		if err != nil {
			CleanupZellijLayouts(paths)
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeOneZellijLayout(window ResolvedWindow) (string, error) {
	layoutFile, err := os.CreateTemp("", "paneruntime-zellij-layout-")
	if err != nil {
		return "", err
	}
	if _, err := layoutFile.WriteString(BuildZellijTabLayout(window)); err != nil {
		_ = layoutFile.Close()
		_ = os.Remove(layoutFile.Name())
		return "", err
	}
	if err := layoutFile.Close(); err != nil {
		_ = os.Remove(layoutFile.Name())
		return "", err
	}
	return layoutFile.Name(), nil
}

// CleanupZellijLayouts removes temporary layout files.
func CleanupZellijLayouts(paths []string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// zellijTabLoadScript renders the lines that load each layout path as a new
// tab in the freshly created session, then closes the placeholder first
// tab zellij opens by default.
func zellijTabLoadScript(layoutPaths []string) string {
	if len(layoutPaths) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("if [ \"$created\" = \"true\" ]; then\n")
	for _, layoutPath := range layoutPaths {
		fmt.Fprintf(&b, "  ZELLIJ_SESSION_NAME=\"$session\" zellij action new-tab --layout %s\n", ShellQuote(layoutPath))
	}
	b.WriteString("  ZELLIJ_SESSION_NAME=\"$session\" zellij action go-to-tab 1\n")
	b.WriteString("  ZELLIJ_SESSION_NAME=\"$session\" zellij action close-tab\n")
	b.WriteString("fi\n")
	return b.String()
}

// BuildZellijScript generates a shell script that creates or attaches to a
// zellij session for req and loads layoutPaths as tabs.
func BuildZellijScript(req provider.SessionRestoreRequest, layoutPaths []string) string {
	onExists := normalizeOnExists(req.OnExists)
	sessionName := sanitizeSessionName(req.SessionName)

	var b strings.Builder
	b.WriteString("set -e\n")
	b.WriteString(sessionGuardScript(sessionName, zellijExistsCheck, `zellij kill-session "$session"`, onExists))

	b.WriteString("created=false\n")
	b.WriteString("if ! session_exists \"$session\"; then\n")
	b.WriteString("  zellij attach --create-background \"$session\"\n")
	b.WriteString("  created=true\n")
	b.WriteString("  tries=0\n")
	fmt.Fprintf(&b, "  while ! session_exists \"$session\"; do\n    sleep %s\n    tries=$((tries+1))\n    if [ $tries -ge %d ]; then echo \"Timeout waiting for zellij session\" >&2; exit 1; fi\n  done\n",
		zellijWaitStep, zellijWaitTries)
	b.WriteString("fi\n")
	b.WriteString(zellijTabLoadScript(layoutPaths))
	return b.String()
}

// ZellijSessionRestoreProvider implements provider.SessionRestoreProvider
// using per-window KDL layout files and BuildZellijScript, run through an
// injected ProcessExecutor.
type ZellijSessionRestoreProvider struct {
	Executor provider.ProcessExecutor
}

// NewZellijSessionRestoreProvider constructs a zellij-backed session
// restore provider.
func NewZellijSessionRestoreProvider(executor provider.ProcessExecutor) *ZellijSessionRestoreProvider {
	return &ZellijSessionRestoreProvider{Executor: executor}
}

func (p *ZellijSessionRestoreProvider) Name() string { return "zellij" }

func (p *ZellijSessionRestoreProvider) Restore(ctx context.Context, req provider.SessionRestoreRequest) error {
	windows := resolveWindows(req.Windows, req.Env, req.DefaultCwd)
	if len(windows) == 0 {
		return fmt.Errorf("multiplexer: zellij restore for %q has no windows to create", req.SessionName)
	}

	layoutPaths, err := WriteZellijLayouts(windows)
	if err != nil {
		return fmt.Errorf("multiplexer: writing zellij layouts for %q: %w", req.SessionName, err)
	}
	defer CleanupZellijLayouts(layoutPaths)

	script := BuildZellijScript(req, layoutPaths)
	result, err := p.Executor.Execute(ctx, "bash", []string{"-c", script}, req.DefaultCwd, req.Env)
	if err != nil {
		return fmt.Errorf("multiplexer: zellij restore for %q: %w", req.SessionName, err)
	}
	if !result.Succeeded {
		return fmt.Errorf("multiplexer: zellij restore for %q exited %d: %s", req.SessionName, result.ExitCode, result.Stderr)
	}
	return nil
}
