package provider

import (
	"context"
	"strings"

	"github.com/paneruntime/workbench/internal/applog"
)

// DefaultGitStatusProvider shells to `git status --porcelain=v1 --branch
// --untracked-files=normal` and `git config --get remote.origin.url`,
// implementing §4.5's external status contract. Parsing follows the same
// porcelain-parsing conventions as git's own `--branch` line grammar.
type DefaultGitStatusProvider struct {
	exec ProcessExecutor
	log  *applog.Logger
}

// NewDefaultGitStatusProvider constructs a provider backed by exec.
func NewDefaultGitStatusProvider(executor ProcessExecutor, log *applog.Logger) *DefaultGitStatusProvider {
	if log == nil {
		log = applog.Noop()
	}
	return &DefaultGitStatusProvider{exec: executor, log: log}
}

func (p *DefaultGitStatusProvider) Status(ctx context.Context, rootPath string) (*Status, bool) {
	ctx, cancel := context.WithTimeout(ctx, GitStatusTimeout)
	defer cancel()

	res, err := p.exec.Execute(ctx, "git", []string{"-C", rootPath, "status", "--porcelain=v1", "--branch", "--untracked-files=normal"}, rootPath, nil)
	if err != nil {
		p.log.Warnf("git status failed for %s: %v", rootPath, err)
		return nil, false
	}
	if !res.Succeeded {
		p.log.Warnf("git status exited %d for %s", res.ExitCode, rootPath)
		return nil, false
	}

	status, ok := ParsePorcelainStatus(res.Stdout)
	if !ok {
		return nil, false
	}

	originRes, err := p.exec.Execute(ctx, "git", []string{"-C", rootPath, "config", "--get", "remote.origin.url"}, rootPath, nil)
	if err == nil && originRes.Succeeded {
		origin := strings.TrimSpace(originRes.Stdout)
		if origin != "" {
			status.Origin = &origin
		}
	}

	return status, true
}

// ParsePorcelainStatus parses `git status --porcelain=v1 --branch` output
// per spec §4.5: the "## " branch line, "??" untracked lines, and the
// two-character XY status code for everything else.
func ParsePorcelainStatus(raw string) (*Status, bool) {
	status := &Status{}
	lines := strings.Split(raw, "\n")

	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			branch := parseBranchLine(strings.TrimPrefix(line, "## "))
			status.Branch = branch
			continue
		}
		if strings.HasPrefix(line, "??") {
			status.Untracked++
			continue
		}
		if len(line) < 2 {
			continue
		}
		if line[0] != ' ' {
			status.Staged++
		}
		if line[1] != ' ' {
			status.Changed++
		}
	}
	return status, true
}

// parseBranchLine handles "main...origin/main [ahead 1]", "HEAD (no branch)",
// and plain "main" forms, returning nil for a detached HEAD.
func parseBranchLine(branchLine string) *string {
	if strings.HasPrefix(branchLine, "HEAD") {
		return nil
	}
	name := branchLine
	if idx := strings.Index(name, "..."); idx >= 0 {
		name = name[:idx]
	} else if idx := strings.Index(name, " "); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &name
}
