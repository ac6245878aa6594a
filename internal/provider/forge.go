package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paneruntime/workbench/internal/applog"
	"github.com/paneruntime/workbench/internal/ids"
)

// GitHubCLIForgeProvider shells to `gh pr list --repo <slug> --state open
// --json headRefName --limit 200` and counts PRs per known branch,
// implementing §4.6 and §6's "gh pr list parsing" contract via a plain
// JSON-array decode of the `gh` output.
type GitHubCLIForgeProvider struct {
	exec ProcessExecutor
	log  *applog.Logger
}

// NewGitHubCLIForgeProvider constructs a provider backed by exec.
func NewGitHubCLIForgeProvider(executor ProcessExecutor, log *applog.Logger) *GitHubCLIForgeProvider {
	if log == nil {
		log = applog.Noop()
	}
	return &GitHubCLIForgeProvider{exec: executor, log: log}
}

func (p *GitHubCLIForgeProvider) Name() string { return "github-cli" }

func (p *GitHubCLIForgeProvider) PullRequestCounts(ctx context.Context, origin string, branches []string) (map[string]uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, ForgeRefreshTimeout)
	defer cancel()

	slug, err := RepoSlugFromOrigin(origin)
	if err != nil {
		return nil, fmt.Errorf("resolving repo slug: %w", err)
	}

	res, err := p.exec.Execute(ctx, "gh", []string{
		"pr", "list", "--repo", slug, "--state", "open", "--json", "headRefName", "--limit", "200",
	}, "", nil)
	if err != nil {
		return nil, fmt.Errorf("gh pr list: %w", err)
	}
	if !res.Succeeded {
		return nil, fmt.Errorf("gh pr list exited %d: %s", res.ExitCode, res.Stderr)
	}

	return ParsePullRequestCounts(res.Stdout, branches)
}

// ParsePullRequestCounts parses gh's JSON array of {headRefName} objects and
// counts occurrences per tracked branch; branches not in the tracked set
// are ignored, and tracked branches with zero PRs are reported as zero
// (spec §6).
func ParsePullRequestCounts(raw string, branches []string) (map[string]uint32, error) {
	var prs []struct {
		HeadRefName string `json:"headRefName"`
	}
	if err := json.Unmarshal([]byte(raw), &prs); err != nil {
		return nil, fmt.Errorf("parsing gh pr list output: %w", err)
	}

	counts := make(map[string]uint32, len(branches))
	tracked := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		counts[b] = 0
		tracked[b] = struct{}{}
	}
	for _, pr := range prs {
		if _, ok := tracked[pr.HeadRefName]; ok {
			counts[pr.HeadRefName]++
		}
	}
	return counts, nil
}

// RepoSlugFromOrigin extracts an "owner/repo" slug from a git remote URL in
// either SSH ("git@github.com:owner/repo.git") or HTTPS
// ("https://github.com/owner/repo.git") form.
func RepoSlugFromOrigin(origin string) (string, error) {
	s := origin
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "ssh://git@github.com/"} {
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			s = s[len(prefix):]
			return trimGitSuffix(s), nil
		}
	}
	if len(s) > len("git@github.com:") && s[:len("git@github.com:")] == "git@github.com:" {
		return trimGitSuffix(s[len("git@github.com:"):]), nil
	}
	return "", fmt.Errorf("unrecognized origin URL: %q", origin)
}

func trimGitSuffix(s string) string {
	const suffix = ".git"
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// NoopForgeProvider never finds any PRs; useful as the bring-up default
// (spec §9: "A Noop default is always available").
type NoopForgeProvider struct{}

func (NoopForgeProvider) Name() string { return "noop" }

func (NoopForgeProvider) PullRequestCounts(_ context.Context, _ string, branches []string) (map[string]uint32, error) {
	counts := make(map[string]uint32, len(branches))
	for _, b := range branches {
		counts[b] = 0
	}
	return counts, nil
}

// NoopGitStatusProvider always reports absence, matching spec §9's Noop
// default for the status provider seam.
type NoopGitStatusProvider struct{}

func (NoopGitStatusProvider) Status(_ context.Context, _ string) (*Status, bool) { return nil, false }

// NoopFSEventStreamClient never produces events; register/unregister are
// no-ops. Useful for tests that drive the Filesystem Actor purely via
// EnqueueRawPaths.
type NoopFSEventStreamClient struct {
	ch chan FSEventBatch
}

// NewNoopFSEventStreamClient constructs a NoopFSEventStreamClient.
func NewNoopFSEventStreamClient() *NoopFSEventStreamClient {
	return &NoopFSEventStreamClient{ch: make(chan FSEventBatch)}
}

func (n *NoopFSEventStreamClient) Subscribe() <-chan FSEventBatch { return n.ch }
func (n *NoopFSEventStreamClient) Register(_ ids.WorktreeID, _ ids.RepoID, _ string) error {
	return nil
}
func (n *NoopFSEventStreamClient) Unregister(_ ids.WorktreeID) error { return nil }
func (n *NoopFSEventStreamClient) Shutdown()                        {}
