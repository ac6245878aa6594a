package provider_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paneruntime/workbench/internal/provider"
)

func TestParsePorcelainStatusBranchAndCounts(t *testing.T) {
	raw := "## main...origin/main [ahead 2]\n M internal/app.go\nA  internal/new.go\n?? scratch.txt\n"
	status, ok := provider.ParsePorcelainStatus(raw)
	require.True(t, ok)
	require.NotNil(t, status.Branch)
	require.Equal(t, "main", *status.Branch)
	require.Equal(t, 1, status.Staged)
	require.Equal(t, 1, status.Changed)
	require.Equal(t, 1, status.Untracked)
}

func TestParsePorcelainStatusDetachedHead(t *testing.T) {
	raw := "## HEAD (no branch)\n"
	status, ok := provider.ParsePorcelainStatus(raw)
	require.True(t, ok)
	require.Nil(t, status.Branch)
}

func TestParsePorcelainStatusPlainBranchNoUpstream(t *testing.T) {
	raw := "## feature/foo\n"
	status, ok := provider.ParsePorcelainStatus(raw)
	require.True(t, ok)
	require.NotNil(t, status.Branch)
	require.Equal(t, "feature/foo", *status.Branch)
}

func TestParsePullRequestCountsIgnoresUntrackedBranches(t *testing.T) {
	raw := `[{"headRefName":"feature/a"},{"headRefName":"feature/a"},{"headRefName":"unknown"}]`
	counts, err := provider.ParsePullRequestCounts(raw, []string{"feature/a", "feature/b"})
	require.NoError(t, err)
	require.EqualValues(t, 2, counts["feature/a"])
	require.EqualValues(t, 0, counts["feature/b"]) // tracked, zero PRs, reported as zero
	_, untracked := counts["unknown"]
	require.False(t, untracked)
}

func TestRepoSlugFromOrigin(t *testing.T) {
	cases := map[string]string{
		"git@github.com:foo/bar.git":      "foo/bar",
		"https://github.com/foo/bar.git":  "foo/bar",
		"https://github.com/foo/bar":      "foo/bar",
	}
	for origin, want := range cases {
		slug, err := provider.RepoSlugFromOrigin(origin)
		require.NoError(t, err)
		require.Equal(t, want, slug)
	}

	_, err := provider.RepoSlugFromOrigin("not a url")
	require.Error(t, err)
}
