// Package pathfilter classifies worktree-relative paths as Projected,
// GitInternal, or IgnoredByPolicy per spec §4.2. Gitignore rule compilation
// is delegated to github.com/sabhiram/go-gitignore, which compiles each
// pattern to an equivalent regex, permitted by spec §9 "Regex vs. glob".
package pathfilter

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Classification is the result of classifying a relative path.
type Classification int

const (
	Projected Classification = iota
	GitInternal
	IgnoredByPolicy
)

func (c Classification) String() string {
	switch c {
	case Projected:
		return "Projected"
	case GitInternal:
		return "GitInternal"
	case IgnoredByPolicy:
		return "IgnoredByPolicy"
	default:
		return "Unknown"
	}
}

// GitignoreFilename is the well-known file this filter reloads on demand.
const GitignoreFilename = ".gitignore"

// Filter classifies paths relative to a single worktree root, backed by
// that root's .gitignore.
type Filter struct {
	rootPath string
	gi       *ignore.GitIgnore
}

// New loads <rootPath>/.gitignore (if present) and returns a Filter. A
// missing or unreadable .gitignore simply yields a Filter with no ignore
// rules; per spec §7 this is an ingress error handled by silent fallback,
// not surfaced to the caller.
func New(rootPath string) *Filter {
	f := &Filter{rootPath: rootPath}
	f.Reload()
	return f
}

// Reload recompiles the filter's gitignore rules from disk. Called when a
// change touches .gitignore (spec §4.4 requires_filter_reload).
func (f *Filter) Reload() {
	data, err := os.ReadFile(filepath.Join(f.rootPath, GitignoreFilename))
	if err != nil {
		f.gi = ignore.CompileIgnoreLines()
		return
	}
	lines := strings.Split(string(data), "\n")
	f.gi = ignore.CompileIgnoreLines(lines...)
}

// Classify applies the rules in spec §4.2 order: normalize, then git-internal
// equality check, then gitignore rules, defaulting to Projected.
func (f *Filter) Classify(relPath string) Classification {
	norm := normalize(relPath)
	if norm == "" || norm == "." {
		return Projected
	}
	if hasGitComponent(norm) {
		return GitInternal
	}
	if f.gi != nil && f.gi.MatchesPath(norm) {
		return IgnoredByPolicy
	}
	return Projected
}

// normalize trims whitespace/newlines and strips a leading "./" or "/".
func normalize(relPath string) string {
	s := strings.Trim(relPath, " \t\r\n")
	s = strings.TrimPrefix(s, "./")
	s = strings.TrimPrefix(s, "/")
	return s
}

// hasGitComponent reports whether any path component equals ".git" exactly
// (equality, not substring, per spec §4.2 rule 1).
func hasGitComponent(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}
