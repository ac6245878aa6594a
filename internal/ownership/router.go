// Package ownership maps an arbitrary absolute or relative path to the
// deepest registered worktree root that contains it, so nested worktrees
// route filesystem events to their closest owner rather than an ancestor.
package ownership

import (
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/paneruntime/workbench/internal/ids"
)

// Root is a registered worktree root as seen by the router.
type Root struct {
	WorktreeID   ids.WorktreeID
	CanonicalKey string // canonicalized absolute path, comparison-cased
	Canonical    string // canonicalized absolute path, original case
}

// Router resolves raw paths to their owning registered root.
type Router struct {
	caseInsensitive bool
	mu              sync.RWMutex
	roots           map[ids.WorktreeID]Root
}

// New constructs a Router. If caseInsensitive is nil, case sensitivity is
// autodetected from GOOS (darwin defaults to case-insensitive HFS/APFS
// behavior, per spec §9's redesign note; everything else defaults
// case-sensitive).
func New(caseInsensitive *bool) *Router {
	ci := runtime.GOOS == "darwin"
	if caseInsensitive != nil {
		ci = *caseInsensitive
	}
	return &Router{caseInsensitive: ci, roots: make(map[ids.WorktreeID]Root)}
}

func (r *Router) key(path string) string {
	if r.caseInsensitive {
		return strings.ToLower(path)
	}
	return path
}

// Register adds or updates a root's canonical path.
func (r *Router) Register(worktreeID ids.WorktreeID, canonicalAbsPath string) {
	canon := canonicalize(canonicalAbsPath)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots[worktreeID] = Root{
		WorktreeID:   worktreeID,
		Canonical:    canon,
		CanonicalKey: r.key(canon),
	}
}

// Unregister removes a root.
func (r *Router) Unregister(worktreeID ids.WorktreeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roots, worktreeID)
}

// Resolution is the result of a successful Route call.
type Resolution struct {
	WorktreeID   ids.WorktreeID
	RelativePath string
}

// Route canonicalizes rawPath (joining with sourceWorktreeID's root if
// rawPath is relative), then returns the deepest registered root that is an
// ancestor, per spec §4.3. Returns false if no registered root owns it.
func (r *Router) Route(sourceWorktreeID ids.WorktreeID, rawPath string) (Resolution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target := rawPath
	if !filepath.IsAbs(target) {
		if src, ok := r.roots[sourceWorktreeID]; ok {
			target = filepath.Join(src.Canonical, target)
		}
	}
	target = canonicalize(target)
	targetKey := r.key(target)

	type candidate struct {
		root  Root
		depth int
	}
	var candidates []candidate
	for _, root := range r.roots {
		if isAncestorKey(root.CanonicalKey, targetKey) {
			candidates = append(candidates, candidate{root: root, depth: len(root.CanonicalKey)})
		}
	}
	if len(candidates) == 0 {
		return Resolution{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].depth != candidates[j].depth {
			return candidates[i].depth > candidates[j].depth
		}
		return candidates[i].root.WorktreeID.String() < candidates[j].root.WorktreeID.String()
	})
	owner := candidates[0].root

	rel := stripPrefix(owner.Canonical, owner.CanonicalKey, target, targetKey)
	return Resolution{WorktreeID: owner.WorktreeID, RelativePath: rel}, true
}

// isAncestorKey reports whether rootKey is equal to, or a path-separated
// prefix of, targetKey.
func isAncestorKey(rootKey, targetKey string) bool {
	if rootKey == targetKey {
		return true
	}
	prefix := rootKey
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(targetKey, prefix)
}

// stripPrefix removes the owner's canonical prefix from target (matching on
// the case-folded keys, returning a value drawn from the original-case
// target string) and returns "." for an exact match.
func stripPrefix(ownerCanonical, ownerKey, target, targetKey string) string {
	if ownerKey == targetKey {
		return "."
	}
	cut := len(ownerKey)
	if !strings.HasSuffix(ownerKey, "/") {
		cut++ // also skip the separator
	}
	if cut > len(target) {
		return "."
	}
	return target[cut:]
}

// canonicalize trims a trailing separator (preserving "/" itself) and
// cleans the path. It does not resolve symlinks here; callers that need
// symlink resolution should pass an already-resolved path (e.g. via
// filepath.EvalSymlinks) as canonicalAbsPath/rawPath — the router's job is
// pure path-key arithmetic, not filesystem I/O.
func canonicalize(path string) string {
	cleaned := filepath.Clean(path)
	if cleaned != "/" {
		cleaned = strings.TrimSuffix(cleaned, string(filepath.Separator))
	}
	return cleaned
}
