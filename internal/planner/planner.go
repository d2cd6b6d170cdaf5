// Package planner walks a change tree and emits a minimal, well-ordered
// list of sync actions.
package planner

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/Juerd/syncaboutit/internal/batch"
)

// Action is one planned synchronization. Recurse requests a recursive
// subtree sync; Delete requests removal of entries missing on the source
// side.
type Action struct {
	Path    string
	Recurse bool
	Delete  bool
}

// Plan walks the change tree rooted at source and returns the actions,
// sorted ascending by path so ancestors precede descendants. threshold is
// the sibling-count cutoff at or above which a directory is synced
// recursively instead of per child.
func Plan(tree *batch.ChangeTree, source string, threshold int) []Action {
	if tree == nil || tree.Empty() {
		return nil
	}
	source = strings.TrimSuffix(source, "/")
	if source == "" {
		source = "/"
	}
	p := planner{source: source, threshold: threshold}
	p.walk(tree.Root, source)
	sort.Slice(p.actions, func(i, j int) bool {
		return p.actions[i].Path < p.actions[j].Path
	})
	return p.actions
}

type planner struct {
	source    string
	threshold int
	actions   []Action
}

func (p *planner) walk(n *batch.Node, path string) {
	switch {
	case n.Marker == batch.Deleted:
		// The object is gone; syncing its parent recursively with
		// deletion propagates the removal. Clamped at the source root.
		p.emit(Action{Path: p.parent(path), Recurse: true, Delete: true})

	case n.Marker == batch.CreatedDir:
		// Descendants may have appeared before the new directory's
		// watch existed; a recursive sync is the safe minimum.
		p.emit(Action{Path: path, Recurse: true})

	case len(n.Children) == 0:
		// Leaf touch: sync the single object.
		p.emit(Action{Path: path})

	case len(n.Children) >= p.threshold:
		// Too noisy to be worth descending.
		p.emit(Action{Path: path, Recurse: true})

	default:
		for seg, child := range n.Children {
			p.walk(child, filepath.Join(path, seg))
		}
	}
}

func (p *planner) emit(a Action) {
	p.actions = append(p.actions, a)
}

func (p *planner) parent(path string) string {
	if path == p.source {
		return path
	}
	return filepath.Dir(path)
}

// Covered reports whether path equals or lies beneath any of the given
// prefixes. The executor uses it to skip actions absorbed by an earlier
// recursive sync.
func Covered(prefixes []string, path string) bool {
	for _, pre := range prefixes {
		if path == pre || strings.HasPrefix(path, pre+"/") {
			return true
		}
	}
	return false
}
