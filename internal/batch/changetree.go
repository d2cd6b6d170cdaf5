package batch

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/Juerd/syncaboutit/internal/ignore"
)

// Marker records an event kind that occurred on a node itself, as opposed
// to somewhere beneath it.
type Marker int

const (
	// None marks a node kept only for structure, or a plain touch.
	None Marker = iota
	// CreatedDir marks a directory that appeared during the batch.
	CreatedDir
	// Deleted marks an entry that was removed or moved out.
	Deleted
)

// Node is one level of the change tree, keyed by path segment.
type Node struct {
	Children map[string]*Node
	Marker   Marker
}

func newChangeNode() *Node {
	return &Node{Children: make(map[string]*Node)}
}

// ChangeTree is the per-batch fold of all surviving events. It lives for
// exactly one batch: built here, consumed by the planner, discarded.
type ChangeTree struct {
	Root  *Node
	Count int // paths inserted
}

// NewChangeTree returns an empty tree.
func NewChangeTree() *ChangeTree {
	return &ChangeTree{Root: newChangeNode()}
}

// Insert adds the segmented relative path and returns its node.
func (t *ChangeTree) Insert(rel string) *Node {
	cur := t.Root
	for _, seg := range splitRel(rel) {
		next, ok := cur.Children[seg]
		if !ok {
			next = newChangeNode()
			cur.Children[seg] = next
		}
		cur = next
	}
	t.Count++
	return cur
}

// Empty reports whether no path was inserted.
func (t *ChangeTree) Empty() bool {
	return t.Count == 0
}

func splitRel(rel string) []string {
	if rel == "." || rel == "" {
		return nil
	}
	var segs []string
	start := 0
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			segs = append(segs, rel[start:i])
			start = i + 1
		}
	}
	return append(segs, rel[start:])
}

// WatchSet is the slice of the watch manager the fold mutates: growing the
// watch tree on directory creation and tearing it down on removal.
type WatchSet interface {
	Rel(path string) (string, bool)
	Watched(path string) bool
	Watch(path string) error
	Unwatch(path string)
}

// Builder folds closed batches into change trees, applying the ignore
// filter and the watch side effects along the way.
type Builder struct {
	Watches WatchSet
	Filter  *ignore.Filter

	// PropagateDeletes gates whether removals contribute sync actions.
	// Watch teardown happens regardless.
	PropagateDeletes bool

	// isDir is stubbed in tests; defaults to an os.Stat probe.
	isDir func(path string) bool
}

// NewBuilder returns a Builder over the given watch set and filter.
func NewBuilder(watches WatchSet, filter *ignore.Filter, propagateDeletes bool) *Builder {
	return &Builder{
		Watches:          watches,
		Filter:           filter,
		PropagateDeletes: propagateDeletes,
		isDir:            statIsDir,
	}
}

// Fold processes a closed batch in arrival order and returns the resulting
// change tree.
func (b *Builder) Fold(events []fsnotify.Event) *ChangeTree {
	tree := NewChangeTree()
	for _, ev := range events {
		b.fold(tree, ev)
	}
	return tree
}

func (b *Builder) fold(tree *ChangeTree, ev fsnotify.Event) {
	rel, ok := b.Watches.Rel(ev.Name)
	if !ok {
		return
	}
	if rel != "." && b.Filter.Match(rel) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		// A rename is a move out of place: the old path is gone. If the
		// path held a watch it was a directory; the watch must go now,
		// before its recorded path is reused.
		if b.Watches.Watched(ev.Name) {
			b.Watches.Unwatch(ev.Name)
		}
		if b.PropagateDeletes {
			tree.Insert(rel).Marker = Deleted
		}

	case ev.Op.Has(fsnotify.Create) && b.isDir(ev.Name):
		// Covers both mkdir and move-in. Rescan the new directory:
		// entries may have appeared inside it before its watch existed.
		if err := b.Watches.Watch(ev.Name); err != nil {
			logrus.Warnf("watch new dir %s: %v", ev.Name, err)
		}
		tree.Insert(rel).Marker = CreatedDir

	case interesting(ev.Op):
		tree.Insert(rel)
	}
}

// interesting reports whether the op intersects the care mask: create,
// write (close-after-write), remove, rename (move-out), chmod (attribute
// change). Move-in arrives as a create.
func interesting(op fsnotify.Op) bool {
	const care = fsnotify.Create | fsnotify.Write | fsnotify.Remove |
		fsnotify.Rename | fsnotify.Chmod
	return op&care != 0
}

func statIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
