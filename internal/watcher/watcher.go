// Package watcher maintains the set of kernel directory watches mirroring
// the live subtree of the source directory.
package watcher

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Juerd/syncaboutit/internal/ignore"
)

// Watcher owns a tree of directory watches under a single source root.
// All methods must be called from the same goroutine; the main loop is the
// sole mutator.
type Watcher struct {
	root   string // source root, trailing separator stripped
	filter *ignore.Filter
	fsw    *fsnotify.Watcher
	tree   *node
	count  int
}

// New creates a Watcher for the given source root. No watches are
// registered until Watch is called.
func New(root string, filter *ignore.Filter) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	return &Watcher{
		root:   strings.TrimSuffix(root, "/"),
		filter: filter,
		fsw:    fsw,
		tree:   newNode(),
	}, nil
}

// Events returns the raw kernel event stream.
func (w *Watcher) Events() <-chan fsnotify.Event {
	return w.fsw.Events
}

// Errors returns the kernel error stream (including queue overflow).
func (w *Watcher) Errors() <-chan error {
	return w.fsw.Errors
}

// Root returns the source root the watcher was created for.
func (w *Watcher) Root() string {
	return w.root
}

// Count returns the number of directories currently holding a watch.
func (w *Watcher) Count() int {
	return w.count
}

// Rel returns path relative to the source root. ok is false when path lies
// outside the root.
func (w *Watcher) Rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Watched reports whether the directory at path currently holds a watch.
// This is how event processing decides whether a removed or renamed entry
// used to be a directory.
func (w *Watcher) Watched(path string) bool {
	rel, ok := w.Rel(path)
	if !ok {
		return false
	}
	n := w.tree.lookup(rel)
	return n != nil && n.watched
}

// Watch recursively registers watches for every non-ignored directory at or
// below path. Per-directory registration failures are logged and the walk
// continues. Directories matching the ignore filter are skipped entirely,
// subtrees included.
func (w *Watcher) Watch(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logrus.Warnf("watch: %s: %v", p, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, ok := w.Rel(p)
		if !ok {
			return nil
		}
		if rel != "." && w.filter.Match(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			logrus.Warnf("watch %s: %v", p, err)
			return nil
		}
		n := w.tree.insert(rel)
		if !n.watched {
			n.watched = true
			w.count++
		}
		return nil
	})
}

// Unwatch cancels the watch on path and on every watched descendant, then
// detaches the subtree. It must be called as soon as a directory is deleted
// or moved out: the recorded path goes stale, and a leaked handle corrupts
// later path reconstruction.
func (w *Watcher) Unwatch(path string) {
	rel, ok := w.Rel(path)
	if !ok {
		return
	}
	n := w.tree.lookup(rel)
	if n == nil {
		return
	}
	w.drop(n, rel)
	w.tree.detach(rel)
}

// drop cancels watches post-order below n, which names rel.
func (w *Watcher) drop(n *node, rel string) {
	for seg, child := range n.children {
		crel := seg
		if rel != "." {
			crel = rel + "/" + seg
		}
		w.drop(child, crel)
	}
	if n.watched {
		// Remove can fail for already-moved paths; the kernel side is
		// gone either way.
		if err := w.fsw.Remove(filepath.Join(w.root, rel)); err != nil {
			logrus.Debugf("unwatch %s: %v", rel, err)
		}
		n.watched = false
		w.count--
	}
}

// Close releases the underlying fsnotify watcher and all its handles.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
