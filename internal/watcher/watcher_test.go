package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Juerd/syncaboutit/internal/ignore"
)

func mustFilter(t *testing.T, patterns ...string) *ignore.Filter {
	t.Helper()
	f, err := ignore.New(patterns)
	if err != nil {
		t.Fatalf("ignore.New: %v", err)
	}
	return f
}

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", path, err)
	}
}

func TestWatchCountsDirectories(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a", "b"))
	mkdirAll(t, filepath.Join(root, "c"))

	w, err := New(root, mustFilter(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// root, a, a/b, c
	if got := w.Count(); got != 4 {
		t.Fatalf("Count = %d, want 4", got)
	}
	for _, p := range []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b"), filepath.Join(root, "c")} {
		if !w.Watched(p) {
			t.Errorf("Watched(%s) = false, want true", p)
		}
	}
}

func TestWatchSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "keep"))
	mkdirAll(t, filepath.Join(root, "skip", "nested"))

	w, err := New(root, mustFilter(t, `^skip$`))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// root and keep only; skip and its subtree produce no watch.
	if got := w.Count(); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
	if w.Watched(filepath.Join(root, "skip")) {
		t.Error("ignored directory should not be watched")
	}
	if w.Watched(filepath.Join(root, "skip", "nested")) {
		t.Error("subtree of ignored directory should not be watched")
	}
}

func TestUnwatchSubtree(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a", "b", "c"))
	mkdirAll(t, filepath.Join(root, "d"))

	w, err := New(root, mustFilter(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	before := w.Count() // root, a, a/b, a/b/c, d = 5

	w.Unwatch(filepath.Join(root, "a"))

	if got := w.Count(); got != before-3 {
		t.Fatalf("Count after Unwatch = %d, want %d", got, before-3)
	}
	if w.Watched(filepath.Join(root, "a")) {
		t.Error("unwatched root of subtree still reported watched")
	}
	if w.Watched(filepath.Join(root, "a", "b")) {
		t.Error("unwatched descendant still reported watched")
	}
	if !w.Watched(filepath.Join(root, "d")) {
		t.Error("sibling lost its watch")
	}
}

func TestUnwatchMovedDirectory(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	mkdirAll(t, filepath.Join(root, "gone", "deep"))

	w, err := New(root, mustFilter(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// Move the directory out, then unwatch by the stale path. The kernel
	// handle may already be gone; bookkeeping must still clear.
	if err := os.Rename(filepath.Join(root, "gone"), filepath.Join(outside, "gone")); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	w.Unwatch(filepath.Join(root, "gone"))

	if got := w.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1 (root only)", got)
	}
	if w.Watched(filepath.Join(root, "gone")) {
		t.Error("stale path still reported watched")
	}
}

func TestRescanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "a"))

	w, err := New(root, mustFilter(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	first := w.Count()
	if err := w.Watch(root); err != nil {
		t.Fatalf("second Watch: %v", err)
	}
	if got := w.Count(); got != first {
		t.Fatalf("Count after rescan = %d, want %d", got, first)
	}
}

func TestRel(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, mustFilter(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if rel, ok := w.Rel(filepath.Join(root, "a", "b")); !ok || rel != "a/b" {
		t.Errorf("Rel = %q, %v, want a/b, true", rel, ok)
	}
	if rel, ok := w.Rel(root); !ok || rel != "." {
		t.Errorf("Rel(root) = %q, %v, want ., true", rel, ok)
	}
	if _, ok := w.Rel("/somewhere/else"); ok {
		t.Error("path outside root should not resolve")
	}
}

func TestTreeDetach(t *testing.T) {
	n := newNode()
	n.insert("a/b/c")
	n.insert("a/d")

	if n.lookup("a/b/c") == nil {
		t.Fatal("lookup a/b/c = nil after insert")
	}

	n.detach("a/b")
	if n.lookup("a/b") != nil {
		t.Error("a/b still present after detach")
	}
	if n.lookup("a/d") == nil {
		t.Error("sibling a/d lost by detach")
	}
}
