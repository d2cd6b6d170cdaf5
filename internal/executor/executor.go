// Package executor turns planned sync actions into invocations of the
// external transfer tool, one per action and destination.
package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"

	"github.com/Juerd/syncaboutit/internal/planner"
)

const tool = "rsync"

// baseFlags preserve symlinks, permissions, timestamps, group, owner,
// devices and specials. Recursion is never implicit; it is controlled per
// action.
const baseFlags = "-lptgoD"

// Executor spawns the transfer tool for surviving actions. Zero
// destinations means debug-only mode: actions are planned and logged but
// nothing is spawned.
type Executor struct {
	Source   string
	Dests    []string
	Excludes []string
	Delete   bool // global deletion propagation
	Debug    bool
	Dry      bool

	run    func(args []string) error
	exists func(path string) bool
}

// New returns an Executor over the given source and destinations. Source
// and destination values must already have trailing separators stripped.
func New(source string, dests, excludes []string, del, debug, dry bool) *Executor {
	e := &Executor{
		Source:   source,
		Dests:    dests,
		Excludes: excludes,
		Delete:   del,
		Debug:    debug,
		Dry:      dry,
	}
	e.run = e.spawn
	e.exists = func(p string) bool {
		_, err := os.Lstat(p)
		return err == nil
	}
	return e
}

// Run executes the planned actions in ascending path order, skipping
// actions covered by an earlier recursive sync and actions whose path no
// longer exists. Transfer failures are logged and do not stop the batch.
func (e *Executor) Run(actions []planner.Action) {
	// Ancestors must precede descendants for overlap pruning to hold.
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Path < actions[j].Path
	})

	var recursed []string
	for _, a := range actions {
		if planner.Covered(recursed, a.Path) {
			logrus.Debugf("skip %s: covered by recursive sync", a.Path)
			continue
		}
		if !e.exists(a.Path) {
			logrus.Debugf("skip %s: no longer present", a.Path)
			continue
		}
		for _, dest := range e.Dests {
			args := e.Command(a, dest)
			if e.Dry {
				fmt.Println(tool + " " + shellquote.Join(args...))
				continue
			}
			logrus.Debugf("exec %s %s", tool, shellquote.Join(args...))
			if err := e.run(args); err != nil {
				logrus.Warnf("%s %s: %v", tool, shellquote.Join(args...), err)
			}
		}
		if len(e.Dests) == 0 {
			logrus.Debugf("would sync %s (recurse=%v delete=%v)", a.Path, a.Recurse, a.Delete)
		}
		if a.Recurse {
			recursed = append(recursed, a.Path)
		}
	}
}

// Command builds the argument vector for one action against one
// destination (excluding the tool name itself).
func (e *Executor) Command(a planner.Action, dest string) []string {
	args := []string{baseFlags}
	if e.Debug {
		args = append(args, "-v")
	}
	for _, pat := range e.Excludes {
		args = append(args, "--exclude", pat)
	}
	if a.Delete && e.Delete {
		args = append(args, "--delete")
	}

	rel := e.rel(a.Path)
	if a.Recurse {
		args = append(args, "-r", "--", a.Path+"/", mapDest(dest, rel)+"/")
	} else {
		args = append(args, "--", a.Path, mapDest(dest, parentRel(rel)))
	}
	return args
}

// rel returns the action path relative to the source root, "." for the
// root itself.
func (e *Executor) rel(p string) string {
	if p == e.Source {
		return "."
	}
	return strings.TrimPrefix(p, e.Source+"/")
}

// mapDest joins the source-relative suffix onto a destination prefix. The
// join is textual so host:path destinations keep their prefix verbatim.
func mapDest(dest, rel string) string {
	if rel == "." || rel == "" {
		return dest
	}
	return dest + "/" + rel
}

// parentRel returns the relative parent of rel, "." at the top level.
func parentRel(rel string) string {
	if rel == "." {
		return "."
	}
	return path.Dir(rel)
}

// spawn runs the transfer tool, inheriting stdout and stderr. A non-zero
// exit surfaces as the returned error.
func (e *Executor) spawn(args []string) error {
	cmd := exec.Command(tool, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
