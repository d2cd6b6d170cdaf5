// Package ignore decides which paths are excluded from watching and syncing.
package ignore

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Preset bundles of ignore patterns, selectable from the command line.
// Patterns are regular expressions matched against source-relative paths;
// a leading ^ anchors at a path segment boundary (see rewriteAnchor).
var (
	// Temp matches *.tmp/*.temp files, hidden files containing tmp or temp
	// as a word, editor swap files, and #autosave# names.
	Temp = []string{
		`\.te?mp$`,
		`^\.[^/]*\b(tmp|temp)\b[^/]*$`,
		`^\.[^/]*\.swp$`,
		`^_[^/]*\.swp$`,
		`^#[^/]+#$`,
	}

	// Dotfiles matches any path segment beginning with a dot.
	Dotfiles = []string{
		`^\.`,
	}

	// Backups matches common backup suffixes and trailing tildes.
	Backups = []string{
		`\.bak$`,
		`\.backup$`,
		`\.old$`,
		`\.orig$`,
		`~$`,
	}

	// Logs matches names ending in log (with a ., _ or - separator) and
	// any path containing a log or logs segment.
	Logs = []string{
		`[._-]log$`,
		`^logs?(/|$)`,
	}
)

// Filter checks source-relative paths against an ordered list of ignore
// rules. A path is ignored if any rule matches.
type Filter struct {
	rules []*regexp.Regexp
}

// New compiles the given pattern sources into a Filter. User patterns come
// first, preset bundles after, in the order given. A pattern that fails to
// compile is an error.
func New(patterns ...[]string) (*Filter, error) {
	f := &Filter{}
	for _, bundle := range patterns {
		for _, src := range bundle {
			re, err := regexp.Compile(rewriteAnchor(src))
			if err != nil {
				return nil, errors.Wrapf(err, "ignore pattern %q", src)
			}
			f.rules = append(f.rules, re)
		}
	}
	return f, nil
}

// Match reports whether path matches any ignore rule. The path should be
// relative to the source root, with forward slashes.
func (f *Filter) Match(path string) bool {
	for _, re := range f.rules {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled rules.
func (f *Filter) Len() int {
	return len(f.rules)
}

// rewriteAnchor turns a leading ^ into a segment-boundary anchor, so that
// ^foo matches "foo" both at the start of the path and after any separator.
func rewriteAnchor(pattern string) string {
	if strings.HasPrefix(pattern, "^") {
		return "(?:^|/)" + pattern[1:]
	}
	return pattern
}
