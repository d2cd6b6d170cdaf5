// Package config holds the agent configuration assembled from the command
// line, and its validation rules.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Juerd/syncaboutit/internal/ignore"
)

// Config is the full agent configuration. There is no configuration file;
// everything arrives via flags.
type Config struct {
	Source string
	Dests  []string

	Debug   bool
	Daemon  bool
	Syslog  bool
	Dry     bool
	Delete  bool
	Quiet   bool
	PIDFile string

	IgnorePatterns []string
	IgnoreTemp     bool
	IgnoreDotfiles bool
	IgnoreBackups  bool
	IgnoreLogs     bool

	RsyncExcludes []string

	Interval          float64
	FullSyncThreshold int
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Interval:          1.0,
		FullSyncThreshold: 10,
	}
}

// ValidationError marks a configuration problem found by Validate. The
// command exits 1 on it, as on every error not wrapped as fatal.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Validate normalizes paths and enforces the flag rules: a mandatory source
// directory, absolute paths under daemon mode, flag implications.
func (c *Config) Validate() error {
	if c.Source == "" {
		return validationErrorf("a source directory is required (--from)")
	}
	c.Source = stripSlash(c.Source)
	for i, d := range c.Dests {
		c.Dests[i] = stripSlash(d)
	}

	info, err := os.Stat(c.Source)
	if err != nil {
		return validationErrorf("source %s: %v", c.Source, err)
	}
	if !info.IsDir() {
		return validationErrorf("source %s is not a directory", c.Source)
	}

	if c.Daemon {
		c.Syslog = true
		if !filepath.IsAbs(c.Source) {
			return validationErrorf("source must be an absolute path under --daemon")
		}
		for _, d := range c.Dests {
			if !filepath.IsAbs(d) && !strings.Contains(d, ":") {
				return validationErrorf("destination %s must be absolute or host:path under --daemon", d)
			}
		}
		if c.PIDFile != "" && !filepath.IsAbs(c.PIDFile) {
			return validationErrorf("pidfile must be an absolute path")
		}
	} else if c.PIDFile != "" {
		return validationErrorf("--pidfile requires --daemon")
	}

	if c.Debug {
		c.Quiet = false
	}
	if c.Interval < 0 {
		return validationErrorf("interval must not be negative")
	}
	if c.FullSyncThreshold < 1 {
		return validationErrorf("full-sync threshold must be at least 1")
	}
	return nil
}

// IgnoreSources assembles the ordered pattern lists for the ignore filter:
// user patterns first, then the enabled preset bundles.
func (c *Config) IgnoreSources() [][]string {
	sources := [][]string{c.IgnorePatterns}
	if c.IgnoreTemp {
		sources = append(sources, ignore.Temp)
	}
	if c.IgnoreDotfiles {
		sources = append(sources, ignore.Dotfiles)
	}
	if c.IgnoreBackups {
		sources = append(sources, ignore.Backups)
	}
	if c.IgnoreLogs {
		sources = append(sources, ignore.Logs)
	}
	return sources
}

// IntervalDuration returns the quiescence threshold as a duration.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// stripSlash removes trailing separators without reducing "/" to "".
func stripSlash(p string) string {
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}
