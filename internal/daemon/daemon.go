// Package daemon runs the agent's main loop: initial full sync, then
// wait, drain, plan, execute, until the process is told to stop.
package daemon

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Juerd/syncaboutit/internal/batch"
	"github.com/Juerd/syncaboutit/internal/config"
	"github.com/Juerd/syncaboutit/internal/ignore"
	"github.com/Juerd/syncaboutit/internal/planner"
	"github.com/Juerd/syncaboutit/internal/watcher"
)

// Runner executes planned actions. The concrete executor spawns the
// transfer tool; tests substitute a recorder.
type Runner interface {
	Run(actions []planner.Action)
}

// Daemon owns the watch manager and drives batches through the planner and
// the executor.
type Daemon struct {
	cfg    *config.Config
	runner Runner

	watcher *watcher.Watcher
}

// New creates a Daemon. The runner is injected so the loop stays testable
// without spawning transfer processes.
func New(cfg *config.Config, runner Runner) *Daemon {
	return &Daemon{cfg: cfg, runner: runner}
}

// Run establishes the watch set, performs the initial full sync, then
// loops until ctx is cancelled. It returns nil on a clean shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	filter, err := ignore.New(d.cfg.IgnoreSources()...)
	if err != nil {
		return err
	}

	w, err := watcher.New(d.cfg.Source, filter)
	if err != nil {
		return err
	}
	d.watcher = w
	defer w.Close()

	if err := w.Watch(d.cfg.Source); err != nil {
		return errors.Wrapf(err, "scan %s", d.cfg.Source)
	}
	if w.Count() == 0 {
		return errors.Errorf("no watches could be established under %s", d.cfg.Source)
	}
	logrus.Infof("watching %d directories under %s", w.Count(), d.cfg.Source)

	d.fullSync()

	co := batch.NewCoalescer(w.Events(), w.Errors(), d.cfg.IntervalDuration())
	builder := batch.NewBuilder(w, filter, d.cfg.Delete)

	for {
		events, overflow, err := co.Collect(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logrus.Info("shutting down")
				return nil
			}
			return err
		}
		if overflow {
			// The batch is incomplete; rebuild the watch set from
			// scratch and fall back to a full sync.
			logrus.Warn("event queue overflow, rescanning source tree")
			d.rescan()
			continue
		}

		tree := builder.Fold(events)
		if tree.Empty() {
			continue
		}
		actions := planner.Plan(tree, d.cfg.Source, d.cfg.FullSyncThreshold)
		logrus.Debugf("batch of %d events planned into %d actions", len(events), len(actions))
		d.runner.Run(actions)
	}
}

// fullSync issues one recursive action on the source root, with deletion
// propagation if globally enabled.
func (d *Daemon) fullSync() {
	d.runner.Run([]planner.Action{{
		Path:    d.cfg.Source,
		Recurse: true,
		Delete:  d.cfg.Delete,
	}})
}

// rescan rebuilds the watch set after an overflow and repeats the full
// sync, since events were lost.
func (d *Daemon) rescan() {
	d.watcher.Unwatch(d.cfg.Source)
	if err := d.watcher.Watch(d.cfg.Source); err != nil {
		logrus.Warnf("rescan %s: %v", d.cfg.Source, err)
	}
	if d.watcher.Count() == 0 {
		logrus.Errorf("no watches could be re-established under %s", d.cfg.Source)
	}
	d.fullSync()
}
