// Package batch drains the raw event stream in quiescence-bounded bursts
// and folds each closed batch into a hierarchical change tree.
package batch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrStreamClosed is returned by Collect when the event source has been
// closed underneath it.
var ErrStreamClosed = errors.New("event stream closed")

// Coalescer collects kernel events into batches. A batch starts with the
// first available event and closes after a full quiet interval with no new
// arrivals, so a burst (a compiler writing hundreds of files) becomes one
// sync cycle.
type Coalescer struct {
	events   <-chan fsnotify.Event
	errs     <-chan error
	interval time.Duration
}

// NewCoalescer wraps the given event and error streams. interval is the
// quiescence threshold; zero closes each batch right after the initial
// drain.
func NewCoalescer(events <-chan fsnotify.Event, errs <-chan error, interval time.Duration) *Coalescer {
	return &Coalescer{events: events, errs: errs, interval: interval}
}

// Collect blocks until at least one event is available, drains everything
// queued, then keeps extending the batch until a full interval passes with
// no arrivals. overflow reports whether the kernel queue overflowed while
// collecting; the caller must then treat the batch as incomplete.
func (c *Coalescer) Collect(ctx context.Context) (batch []fsnotify.Event, overflow bool, err error) {
	// Wait for the first event.
	for len(batch) == 0 {
		select {
		case <-ctx.Done():
			return nil, overflow, ctx.Err()
		case ev, ok := <-c.events:
			if !ok {
				return nil, overflow, ErrStreamClosed
			}
			batch = append(batch, ev)
		case err, ok := <-c.errs:
			if !ok {
				return nil, overflow, ErrStreamClosed
			}
			if c.noteError(err) {
				overflow = true
			}
		}
	}

	for {
		// Drain whatever is queued right now.
		for {
			select {
			case ev, ok := <-c.events:
				if !ok {
					return batch, overflow, nil
				}
				batch = append(batch, ev)
				continue
			case err, ok := <-c.errs:
				if !ok {
					return batch, overflow, nil
				}
				if c.noteError(err) {
					overflow = true
				}
				continue
			default:
			}
			break
		}

		if c.interval <= 0 {
			return batch, overflow, nil
		}

		// Quiet window: any arrival reopens the batch.
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return batch, overflow, ctx.Err()
		case ev, ok := <-c.events:
			timer.Stop()
			if !ok {
				return batch, overflow, nil
			}
			batch = append(batch, ev)
		case err, ok := <-c.errs:
			timer.Stop()
			if !ok {
				return batch, overflow, nil
			}
			if c.noteError(err) {
				overflow = true
			}
		case <-timer.C:
			return batch, overflow, nil
		}
	}
}

// noteError logs a stream error and reports whether it was a queue
// overflow.
func (c *Coalescer) noteError(err error) bool {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		logrus.Warn("kernel event queue overflowed")
		return true
	}
	logrus.Warnf("event stream: %v", err)
	return false
}
