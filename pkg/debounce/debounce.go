// Package debounce turns a burst of calls into a single trailing call.
package debounce

import (
	"sync"
	"time"
)

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once d has elapsed. It is the seam that lets tests drive
// time by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the wall clock.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last of a burst of pushed callbacks, once the
// quiet period has passed without any further push.
type Debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	sched Scheduler
	timer Timer

	// seq identifies the latest push; a timer that fires after being
	// superseded finds a different value and does nothing.
	seq uint64
}

func New(quiet time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = RealScheduler{}
	}

	return &Debouncer{quiet: quiet, sched: sched}
}

// Push cancels any pending callback and schedules f after the quiet period.
func (d *Debouncer) Push(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.seq++
	seq := d.seq
	d.timer = d.sched.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		f()
	})
}

// Cancel drops the pending callback, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Pending reports whether a callback is waiting for the quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil
}
