package watch

import (
	"sync"
	"time"
)

// debouncer turns a burst of write signals into a single settle call.
//
// Re-arm policy: the first signal schedules a settle one full window out.
// A signal arriving while a settle is scheduled and still within the first
// half of its window is covered by it and does nothing. A signal arriving
// after the half-way point cancels the scheduled settle and re-arms it only
// half a window out, so the effective deadline never drifts past roughly
// one window from the first signal: a saturated signal stream settles about
// once per window instead of starving, while an isolated burst still
// collapses into a single settle.
type debouncer struct {
	window time.Duration
	sched  Scheduler
	now    func() time.Time
	settle func()

	mu      sync.Mutex
	task    Task
	armedAt time.Time
	gen     uint64 // bumped on every re-arm and on Stop; stale fires check it
}

func newDebouncer(window time.Duration, sched Scheduler, now func() time.Time, settle func()) *debouncer {
	return &debouncer{window: window, sched: sched, now: now, settle: settle}
}

// Signal records one write. Never blocks: the critical section is marker
// bookkeeping only, the settle itself runs later on the scheduler.
func (d *debouncer) Signal() {
	d.mu.Lock()
	if d.task != nil && d.now().Sub(d.armedAt) <= d.window/2 {
		// A settle is already scheduled and young enough to cover this
		// write as well.
		d.mu.Unlock()
		return
	}
	delay := d.window
	if d.task != nil {
		d.task.Cancel()
		delay = d.window / 2
	}
	d.gen++
	gen := d.gen
	d.armedAt = d.now()
	d.task = d.sched.Schedule(delay, func() { d.fire(gen) })
	d.mu.Unlock()
}

// fire runs the settle for one scheduled task. A task that lost a
// cancellation race carries a stale generation and backs off. The
// outstanding-task marker is cleared before the settle callback runs, so a
// panicking callback can never block future signals.
func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return // superseded or stopped moments before firing
	}
	d.task = nil
	d.mu.Unlock()

	d.settle()
}

// Stop cancels any scheduled settle and invalidates in-flight fires.
func (d *debouncer) Stop() {
	d.mu.Lock()
	if d.task != nil {
		d.task.Cancel()
		d.task = nil
	}
	d.gen++
	d.mu.Unlock()
}
