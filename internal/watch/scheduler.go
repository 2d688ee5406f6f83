package watch

import "time"

// Task is a cancellable deferred action.
type Task interface {
	// Cancel stops the task if it has not fired yet. Returns false when the
	// task already fired or was already cancelled.
	Cancel() bool
}

// Scheduler defers an action by a delay. The production implementation wraps
// time.AfterFunc; tests drive a manual scheduler so debounce behaviour is
// deterministic.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Task
}

type timerScheduler struct{}

// SystemScheduler returns the time.AfterFunc-backed scheduler.
func SystemScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) Schedule(delay time.Duration, fn func()) Task {
	return timerTask{t: time.AfterFunc(delay, fn)}
}

type timerTask struct{ t *time.Timer }

func (tt timerTask) Cancel() bool { return tt.t.Stop() }
