package watch

import (
	"sync"
	"time"

	"github.com/l1jgo/privwatch/internal/privilege"
	"go.uber.org/zap"
)

// Locator resolves and swaps a session's live privilege table by reference.
// Implemented by world.State.
type Locator interface {
	GrantTable(sessionID uint64) (privilege.Table, error)
	SetGrantTable(sessionID uint64, t privilege.Table) error
}

// PublishFunc delivers one settled delta to the event bus.
type PublishFunc func(sessionID uint64, d Delta)

// binding is the per-session tracking state: the original table captured at
// Track time (restored verbatim on Untrack) and the debounce timer fed by
// the installed tap.
type binding struct {
	original privilege.Table
	deb      *debouncer
}

// Watcher installs a privilege.Tap around each tracked session's table,
// coalesces write bursts with a debounce window, and publishes one
// added/removed delta per settled burst.
//
// Track/Untrack/CleanUp are safe to call concurrently for different
// sessions; re-entrant calls for the same session are no-ops.
type Watcher struct {
	window  time.Duration
	locator Locator
	sched   Scheduler
	now     func() time.Time
	publish PublishFunc
	log     *zap.Logger

	mu        sync.Mutex
	bindings  map[uint64]*binding
	snapshots map[uint64][]string // last settled active set per session
}

// New creates a Watcher using the system clock and time.AfterFunc scheduling.
func New(window time.Duration, locator Locator, publish PublishFunc, log *zap.Logger) *Watcher {
	return newWatcher(window, locator, SystemScheduler(), time.Now, publish, log)
}

func newWatcher(window time.Duration, locator Locator, sched Scheduler, now func() time.Time, publish PublishFunc, log *zap.Logger) *Watcher {
	return &Watcher{
		window:    window,
		locator:   locator,
		sched:     sched,
		now:       now,
		publish:   publish,
		log:       log,
		bindings:  make(map[uint64]*binding, 64),
		snapshots: make(map[uint64][]string, 64),
	}
}

// Track captures the session's live table, installs a tap in its place, and
// seeds the settled snapshot from the current active set. No-op when the
// session is already tracked. A locator failure leaves the session untracked
// and is logged rather than propagated: one broken session must not block
// tracking of the rest.
func (w *Watcher) Track(sessionID uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.bindings[sessionID]; ok {
		return
	}

	original, err := w.locator.GrantTable(sessionID)
	if err != nil {
		w.log.Warn("watch: cannot resolve grant table, session left untracked",
			zap.Uint64("session", sessionID), zap.Error(err))
		return
	}

	b := &binding{original: original}
	b.deb = newDebouncer(w.window, w.sched, w.now, func() { w.settle(sessionID) })

	tap := privilege.NewTap(original, b.deb.Signal)
	if err := w.locator.SetGrantTable(sessionID, tap); err != nil {
		w.log.Warn("watch: cannot install tap, session left untracked",
			zap.Uint64("session", sessionID), zap.Error(err))
		return
	}

	w.bindings[sessionID] = b
	w.snapshots[sessionID] = original.Active()
}

// Untrack restores the original table reference and drops all per-session
// state. No-op when the session is not tracked — in particular the locator
// is never touched for an unknown session. A settle in flight for this
// session finds its binding gone and backs off harmlessly.
func (w *Watcher) Untrack(sessionID uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.untrackLocked(sessionID)
}

func (w *Watcher) untrackLocked(sessionID uint64) {
	b, ok := w.bindings[sessionID]
	if !ok {
		return
	}

	b.deb.Stop()
	if err := w.locator.SetGrantTable(sessionID, b.original); err != nil {
		// The session may already be gone from host state; the binding is
		// dropped regardless so no stale tap survives on our side.
		w.log.Warn("watch: cannot restore grant table",
			zap.Uint64("session", sessionID), zap.Error(err))
	}

	delete(w.bindings, sessionID)
	delete(w.snapshots, sessionID)
}

// CleanUp untracks every session. Run once at shutdown so no tap is left
// installed in host state after the watcher stops.
func (w *Watcher) CleanUp() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for sessionID := range w.bindings {
		w.untrackLocked(sessionID)
	}
}

// Tracked returns the number of currently tracked sessions.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bindings)
}

// settle is the debounce timer's fire action: read the now-current active
// set, diff it against the previous settled snapshot, advance the snapshot,
// and publish. Idempotent by construction — a redundant fire after a lost
// cancellation race just recomputes the then-current state.
func (w *Watcher) settle(sessionID uint64) {
	w.mu.Lock()
	b, ok := w.bindings[sessionID]
	if !ok {
		w.mu.Unlock()
		return // session exited mid-flight
	}
	w.mu.Unlock()

	// Table read happens outside the watcher lock; the table has its own
	// synchronization and this read must not extend the critical section.
	active := b.original.Active()

	w.mu.Lock()
	if _, ok := w.bindings[sessionID]; !ok {
		w.mu.Unlock()
		return
	}
	d := Diff(w.snapshots[sessionID], active)
	w.snapshots[sessionID] = active
	w.mu.Unlock()

	w.publish(sessionID, d)
}
