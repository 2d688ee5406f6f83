package handler

import (
	"strings"

	"github.com/l1jgo/privwatch/internal/net"
	"go.uber.org/zap"
)

// HandlerFunc processes one command line for a session.
type HandlerFunc func(sess *net.Session, args []string)

type entry struct {
	states []net.SessionState
	fn     HandlerFunc
}

// Registry maps command words to handlers with session-state gating.
type Registry struct {
	entries map[string]entry
	log     *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]entry, 16),
		log:     log,
	}
}

// Register binds a command word to a handler, valid only in the given
// session states.
func (r *Registry) Register(cmd string, states []net.SessionState, fn HandlerFunc) {
	r.entries[cmd] = entry{states: states, fn: fn}
}

// Dispatch parses one line and invokes its handler. Unknown commands and
// state violations produce an ERR reply, never a disconnect.
func (r *Registry) Dispatch(sess *net.Session, line string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return
	}
	cmd := strings.ToUpper(parts[0])

	e, ok := r.entries[cmd]
	if !ok {
		sess.Send("ERR unknown-command")
		return
	}

	state := sess.State()
	allowed := false
	for _, st := range e.states {
		if st == state {
			allowed = true
			break
		}
	}
	if !allowed {
		r.log.Debug("command rejected by state gate",
			zap.Uint64("session", sess.ID),
			zap.String("cmd", cmd),
			zap.Int32("state", int32(state)))
		sess.Send("ERR not-allowed")
		return
	}

	e.fn(sess, parts[1:])
}

// ServeSession drains a session's input queue through the registry. Runs on
// its own goroutine per session; returns when the session dies.
func ServeSession(sess *net.Session, reg *Registry) {
	for line := range sess.InQueue {
		reg.Dispatch(sess, line)
	}
}
