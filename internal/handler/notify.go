package handler

import (
	"fmt"
	"strings"

	"github.com/l1jgo/privwatch/internal/core/event"
	"github.com/l1jgo/privwatch/internal/world"
)

// NotifyWatchers streams one settled delta to every session that enabled
// WATCH. Intended as a bus subscriber for PrivilegesChanged.
func NotifyWatchers(ws *world.State, ev event.PrivilegesChanged) {
	line := fmt.Sprintf("EVENT PRIVS %s active=%s added=%s removed=%s",
		ev.Account,
		strings.Join(ev.Active, ","),
		strings.Join(ev.Added, ","),
		strings.Join(ev.Removed, ","),
	)
	for _, info := range ws.Watchers() {
		info.Session.Send(line)
	}
}
