package handler

import (
	"fmt"
	"strings"

	"github.com/l1jgo/privwatch/internal/net"
	"github.com/l1jgo/privwatch/internal/world"
)

// HandleList processes "LIST": the session's own effective privilege set.
func HandleList(sess *net.Session, _ []string, deps *Deps) {
	active := deps.World.ActiveOf(sess.ID)
	sess.Send(fmt.Sprintf("OK active=%s", strings.Join(active, ",")))
}

// HandleWho processes "WHO": all online sessions. Requires a non-zero
// access level.
func HandleWho(sess *net.Session, _ []string, deps *Deps) {
	actor := deps.World.Get(sess.ID)
	if actor == nil || actor.AccessLevel <= 0 {
		sess.Send("ERR access-denied")
		return
	}
	sess.Send(fmt.Sprintf("OK sessions=%d", deps.World.Count()))
	deps.World.All(func(info *world.SessionInfo) {
		sess.Send(fmt.Sprintf("WHO %d %s access=%d", info.SessionID, info.Account, info.AccessLevel))
	})
}

// HandleWatch processes "WATCH ON|OFF": subscribe this session to settled
// privilege delta lines.
func HandleWatch(sess *net.Session, args []string, deps *Deps) {
	if len(args) != 1 {
		sess.Send("ERR usage WATCH ON|OFF")
		return
	}
	switch strings.ToUpper(args[0]) {
	case "ON":
		deps.World.SetWatching(sess.ID, true)
		sess.Send("OK watching")
	case "OFF":
		deps.World.SetWatching(sess.ID, false)
		sess.Send("OK")
	default:
		sess.Send("ERR usage WATCH ON|OFF")
	}
}

// HandleQuit processes "QUIT".
func HandleQuit(sess *net.Session, _ []string, _ *Deps) {
	sess.Send("OK bye")
	sess.Close()
}
