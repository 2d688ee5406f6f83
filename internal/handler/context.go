package handler

import (
	"github.com/l1jgo/privwatch/internal/config"
	"github.com/l1jgo/privwatch/internal/core/event"
	"github.com/l1jgo/privwatch/internal/data"
	"github.com/l1jgo/privwatch/internal/net"
	"github.com/l1jgo/privwatch/internal/persist"
	"github.com/l1jgo/privwatch/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all command handlers.
type Deps struct {
	AccountRepo *persist.AccountRepo
	GrantRepo   *persist.GrantRepo
	Config      *config.Config
	Log         *zap.Logger
	World       *world.State
	Bus         *event.Bus
	Privileges  *data.PrivilegeTable
}

// RegisterAll registers all command handlers into the registry.
func RegisterAll(reg *Registry, deps *Deps) {
	reg.Register("AUTH",
		[]net.SessionState{net.StateAuth},
		func(sess *net.Session, args []string) { HandleAuth(sess, args, deps) },
	)

	ready := []net.SessionState{net.StateReady}

	reg.Register("GRANT", ready,
		func(sess *net.Session, args []string) { HandleGrant(sess, args, deps) },
	)
	reg.Register("REVOKE", ready,
		func(sess *net.Session, args []string) { HandleRevoke(sess, args, deps) },
	)
	reg.Register("LIST", ready,
		func(sess *net.Session, args []string) { HandleList(sess, args, deps) },
	)
	reg.Register("WHO", ready,
		func(sess *net.Session, args []string) { HandleWho(sess, args, deps) },
	)
	reg.Register("WATCH", ready,
		func(sess *net.Session, args []string) { HandleWatch(sess, args, deps) },
	)
	reg.Register("QUIT",
		[]net.SessionState{net.StateAuth, net.StateReady},
		func(sess *net.Session, args []string) { HandleQuit(sess, args, deps) },
	)
}
