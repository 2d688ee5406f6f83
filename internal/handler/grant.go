package handler

import (
	"context"
	"strings"

	"github.com/l1jgo/privwatch/internal/net"
	"github.com/l1jgo/privwatch/internal/persist"
	"github.com/l1jgo/privwatch/internal/privilege"
	"go.uber.org/zap"
)

// HandleGrant processes "GRANT <privilege> [account]". The write lands on
// the target's live table — through the watcher's tap while tracked — so a
// burst of grants debounces into one change notification.
func HandleGrant(sess *net.Session, args []string, deps *Deps) {
	applyGrant(sess, args, true, deps)
}

// HandleRevoke processes "REVOKE <privilege> [account]". Revocation writes
// an inactive record rather than deleting: it is an insert-or-update like
// any other privilege write, which is what makes it debounce-visible.
func HandleRevoke(sess *net.Session, args []string, deps *Deps) {
	applyGrant(sess, args, false, deps)
}

func applyGrant(sess *net.Session, args []string, active bool, deps *Deps) {
	if len(args) < 1 || len(args) > 2 {
		sess.Send("ERR usage GRANT|REVOKE <privilege> [account]")
		return
	}
	name := args[0]

	actor := deps.World.Get(sess.ID)
	if actor == nil {
		sess.Send("ERR internal")
		return
	}

	def := deps.Privileges.Get(name)
	if def == nil {
		sess.Send("ERR unknown-privilege")
		return
	}
	if actor.AccessLevel < def.MinAccessLevel {
		sess.Send("ERR access-denied")
		return
	}

	target := actor.Account
	if len(args) == 2 {
		target = strings.ToLower(args[1])
	}

	source := "admin:" + actor.Account

	// Persist the grant row regardless of whether the target is online.
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	err := deps.GrantRepo.Upsert(ctx, persist.GrantRow{
		Account:   target,
		Privilege: name,
		Active:    active,
		GrantedBy: actor.Account,
	})
	if err != nil {
		deps.Log.Error("儲存授權失敗",
			zap.String("account", target), zap.String("privilege", name), zap.Error(err))
		sess.Send("ERR internal")
		return
	}

	targetInfo := deps.World.FindByAccount(target)
	if targetInfo == nil {
		sess.Send("OK offline")
		return
	}

	deps.World.PutRecord(targetInfo.SessionID, privilege.Record{
		Name:   name,
		Active: active,
		Source: source,
	})
	sess.Send("OK")
}
