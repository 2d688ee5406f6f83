package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/l1jgo/privwatch/internal/core/event"
	"github.com/l1jgo/privwatch/internal/net"
	"github.com/l1jgo/privwatch/internal/privilege"
	"github.com/l1jgo/privwatch/internal/world"
	"go.uber.org/zap"
)

const dbTimeout = 5 * time.Second

// HandleAuth processes "AUTH <account> <password>". On success the session
// gets a freshly built privilege table (defaults + DB grants) in world
// state and a SessionEntered event is published — which is what makes the
// watcher install its tap.
func HandleAuth(sess *net.Session, args []string, deps *Deps) {
	if len(args) != 2 {
		sess.Send("ERR usage AUTH <account> <password>")
		return
	}
	account := strings.ToLower(args[0])
	password := args[1]

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	row, err := deps.AccountRepo.Load(ctx, account)
	if err != nil {
		deps.Log.Error("帳號查詢失敗", zap.String("account", account), zap.Error(err))
		sess.Send("ERR internal")
		return
	}

	if row == nil {
		if !deps.Config.Server.AutoCreateAccounts {
			sess.Send("ERR bad-credentials")
			return
		}
		row, err = deps.AccountRepo.Create(ctx, account, password)
		if err != nil {
			deps.Log.Error("帳號建立失敗", zap.String("account", account), zap.Error(err))
			sess.Send("ERR internal")
			return
		}
		deps.Log.Info("自動建立帳號", zap.String("account", account))
	} else {
		if row.Banned {
			sess.Send("ERR banned")
			return
		}
		if !deps.AccountRepo.ValidatePassword(row.PasswordHash, password) {
			sess.Send("ERR bad-credentials")
			return
		}
	}

	if deps.World.FindByAccount(account) != nil {
		sess.Send("ERR already-online")
		return
	}

	table, err := buildPrivilegeTable(ctx, account, deps)
	if err != nil {
		deps.Log.Error("載入權限失敗", zap.String("account", account), zap.Error(err))
		sess.Send("ERR internal")
		return
	}

	info := &world.SessionInfo{
		SessionID:   sess.ID,
		Session:     sess,
		Account:     account,
		AccessLevel: row.AccessLevel,
		Privs:       table,
	}
	if !deps.World.Add(info) {
		sess.Send("ERR internal")
		return
	}

	sess.AccountName = account
	sess.SetState(net.StateReady)

	if err := deps.AccountRepo.UpdateLastActive(ctx, account); err != nil {
		deps.Log.Warn("更新登入時間失敗", zap.String("account", account), zap.Error(err))
	}

	event.Publish(deps.Bus, event.SessionEntered{SessionID: sess.ID, Account: account})

	sess.Send(fmt.Sprintf("OK %s access=%d", account, row.AccessLevel))
}

// buildPrivilegeTable assembles a session's initial table: default
// privileges from the definition list, then per-account grant rows from the
// DB on top.
func buildPrivilegeTable(ctx context.Context, account string, deps *Deps) (privilege.Table, error) {
	table := privilege.NewMapTable()
	for _, def := range deps.Privileges.Defaults() {
		table.Put(privilege.Record{Name: def.Name, Active: true, Source: "default"})
	}

	rows, err := deps.GrantRepo.LoadForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	for _, g := range rows {
		table.Put(privilege.Record{Name: g.Privilege, Active: g.Active, Source: "db"})
	}
	return table, nil
}
