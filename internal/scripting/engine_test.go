package scripting

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/l1jgo/privwatch/internal/privilege"
	"github.com/l1jgo/privwatch/internal/world"
	"go.uber.org/zap"
)

func newEngineWithHook(t *testing.T, ws *world.State, hook string) *Engine {
	t.Helper()
	dir := t.TempDir()
	hooks := filepath.Join(dir, "hooks")
	if err := os.MkdirAll(hooks, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(hooks, "test.lua"), []byte(hook), 0644); err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(dir, ws, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func addSession(t *testing.T, ws *world.State, id uint64, account string) {
	t.Helper()
	if !ws.Add(&world.SessionInfo{SessionID: id, Account: account, Privs: privilege.NewMapTable()}) {
		t.Fatalf("add session %d failed", id)
	}
}

func TestLuaGrantRevokeAPI(t *testing.T) {
	ws := world.NewState()
	addSession(t, ws, 1, "gm")

	e := newEngineWithHook(t, ws, `
function on_privileges_changed(session_id, account, active, added, removed)
    priv_grant(session_id, "from.lua")
end
`)
	e.OnPrivilegesChanged(1, "gm", nil, nil, nil)

	if got := ws.ActiveOf(1); !reflect.DeepEqual(got, []string{"from.lua"}) {
		t.Fatalf("active = %v", got)
	}
}

func TestLuaHookSeesDelta(t *testing.T) {
	ws := world.NewState()
	addSession(t, ws, 1, "gm")

	e := newEngineWithHook(t, ws, `
seen = nil
function on_privileges_changed(session_id, account, active, added, removed)
    seen = account .. ":" .. (removed[1] or "?")
    if removed[1] == "chat.global" then
        priv_revoke(session_id, "chat.whisper")
    end
end
`)
	e.OnPrivilegesChanged(1, "gm", []string{}, []string{}, []string{"chat.global"})

	// The hook revokes chat.whisper via an inactive record write.
	tbl, err := ws.GrantTable(1)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := tbl.Get("chat.whisper")
	if !ok || rec.Active || rec.Source != "lua" {
		t.Fatalf("revocation record = %+v, %v", rec, ok)
	}
}

func TestLuaMissingHookIsHarmless(t *testing.T) {
	ws := world.NewState()
	e := newEngineWithHook(t, ws, `-- no hook defined`)
	e.OnPrivilegesChanged(1, "gm", nil, nil, nil)
}

func TestLuaHookErrorIsContained(t *testing.T) {
	ws := world.NewState()
	e := newEngineWithHook(t, ws, `
function on_privileges_changed(session_id, account, active, added, removed)
    error("boom")
end
`)
	// Must log and return, not panic.
	e.OnPrivilegesChanged(1, "gm", nil, nil, nil)
}
