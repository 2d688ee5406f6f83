package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/l1jgo/privwatch/internal/privilege"
	"github.com/l1jgo/privwatch/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for privilege automation. The VM is
// not goroutine-safe, and callers arrive from session handlers and settle
// timers alike, so every entry point takes the engine mutex.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine, binds the privilege API against world
// state, and loads all scripts from the given directory.
func NewEngine(scriptsDir string, ws *world.State, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	e.bind(ws)

	// Load hook scripts first, then automation scripts
	for _, sub := range []string{"hooks", "automation"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// bind registers the Go-side privilege API. Writes go through whatever
// table reference world state currently holds — while a session is tracked
// that is the watcher's tap, so Lua writes debounce like any other
// caller's.
func (e *Engine) bind(ws *world.State) {
	e.vm.SetGlobal("priv_grant", e.vm.NewFunction(func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		name := L.CheckString(2)
		ok := ws.PutRecord(id, privilege.Record{Name: name, Active: true, Source: "lua"})
		L.Push(lua.LBool(ok))
		return 1
	}))

	e.vm.SetGlobal("priv_revoke", e.vm.NewFunction(func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		name := L.CheckString(2)
		ok := ws.PutRecord(id, privilege.Record{Name: name, Active: false, Source: "lua"})
		L.Push(lua.LBool(ok))
		return 1
	}))

	e.vm.SetGlobal("priv_active", e.vm.NewFunction(func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		tbl := L.NewTable()
		for i, name := range ws.ActiveOf(id) {
			L.RawSetInt(tbl, i+1, lua.LString(name))
		}
		L.Push(tbl)
		return 1
	}))
}

// OnPrivilegesChanged invokes the on_privileges_changed Lua hook, if
// defined. Hook errors are logged, never propagated; a broken script must
// not break change delivery to other consumers.
func (e *Engine) OnPrivilegesChanged(sessionID uint64, account string, active, added, removed []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("on_privileges_changed")
	if fn == lua.LNil {
		return
	}

	err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(sessionID), lua.LString(account),
		e.strTable(active), e.strTable(added), e.strTable(removed))
	if err != nil {
		e.log.Error("lua on_privileges_changed failed",
			zap.Uint64("session", sessionID), zap.Error(err))
	}
}

func (e *Engine) strTable(names []string) *lua.LTable {
	tbl := e.vm.NewTable()
	for i, name := range names {
		e.vm.RawSetInt(tbl, i+1, lua.LString(name))
	}
	return tbl
}

// Close shuts down the VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
