package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding structure hook scripts.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in scriptsDir. A
// missing directory yields an engine with no hooks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("hooks", vm.NewTable())

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load structure scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
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

// LoadString runs a chunk of Lua source, typically registering hooks.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) Close() { e.vm.Close() }

// Names lists the registered hook tables.
func (e *Engine) Names() []string {
	var out []string
	if t, ok := e.vm.GetGlobal("hooks").(*lua.LTable); ok {
		t.ForEach(func(k, v lua.LValue) {
			if _, ok := v.(*lua.LTable); ok {
				out = append(out, k.String())
			}
		})
	}
	sort.Strings(out)
	return out
}

// Has reports whether a hook table named name is registered.
func (e *Engine) Has(name string) bool {
	return e.hookTable(name) != nil
}

func (e *Engine) hookTable(name string) *lua.LTable {
	hooks, ok := e.vm.GetGlobal("hooks").(*lua.LTable)
	if !ok {
		return nil
	}
	t, _ := hooks.RawGetString(name).(*lua.LTable)
	return t
}

func (e *Engine) hookFn(name, fn string) lua.LValue {
	t := e.hookTable(name)
	if t == nil {
		return lua.LNil
	}
	return t.RawGetString(fn)
}

// CellContext is one assembled cell offered to a script. Positions are
// template-local.
type CellContext struct {
	X, Y, Z   int
	Block     string
	Kind      string
	Facing    string
	Requester string
	Options   map[string]string
}

// BuildContext describes a finished build.
type BuildContext struct {
	AnchorX, AnchorY, AnchorZ int
	HouseFacing               string
	Requester                 string
	Options                   map[string]string
}

// Edit is one cell write requested by a script. Positions are
// template-local.
type Edit struct {
	X, Y, Z int
	Block   string
	Facing  string
}

// CustomCell calls hooks[name].custom_cell(ctx). Scripts without the
// function, or failing ones, claim nothing.
func (e *Engine) CustomCell(name string, ctx CellContext) bool {
	fn := e.hookFn(name, "custom_cell")
	if fn == lua.LNil {
		return false
	}

	t := e.vm.NewTable()
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("z", lua.LNumber(ctx.Z))
	t.RawSetString("block", lua.LString(ctx.Block))
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("facing", lua.LString(ctx.Facing))
	t.RawSetString("requester", lua.LString(ctx.Requester))
	t.RawSetString("options", e.optionsTable(ctx.Options))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua custom_cell error", zap.String("hooks", name), zap.Error(err))
		return false
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(result)
}

// AfterBuilding calls hooks[name].after_building(ctx) and returns the cell
// edits it asks for.
func (e *Engine) AfterBuilding(name string, ctx BuildContext) ([]Edit, error) {
	fn := e.hookFn(name, "after_building")
	if fn == lua.LNil {
		return nil, nil
	}

	t := e.vm.NewTable()
	anchor := e.vm.NewTable()
	anchor.RawSetString("x", lua.LNumber(ctx.AnchorX))
	anchor.RawSetString("y", lua.LNumber(ctx.AnchorY))
	anchor.RawSetString("z", lua.LNumber(ctx.AnchorZ))
	t.RawSetString("anchor", anchor)
	t.RawSetString("facing", lua.LString(ctx.HouseFacing))
	t.RawSetString("requester", lua.LString(ctx.Requester))
	t.RawSetString("options", e.optionsTable(ctx.Options))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return nil, fmt.Errorf("lua %s.after_building: %w", name, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return nil, nil
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua %s.after_building returned %s, want table", name, result.Type())
	}

	var edits []Edit
	var bad error
	rt.ForEach(func(_, v lua.LValue) {
		row, ok := v.(*lua.LTable)
		if !ok {
			bad = fmt.Errorf("lua %s.after_building: edit is %s, want table", name, v.Type())
			return
		}
		ed := Edit{
			X:      int(lua.LVAsNumber(row.RawGetString("x"))),
			Y:      int(lua.LVAsNumber(row.RawGetString("y"))),
			Z:      int(lua.LVAsNumber(row.RawGetString("z"))),
			Block:  lua.LVAsString(row.RawGetString("block")),
			Facing: lua.LVAsString(row.RawGetString("facing")),
		}
		if ed.Block == "" {
			bad = fmt.Errorf("lua %s.after_building: edit without block", name)
			return
		}
		edits = append(edits, ed)
	})
	if bad != nil {
		return nil, bad
	}
	return edits, nil
}

func (e *Engine) optionsTable(opts map[string]string) *lua.LTable {
	t := e.vm.NewTable()
	for k, v := range opts {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}
