package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

const shedScript = `
hooks.shed = {
  custom_cell = function(ctx)
    return ctx.kind == "chest" and ctx.options.add_chests == "false"
  end,
  after_building = function(ctx)
    local out = {}
    if ctx.options.lantern ~= "false" then
      table.insert(out, {x = 0, y = 3, z = 0, block = "lantern"})
    end
    table.insert(out, {x = 1, y = 0, z = -1, block = "oak_sign", facing = "north"})
    return out
  end,
}
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shed.lua"), []byte(shedScript), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEngine_LoadsHookTables(t *testing.T) {
	e := newTestEngine(t)
	if !e.Has("shed") || e.Has("castle") {
		t.Fatalf("names=%v", e.Names())
	}
	if got := e.Names(); len(got) != 1 || got[0] != "shed" {
		t.Fatalf("names=%v", got)
	}
}

func TestEngine_MissingDirIsEmpty(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	defer e.Close()
	if len(e.Names()) != 0 {
		t.Fatalf("names=%v", e.Names())
	}
}

func TestEngine_CustomCell(t *testing.T) {
	e := newTestEngine(t)
	ctx := CellContext{Kind: "chest", Options: map[string]string{"add_chests": "false"}}
	if !e.CustomCell("shed", ctx) {
		t.Fatalf("chest not claimed")
	}
	ctx.Options["add_chests"] = "true"
	if e.CustomCell("shed", ctx) {
		t.Fatalf("chest claimed with add_chests=true")
	}
	if e.CustomCell("castle", ctx) {
		t.Fatalf("unknown hooks claimed a cell")
	}
}

func TestEngine_AfterBuildingEdits(t *testing.T) {
	e := newTestEngine(t)
	edits, err := e.AfterBuilding("shed", BuildContext{HouseFacing: "east", Options: map[string]string{}})
	if err != nil {
		t.Fatalf("after_building: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("edits=%+v", edits)
	}
	if edits[0] != (Edit{X: 0, Y: 3, Z: 0, Block: "lantern"}) {
		t.Fatalf("edit 0=%+v", edits[0])
	}
	if edits[1] != (Edit{X: 1, Y: 0, Z: -1, Block: "oak_sign", Facing: "north"}) {
		t.Fatalf("edit 1=%+v", edits[1])
	}

	edits, err = e.AfterBuilding("shed", BuildContext{Options: map[string]string{"lantern": "false"}})
	if err != nil || len(edits) != 1 {
		t.Fatalf("edits=%+v err=%v", edits, err)
	}
}

func TestEngine_AfterBuildingRejectsBadResult(t *testing.T) {
	e := newTestEngine(t)
	if err := e.LoadString(`hooks.broken = { after_building = function(ctx) return 42 end }`); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := e.AfterBuilding("broken", BuildContext{}); err == nil {
		t.Fatalf("expected error for non-table result")
	}
	if err := e.LoadString(`hooks.boom = { after_building = function(ctx) error("no") end }`); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := e.AfterBuilding("boom", BuildContext{}); err == nil {
		t.Fatalf("expected error from failing script")
	}
}
