package worldtest

import (
	"testing"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

func cell(t *testing.T, h *Harness, p orient.Pos) grid.CellState {
	t.Helper()
	st, err := h.W.Grid().CellState(p)
	if err != nil {
		t.Fatalf("cell %v: %v", p, err)
	}
	return st
}

func items(t *testing.T, h *Harness, p orient.Pos, typ string) []any {
	t.Helper()
	te, ok, err := h.W.Grid().TileEntity(p)
	if err != nil || !ok {
		t.Fatalf("tile entity at %v: ok=%v err=%v", p, ok, err)
	}
	if te.Type != typ {
		t.Fatalf("tile entity at %v is %q, want %q", p, te.Type, typ)
	}
	out, _ := te.Data["Items"].([]any)
	return out
}

func TestModerateHouse_FinishesStarterHouse(t *testing.T) {
	h := NewHarness(t, DefaultConfig(), LoadCatalogs(t))
	a := orient.Pos{X: 0, Y: Ground, Z: 0}
	id := h.Build("alice", "moderate_house", a, orient.North, nil)
	ticks := h.RunUntilIdle(20)

	c := h.Completion(id)
	if !c.OK || c.TileEntities != 3 || c.Entities != 3 || c.Skipped != 0 {
		t.Fatalf("completion=%+v", c)
	}
	if c.Ticks != uint64(ticks) {
		t.Fatalf("completion ticks=%d, stepped %d", c.Ticks, ticks)
	}
	for _, p := range h.Reports.Progress(id) {
		if p.Units > 100 {
			t.Fatalf("tick %d spent %d units", p.Tick, p.Units)
		}
	}

	if door := cell(t, h, a.Add(orient.Pos{Y: 2, Z: -3})); door.Kind != grid.KindDoor || door.Half != grid.HalfUpper {
		t.Fatalf("upper door=%+v", door)
	}

	// Furnaces get fuel and the first house of a requester gets the starter chest.
	fuel := items(t, h, a.Add(orient.Pos{X: -2, Y: 1, Z: 2}), "furnace")
	if len(fuel) != 1 || fuel[0].(map[string]any)["id"] != "coal" {
		t.Fatalf("furnace items=%v", fuel)
	}
	if got := items(t, h, a.Add(orient.Pos{X: -2, Y: 1, Z: -2}), "chest"); len(got) != 6 {
		t.Fatalf("starter chest items=%v", got)
	}

	// Beds are left out of the tiers and placed whole afterwards.
	foot := cell(t, h, a.Add(orient.Pos{X: 2, Y: 1}))
	head := cell(t, h, a.Add(orient.Pos{X: 2, Y: 1, Z: 1}))
	if foot.Block != "red_bed" || foot.Part != grid.PartFoot || foot.Facing != orient.South {
		t.Fatalf("bed foot=%+v", foot)
	}
	if head.Block != "red_bed" || head.Part != grid.PartHead {
		t.Fatalf("bed head=%+v", head)
	}

	// The trapdoor sits high enough for a mineshaft down to the room floor.
	shaft := orient.Pos{X: 2, Z: 2}
	if st := cell(t, h, orient.Pos{X: shaft.X, Y: 12, Z: shaft.Z}); st.Block != "ladder" {
		t.Fatalf("shaft y=12: %+v", st)
	}
	if st := cell(t, h, orient.Pos{X: shaft.X, Y: 8, Z: shaft.Z}); !st.IsAir() {
		t.Fatalf("room floor y=8: %+v", st)
	}
	if st := cell(t, h, orient.Pos{X: shaft.X, Y: 7, Z: shaft.Z}); st.Block != "cobblestone" {
		t.Fatalf("room base y=7: %+v", st)
	}

	types := map[string]int{}
	for _, e := range h.W.Grid().Entities() {
		types[e.Type]++
		if e.Type == "villager" && e.ID == "2b0c7c1e-8d6a-4e3f-b1a2-c3d4e5f60718" {
			t.Fatalf("villager kept the structure's UUID")
		}
	}
	if types["villager"] != 1 || types["painting"] != 1 || types["item_frame"] != 1 {
		t.Fatalf("entities=%v", types)
	}
}

func TestModerateHouse_StarterChestOncePerRequester(t *testing.T) {
	h := NewHarness(t, DefaultConfig(), LoadCatalogs(t))
	first := orient.Pos{X: 0, Y: Ground, Z: 0}
	second := orient.Pos{X: 40, Y: Ground, Z: 0}
	other := orient.Pos{X: 80, Y: Ground, Z: 0}
	h.Build("alice", "moderate_house", first, orient.North, nil)
	h.Build("alice", "moderate_house", second, orient.North, nil)
	h.Build("bob", "moderate_house", other, orient.North, map[string]string{"add_mineshaft": "false"})
	h.RunUntilIdle(40)

	chest := orient.Pos{X: -2, Y: 1, Z: -2}
	if got := items(t, h, first.Add(chest), "chest"); len(got) != 6 {
		t.Fatalf("first chest=%v", got)
	}
	if got := items(t, h, second.Add(chest), "chest"); len(got) != 0 {
		t.Fatalf("second chest=%v", got)
	}
	if got := items(t, h, other.Add(chest), "chest"); len(got) != 6 {
		t.Fatalf("bob's chest=%v", got)
	}
	// bob opted out of the shaft: the trapdoor's column stays terrain.
	if st := cell(t, h, orient.Pos{X: other.X + 2, Y: 12, Z: 2}); st.Block == "ladder" {
		t.Fatalf("mineshaft built without add_mineshaft")
	}
}

func TestModerateHouse_RotatesOntoFacing(t *testing.T) {
	h := NewHarness(t, DefaultConfig(), LoadCatalogs(t))
	a := orient.Pos{X: 0, Y: Ground, Z: 40}
	id := h.Build("carol", "moderate_house", a, orient.East, map[string]string{"bed_color": "blue"})
	h.RunUntilIdle(20)
	if c := h.Completion(id); !c.OK {
		t.Fatalf("completion=%+v", c)
	}

	// Local (0,1,-3) turns clockwise to (3,1,0).
	door := cell(t, h, a.Add(orient.Pos{X: 3, Y: 1}))
	if door.Kind != grid.KindDoor || door.Half != grid.HalfLower || door.Facing != orient.East {
		t.Fatalf("door=%+v", door)
	}
	// Bed foot local (2,1,0) lands on (0,1,2), facing west.
	foot := cell(t, h, a.Add(orient.Pos{Y: 1, Z: 2}))
	if foot.Block != "blue_bed" || foot.Part != grid.PartFoot || foot.Facing != orient.West {
		t.Fatalf("bed foot=%+v", foot)
	}
}
