package build

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/structure/template"
)

type setCall struct {
	pos   orient.Pos
	state grid.CellState
	flags grid.UpdateFlags
}

// fakeWorld is an in-memory grid.World that records every write.
type fakeWorld struct {
	cells    map[orient.Pos]grid.CellState
	entities map[string]grid.EntityRef
	types    map[string]grid.EntityType
	tiles    map[orient.Pos]grid.TileEntity

	sets       []setCall
	removed    []orient.Pos
	spawned    []grid.Entity
	dirty      []orient.Pos
	broadcasts []grid.TileEntity
	regionQs   int
	nextID     int

	// failSet makes SetCellState fail at these positions.
	failSet map[orient.Pos]error
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		cells:    map[orient.Pos]grid.CellState{},
		entities: map[string]grid.EntityRef{},
		types: map[string]grid.EntityType{
			"pig":        {ID: "pig", Living: true},
			"armor_rack": {ID: "armor_rack"},
			"painting":   {ID: "painting", Hanging: true},
			"item_frame": {ID: "item_frame", Hanging: true},
		},
		tiles:   map[orient.Pos]grid.TileEntity{},
		failSet: map[orient.Pos]error{},
	}
}

func (w *fakeWorld) CellState(pos orient.Pos) (grid.CellState, error) {
	if s, ok := w.cells[pos]; ok {
		return s, nil
	}
	return grid.Air, nil
}

func (w *fakeWorld) SetCellState(pos orient.Pos, st grid.CellState, flags grid.UpdateFlags) error {
	if err := w.failSet[pos]; err != nil {
		return err
	}
	w.sets = append(w.sets, setCall{pos: pos, state: st, flags: flags})
	if st.IsAir() {
		delete(w.cells, pos)
		return nil
	}
	w.cells[pos] = st
	return nil
}

func (w *fakeWorld) RemoveCell(pos orient.Pos, _ bool) error {
	w.removed = append(w.removed, pos)
	delete(w.cells, pos)
	return nil
}

func (w *fakeWorld) EntitiesInRegion(box grid.BBox) ([]grid.EntityRef, error) {
	w.regionQs++
	var out []grid.EntityRef
	for _, e := range w.entities {
		if e.Box.Intersects(box) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (w *fakeWorld) RemoveEntity(id string) error {
	if _, ok := w.entities[id]; !ok {
		return fmt.Errorf("no entity %s", id)
	}
	delete(w.entities, id)
	return nil
}

func (w *fakeWorld) EntityType(id string) (grid.EntityType, bool) {
	t, ok := w.types[id]
	return t, ok
}

func (w *fakeWorld) SpawnEntity(e grid.Entity) (string, error) {
	if _, ok := w.types[e.Type]; !ok {
		return "", grid.ErrUnknownEntityType
	}
	w.nextID++
	w.spawned = append(w.spawned, e)
	return fmt.Sprintf("E%d", w.nextID), nil
}

func (w *fakeWorld) TileEntity(pos orient.Pos) (grid.TileEntity, bool, error) {
	te, ok := w.tiles[pos]
	return te, ok, nil
}

func (w *fakeWorld) SetTileEntity(te grid.TileEntity) error {
	w.tiles[te.Pos] = te
	return nil
}

func (w *fakeWorld) RemoveTileEntity(pos orient.Pos) error {
	delete(w.tiles, pos)
	return nil
}

func (w *fakeWorld) MarkRegionDirty(pos orient.Pos) error {
	w.dirty = append(w.dirty, pos)
	return nil
}

func (w *fakeWorld) BroadcastTileEntityUpdate(te grid.TileEntity) error {
	w.broadcasts = append(w.broadcasts, te)
	return nil
}

var (
	stone = grid.CellState{Block: "stone", Kind: grid.KindSolid}
	torch = grid.CellState{Block: "torch", Kind: grid.KindTorch}
	water = grid.CellState{Block: "water", Kind: grid.KindWater}
	stair = grid.CellState{Block: "oak_stairs", Kind: grid.KindSolid, Facing: orient.North, Waterloggable: true}
)

func doorAt(p orient.Pos) template.CellRecord {
	lower := grid.CellState{Block: "oak_door", Kind: grid.KindDoor, Facing: orient.North, Half: grid.HalfLower}
	upper := lower
	upper.Half = grid.HalfUpper
	return template.CellRecord{Pos: p, State: lower, Sub: &template.CellRecord{Pos: p.Up(), State: upper}}
}

// newTemplate builds an unrotated template anchored at the origin.
func newTemplate(w grid.World, clear []orient.Pos, tiers map[int][]template.CellRecord) *template.Template {
	t := &template.Template{
		World:          w,
		StructureID:    "test_hut",
		Config:         template.Configuration{HouseFacing: orient.North},
		CanonicalNorth: orient.North,
		ClearDirection: orient.North,
		Cleared:        template.NewCursor(clear),
	}
	touched := map[orient.Pos]bool{}
	for _, p := range clear {
		touched[p] = true
	}
	for i := 0; i < template.TierCount; i++ {
		t.Tiers[i] = template.NewCursor(tiers[i])
		for _, r := range tiers[i] {
			touched[r.Pos] = true
			if r.Sub != nil {
				touched[r.Sub.Pos] = true
			}
		}
	}
	for p := range touched {
		t.AllTouched = append(t.AllTouched, p)
	}
	return t
}

func row(n int, st grid.CellState) []template.CellRecord {
	out := make([]template.CellRecord, n)
	for i := range out {
		out[i] = template.CellRecord{Pos: orient.Pos{X: i % 16, Y: i / 256, Z: (i / 16) % 16}, State: st}
	}
	return out
}

func box(n int) []orient.Pos {
	out := make([]orient.Pos, n)
	for i := range out {
		out[i] = orient.Pos{X: i % 16, Y: i / 256, Z: (i / 16) % 16}
	}
	return out
}

type recordingHooks struct {
	template.NopHooks
	cleared  []orient.Pos
	hanging  []string
	after    int
	afterErr error
}

func (h *recordingHooks) BeforeClearSpaceCellReplaced(_ grid.World, pos orient.Pos) {
	h.cleared = append(h.cleared, pos)
}

func (h *recordingHooks) BeforeHangingEntityRemoved(_ grid.World, e grid.EntityRef) {
	h.hanging = append(h.hanging, e.ID)
}

func (h *recordingHooks) AfterBuilding(template.Configuration, grid.World, orient.Pos, orient.Direction, string) error {
	h.after++
	return h.afterErr
}

type captureSink struct {
	progress    []Progress
	completions []Completion
}

func (c *captureSink) BuildProgress(p Progress)    { c.progress = append(c.progress, p) }
func (c *captureSink) BuildCompleted(x Completion) { c.completions = append(c.completions, x) }

func mgl(x, y, z float64) mgl64.Vec3 { return mgl64.Vec3{x, y, z} }
