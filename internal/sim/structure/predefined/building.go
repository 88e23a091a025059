package predefined

import (
	"fmt"

	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

const (
	// Shafts are only dug from houses standing above this height.
	mineshaftMinSurface = 15
	mineshaftFloor      = 8
	fuelPerFurnace      = 20
)

var starterChest = []map[string]any{
	{"Slot": 0, "id": "stone_pickaxe", "Count": 1},
	{"Slot": 1, "id": "stone_axe", "Count": 1},
	{"Slot": 2, "id": "stone_shovel", "Count": 1},
	{"Slot": 3, "id": "torch", "Count": 32},
	{"Slot": 4, "id": "bread", "Count": 16},
	{"Slot": 5, "id": "oak_sapling", "Count": 4},
}

func fillFurnaces(w grid.World, at []orient.Pos) error {
	for _, pos := range at {
		err := editTileEntity(w, pos, "furnace", func(data map[string]any) {
			data["Items"] = []any{map[string]any{"Slot": 1, "id": "coal", "Count": fuelPerFurnace}}
		})
		if err != nil {
			return fmt.Errorf("furnace at %v: %w", pos, err)
		}
	}
	return nil
}

func fillChest(w grid.World, pos orient.Pos) error {
	err := editTileEntity(w, pos, "chest", func(data map[string]any) {
		items := make([]any, len(starterChest))
		for i, it := range starterChest {
			cp := map[string]any{}
			for k, v := range it {
				cp[k] = v
			}
			items[i] = cp
		}
		data["Items"] = items
	})
	if err != nil {
		return fmt.Errorf("chest at %v: %w", pos, err)
	}
	return nil
}

func editTileEntity(w grid.World, pos orient.Pos, typ string, edit func(map[string]any)) error {
	te, ok, err := w.TileEntity(pos)
	if err != nil {
		return err
	}
	if !ok {
		te = grid.TileEntity{Pos: pos, Type: typ, Data: map[string]any{"x": pos.X, "y": pos.Y, "z": pos.Z}}
	}
	if te.Data == nil {
		te.Data = map[string]any{}
	}
	edit(te.Data)
	if err := w.SetTileEntity(te); err != nil {
		return err
	}
	return w.MarkRegionDirty(pos)
}

// placeMineShaft digs a laddered shaft from top down to the shaft floor and
// opens a small room at the bottom. Walls are lined with cobblestone so
// the shaft stays dry.
func placeMineShaft(w grid.World, blocks *catalogs.BlockCatalog, top orient.Pos, facing orient.Direction) error {
	if blocks == nil {
		return fmt.Errorf("no block catalog")
	}
	wall, err := blocks.State("cobblestone")
	if err != nil {
		return err
	}
	ladder, err := blocks.State("ladder")
	if err != nil {
		return err
	}
	ladder.Facing = facing
	torch, err := blocks.State("torch")
	if err != nil {
		return err
	}

	back := facing.Opposite()
	for y := top.Y; y > mineshaftFloor; y-- {
		p := orient.Pos{X: top.X, Y: y, Z: top.Z}
		for _, d := range orient.Horizontals {
			if err := lineWall(w, p.Side(d), wall); err != nil {
				return err
			}
		}
		if err := w.SetCellState(p.Side(back), wall, grid.FlagsDefault); err != nil {
			return err
		}
		if err := w.SetCellState(p, ladder, grid.FlagsDefault); err != nil {
			return err
		}
	}

	floor := orient.Pos{X: top.X, Y: mineshaftFloor, Z: top.Z}
	backStep := back.Step()
	for dy := 0; dy < 3; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				off := orient.Pos{X: dx, Y: dy, Z: dz}
				// Keep the ladder column and its wall above the floor.
				if dy > 0 && ((dx == 0 && dz == 0) || (dx == backStep.X && dz == backStep.Z)) {
					continue
				}
				p := floor.Add(off)
				if err := w.SetCellState(p, grid.Air, grid.FlagsDefault); err != nil {
					return err
				}
			}
		}
	}
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if err := w.SetCellState(floor.Add(orient.Pos{X: dx, Y: -1, Z: dz}), wall, grid.FlagsDefault); err != nil {
				return err
			}
		}
	}
	return w.SetCellState(floor.Side(back), torch, grid.FlagsDefault)
}

func lineWall(w grid.World, p orient.Pos, wall grid.CellState) error {
	cur, err := w.CellState(p)
	if err != nil {
		return err
	}
	if cur.IsAir() || cur.IsWater() || cur.Kind == grid.KindFalling {
		return w.SetCellState(p, wall, grid.FlagsDefault)
	}
	return nil
}

// placeColoredBed writes both halves of a bed facing from foot to head.
func placeColoredBed(w grid.World, blocks *catalogs.BlockCatalog, head, foot orient.Pos, color string) error {
	if blocks == nil {
		return fmt.Errorf("no block catalog")
	}
	st, err := blocks.State(color + "_bed")
	if err != nil {
		if st, err = blocks.State("red_bed"); err != nil {
			return err
		}
	}
	facing, ok := directionBetween(foot, head)
	if !ok {
		return fmt.Errorf("bed halves %v and %v are not adjacent", head, foot)
	}
	st.Facing = facing

	footState, headState := st, st
	footState.Part = grid.PartFoot
	headState.Part = grid.PartHead
	if err := w.SetCellState(foot, footState, grid.FlagsDefault); err != nil {
		return err
	}
	return w.SetCellState(head, headState, grid.FlagsDefault)
}

func directionBetween(from, to orient.Pos) (orient.Direction, bool) {
	for _, d := range orient.Horizontals {
		if from.Side(d) == to {
			return d, true
		}
	}
	return orient.North, false
}
