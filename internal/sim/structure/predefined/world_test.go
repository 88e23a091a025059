package predefined

import (
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

type mapWorld struct {
	cells map[orient.Pos]grid.CellState
	tiles map[orient.Pos]grid.TileEntity
}

func newMapWorld() *mapWorld {
	return &mapWorld{cells: map[orient.Pos]grid.CellState{}, tiles: map[orient.Pos]grid.TileEntity{}}
}

func (w *mapWorld) CellState(p orient.Pos) (grid.CellState, error) {
	if s, ok := w.cells[p]; ok {
		return s, nil
	}
	return grid.Air, nil
}

func (w *mapWorld) SetCellState(p orient.Pos, s grid.CellState, _ grid.UpdateFlags) error {
	if s.IsAir() {
		delete(w.cells, p)
	} else {
		w.cells[p] = s
	}
	return nil
}

func (w *mapWorld) RemoveCell(p orient.Pos, _ bool) error {
	delete(w.cells, p)
	return nil
}

func (w *mapWorld) EntitiesInRegion(grid.BBox) ([]grid.EntityRef, error) { return nil, nil }
func (w *mapWorld) RemoveEntity(string) error                            { return nil }
func (w *mapWorld) EntityType(id string) (grid.EntityType, bool) {
	return grid.EntityType{ID: id}, true
}
func (w *mapWorld) SpawnEntity(grid.Entity) (string, error) { return "E1", nil }

func (w *mapWorld) TileEntity(p orient.Pos) (grid.TileEntity, bool, error) {
	te, ok := w.tiles[p]
	return te, ok, nil
}

func (w *mapWorld) SetTileEntity(te grid.TileEntity) error {
	w.tiles[te.Pos] = te
	return nil
}

func (w *mapWorld) RemoveTileEntity(p orient.Pos) error {
	delete(w.tiles, p)
	return nil
}

func (w *mapWorld) MarkRegionDirty(orient.Pos) error                { return nil }
func (w *mapWorld) BroadcastTileEntityUpdate(grid.TileEntity) error { return nil }

func testBlocks() *catalogs.BlockCatalog {
	c, err := catalogs.NewBlockCatalog([]catalogs.BlockDef{
		{ID: "air", Kind: "air"},
		{ID: "water", Kind: "water"},
		{ID: "stone", Kind: "solid"},
		{ID: "cobblestone", Kind: "solid"},
		{ID: "ladder", Kind: "ladder", Waterloggable: true},
		{ID: "torch", Kind: "torch"},
		{ID: "lantern", Kind: "lantern", Waterloggable: true},
		{ID: "oak_sign", Kind: "sign", TileEntity: "sign", Networked: true},
		{ID: "furnace", Kind: "furnace", TileEntity: "furnace"},
		{ID: "chest", Kind: "chest", TileEntity: "chest", Waterloggable: true},
		{ID: "oak_trapdoor", Kind: "trapdoor"},
		{ID: "sponge", Kind: "sponge"},
		{ID: "red_bed", Kind: "bed"},
		{ID: "blue_bed", Kind: "bed"},
	})
	if err != nil {
		panic(err)
	}
	return &c
}
