package world

import (
	"encoding/json"
	"sync"
	"testing"

	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/structure/grid"
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	blocks, err := catalogs.NewBlockCatalog([]catalogs.BlockDef{
		{ID: "air", Kind: "air"},
		{ID: "bedrock", Kind: "solid"},
		{ID: "stone", Kind: "solid"},
		{ID: "dirt", Kind: "solid"},
		{ID: "grass", Kind: "solid"},
		{ID: "water", Kind: "water"},
		{ID: "gravel", Kind: "falling"},
		{ID: "oak_door", Kind: "door"},
		{ID: "torch", Kind: "torch"},
		{ID: "oak_stairs", Kind: "solid", Waterloggable: true},
		{ID: "chest", Kind: "chest", TileEntity: "chest", Networked: true},
	})
	if err != nil {
		t.Fatalf("blocks: %v", err)
	}
	return &catalogs.Catalogs{
		Blocks: blocks,
		Entities: catalogs.EntityCatalog{ByID: map[string]catalogs.EntityDef{
			"pig":      {ID: "pig", Category: "general", Living: true},
			"painting": {ID: "painting", Category: "hanging", Motives: map[string][2]int{"Kebab": {16, 16}}},
		}},
		Structures: catalogs.StructureCatalog{ByID: map[string]catalogs.StructureDef{
			"hut": hutDef(),
		}},
	}
}

// hutDef is a 3x3 stone pad with a door, a torch, a chest and a pig.
func hutDef() catalogs.StructureDef {
	def := catalogs.StructureDef{
		ID:             "hut",
		CanonicalNorth: "north",
		Clear:          &[2][3]int{{-1, 0, -1}, {1, 2, 1}},
	}
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			def.Blocks = append(def.Blocks, catalogs.BPBlock{Pos: [3]int{x, 0, z}, Block: "stone"})
		}
	}
	def.Blocks = append(def.Blocks,
		catalogs.BPBlock{
			Pos: [3]int{0, 1, -1}, Block: "oak_door", Facing: "north", Half: "lower",
			Sub: &catalogs.BPBlock{Pos: [3]int{0, 2, -1}, Block: "oak_door", Facing: "north", Half: "upper"},
		},
		catalogs.BPBlock{Pos: [3]int{1, 1, 0}, Block: "torch", Facing: "east"},
		catalogs.BPBlock{Pos: [3]int{-1, 1, 1}, Block: "chest", Facing: "south"},
	)
	def.TileEntities = []catalogs.BPTileEntity{{
		Pos:  [3]int{-1, 1, 1},
		Type: "chest",
		Data: json.RawMessage(`{"Items":[{"id":"bread","Count":3}]}`),
	}}
	def.Entities = []catalogs.BPEntity{{
		Type: "pig",
		Pos:  [3]int{0, 1, 0},
		Data: json.RawMessage(`{"UUID":"00000000-0000-0000-0000-000000000001","Rotation":[90,0]}`),
	}}
	return def
}

func testConfig() WorldConfig {
	return WorldConfig{
		ID:          "test",
		Seed:        42,
		Height:      32,
		GroundLevel: 10,
		BoundaryR:   256,
	}
}

func newTestWorld(t *testing.T, deps Deps) *World {
	t.Helper()
	w, err := New(testConfig(), testCatalogs(t), deps)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

type recordingObserver struct {
	mu    sync.Mutex
	tiles []grid.TileEntity
	cells int
}

func (o *recordingObserver) TileEntityUpdated(_ uint64, te grid.TileEntity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tiles = append(o.tiles, te)
}

func (o *recordingObserver) CellsChanged(_ uint64, cells []CellChange) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cells += len(cells)
}

type captureSink struct {
	mu        sync.Mutex
	progress  []build.Progress
	completed []build.Completion
}

func (s *captureSink) BuildProgress(p build.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
}

func (s *captureSink) BuildCompleted(c build.Completion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, c)
}

func (s *captureSink) done() []build.Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]build.Completion(nil), s.completed...)
}
