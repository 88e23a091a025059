package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:      Header{WorldID: "overworld", Tick: 42},
		Seed:        7,
		TickRate:    20,
		Height:      32,
		GroundLevel: 8,
		States:      []StateV1{{Block: "air", Kind: 1}, {Block: "oak_stairs", Facing: 2, Waterloggable: true}},
		Chunks:      []ChunkV1{{CX: 1, CZ: -1, Height: 32, Cells: make([]uint16, 16*16*32)}},
		TileEntities: []TileEntityV1{
			{Pos: [3]int{1, 2, 3}, Type: "chest", Data: []byte(`{"Items":[]}`)},
		},
		Entities: []EntityV1{
			{ID: "e1", Type: "painting", Pos: [3]float64{0.5, 1, 0.03}, Hanging: true, Data: []byte(`{"Motive":"kebab"}`)},
		},
		StarterHouses: []string{"alice"},
		Counters:      CountersV1{NextBuild: 9},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap := sample()
	snap.Chunks[0].Cells[300] = 1
	path := PathFor(dir, snap.Header.Tick)
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header.Version != Version || got.Header.Tick != 42 || got.Header.WorldID != "overworld" {
		t.Fatalf("header=%+v", got.Header)
	}
	if got.Chunks[0].Cells[300] != 1 || got.States[1].Block != "oak_stairs" {
		t.Fatalf("chunks/states lost")
	}
	if string(got.TileEntities[0].Data) != `{"Items":[]}` || !got.Entities[0].Hanging {
		t.Fatalf("tile entities/entities lost: %+v %+v", got.TileEntities, got.Entities)
	}
	if got.Counters.NextBuild != 9 || got.StarterHouses[0] != "alice" {
		t.Fatalf("counters=%+v starters=%v", got.Counters, got.StarterHouses)
	}

	h, err := ReadHeader(path)
	if err != nil || h.Tick != 42 {
		t.Fatalf("header=%+v err=%v", h, err)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if Latest(dir) != "" {
		t.Fatalf("expected no snapshot")
	}
	for _, tick := range []uint64{9, 120, 30} {
		snap := sample()
		snap.Header.Tick = tick
		if err := WriteSnapshot(PathFor(dir, tick), snap); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.snap.zst"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	if got := Latest(dir); got != PathFor(dir, 120) {
		t.Fatalf("latest=%s", got)
	}
}
