package catalogs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"voxelprefab.ai/internal/sim/structure/grid"
)

func TestLoad_ShippedConfigs(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Blocks.Palette[0] != "air" {
		t.Fatalf("palette[0]=%q", c.Blocks.Palette[0])
	}
	for _, id := range []string{"moderate_house", "bulldozer", "hut", "shed"} {
		if _, err := c.Structures.Get(id); err != nil {
			t.Fatalf("structure %s: %v", id, err)
		}
	}
	house, _ := c.Structures.Get("moderate_house")
	if house.Hooks != "moderate_house" || house.Clear == nil {
		t.Fatalf("house: hooks=%q clear=%v", house.Hooks, house.Clear)
	}
	// Blocks the built-in hooks place on their own.
	for _, id := range []string{"cobblestone", "ladder", "torch", "red_bed", "water", "gravel", "bedrock"} {
		if _, err := c.Blocks.State(id); err != nil {
			t.Fatalf("block %s: %v", id, err)
		}
	}
	if c.Blocks.KindOf("oak_door") != grid.KindDoor {
		t.Fatalf("oak_door kind=%v", c.Blocks.KindOf("oak_door"))
	}
	if c.Entities.ByID["painting"].Category != "hanging" {
		t.Fatalf("painting: %+v", c.Entities.ByID["painting"])
	}
	if len(c.Structures.IDs()) != 4 {
		t.Fatalf("ids=%v", c.Structures.IDs())
	}
}

func TestNewBlockCatalog_RequiresAir(t *testing.T) {
	if _, err := NewBlockCatalog([]BlockDef{{ID: "stone", Kind: "solid"}}); err == nil {
		t.Fatalf("expected missing air error")
	}
	if _, err := NewBlockCatalog([]BlockDef{{ID: "air", Kind: "air"}, {ID: "x", Kind: "plasma"}}); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	c, err := NewBlockCatalog([]BlockDef{{ID: "zinc", Kind: "solid"}, {ID: "air", Kind: "air"}, {ID: "ash", Kind: "falling"}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if c.Index["air"] != 0 || c.Palette[1] != "ash" || c.Palette[2] != "zinc" {
		t.Fatalf("palette=%v", c.Palette)
	}
}

func TestParseStructure_Schema(t *testing.T) {
	schema, err := compileStructureSchema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"minimal", `{"id":"a","canonical_north":"north","blocks":[]}`, true},
		{"bad north", `{"id":"a","canonical_north":"up","blocks":[]}`, false},
		{"no blocks", `{"id":"a","canonical_north":"north"}`, false},
		{"short pos", `{"id":"a","canonical_north":"north","blocks":[{"pos":[1,2],"block":"stone"}]}`, false},
		{"bad half", `{"id":"a","canonical_north":"north","blocks":[{"pos":[0,0,0],"block":"oak_door","half":"middle"}]}`, false},
	}
	for _, tc := range cases {
		_, err := ParseStructure(schema, []byte(tc.raw))
		if (err == nil) != tc.ok {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
	}
}

func TestLoad_CompressedStructuresAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, b []byte) {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, b, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("blocks.json", []byte(`[{"id":"air","kind":"air"},{"id":"stone","kind":"solid"}]`))

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	raw := []byte(`{"id":"pad","canonical_north":"north","blocks":[{"pos":[0,0,0],"block":"stone"}]}`)
	write("structures/pad.json.zst", enc.EncodeAll(raw, nil))
	_ = enc.Close()

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pad, err := c.Structures.Get("pad"); err != nil || len(pad.Blocks) != 1 {
		t.Fatalf("pad=%+v err=%v", pad, err)
	}
	if len(c.Entities.ByID) != 0 {
		t.Fatalf("entities should be optional")
	}

	write("structures/pad_copy.json", raw)
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	_ = os.Remove(filepath.Join(dir, "structures", "pad_copy.json"))
	write("structures/bad.json", []byte(`{"id":"bad","canonical_north":"north","blocks":[{"pos":[0,0,0],"block":"marble"}]}`))
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected unknown block error")
	}
}

func TestEntityDef_SpriteSize(t *testing.T) {
	d := EntityDef{Width: 12, Height: 12, Motives: map[string][2]int{"Pool": {32, 16}}}
	if w, h := d.SpriteSize("Pool"); w != 32 || h != 16 {
		t.Fatalf("Pool=%dx%d", w, h)
	}
	if w, h := d.SpriteSize(""); w != 12 || h != 12 {
		t.Fatalf("default=%dx%d", w, h)
	}
}
