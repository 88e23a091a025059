package worldtest

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

func TestBulldozer_ClearsAndEvicts(t *testing.T) {
	h := NewHarness(t, DefaultConfig(), LoadCatalogs(t))
	a := orient.Pos{X: 0, Y: Ground, Z: 0}
	h.Build("alice", "hut", a, orient.North, nil)
	h.RunUntilIdle(5)
	if st := cell(t, h, a); st.Block != "stone" {
		t.Fatalf("hut pad=%+v", st)
	}

	g := h.W.Grid()
	g.AddPlayer("steve", mgl64.Vec3{3.5, Ground, 3.5})
	if _, err := g.SpawnEntity(grid.Entity{Type: "cow", Pos: mgl64.Vec3{-4.5, Ground, 2.5}, Data: map[string]any{}}); err != nil {
		t.Fatalf("spawn: %v", err)
	}

	id := h.Build("alice", "bulldozer", a, orient.North, nil)
	h.RunUntilIdle(30)
	c := h.Completion(id)
	if !c.OK || c.Entities != 0 {
		t.Fatalf("completion=%+v", c)
	}

	for _, p := range []orient.Pos{a, a.Add(orient.Pos{Y: 2, Z: -1}), a.Add(orient.Pos{X: 1, Y: 1})} {
		if st := cell(t, h, p); !st.IsAir() {
			t.Fatalf("%v not cleared: %+v", p, st)
		}
	}
	if _, ok, _ := g.TileEntity(a.Add(orient.Pos{X: -1, Y: 1, Z: 1})); ok {
		t.Fatalf("chest tile entity survived")
	}
	// Terrain under the volume is untouched.
	if st := cell(t, h, a.Down()); st.IsAir() {
		t.Fatalf("ground under the volume was cleared")
	}

	evicted := 0
	for _, p := range h.Reports.Progress(id) {
		evicted += p.Evicted
	}
	ents := g.Entities()
	if len(ents) != 1 || ents[0].ID != "steve" {
		t.Fatalf("entities left=%+v", ents)
	}
	if evicted != 2 {
		t.Fatalf("evicted=%d, want pig and cow", evicted)
	}
}
