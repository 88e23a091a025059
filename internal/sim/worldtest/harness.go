package worldtest

import (
	"path/filepath"
	"sync"
	"testing"

	"voxelprefab.ai/internal/scripting"
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/structure/orient"
	world "voxelprefab.ai/internal/sim/world"
)

// ConfigDir is the shipped configuration the harness loads.
var ConfigDir = filepath.Join("..", "..", "..", "configs")

// Ground is the terrain surface the harness worlds use; structures anchored
// at Ground stand on the top grass layer.
const Ground = 20

// Harness is a small black-box test helper for driving a world via exported
// APIs: Build() queues a structure, Step()/RunUntilIdle() advance ticks and
// the Recorder keeps every report.
//
// It avoids touching world internals so tests can live outside the world
// package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	Reports *Recorder
}

func DefaultConfig() world.WorldConfig {
	return world.WorldConfig{
		ID:          "worldtest",
		Seed:        42,
		Height:      48,
		GroundLevel: Ground,
		BoundaryR:   512,
		// Keep ponds away from the build sites.
		PondPermille: 1,
	}
}

// LoadCatalogs reads the shipped catalogs.
func LoadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(ConfigDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	scripts, err := scripting.NewEngine(filepath.Join(ConfigDir, "scripts"), nil)
	if err != nil {
		t.Fatalf("scripts: %v", err)
	}
	t.Cleanup(scripts.Close)

	rec := &Recorder{}
	w, err := world.New(cfg, cats, world.Deps{Scripts: scripts, Sink: rec})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, Cats: cats, W: w, Reports: rec}
}

// Build queues a structure at anchor and returns its id.
func (h *Harness) Build(requester, structure string, anchor orient.Pos, facing orient.Direction, opts map[string]string) string {
	h.T.Helper()
	id, err := h.W.Enqueue(world.BuildSpec{
		Requester: requester,
		Structure: structure,
		Anchor:    anchor,
		Facing:    facing,
		Options:   opts,
	})
	if err != nil {
		h.T.Fatalf("enqueue %s: %v", structure, err)
	}
	return id
}

func (h *Harness) Step() build.TickReport {
	return h.W.StepOnce()
}

// RunUntilIdle steps until no build is queued and returns the number of
// ticks taken.
func (h *Harness) RunUntilIdle(maxTicks int) int {
	h.T.Helper()
	for i := 1; i <= maxTicks; i++ {
		h.Step()
		if len(h.W.QueuedBuilds()) == 0 {
			return i
		}
	}
	h.T.Fatalf("builds still queued after %d ticks", maxTicks)
	return maxTicks
}

// Completion returns the completion report of a build.
func (h *Harness) Completion(buildID string) build.Completion {
	h.T.Helper()
	for _, c := range h.Reports.Completed() {
		if c.BuildID == buildID {
			return c
		}
	}
	h.T.Fatalf("build %s never completed", buildID)
	return build.Completion{}
}

// Recorder is a build.Sink that keeps every report.
type Recorder struct {
	mu        sync.Mutex
	progress  []build.Progress
	completed []build.Completion
}

func (r *Recorder) BuildProgress(p build.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *Recorder) BuildCompleted(c build.Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, c)
}

func (r *Recorder) Progress(buildID string) []build.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []build.Progress
	for _, p := range r.progress {
		if p.BuildID == buildID {
			out = append(out, p)
		}
	}
	return out
}

func (r *Recorder) Completed() []build.Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]build.Completion(nil), r.completed...)
}
