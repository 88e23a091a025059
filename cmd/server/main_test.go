package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/persistence/indexdb"
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/world"
)

// closedGuard counts reports that arrive after the sinks were closed.
type closedGuard struct {
	closed atomic.Bool
	late   atomic.Int64
	seen   atomic.Int64
}

func (g *closedGuard) BuildProgress(build.Progress) {
	g.seen.Add(1)
	if g.closed.Load() {
		g.late.Add(1)
	}
}

func (g *closedGuard) BuildCompleted(build.Completion) {
	if g.closed.Load() {
		g.late.Add(1)
	}
}

func TestStartLoops_JoinsBeforeSinksClose(t *testing.T) {
	dir := t.TempDir()
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "builds.sqlite"), zap.NewNop())
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	cats, err := catalogs.Load(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	guard := &closedGuard{}
	w, err := world.New(world.WorldConfig{
		ID:          "join",
		Seed:        7,
		TickRateHz:  1000,
		Height:      48,
		GroundLevel: testGround,
		BoundaryR:   256,
	}, cats, world.Deps{Sink: build.MultiSink{idx, guard}})
	if err != nil {
		t.Fatalf("world: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	join := startLoops(ctx, w, filepath.Join(dir, "snapshots"), idx, zap.NewNop())

	// Keep the loop busy with bulldozers so reports are in flight at cancel.
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	for i := 0; i < 4; i++ {
		spec := world.BuildSpec{
			Requester: fmt.Sprintf("r%d", i),
			Structure: "bulldozer",
			Anchor:    orient.Pos{X: i * 20, Y: testGround, Z: 0},
			Facing:    orient.North,
		}
		if _, err := w.SubmitBuild(sctx, spec); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	for guard.seen.Load() == 0 {
		select {
		case <-sctx.Done():
			t.Fatalf("no progress reported")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	join()
	guard.closed.Store(true)
	if err := idx.Close(); err != nil {
		t.Fatalf("close index: %v", err)
	}
	tick := w.CurrentTick()
	time.Sleep(20 * time.Millisecond)
	if w.CurrentTick() != tick || guard.late.Load() != 0 {
		t.Fatalf("world kept running after join: tick %d -> %d, late reports %d", tick, w.CurrentTick(), guard.late.Load())
	}
}
