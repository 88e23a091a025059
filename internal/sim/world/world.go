package world

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/persistence/snapshot"
	"voxelprefab.ai/internal/scripting"
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/structure/predefined"
)

var ErrQueueFull = errors.New("build queue full")

// World is a single-threaded authoritative build host: it owns the grid
// and the build scheduler. All state must be accessed only from the world
// loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	tick atomic.Uint64

	grid   *Grid
	sched  *build.Scheduler
	hooks  *predefined.Registry
	ledger *predefined.MemoryLedger

	builds      chan buildReq
	queries     chan buildsQuery
	states      chan stateQuery
	checkpoints chan checkpointReq
	stop        chan struct{}

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	log *zap.Logger
}

// Deps are the optional collaborators of a World.
type Deps struct {
	Scripts  *scripting.Engine
	Sink     build.Sink
	Observer Observer
	Log      *zap.Logger
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, deps Deps) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	cfg.applyDefaults()
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("world", cfg.ID))

	g, err := NewGrid(GridConfig{
		Seed:         cfg.Seed,
		Height:       cfg.Height,
		GroundLevel:  cfg.GroundLevel,
		BoundaryR:    cfg.BoundaryR,
		PondGrid:     cfg.PondGrid,
		PondRadius:   cfg.PondRadius,
		PondPermille: uint64(cfg.PondPermille),
	}, cats, log)
	if err != nil {
		return nil, err
	}
	g.SetObserver(deps.Observer)

	ledger := predefined.NewMemoryLedger()
	w := &World{
		cfg:      cfg,
		catalogs: cats,
		grid:     g,
		sched: build.New(build.Options{
			Budget:   cfg.BuildBudget,
			PairCost: cfg.PairedPlacementCost,
			Sink:     deps.Sink,
		}, log),
		hooks: predefined.NewRegistry(predefined.Env{
			Blocks:  &cats.Blocks,
			Scripts: deps.Scripts,
			Ledger:  ledger,
			Log:     log,
		}),
		ledger:      ledger,
		builds:      make(chan buildReq, cfg.RequestQueue),
		queries:     make(chan buildsQuery, 16),
		states:      make(chan stateQuery, 16),
		checkpoints: make(chan checkpointReq, 16),
		stop:        make(chan struct{}),
		log:         log,
	}
	return w, nil
}

func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Grid exposes the voxel grid. Only use it from the world loop goroutine or
// while the world is stopped.
func (w *World) Grid() *Grid { return w.grid }

// HookNames lists the structure hooks the world can bind.
func (w *World) HookNames() []string { return w.hooks.Names() }

// Structures lists the structures that can be built.
func (w *World) Structures() []string { return w.catalogs.Structures.IDs() }

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) BlockPalette() []string {
	out := make([]string, len(w.catalogs.Blocks.Palette))
	copy(out, w.catalogs.Blocks.Palette)
	return out
}
