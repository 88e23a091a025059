package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/config"
	"voxelprefab.ai/internal/logging"
	"voxelprefab.ai/internal/persistence/indexdb"
	persistlog "voxelprefab.ai/internal/persistence/log"
	"voxelprefab.ai/internal/persistence/snapshot"
	"voxelprefab.ai/internal/scripting"
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/tuning"
	"voxelprefab.ai/internal/sim/world"
	"voxelprefab.ai/internal/transport/observer"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/server.toml", "path to server.toml")
		addr       = flag.String("addr", "", "http listen address (overrides server.addr)")
		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		pprofHTTP  = flag.Bool("pprof", false, "serve /debug/pprof on the main listener")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		zap.L().Fatal("init logging", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	tune, err := tuning.Load(cfg.Server.TuningFile)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal("load tuning", zap.Error(err))
		}
		logger.Warn("tuning file missing, using defaults", zap.String("path", cfg.Server.TuningFile))
	}
	cats, err := catalogs.Load(cfg.Server.ConfigDir)
	if err != nil {
		logger.Fatal("load catalogs", zap.Error(err))
	}
	scripts, err := scripting.NewEngine(cfg.Server.ScriptsDir, logger.Named("lua"))
	if err != nil {
		logger.Fatal("load scripts", zap.Error(err))
	}
	defer scripts.Close()

	worldDir := filepath.Join(cfg.Server.DataDir, "worlds", cfg.World.ID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatal("create world dir", zap.Error(err))
	}

	idx := openIndex(cfg, worldDir, logger)
	if idx != nil {
		defer func() { _ = idx.Close() }()
		if err := idx.UpsertCatalogs(cfg.Server.ConfigDir, cats, tune); err != nil {
			logger.Warn("index catalogs", zap.Error(err))
		}
	}

	sinks := build.MultiSink{}
	if idx != nil {
		sinks = append(sinks, idx)
	}
	if cfg.Journal.Enabled {
		journal := persistlog.NewBuildLogger(worldDir, logger.Named("journal"))
		defer func() { _ = journal.Close() }()
		sinks = append(sinks, journal)
	}
	hub := observer.NewHub(cfg.Observer.SendBuffer, logger.Named("observer"))
	sinks = append(sinks, hub)

	w, err := world.New(worldConfig(cfg, tune), cats, world.Deps{
		Scripts:  scripts,
		Sink:     sinks,
		Observer: hub,
		Log:      logger.Named("world"),
	})
	if err != nil {
		logger.Fatal("init world", zap.Error(err))
	}

	snapDir := filepath.Join(worldDir, "snapshots")
	path := *snapPath
	if path == "" && cfg.World.Resume {
		path = snapshot.Latest(snapDir)
	}
	if path != "" {
		snap, err := snapshot.ReadSnapshot(path)
		if err != nil {
			logger.Fatal("read snapshot", zap.String("path", path), zap.Error(err))
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatal("import snapshot", zap.String("path", path), zap.Error(err))
		}
		logger.Info("resumed", zap.String("snapshot", path), zap.Uint64("tick", w.CurrentTick()))
	}

	ctx, cancel := signalContext()
	defer cancel()

	// The sinks closed by the defers above are fed from the world loop and
	// the snapshot writer; both must be gone before main returns.
	join := startLoops(ctx, w, snapDir, idx, logger)
	defer func() {
		cancel()
		join()
	}()

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: newMux(&app{
			w:       w,
			idx:     idx,
			hub:     hub,
			obs:     observer.NewServer(hub, w, cfg.Observer.AllowRemote, logger.Named("observer")),
			enabled: cfg.Observer.Enabled,
			pprof:   *pprofHTTP,
			log:     logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("world", cfg.World.ID))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ListenAndServe", zap.Error(err))
	}
}

func worldConfig(cfg *config.Config, tune tuning.Tuning) world.WorldConfig {
	return world.WorldConfig{
		ID:                    cfg.World.ID,
		Seed:                  cfg.World.Seed,
		TickRateHz:            tune.TickRateHz,
		Height:                tune.WorldHeight,
		GroundLevel:           tune.GroundLevel,
		SnapshotEveryTicks:    tune.SnapshotEveryTicks,
		RequestQueue:          cfg.Server.RequestQueue,
		BuildBudget:           tune.Build.BudgetPerTick,
		PairedPlacementCost:   tune.Build.PairedPlacementCost,
		MaxQueuedPerRequester: tune.Build.MaxQueuedPerRequester,
	}
}

func openIndex(cfg *config.Config, worldDir string, log *zap.Logger) *indexdb.SQLiteIndex {
	if !cfg.Index.Enabled {
		return nil
	}
	path := cfg.Index.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(worldDir, path)
	}
	idx, err := indexdb.OpenSQLite(path, log.Named("index"))
	if err != nil {
		log.Warn("index disabled", zap.String("path", path), zap.Error(err))
		return nil
	}
	return idx
}

// startLoops runs the world loop and the snapshot writer until ctx ends.
// The returned func blocks until both have returned.
func startLoops(ctx context.Context, w *world.World, snapDir string, idx *indexdb.SQLiteIndex, log *zap.Logger) func() {
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		writeSnapshots(ctx, snapCh, snapDir, idx, log)
	}()
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("world stopped", zap.Error(err))
		}
	}()
	return wg.Wait
}

func writeSnapshots(ctx context.Context, ch <-chan snapshot.SnapshotV1, dir string, idx *indexdb.SQLiteIndex, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			path := snapshot.PathFor(dir, snap.Header.Tick)
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				log.Error("snapshot write", zap.String("path", path), zap.Error(err))
				continue
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			log.Info("snapshot written", zap.String("path", path), zap.Uint64("tick", snap.Header.Tick))
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
