package world

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/structure/build"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingBuilds []buildReq
	var pendingCheckpoints []checkpointReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.builds:
			pendingBuilds = append(pendingBuilds, req)
		case q := <-w.queries:
			w.handleBuildsQuery(q)
		case q := <-w.states:
			w.handleStateQuery(q)
		case req := <-w.checkpoints:
			pendingCheckpoints = append(pendingCheckpoints, req)
		case <-ticker.C:
			w.handleBuildRequests(pendingBuilds)
			w.step()
			w.handleCheckpoints(pendingCheckpoints)
			pendingBuilds = pendingBuilds[:0]
			pendingCheckpoints = pendingCheckpoints[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick. It is primarily intended
// for tests and replays.
func (w *World) StepOnce() build.TickReport { return w.step() }

func (w *World) step() build.TickReport {
	tick := w.tick.Load()
	w.grid.tick = tick

	rep := w.sched.Tick(tick)
	w.grid.flush()
	for _, c := range rep.Completed {
		w.log.Info("build finished",
			zap.Uint64("tick", tick),
			zap.String("build", c.BuildID),
			zap.String("requester", c.Requester),
			zap.Bool("ok", c.OK),
			zap.Uint64("ticks", c.Ticks),
		)
	}

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 && tick > 0 && tick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		if len(w.grid.UnsavedRegions()) > 0 {
			w.emitSnapshot(tick)
		}
	}

	w.tick.Add(1)
	return rep
}

func (w *World) emitSnapshot(tick uint64) bool {
	snap := w.ExportSnapshot(tick)
	select {
	case w.snapshotSink <- snap:
		w.grid.chunks.MarkSaved()
		return true
	default:
		w.log.Warn("snapshot dropped", zap.Uint64("tick", tick), zap.String("reason", "sink backpressure"))
		return false
	}
}
