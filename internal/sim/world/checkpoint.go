package world

import (
	"context"
	"errors"
)

var (
	ErrNoSnapshotSink = errors.New("snapshot sink not configured")
	ErrSnapshotBusy   = errors.New("snapshot writer busy")
)

// Checkpoint describes a snapshot taken on request. Builds still queued at
// that point are not part of it and restart from scratch after a resume.
type Checkpoint struct {
	Tick          uint64   `json:"tick"`
	UnsavedChunks int      `json:"unsaved_chunks"`
	QueuedBuilds  []string `json:"queued_builds,omitempty"`
}

type checkpointReq struct {
	Resp chan checkpointResp
}

type checkpointResp struct {
	Checkpoint
	Err error
}

// RequestSnapshot asks the world loop to snapshot the last finished tick.
// It is safe to call from other goroutines.
func (w *World) RequestSnapshot(ctx context.Context) (Checkpoint, error) {
	if w == nil || w.checkpoints == nil {
		return Checkpoint{}, errors.New("world not running")
	}
	resp := make(chan checkpointResp, 1)
	select {
	case w.checkpoints <- checkpointReq{Resp: resp}:
	case <-ctx.Done():
		return Checkpoint{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.Checkpoint, r.Err
	case <-ctx.Done():
		return Checkpoint{}, ctx.Err()
	}
}

// handleCheckpoints answers every request of a tick with one snapshot.
func (w *World) handleCheckpoints(reqs []checkpointReq) {
	if len(reqs) == 0 {
		return
	}
	var r checkpointResp
	if cur := w.tick.Load(); cur > 0 {
		r.Tick = cur - 1
	}
	r.UnsavedChunks = len(w.grid.UnsavedRegions())
	for _, p := range w.sched.Active() {
		r.QueuedBuilds = append(r.QueuedBuilds, p.BuildID)
	}
	switch {
	case w.snapshotSink == nil:
		r.Err = ErrNoSnapshotSink
	case !w.emitSnapshot(r.Tick):
		r.Err = ErrSnapshotBusy
	}
	for _, req := range reqs {
		select {
		case req.Resp <- r:
		default:
		}
	}
}
