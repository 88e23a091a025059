package world

import (
	"encoding/json"
	"sort"

	"voxelprefab.ai/internal/persistence/snapshot"
	"voxelprefab.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot captures the world. It must be called from the world loop
// goroutine.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:          w.cfg.Seed,
		TickRate:      w.cfg.TickRateHz,
		Height:        w.cfg.Height,
		GroundLevel:   w.cfg.GroundLevel,
		StarterHouses: w.ledger.List(),
		Counters:      snapshot.CountersV1{NextBuild: w.sched.Seq()},
	}
	w.grid.exportInto(&s)
	return s
}

func (g *Grid) exportInto(s *snapshot.SnapshotV1) {
	s.States = make([]snapshot.StateV1, 0, len(g.states))
	for _, st := range g.states {
		s.States = append(s.States, snapshot.StateV1{
			Block:         st.Block,
			Kind:          uint8(st.Kind),
			Facing:        uint8(st.Facing),
			Half:          uint8(st.Half),
			Part:          uint8(st.Part),
			Waterloggable: st.Waterloggable,
			Waterlogged:   st.Waterlogged,
		})
	}

	s.Chunks = store.ExportLoadedChunks(g.chunks.Chunks, g.chunks.LoadedChunkKeys())

	for _, te := range g.tiles {
		data, err := json.Marshal(te.Data)
		if err != nil {
			g.log.Sugar().Warnw("tile entity not exported", "pos", te.Pos, "error", err)
			continue
		}
		s.TileEntities = append(s.TileEntities, snapshot.TileEntityV1{
			Pos:       te.Pos.Array(),
			Type:      te.Type,
			Networked: te.Networked,
			Data:      data,
		})
	}
	sort.Slice(s.TileEntities, func(i, j int) bool {
		a, b := s.TileEntities[i].Pos, s.TileEntities[j].Pos
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})

	for _, ref := range g.Entities() {
		e := g.entities[ref.ID]
		data, err := json.Marshal(e.data)
		if err != nil {
			g.log.Sugar().Warnw("entity not exported", "id", ref.ID, "error", err)
			continue
		}
		s.Entities = append(s.Entities, snapshot.EntityV1{
			ID:               ref.ID,
			Type:             ref.Type,
			Pos:              [3]float64(ref.Pos),
			Box:              [2][3]float64{[3]float64(ref.Box.Min), [3]float64(ref.Box.Max)},
			Yaw:              e.yaw,
			Pitch:            e.pitch,
			Facing:           uint8(e.facing),
			Hanging:          ref.Hanging,
			PlayerControlled: ref.PlayerControlled,
			Data:             data,
		})
	}
}
