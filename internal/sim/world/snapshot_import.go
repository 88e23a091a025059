package world

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"voxelprefab.ai/internal/persistence/snapshot"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/world/terrain/store"
)

// ImportSnapshot replaces the in-memory world with the snapshot and sets the
// tick to snapshotTick+1. Builds that were in flight are not restored.
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if w.cfg.Seed != s.Seed {
		return fmt.Errorf("snapshot seed mismatch: cfg=%d snap=%d", w.cfg.Seed, s.Seed)
	}
	if w.cfg.Height != s.Height {
		return fmt.Errorf("snapshot height mismatch: cfg=%d snap=%d", w.cfg.Height, s.Height)
	}
	if w.cfg.GroundLevel != s.GroundLevel {
		return fmt.Errorf("snapshot ground_level mismatch: cfg=%d snap=%d", w.cfg.GroundLevel, s.GroundLevel)
	}
	if err := w.grid.importFrom(s); err != nil {
		return err
	}
	for _, r := range s.StarterHouses {
		w.ledger.MarkBuilt(r)
	}
	w.sched.ResumeSeq(s.Counters.NextBuild)
	w.tick.Store(s.Header.Tick + 1)
	return nil
}

func (g *Grid) importFrom(s snapshot.SnapshotV1) error {
	if len(s.States) == 0 || s.States[0].Block != grid.Air.Block {
		return fmt.Errorf("snapshot states: first state must be air")
	}
	states := make([]grid.CellState, 0, len(s.States))
	ids := make(map[grid.CellState]uint16, len(s.States))
	for i, st := range s.States {
		cs := grid.CellState{
			Block:         st.Block,
			Kind:          grid.Kind(st.Kind),
			Facing:        orient.Direction(st.Facing),
			Half:          grid.Half(st.Half),
			Part:          grid.BedPart(st.Part),
			Waterloggable: st.Waterloggable,
			Waterlogged:   st.Waterlogged,
		}
		states = append(states, cs)
		if _, dup := ids[cs]; !dup {
			ids[cs] = uint16(i)
		}
	}
	for _, ch := range s.Chunks {
		for _, c := range ch.Cells {
			if int(c) >= len(states) {
				return fmt.Errorf("snapshot chunk %d,%d: state %d out of range", ch.CX, ch.CZ, c)
			}
		}
	}

	// Terrain ids are re-resolved against the snapshot palette so chunks
	// generated after the import stay consistent.
	next := &Grid{states: states, stateIDs: ids}
	gen := g.chunks.Gen
	for _, id := range []*uint16{&gen.Air, &gen.Bedrock, &gen.Stone, &gen.Dirt, &gen.Grass, &gen.Water, &gen.Gravel} {
		*id = next.intern(g.states[*id])
	}
	chunks, err := store.ImportChunks(gen, s.Chunks)
	if err != nil {
		return err
	}

	tiles := make(map[orient.Pos]grid.TileEntity, len(s.TileEntities))
	for _, te := range s.TileEntities {
		var data map[string]any
		if err := json.Unmarshal(te.Data, &data); err != nil {
			return fmt.Errorf("snapshot tile entity %v: %w", te.Pos, err)
		}
		pos := orient.PosFromArray(te.Pos)
		tiles[pos] = grid.TileEntity{Pos: pos, Type: te.Type, Data: data, Networked: te.Networked}
	}

	entities := make(map[string]*entity, len(s.Entities))
	for _, e := range s.Entities {
		var data map[string]any
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return fmt.Errorf("snapshot entity %s: %w", e.ID, err)
		}
		entities[e.ID] = &entity{
			ref: grid.EntityRef{
				ID:               e.ID,
				Type:             e.Type,
				Pos:              mgl64.Vec3(e.Pos),
				Box:              grid.BBox{Min: mgl64.Vec3(e.Box[0]), Max: mgl64.Vec3(e.Box[1])},
				PlayerControlled: e.PlayerControlled,
				Hanging:          e.Hanging,
			},
			yaw:    e.Yaw,
			pitch:  e.Pitch,
			facing: orient.Direction(e.Facing),
			data:   data,
		}
	}

	g.states = next.states
	g.stateIDs = next.stateIDs
	g.chunks = chunks
	g.tiles = tiles
	g.entities = entities
	g.changed = nil
	return nil
}
