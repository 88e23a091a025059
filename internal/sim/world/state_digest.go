package world

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"sort"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// StateDigest hashes everything a build can change: cells, tile entities
// and entities. Entity ids and UUIDs are left out because finalization
// draws them at random.
func (g *Grid) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	gen := g.chunks.Gen
	digestWriteI64(h, &tmp, gen.Seed)
	digestWriteU64(h, &tmp, uint64(gen.Height))

	g.digestChunks(h, &tmp)
	g.digestTiles(h, &tmp)
	g.digestEntities(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

// digestChunks writes cells through a palette ordered by state so that two
// grids that interned states in a different order still agree.
func (g *Grid) digestChunks(h hashWriter, tmp *[8]byte) {
	order := make([]int, len(g.states))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return stateLess(g.states[order[i]], g.states[order[j]]) })
	canon := make([]uint16, len(g.states))
	for rank, id := range order {
		canon[id] = uint16(rank)
	}
	for _, id := range order {
		digestState(h, tmp, g.states[id])
	}

	var cell [2]byte
	for _, k := range g.chunks.LoadedChunkKeys() {
		ch := g.chunks.Chunks[k]
		digestWriteI64(h, tmp, int64(k.CX))
		digestWriteI64(h, tmp, int64(k.CZ))
		for _, id := range ch.Cells {
			binary.LittleEndian.PutUint16(cell[:], canon[id])
			h.Write(cell[:])
		}
	}
}

func stateLess(a, b grid.CellState) bool {
	if a.Block != b.Block {
		return a.Block < b.Block
	}
	if a.Facing != b.Facing {
		return a.Facing < b.Facing
	}
	if a.Half != b.Half {
		return a.Half < b.Half
	}
	if a.Part != b.Part {
		return a.Part < b.Part
	}
	return !a.Waterlogged && b.Waterlogged
}

func digestState(h hashWriter, tmp *[8]byte, st grid.CellState) {
	digestWriteString(h, tmp, st.Block)
	h.Write([]byte{byte(st.Kind), byte(st.Facing), byte(st.Half), byte(st.Part), boolByte(st.Waterlogged)})
}

func digestPos(h hashWriter, tmp *[8]byte, p orient.Pos) {
	digestWriteI64(h, tmp, int64(p.X))
	digestWriteI64(h, tmp, int64(p.Y))
	digestWriteI64(h, tmp, int64(p.Z))
}

func (g *Grid) digestTiles(h hashWriter, tmp *[8]byte) {
	keys := make([]orient.Pos, 0, len(g.tiles))
	for p := range g.tiles {
		keys = append(keys, p)
	}
	sortPositions(keys)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, p := range keys {
		te := g.tiles[p]
		digestPos(h, tmp, p)
		digestWriteString(h, tmp, te.Type)
		h.Write([]byte{boolByte(te.Networked)})
		// json.Marshal sorts map keys.
		b, _ := json.Marshal(te.Data)
		digestWriteString(h, tmp, string(b))
	}
}

func (g *Grid) digestEntities(h hashWriter, tmp *[8]byte) {
	rows := make([]string, 0, len(g.entities))
	for _, e := range g.entities {
		data := make(map[string]any, len(e.data))
		for k, v := range e.data {
			if k != "UUID" {
				data[k] = v
			}
		}
		b, _ := json.Marshal(struct {
			Type    string
			Pos     [3]uint64
			Yaw     uint32
			Pitch   uint32
			Facing  orient.Direction
			Hanging bool
			Player  bool
			Data    map[string]any
		}{
			Type:    e.ref.Type,
			Pos:     [3]uint64{math.Float64bits(e.ref.Pos[0]), math.Float64bits(e.ref.Pos[1]), math.Float64bits(e.ref.Pos[2])},
			Yaw:     math.Float32bits(e.yaw),
			Pitch:   math.Float32bits(e.pitch),
			Facing:  e.facing,
			Hanging: e.ref.Hanging,
			Player:  e.ref.PlayerControlled,
			Data:    data,
		})
		rows = append(rows, string(b))
	}
	sort.Strings(rows)
	digestWriteU64(h, tmp, uint64(len(rows)))
	for _, r := range rows {
		digestWriteString(h, tmp, r)
	}
}

func sortPositions(ps []orient.Pos) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		if ps[i].Y != ps[j].Y {
			return ps[i].Y < ps[j].Y
		}
		return ps[i].Z < ps[j].Z
	})
}

// WorldState is what the admin state endpoint reports.
type WorldState struct {
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Digest  string `json:"digest"`
	Active  int    `json:"active_builds"`
	Chunks  int    `json:"loaded_chunks"`
}

type stateQuery struct {
	Resp chan WorldState
}

// State reports the grid digest from the world loop goroutine.
func (w *World) State(ctx context.Context) (WorldState, error) {
	if w == nil || w.states == nil {
		return WorldState{}, errors.New("world not running")
	}
	resp := make(chan WorldState, 1)
	select {
	case w.states <- stateQuery{Resp: resp}:
	case <-ctx.Done():
		return WorldState{}, ctx.Err()
	}
	select {
	case s := <-resp:
		return s, nil
	case <-ctx.Done():
		return WorldState{}, ctx.Err()
	}
}

func (w *World) handleStateQuery(q stateQuery) {
	s := WorldState{
		WorldID: w.cfg.ID,
		Tick:    w.tick.Load(),
		Digest:  w.grid.StateDigest(),
		Active:  len(w.sched.Active()),
		Chunks:  len(w.grid.chunks.Chunks),
	}
	select {
	case q.Resp <- s:
	default:
	}
}
