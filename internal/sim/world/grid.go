package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/world/terrain/store"
)

// Observer receives changes the world pushes to connected clients. It is
// called from the world loop goroutine and must not block.
type Observer interface {
	TileEntityUpdated(tick uint64, te grid.TileEntity)
	CellsChanged(tick uint64, cells []CellChange)
}

type CellChange struct {
	Pos   orient.Pos     `json:"pos"`
	State grid.CellState `json:"state"`
}

type entity struct {
	ref    grid.EntityRef
	yaw    float32
	pitch  float32
	facing orient.Direction
	data   map[string]any
}

// Grid is the in-memory voxel world builds write into. It implements
// grid.World and must only be used from the world loop goroutine.
type Grid struct {
	chunks *store.ChunkStore

	// states interns cell states; chunk cells hold indexes into it.
	states   []grid.CellState
	stateIDs map[grid.CellState]uint16

	tiles    map[orient.Pos]grid.TileEntity
	entities map[string]*entity
	types    *catalogs.EntityCatalog

	observer Observer
	tick     uint64
	changed  []CellChange

	log *zap.Logger
}

var _ grid.World = (*Grid)(nil)

// GridConfig selects terrain generation.
type GridConfig struct {
	Seed         int64
	Height       int
	GroundLevel  int
	BoundaryR    int
	PondGrid     int
	PondRadius   int
	PondPermille uint64
}

func NewGrid(cfg GridConfig, cats *catalogs.Catalogs, log *zap.Logger) (*Grid, error) {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Grid{
		stateIDs: map[grid.CellState]uint16{},
		tiles:    map[orient.Pos]grid.TileEntity{},
		entities: map[string]*entity{},
		types:    &cats.Entities,
		log:      log,
	}
	g.intern(grid.Air)

	id := func(block string) (uint16, error) {
		st, err := cats.Blocks.State(block)
		if err != nil {
			return 0, fmt.Errorf("terrain: %w", err)
		}
		return g.intern(st), nil
	}
	gen := store.WorldGen{
		Seed:         cfg.Seed,
		Height:       cfg.Height,
		GroundLevel:  cfg.GroundLevel,
		BoundaryR:    cfg.BoundaryR,
		PondGrid:     cfg.PondGrid,
		PondRadius:   cfg.PondRadius,
		PondPermille: cfg.PondPermille,
	}
	var err error
	for _, b := range []struct {
		block string
		dst   *uint16
	}{
		{"bedrock", &gen.Bedrock},
		{"stone", &gen.Stone},
		{"dirt", &gen.Dirt},
		{"grass", &gen.Grass},
		{"water", &gen.Water},
		{"gravel", &gen.Gravel},
	} {
		if *b.dst, err = id(b.block); err != nil {
			return nil, err
		}
	}
	g.chunks = store.NewChunkStore(gen)
	return g, nil
}

func (g *Grid) SetObserver(o Observer) { g.observer = o }

func (g *Grid) intern(st grid.CellState) uint16 {
	if id, ok := g.stateIDs[st]; ok {
		return id
	}
	id := uint16(len(g.states))
	g.states = append(g.states, st)
	g.stateIDs[st] = id
	return id
}

func (g *Grid) inBounds(p orient.Pos) bool { return g.chunks.InBounds(p.X, p.Y, p.Z) }

func (g *Grid) CellState(pos orient.Pos) (grid.CellState, error) {
	return g.states[g.chunks.GetBlock(pos.X, pos.Y, pos.Z)], nil
}

func (g *Grid) SetCellState(pos orient.Pos, st grid.CellState, flags grid.UpdateFlags) error {
	if !g.inBounds(pos) {
		return fmt.Errorf("set %v: %w", pos, grid.ErrRegionUnloaded)
	}
	prev := g.states[g.chunks.GetBlock(pos.X, pos.Y, pos.Z)]
	g.chunks.SetBlock(pos.X, pos.Y, pos.Z, g.intern(st))
	if prev.Block != st.Block {
		delete(g.tiles, pos)
	}
	if flags&grid.FlagSendToClients != 0 && prev != st {
		g.changed = append(g.changed, CellChange{Pos: pos, State: st})
	}
	return nil
}

func (g *Grid) RemoveCell(pos orient.Pos, notifyNeighbors bool) error {
	flags := grid.FlagSendToClients
	if notifyNeighbors {
		flags |= grid.FlagNotifyNeighbors
	}
	return g.SetCellState(pos, grid.Air, flags)
}

func (g *Grid) EntitiesInRegion(box grid.BBox) ([]grid.EntityRef, error) {
	var out []grid.EntityRef
	for _, e := range g.entities {
		if e.ref.Box.Intersects(box) {
			out = append(out, e.ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *Grid) RemoveEntity(id string) error {
	if _, ok := g.entities[id]; !ok {
		return fmt.Errorf("remove entity %s: not found", id)
	}
	delete(g.entities, id)
	return nil
}

func (g *Grid) EntityType(id string) (grid.EntityType, bool) {
	if g.types == nil {
		return grid.EntityType{}, false
	}
	def, ok := g.types.ByID[id]
	if !ok {
		return grid.EntityType{}, false
	}
	cat := strings.ToLower(def.Category)
	return grid.EntityType{
		ID:      def.ID,
		Hanging: cat == "hanging" || cat == "frame",
		Living:  def.Living,
	}, true
}

// SpawnEntity adds a prepared entity. Its id is the UUID carried in its data
// when there is one.
func (g *Grid) SpawnEntity(e grid.Entity) (string, error) {
	typ, ok := g.EntityType(e.Type)
	if !ok {
		return "", fmt.Errorf("spawn %s: %w", e.Type, grid.ErrUnknownEntityType)
	}
	id, _ := e.Data["UUID"].(string)
	if _, dup := g.entities[id]; id == "" || dup {
		id = uuid.NewString()
	}
	box := bodyBox(e.Pos)
	if e.Box != nil {
		box = *e.Box
	}
	g.entities[id] = &entity{
		ref: grid.EntityRef{
			ID:      id,
			Type:    e.Type,
			Pos:     e.Pos,
			Box:     box,
			Hanging: typ.Hanging,
		},
		yaw:    e.Yaw,
		pitch:  e.Pitch,
		facing: e.Facing,
		data:   e.Data,
	}
	return id, nil
}

// AddPlayer places a player-controlled entity.
func (g *Grid) AddPlayer(name string, pos mgl64.Vec3) grid.EntityRef {
	ref := grid.EntityRef{
		ID:               name,
		Type:             "player",
		Pos:              pos,
		Box:              grid.NewBBox(pos.Sub(mgl64.Vec3{0.3, 0, 0.3}), pos.Add(mgl64.Vec3{0.3, 1.8, 0.3})),
		PlayerControlled: true,
	}
	g.entities[name] = &entity{ref: ref, data: map[string]any{}}
	return ref
}

// Entities lists live entities ordered by id.
func (g *Grid) Entities() []grid.EntityRef {
	out := make([]grid.EntityRef, 0, len(g.entities))
	for _, e := range g.entities {
		out = append(out, e.ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func bodyBox(pos mgl64.Vec3) grid.BBox {
	return grid.NewBBox(pos.Sub(mgl64.Vec3{0.3, 0, 0.3}), pos.Add(mgl64.Vec3{0.3, 0.9, 0.3}))
}

func (g *Grid) TileEntity(pos orient.Pos) (grid.TileEntity, bool, error) {
	if !g.inBounds(pos) {
		return grid.TileEntity{}, false, fmt.Errorf("tile entity %v: %w", pos, grid.ErrRegionUnloaded)
	}
	te, ok := g.tiles[pos]
	return te, ok, nil
}

func (g *Grid) SetTileEntity(te grid.TileEntity) error {
	if !g.inBounds(te.Pos) {
		return fmt.Errorf("tile entity %v: %w", te.Pos, grid.ErrRegionUnloaded)
	}
	g.tiles[te.Pos] = te
	g.chunks.ChunkAt(te.Pos.X, te.Pos.Z).Touch()
	return nil
}

func (g *Grid) RemoveTileEntity(pos orient.Pos) error {
	if _, ok := g.tiles[pos]; !ok {
		return nil
	}
	delete(g.tiles, pos)
	g.chunks.ChunkAt(pos.X, pos.Z).Touch()
	return nil
}

// MarkRegionDirty flags the chunk holding pos for the next snapshot.
func (g *Grid) MarkRegionDirty(pos orient.Pos) error {
	if !g.inBounds(pos) {
		return fmt.Errorf("mark dirty %v: %w", pos, grid.ErrRegionUnloaded)
	}
	g.chunks.ChunkAt(pos.X, pos.Z).Touch()
	return nil
}

func (g *Grid) BroadcastTileEntityUpdate(te grid.TileEntity) error {
	if g.observer != nil {
		g.observer.TileEntityUpdated(g.tick, te)
	}
	return nil
}

// flush hands the cells changed this tick to the observer.
func (g *Grid) flush() {
	if len(g.changed) == 0 {
		return
	}
	if g.observer != nil {
		g.observer.CellsChanged(g.tick, g.changed)
	}
	g.changed = nil
}

// UnsavedRegions lists chunks changed since the last snapshot.
func (g *Grid) UnsavedRegions() []store.ChunkKey { return g.chunks.UnsavedChunkKeys() }
