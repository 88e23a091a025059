package build

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/structure/template"
)

// finalize runs once, in the tick the last cell is placed.
func (s *Scheduler) finalize(t *template.Template) Completion {
	c := Completion{
		Tick:        s.tick,
		BuildID:     t.ID,
		Requester:   t.Requester,
		StructureID: t.StructureID,
	}
	if m := s.meta[t]; m != nil {
		c.EnqueuedTick = m.enqueuedTick
		c.Ticks = m.ticks
	}
	fail := func(err error) Completion {
		c.Err = err.Error()
		s.log.Error("build finalization failed",
			zap.String("build", t.ID),
			zap.String("structure", t.StructureID),
			zap.Error(err),
		)
		return c
	}

	n, err := s.placeTileEntities(t)
	c.TileEntities = n
	if err != nil {
		return fail(err)
	}

	if t.HasAirTier {
		if _, err := cleanWaterlogged(t); err != nil {
			return fail(fmt.Errorf("waterlog cleanup: %w", err))
		}
	}

	spawned, skipped, err := s.spawnEntities(t)
	c.Entities, c.Skipped = spawned, skipped
	if err != nil {
		return fail(err)
	}

	if err := t.HooksOrNop().AfterBuilding(t.Config, t.World, t.OriginalPos, t.CanonicalNorth, t.Requester); err != nil {
		return fail(fmt.Errorf("after building: %w", err))
	}

	c.OK = true
	s.log.Info("build complete",
		zap.String("build", t.ID),
		zap.String("requester", t.Requester),
		zap.String("structure", t.StructureID),
		zap.Uint64("ticks", c.Ticks),
		zap.Int("entities", spawned),
		zap.Int("skipped_entities", skipped),
	)
	return c
}

func (s *Scheduler) placeTileEntities(t *template.Template) (int, error) {
	n := 0
	for _, rec := range t.TileEntities {
		pos := t.WorldPos(rec.Pos)
		data, err := template.DecodeCompound(rec.Blob)
		if err != nil {
			return n, fmt.Errorf("tile entity %s at %v: %w", rec.Type, pos, err)
		}
		data.SetInt("x", pos.X)
		data.SetInt("y", pos.Y)
		data.SetInt("z", pos.Z)
		te := grid.TileEntity{Pos: pos, Type: rec.Type, Data: data, Networked: rec.Networked}

		_, exists, err := t.World.TileEntity(pos)
		if err != nil {
			return n, fmt.Errorf("tile entity at %v: %w", pos, err)
		}
		if !exists {
			if err := t.World.SetTileEntity(te); err != nil {
				return n, fmt.Errorf("tile entity at %v: %w", pos, err)
			}
			n++
			continue
		}

		if err := t.World.RemoveTileEntity(pos); err != nil {
			return n, fmt.Errorf("tile entity at %v: %w", pos, err)
		}
		if err := t.World.SetTileEntity(te); err != nil {
			return n, fmt.Errorf("tile entity at %v: %w", pos, err)
		}
		if err := t.World.MarkRegionDirty(pos); err != nil {
			return n, fmt.Errorf("tile entity at %v: %w", pos, err)
		}
		if te.Networked {
			if err := t.World.BroadcastTileEntityUpdate(te); err != nil {
				return n, fmt.Errorf("tile entity at %v: %w", pos, err)
			}
		}
		n++
	}
	return n, nil
}

// spawnEntities materializes entity records. Records with an unknown type
// or an unreadable blob are skipped.
func (s *Scheduler) spawnEntities(t *template.Template) (spawned, skipped int, err error) {
	for _, rec := range t.Entities {
		if _, ok := t.World.EntityType(rec.Type); !ok {
			skipped++
			s.log.Warn("entity skipped",
				zap.String("build", t.ID),
				zap.String("type", rec.Type),
				zap.Error(grid.ErrUnknownEntityType),
			)
			continue
		}
		data, derr := template.DecodeCompound(rec.Blob)
		if derr != nil {
			skipped++
			s.log.Warn("entity skipped",
				zap.String("build", t.ID),
				zap.String("type", rec.Type),
				zap.Error(derr),
			)
			continue
		}

		e := PrepareEntity(t, rec, data)
		if _, err := t.World.SpawnEntity(e); err != nil {
			if errors.Is(err, grid.ErrUnknownEntityType) {
				skipped++
				continue
			}
			return spawned, skipped, fmt.Errorf("spawn %s: %w", rec.Type, err)
		}
		if rec.Category != template.EntityGeneral {
			if err := t.World.MarkRegionDirty(t.WorldPos(rec.Pos)); err != nil {
				return spawned, skipped, fmt.Errorf("spawn %s: %w", rec.Type, err)
			}
		}
		spawned++
	}
	return spawned, skipped, nil
}

// PrepareEntity applies a record's blob and orientation rules. The blob gets
// a fresh UUID if it carried one and its Pos is rewritten to the target
// cell.
func PrepareEntity(t *template.Template, rec template.EntityRecord, data template.Compound) grid.Entity {
	pos := t.WorldPos(rec.Pos)
	if data.Has("UUID") {
		data.SetString("UUID", uuid.New().String())
	}
	cell := mgl64.Vec3{float64(pos.X), float64(pos.Y), float64(pos.Z)}
	data.SetVec3("Pos", cell)

	switch rec.Category {
	case template.EntityHanging:
		return orientPainting(t, rec, data, cell)
	case template.EntityFrame:
		return orientFrame(t, rec, data, cell)
	default:
		return orientGeneral(t, rec, data, cell)
	}
}

func orientGeneral(t *template.Template, rec template.EntityRecord, data template.Compound, cell mgl64.Vec3) grid.Entity {
	yaw, pitch := data.YawPitch()
	rot := t.Rotation()
	off := rec.Offset
	if rot == orient.None {
		off[0], off[2] = 0, 0
	} else {
		off[0], off[2] = -off[0], -off[2]
	}
	yaw = rot.Yaw(yaw)
	data.SetYawPitch(yaw, pitch)
	return grid.Entity{
		Type:   rec.Type,
		Data:   data,
		Pos:    cell.Add(off),
		Yaw:    yaw,
		Pitch:  pitch,
		Facing: rot.Rotate(t.CanonicalNorth),
	}
}

func orientPainting(t *template.Template, rec template.EntityRecord, data template.Compound, cell mgl64.Vec3) grid.Entity {
	yaw, pitch := data.YawPitch()
	facing := orient.North
	if v, ok := data.Int("Facing"); ok {
		if d, ok := orient.FromData2D(v); ok {
			facing = d
		}
	}

	rot := t.Rotation()
	switch rot {
	case orient.Clockwise180:
		facing = facing.Opposite()
	case orient.Clockwise90:
		switch t.ClearDirection {
		case orient.North:
			facing = facing.CounterClockwise()
		case orient.South:
			facing = facing.Clockwise()
		}
	case orient.CounterClockwise90:
		switch t.ClearDirection {
		case orient.North:
			facing = facing.Clockwise()
		case orient.South:
			facing = facing.CounterClockwise()
		}
	}

	off := mgl64.Vec3{0, -rec.Offset[1], 0}
	if rec.SpriteHeight > rec.SpriteWidth || rec.SpriteHeight > 16 {
		off[1]--
	}

	yaw = rot.Yaw(yaw)
	data.SetInt("Facing", facing.Data2D())
	data.SetYawPitch(yaw, pitch)
	return hangingEntity(rec, data, cell.Add(off), yaw, pitch, facing)
}

func orientFrame(t *template.Template, rec template.EntityRecord, data template.Compound, cell mgl64.Vec3) grid.Entity {
	yaw, pitch := data.YawPitch()
	facing := orient.North
	if v, ok := data.Int("Facing"); ok {
		if d, ok := orient.FromData3D(v); ok {
			facing = d
		}
	}

	off := mgl64.Vec3{-rec.Offset[0], rec.Offset[1], -rec.Offset[2]}
	rot := orient.None
	if facing.Horizontal() {
		northSouth := t.ClearDirection == orient.North || t.ClearDirection == orient.South
		switch t.Rotation() {
		case orient.Clockwise180:
			rot = orient.Clockwise180
			facing = facing.Opposite()
		case orient.Clockwise90:
			if northSouth {
				rot = orient.Clockwise90
				facing = facing.CounterClockwise()
			}
		case orient.CounterClockwise90:
			if northSouth {
				rot = orient.CounterClockwise90
				facing = facing.Clockwise()
			}
		default:
			off[0], off[2] = 0, 0
		}
	}

	yaw = rot.Yaw(yaw)
	data.SetInt("Facing", facing.Data3D())
	data.SetYawPitch(yaw, pitch)
	return hangingEntity(rec, data, cell.Add(off), yaw, pitch, facing)
}

func hangingEntity(rec template.EntityRecord, data template.Compound, at mgl64.Vec3, yaw, pitch float32, facing orient.Direction) grid.Entity {
	attach := orient.Pos{X: floor(at[0]), Y: floor(at[1]), Z: floor(at[2])}
	center, box := HangingBox(attach, facing, rec.SpriteWidth, rec.SpriteHeight)
	data.SetInt("TileX", attach.X)
	data.SetInt("TileY", attach.Y)
	data.SetInt("TileZ", attach.Z)
	return grid.Entity{
		Type:   rec.Type,
		Data:   data,
		Pos:    center,
		Yaw:    yaw,
		Pitch:  pitch,
		Facing: facing,
		Box:    &box,
	}
}
