package grid

import (
	"errors"

	"voxelprefab.ai/internal/sim/structure/orient"
)

var (
	ErrRegionUnloaded    = errors.New("region not loaded")
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// World is the mutable voxel grid a build writes into. Implementations are
// single-writer within a tick.
type World interface {
	CellState(pos orient.Pos) (CellState, error)
	SetCellState(pos orient.Pos, state CellState, flags UpdateFlags) error
	RemoveCell(pos orient.Pos, notifyNeighbors bool) error

	EntitiesInRegion(box BBox) ([]EntityRef, error)
	RemoveEntity(id string) error
	EntityType(id string) (EntityType, bool)
	SpawnEntity(e Entity) (string, error)

	TileEntity(pos orient.Pos) (TileEntity, bool, error)
	SetTileEntity(te TileEntity) error
	RemoveTileEntity(pos orient.Pos) error
	MarkRegionDirty(pos orient.Pos) error
	BroadcastTileEntityUpdate(te TileEntity) error
}
