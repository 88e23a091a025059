package template

import (
	"errors"
	"fmt"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

var ErrInvalidFacing = errors.New("facing must be horizontal")

// Template is one in-progress build. It is fully populated before it is
// enqueued and afterwards only drained.
type Template struct {
	// ID is assigned by the scheduler on enqueue when empty.
	ID          string
	World       grid.World
	StructureID string
	Requester   string
	Config      Configuration

	OriginalPos orient.Pos
	// CanonicalNorth is the authored forward direction of the structure.
	CanonicalNorth orient.Direction
	// ClearDirection is the facing the clear volume was computed with.
	ClearDirection orient.Direction

	Cleared      Cursor[orient.Pos]
	Tiers        [TierCount]Cursor[CellRecord]
	TileEntities []TileEntityRecord
	Entities     []EntityRecord
	AllTouched   []orient.Pos

	EntitiesEvicted bool
	HasAirTier      bool

	Hooks Hooks
}

func (t *Template) Validate() error {
	if t.World == nil {
		return fmt.Errorf("template %s: nil world", t.StructureID)
	}
	for _, d := range []orient.Direction{t.CanonicalNorth, t.ClearDirection, t.Config.HouseFacing} {
		if !d.Horizontal() {
			return fmt.Errorf("template %s: %w (got %v)", t.StructureID, ErrInvalidFacing, d)
		}
	}
	return nil
}

// WorldPos maps a template-local position onto the world.
func (t *Template) WorldPos(local orient.Pos) orient.Pos {
	return orient.RelativePosition(local, t.OriginalPos, t.ClearDirection, t.Config.HouseFacing)
}

// Rotation turns the authored north onto the house facing.
func (t *Template) Rotation() orient.Rotation {
	return orient.Between(t.CanonicalNorth, t.Config.HouseFacing)
}

func (t *Template) HooksOrNop() Hooks {
	if t.Hooks == nil {
		return NopHooks{}
	}
	return t.Hooks
}

func (t *Template) TiersEmpty() bool {
	for i := range t.Tiers {
		if !t.Tiers[i].Empty() {
			return false
		}
	}
	return true
}

// PendingCells counts records left in every tier, halves included.
func (t *Template) PendingCells() int {
	n := 0
	for i := range t.Tiers {
		for _, rec := range t.Tiers[i].All()[t.Tiers[i].Consumed():] {
			n++
			if rec.Sub != nil {
				n++
			}
		}
	}
	return n
}

func (t *Template) TotalCells() int {
	n := 0
	for i := range t.Tiers {
		n += t.Tiers[i].Total()
	}
	return n
}
