package template

import (
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

// Hooks are the extension points of one structure type.
type Hooks interface {
	// CustomCellHandled runs while a template is assembled. Returning true
	// claims the cell and keeps it out of the placement tiers.
	CustomCellHandled(cfg Configuration, rec *CellRecord, w grid.World, anchor orient.Pos, assumedNorth orient.Direction, kind grid.Kind, state grid.CellState, requester string) bool

	// BeforeClearSpaceCellReplaced runs before a non-empty cell of the clear
	// volume is emptied.
	BeforeClearSpaceCellReplaced(w grid.World, pos orient.Pos)

	// BeforeHangingEntityRemoved runs before a hanging entity in the clear
	// volume is evicted.
	BeforeHangingEntityRemoved(w grid.World, e grid.EntityRef)

	// AfterBuilding runs once, at the end of finalization.
	AfterBuilding(cfg Configuration, w grid.World, anchor orient.Pos, assumedNorth orient.Direction, requester string) error
}

// NopHooks implements Hooks with no side effects. Embed it to override only
// the hooks a structure needs.
type NopHooks struct{}

func (NopHooks) CustomCellHandled(Configuration, *CellRecord, grid.World, orient.Pos, orient.Direction, grid.Kind, grid.CellState, string) bool {
	return false
}

func (NopHooks) BeforeClearSpaceCellReplaced(grid.World, orient.Pos) {}

func (NopHooks) BeforeHangingEntityRemoved(grid.World, grid.EntityRef) {}

func (NopHooks) AfterBuilding(Configuration, grid.World, orient.Pos, orient.Direction, string) error {
	return nil
}
