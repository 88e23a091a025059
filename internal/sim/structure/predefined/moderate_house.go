package predefined

import (
	"fmt"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/structure/template"
)

// ModerateHouse is the starter house. It keeps beds out of the placement
// tiers, remembers furnaces, the chest and the trapdoor, and finishes them
// after the build.
type ModerateHouse struct {
	template.NopHooks
	env Env

	furnaces []orient.Pos
	chest    *orient.Pos
	trapdoor *orient.Pos
	beds     [][2]orient.Pos // head, foot
}

func NewModerateHouse(env Env) *ModerateHouse { return &ModerateHouse{env: env.withDefaults()} }

func (h *ModerateHouse) CustomCellHandled(cfg template.Configuration, rec *template.CellRecord, _ grid.World, anchor orient.Pos, north orient.Direction, kind grid.Kind, state grid.CellState, _ string) bool {
	pos := orient.RelativePosition(rec.Pos, anchor, north, cfg.HouseFacing)
	switch kind {
	case grid.KindFurnace:
		h.furnaces = append(h.furnaces, pos)
	case grid.KindChest:
		if !cfg.Bool("add_chests", true) {
			return true
		}
		if h.chest == nil {
			h.chest = &pos
		}
	case grid.KindTrapdoor:
		if h.trapdoor == nil {
			h.trapdoor = &pos
		}
	case grid.KindSponge:
		// Sponges mark the shaft when the trapdoors are decoration.
		up := pos.Up()
		h.trapdoor = &up
	case grid.KindBed:
		head, foot := pos, pos.Side(state.BedPartner())
		if rec.Sub != nil {
			foot = orient.RelativePosition(rec.Sub.Pos, anchor, north, cfg.HouseFacing)
		}
		if state.Part == grid.PartFoot {
			head, foot = foot, head
		}
		h.beds = append(h.beds, [2]orient.Pos{head, foot})
		return true
	}
	return false
}

func (h *ModerateHouse) AfterBuilding(cfg template.Configuration, w grid.World, _ orient.Pos, _ orient.Direction, requester string) error {
	if err := fillFurnaces(w, h.furnaces); err != nil {
		return err
	}

	ledger := h.env.Ledger
	if h.chest != nil && !ledger.Built(requester) && cfg.Bool("add_chest_contents", true) {
		if err := fillChest(w, *h.chest); err != nil {
			return err
		}
	}

	if h.trapdoor != nil && h.trapdoor.Y > mineshaftMinSurface && cfg.Bool("add_mineshaft", true) {
		if err := placeMineShaft(w, h.env.Blocks, h.trapdoor.Down(), cfg.HouseFacing); err != nil {
			return fmt.Errorf("mineshaft: %w", err)
		}
	}

	color := cfg.String("bed_color", "red")
	for _, b := range h.beds {
		if err := placeColoredBed(w, h.env.Blocks, b[0], b[1], color); err != nil {
			return fmt.Errorf("bed at %v: %w", b[0], err)
		}
	}

	ledger.MarkBuilt(requester)
	h.env.Log.Info("starter house finished",
		zap.String("requester", requester),
		zap.Int("furnaces", len(h.furnaces)),
		zap.Int("beds", len(h.beds)),
		zap.Bool("mineshaft", h.trapdoor != nil),
	)
	return nil
}
