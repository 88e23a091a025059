package predefined

import (
	"fmt"

	"voxelprefab.ai/internal/scripting"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/structure/template"
)

// Scripted delegates to a Lua hook table. Script positions and facings are
// template-local and turned onto the house facing here.
type Scripted struct {
	template.NopHooks
	env  Env
	name string
}

func NewScripted(env Env, name string) *Scripted {
	return &Scripted{env: env.withDefaults(), name: name}
}

func (s *Scripted) CustomCellHandled(cfg template.Configuration, rec *template.CellRecord, _ grid.World, _ orient.Pos, _ orient.Direction, kind grid.Kind, state grid.CellState, requester string) bool {
	return s.env.Scripts.CustomCell(s.name, scripting.CellContext{
		X:         rec.Pos.X,
		Y:         rec.Pos.Y,
		Z:         rec.Pos.Z,
		Block:     state.Block,
		Kind:      kind.String(),
		Facing:    state.Facing.String(),
		Requester: requester,
		Options:   cfg.Options,
	})
}

func (s *Scripted) AfterBuilding(cfg template.Configuration, w grid.World, anchor orient.Pos, north orient.Direction, requester string) error {
	edits, err := s.env.Scripts.AfterBuilding(s.name, scripting.BuildContext{
		AnchorX:     anchor.X,
		AnchorY:     anchor.Y,
		AnchorZ:     anchor.Z,
		HouseFacing: cfg.HouseFacing.String(),
		Requester:   requester,
		Options:     cfg.Options,
	})
	if err != nil {
		return err
	}
	if len(edits) > 0 && s.env.Blocks == nil {
		return fmt.Errorf("script %s: no block catalog", s.name)
	}

	rot := orient.Between(north, cfg.HouseFacing)
	for _, ed := range edits {
		st, err := s.env.Blocks.State(ed.Block)
		if err != nil {
			return fmt.Errorf("script %s: %w", s.name, err)
		}
		if ed.Facing != "" {
			d, err := orient.ParseDirection(ed.Facing)
			if err != nil {
				return fmt.Errorf("script %s: %w", s.name, err)
			}
			st.Facing = d
			st = st.Rotated(rot)
		}
		local := orient.Pos{X: ed.X, Y: ed.Y, Z: ed.Z}
		pos := orient.RelativePosition(local, anchor, north, cfg.HouseFacing)
		if err := w.SetCellState(pos, st, grid.FlagsDefault); err != nil {
			return fmt.Errorf("script %s: edit at %v: %w", s.name, pos, err)
		}
	}
	return nil
}
