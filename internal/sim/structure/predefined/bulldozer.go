package predefined

import (
	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/structure/template"
)

// Bulldozer only clears its volume.
type Bulldozer struct {
	template.NopHooks
	env Env

	Replaced int
	Hanging  int
}

func NewBulldozer(env Env) *Bulldozer { return &Bulldozer{env: env.withDefaults()} }

func (b *Bulldozer) BeforeClearSpaceCellReplaced(grid.World, orient.Pos) { b.Replaced++ }

func (b *Bulldozer) BeforeHangingEntityRemoved(grid.World, grid.EntityRef) { b.Hanging++ }

func (b *Bulldozer) AfterBuilding(_ template.Configuration, _ grid.World, anchor orient.Pos, _ orient.Direction, requester string) error {
	b.env.Log.Info("area bulldozed",
		zap.String("requester", requester),
		zap.Stringer("anchor", anchor),
		zap.Int("replaced", b.Replaced),
		zap.Int("hanging", b.Hanging),
	)
	return nil
}
