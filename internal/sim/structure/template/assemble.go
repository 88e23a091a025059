package template

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
)

// AssembleInput is everything needed to turn a scanned structure into a
// ready-to-enqueue Template.
type AssembleInput struct {
	Def       catalogs.StructureDef
	Blocks    *catalogs.BlockCatalog
	Entities  *catalogs.EntityCatalog
	World     grid.World
	Anchor    orient.Pos
	Config    Configuration
	Requester string
	Hooks     Hooks
}

// Assemble builds a fully populated Template. Cell facings are turned onto
// the house facing, tiers are assigned from the cell kind and every cell is
// offered to Hooks.CustomCellHandled first.
func Assemble(in AssembleInput) (*Template, error) {
	if in.Blocks == nil {
		return nil, fmt.Errorf("assemble %s: nil block catalog", in.Def.ID)
	}
	north, err := orient.ParseDirection(in.Def.CanonicalNorth)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", in.Def.ID, err)
	}
	if !north.Horizontal() {
		return nil, fmt.Errorf("assemble %s: canonical north: %w", in.Def.ID, ErrInvalidFacing)
	}
	if !in.Config.HouseFacing.Horizontal() {
		return nil, fmt.Errorf("assemble %s: house facing: %w", in.Def.ID, ErrInvalidFacing)
	}

	cfg := in.Config
	cfg.Options = mergeOptions(in.Def.Options, in.Config.Options)

	t := &Template{
		World:          in.World,
		StructureID:    in.Def.ID,
		Requester:      in.Requester,
		Config:         cfg,
		OriginalPos:    in.Anchor,
		CanonicalNorth: north,
		ClearDirection: north,
		Hooks:          in.Hooks,
	}
	hooks := t.HooksOrNop()
	rot := t.Rotation()

	touched := newPosSet()

	var cleared []orient.Pos
	if in.Def.Clear != nil {
		lo, hi := orient.PosFromArray(in.Def.Clear[0]), orient.PosFromArray(in.Def.Clear[1])
		lo, hi = minPos(lo, hi), maxPos(lo, hi)
		// Top-down so supported cells go before their supports.
		for y := hi.Y; y >= lo.Y; y-- {
			for x := lo.X; x <= hi.X; x++ {
				for z := lo.Z; z <= hi.Z; z++ {
					p := orient.Pos{X: x, Y: y, Z: z}
					cleared = append(cleared, p)
					touched.add(p)
				}
			}
		}
	}

	var tiers [TierCount][]CellRecord
	for _, b := range in.Def.Blocks {
		rec, err := cellRecord(in.Blocks, b, rot)
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", in.Def.ID, err)
		}
		touched.add(rec.Pos)
		if rec.Sub != nil {
			touched.add(rec.Sub.Pos)
		}
		if hooks.CustomCellHandled(cfg, &rec, in.World, in.Anchor, north, rec.State.Kind, rec.State, in.Requester) {
			continue
		}
		tier := TierFor(b.Tier, rec.State.Kind)
		tiers[tier] = append(tiers[tier], rec)
	}
	for i := range tiers {
		t.Tiers[i] = NewCursor(tiers[i])
	}
	t.Cleared = NewCursor(cleared)
	t.AllTouched = touched.list

	networked := map[string]bool{}
	for _, d := range in.Blocks.Defs {
		if d.TileEntity != "" && d.Networked {
			networked[d.TileEntity] = true
		}
	}
	for _, te := range in.Def.TileEntities {
		t.TileEntities = append(t.TileEntities, TileEntityRecord{
			Pos:       orient.PosFromArray(te.Pos),
			Type:      te.Type,
			Blob:      te.Data,
			Networked: networked[te.Type],
		})
	}

	for _, e := range in.Def.Entities {
		rec := EntityRecord{
			Type:   e.Type,
			Pos:    orient.PosFromArray(e.Pos),
			Blob:   e.Data,
			Offset: mgl64.Vec3{e.Offset[0], e.Offset[1], e.Offset[2]},
		}
		if in.Entities != nil {
			if def, ok := in.Entities.ByID[e.Type]; ok {
				cat, err := ParseEntityCategory(def.Category)
				if err != nil {
					return nil, fmt.Errorf("assemble %s: entity %s: %w", in.Def.ID, e.Type, err)
				}
				rec.Category = cat
				if cat != EntityGeneral {
					motive := ""
					if c, err := DecodeCompound(e.Data); err == nil {
						motive, _ = c.String("Motive")
					}
					rec.SpriteWidth, rec.SpriteHeight = def.SpriteSize(motive)
				}
			}
		}
		t.Entities = append(t.Entities, rec)
	}

	return t, nil
}

// TierFor picks the placement tier index. An explicit tier (1..5) wins;
// otherwise supports go first and attached decorations last.
func TierFor(explicit int, k grid.Kind) int {
	if explicit >= 1 && explicit <= TierCount {
		return explicit - 1
	}
	switch k {
	case grid.KindAir:
		return AirTier
	case grid.KindFalling, grid.KindWater:
		return 1
	case grid.KindDoor, grid.KindBed, grid.KindCarpet, grid.KindFlowerPot, grid.KindPressurePlate,
		grid.KindSugarCane, grid.KindRail, grid.KindLantern:
		return 3
	case grid.KindTorch, grid.KindSign, grid.KindLever, grid.KindButton, grid.KindLadder,
		grid.KindVine, grid.KindRedstoneWire, grid.KindDiode, grid.KindBanner:
		return 4
	default:
		return 0
	}
}

func cellRecord(blocks *catalogs.BlockCatalog, b catalogs.BPBlock, rot orient.Rotation) (CellRecord, error) {
	st, err := blocks.State(b.Block)
	if err != nil {
		return CellRecord{}, err
	}
	if b.Facing != "" {
		d, err := orient.ParseDirection(b.Facing)
		if err != nil {
			return CellRecord{}, fmt.Errorf("block %s at %v: %w", b.Block, b.Pos, err)
		}
		st.Facing = d
	}
	switch strings.ToLower(b.Half) {
	case "lower":
		st.Half = grid.HalfLower
	case "upper":
		st.Half = grid.HalfUpper
	}
	switch strings.ToLower(b.Part) {
	case "foot":
		st.Part = grid.PartFoot
	case "head":
		st.Part = grid.PartHead
	}
	st = st.WithWaterlogged(b.Waterlogged).Rotated(rot)

	rec := CellRecord{Pos: orient.PosFromArray(b.Pos), State: st}
	if b.Sub != nil {
		sub, err := cellRecord(blocks, *b.Sub, rot)
		if err != nil {
			return CellRecord{}, err
		}
		sub.Sub = nil
		rec.Sub = &sub
	}
	return rec, nil
}

func mergeOptions(defaults, override map[string]string) map[string]string {
	out := make(map[string]string, len(defaults)+len(override))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

type posSet struct {
	seen map[orient.Pos]struct{}
	list []orient.Pos
}

func newPosSet() *posSet { return &posSet{seen: map[orient.Pos]struct{}{}} }

func (s *posSet) add(p orient.Pos) {
	if _, ok := s.seen[p]; ok {
		return
	}
	s.seen[p] = struct{}{}
	s.list = append(s.list, p)
}

func minPos(a, b orient.Pos) orient.Pos {
	return orient.Pos{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
}

func maxPos(a, b orient.Pos) orient.Pos {
	return orient.Pos{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}
