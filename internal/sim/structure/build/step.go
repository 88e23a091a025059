package build

import (
	"fmt"

	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/structure/template"
)

// step spends one tick's budget on t: clearing first, then the tiers in
// order. An adapter error stops the build for this tick; cursors only move
// past work that succeeded.
func (s *Scheduler) step(t *template.Template) (Progress, error) {
	var p Progress
	budget := s.opts.Budget
	finish := func(err error) (Progress, error) {
		p.Units = s.opts.Budget - budget
		return s.describe(t, p), err
	}

	for budget > 0 {
		local, ok := t.Cleared.Peek()
		if !ok {
			break
		}
		pos := t.WorldPos(*local)
		cur, err := t.World.CellState(pos)
		if err != nil {
			return finish(fmt.Errorf("clear %v: %w", pos, err))
		}
		if cur.IsAir() {
			// Empty cells are free.
			t.Cleared.Next()
			p.SkippedAir++
			continue
		}
		if err := s.clearCell(t, pos); err != nil {
			return finish(fmt.Errorf("clear %v: %w", pos, err))
		}
		t.Cleared.Next()
		p.Cleared++
		budget--
	}

	if !t.Cleared.Empty() {
		return finish(s.dewater(t, &p))
	}

	if !t.EntitiesEvicted {
		n, err := s.evictEntities(t)
		if err != nil {
			return finish(fmt.Errorf("evict entities: %w", err))
		}
		p.Evicted = n
		t.EntitiesEvicted = true
	}

	for budget > 0 {
		tier, rec := nextPending(t)
		if rec == nil {
			break
		}
		cost := 1
		if rec.Sub != nil {
			cost = s.opts.PairCost
		}
		if cost > budget {
			break
		}
		if err := t.World.SetCellState(t.WorldPos(rec.Pos), rec.State, grid.FlagsDefault); err != nil {
			return finish(fmt.Errorf("place tier%d %v: %w", tier+1, rec.Pos, err))
		}
		placed := 1
		if rec.Sub != nil {
			if err := t.World.SetCellState(t.WorldPos(rec.Sub.Pos), rec.Sub.State, grid.FlagsDefault); err != nil {
				return finish(fmt.Errorf("place tier%d pair %v: %w", tier+1, rec.Sub.Pos, err))
			}
			placed++
		}
		t.Tiers[tier].Next()
		p.Placed += placed
		budget -= cost
	}
	return finish(s.dewater(t, &p))
}

// nextPending returns the head of the first non-empty tier.
func nextPending(t *template.Template) (int, *template.CellRecord) {
	for i := range t.Tiers {
		if rec, ok := t.Tiers[i].Peek(); ok {
			return i, rec
		}
	}
	return -1, nil
}

func (s *Scheduler) dewater(t *template.Template, p *Progress) error {
	if !t.HasAirTier {
		return nil
	}
	n, err := cleanWaterlogged(t)
	p.Dewatered += n
	if err != nil {
		return fmt.Errorf("waterlog cleanup: %w", err)
	}
	return nil
}

// clearCell empties a non-air cell of the clear volume. Neighbors that hang
// off it go first, with both halves of doors and beds.
func (s *Scheduler) clearCell(t *template.Template, pos orient.Pos) error {
	hooks := t.HooksOrNop()
	hooks.BeforeClearSpaceCellReplaced(t.World, pos)

	for _, d := range orient.Directions {
		np := pos.Side(d)
		ns, err := t.World.CellState(np)
		if err != nil {
			return err
		}
		if !ns.Kind.AttachmentDependent() {
			continue
		}
		hooks.BeforeClearSpaceCellReplaced(t.World, np)
		switch ns.Kind {
		case grid.KindDoor:
			other := np.Up()
			if ns.Half == grid.HalfUpper {
				other = np.Down()
			}
			if err := removePair(t.World, np, other); err != nil {
				return err
			}
		case grid.KindBed:
			other, ok, err := bedPartner(t.World, np, ns)
			if err != nil {
				return err
			}
			if !ok {
				if err := t.World.RemoveCell(np, false); err != nil {
					return err
				}
				continue
			}
			if err := removePair(t.World, np, other); err != nil {
				return err
			}
		default:
			if err := t.World.RemoveCell(np, false); err != nil {
				return err
			}
		}
	}
	return t.World.RemoveCell(pos, false)
}

func removePair(w grid.World, a, b orient.Pos) error {
	if err := w.SetCellState(a, grid.Air, grid.FlagsQuiet); err != nil {
		return err
	}
	return w.SetCellState(b, grid.Air, grid.FlagsQuiet)
}

// bedPartner finds the other half of a bed: first where its facing points,
// then on any face.
func bedPartner(w grid.World, pos orient.Pos, st grid.CellState) (orient.Pos, bool, error) {
	if st.Facing.Horizontal() {
		p := pos.Side(st.BedPartner())
		o, err := w.CellState(p)
		if err != nil {
			return p, false, err
		}
		if o.Kind == grid.KindBed {
			return p, true, nil
		}
	}
	for _, d := range orient.Directions {
		p := pos.Side(d)
		o, err := w.CellState(p)
		if err != nil {
			return p, false, err
		}
		if o.Kind == grid.KindBed {
			return p, true, nil
		}
	}
	return pos, false, nil
}

// evictEntities removes every non-player entity overlapping a cleared cell.
func (s *Scheduler) evictEntities(t *template.Template) (int, error) {
	hooks := t.HooksOrNop()
	seen := map[string]struct{}{}
	n := 0
	for _, local := range t.Cleared.All() {
		refs, err := t.World.EntitiesInRegion(grid.BlockBox(t.WorldPos(local)))
		if err != nil {
			return n, err
		}
		for _, e := range refs {
			if e.PlayerControlled {
				continue
			}
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			if e.Hanging {
				hooks.BeforeHangingEntityRemoved(t.World, e)
			}
			if err := t.World.RemoveEntity(e.ID); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// cleanWaterlogged drains every touched cell: waterlogged states lose the
// flag and plain water becomes air.
func cleanWaterlogged(t *template.Template) (int, error) {
	n := 0
	for _, local := range t.AllTouched {
		pos := t.WorldPos(local)
		st, err := t.World.CellState(pos)
		if err != nil {
			return n, err
		}
		switch {
		case st.Waterloggable && st.Waterlogged:
			if err := t.World.SetCellState(pos, st.WithWaterlogged(false), grid.FlagsDefault); err != nil {
				return n, err
			}
			n++
		case st.IsWater():
			if err := t.World.SetCellState(pos, grid.Air, grid.FlagsDefault); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
