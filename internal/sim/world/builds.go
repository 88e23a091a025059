package world

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/structure/template"
)

// BuildSpec asks for one structure to be built.
type BuildSpec struct {
	Requester string            `json:"requester"`
	Structure string            `json:"structure"`
	Anchor    orient.Pos        `json:"anchor"`
	Facing    orient.Direction  `json:"facing"`
	Options   map[string]string `json:"options,omitempty"`
}

type buildReq struct {
	Ctx  context.Context
	Spec BuildSpec
	Resp chan buildResp
}

// ErrOutcomeUnknown is returned when the caller gave up after the world loop
// may already have taken the request; the build can still be queued.
var ErrOutcomeUnknown = errors.New("build submitted, outcome unknown")

type buildResp struct {
	BuildID string
	Err     error
}

type buildsQuery struct {
	Resp chan []build.Progress
}

// SubmitBuild hands a build to the world loop and waits until it is queued.
// It is safe to call from other goroutines (e.g. HTTP handlers). Requests
// whose ctx is done by the time the loop reaches them are dropped.
func (w *World) SubmitBuild(ctx context.Context, spec BuildSpec) (string, error) {
	resp := make(chan buildResp, 1)
	select {
	case w.builds <- buildReq{Ctx: ctx, Spec: spec, Resp: resp}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case r := <-resp:
		return r.BuildID, r.Err
	case <-ctx.Done():
		// The loop may have queued it between its ctx check and now.
		select {
		case r := <-resp:
			return r.BuildID, r.Err
		default:
		}
		return "", fmt.Errorf("%w: %v", ErrOutcomeUnknown, ctx.Err())
	}
}

// ActiveBuilds reports every queued build.
func (w *World) ActiveBuilds(ctx context.Context) ([]build.Progress, error) {
	if w == nil || w.queries == nil {
		return nil, errors.New("world not running")
	}
	resp := make(chan []build.Progress, 1)
	select {
	case w.queries <- buildsQuery{Resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case p := <-resp:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Enqueue assembles and queues a build. It must be called from the world
// loop goroutine or while the world is stopped.
func (w *World) Enqueue(spec BuildSpec) (string, error) {
	if spec.Requester == "" {
		return "", fmt.Errorf("build: empty requester")
	}
	if n := w.sched.Pending(spec.Requester); n >= w.cfg.MaxQueuedPerRequester {
		return "", fmt.Errorf("%w: %s has %d builds queued", ErrQueueFull, spec.Requester, n)
	}
	def, err := w.catalogs.Structures.Get(spec.Structure)
	if err != nil {
		return "", err
	}
	hooks, err := w.hooks.Lookup(def.Hooks)
	if err != nil {
		return "", fmt.Errorf("structure %s: %w", def.ID, err)
	}
	t, err := template.Assemble(template.AssembleInput{
		Def:      def,
		Blocks:   &w.catalogs.Blocks,
		Entities: &w.catalogs.Entities,
		World:    w.grid,
		Anchor:   spec.Anchor,
		Config: template.Configuration{
			HouseFacing: spec.Facing,
			Options:     spec.Options,
		},
		Requester: spec.Requester,
		Hooks:     hooks,
	})
	if err != nil {
		return "", err
	}
	if err := w.checkFootprint(t); err != nil {
		return "", fmt.Errorf("structure %s at %v: %w", def.ID, spec.Anchor, err)
	}
	if err := w.sched.Enqueue(spec.Requester, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// checkFootprint rejects templates that touch cells outside the loaded
// region; such a build could never finish.
func (w *World) checkFootprint(t *template.Template) error {
	check := func(local orient.Pos) error {
		if p := t.WorldPos(local); !w.grid.inBounds(p) {
			return fmt.Errorf("%v: %w", p, grid.ErrRegionUnloaded)
		}
		return nil
	}
	for _, p := range t.Cleared.All() {
		if err := check(p); err != nil {
			return err
		}
	}
	for i := range t.Tiers {
		for _, rec := range t.Tiers[i].All() {
			if err := check(rec.Pos); err != nil {
				return err
			}
			if rec.Sub != nil {
				if err := check(rec.Sub.Pos); err != nil {
					return err
				}
			}
		}
	}
	for _, te := range t.TileEntities {
		if err := check(te.Pos); err != nil {
			return err
		}
	}
	for _, e := range t.Entities {
		if err := check(e.Pos); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) handleBuildRequests(reqs []buildReq) {
	for _, r := range reqs {
		if r.Ctx != nil && r.Ctx.Err() != nil {
			w.log.Debug("build request expired",
				zap.String("requester", r.Spec.Requester),
				zap.String("structure", r.Spec.Structure),
			)
			continue
		}
		id, err := w.Enqueue(r.Spec)
		if err != nil {
			w.log.Warn("build rejected",
				zap.String("requester", r.Spec.Requester),
				zap.String("structure", r.Spec.Structure),
				zap.Error(err),
			)
		}
		if r.Resp == nil {
			continue
		}
		select {
		case r.Resp <- buildResp{BuildID: id, Err: err}:
		default:
			// Client timed out; don't block the sim loop.
		}
	}
}

func (w *World) handleBuildsQuery(q buildsQuery) {
	select {
	case q.Resp <- w.sched.Active():
	default:
	}
}

// QueuedBuilds reports every queued build. Like Enqueue, it must be called
// from the world loop goroutine or while the world is stopped.
func (w *World) QueuedBuilds() []build.Progress { return w.sched.Active() }
