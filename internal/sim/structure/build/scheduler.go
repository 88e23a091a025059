package build

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/structure/template"
)

const (
	// DefaultBudget is the number of work units each build gets per tick.
	DefaultBudget = 100
	// DefaultPairCost is the budget charged for a cell together with its
	// paired half. A pair costs the same as a single cell.
	DefaultPairCost = 1
)

type Options struct {
	Budget   int
	PairCost int
	Sink     Sink
}

func (o Options) withDefaults() Options {
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	if o.PairCost <= 0 {
		o.PairCost = DefaultPairCost
	}
	if o.PairCost > o.Budget {
		o.PairCost = o.Budget
	}
	return o
}

// Scheduler drives every queued build a bounded amount per tick. It is not
// safe for concurrent use; the host calls Enqueue and Tick from its tick
// goroutine.
type Scheduler struct {
	opts Options
	log  *zap.Logger

	queues map[string][]*template.Template
	order  []string
	meta   map[*template.Template]*buildMeta
	seq    uint64
	tick   uint64
}

type buildMeta struct {
	enqueuedTick uint64
	ticks        uint64
}

func New(opts Options, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		opts:   opts.withDefaults(),
		log:    log,
		queues: map[string][]*template.Template{},
		meta:   map[*template.Template]*buildMeta{},
	}
}

func (s *Scheduler) Options() Options { return s.opts }

// Enqueue appends a fully assembled template to the requester's queue.
func (s *Scheduler) Enqueue(requester string, t *template.Template) error {
	if t == nil {
		return errors.New("enqueue: nil template")
	}
	if requester == "" {
		return errors.New("enqueue: empty requester")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	if _, dup := s.meta[t]; dup {
		return fmt.Errorf("enqueue: template %s already queued", t.ID)
	}
	s.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("B%d", s.seq)
	}
	t.Requester = requester
	if !t.Tiers[template.AirTier].Empty() {
		t.HasAirTier = true
	}

	if _, ok := s.queues[requester]; !ok {
		s.order = append(s.order, requester)
	}
	s.queues[requester] = append(s.queues[requester], t)
	s.meta[t] = &buildMeta{enqueuedTick: s.tick}

	s.log.Info("build enqueued",
		zap.String("build", t.ID),
		zap.String("requester", requester),
		zap.String("structure", t.StructureID),
		zap.Int("clear", t.Cleared.Total()),
		zap.Int("cells", t.TotalCells()),
		zap.Bool("air_tier", t.HasAirTier),
	)
	return nil
}

// Seq is the last assigned build sequence number.
func (s *Scheduler) Seq() uint64 { return s.seq }

// ResumeSeq continues build numbering after n, e.g. after a restart.
func (s *Scheduler) ResumeSeq(n uint64) {
	if n > s.seq {
		s.seq = n
	}
}

// Pending is the number of builds queued for a requester.
func (s *Scheduler) Pending(requester string) int { return len(s.queues[requester]) }

// Requesters lists requesters with queued builds in first-enqueue order.
func (s *Scheduler) Requesters() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Active describes every queued build without advancing it.
func (s *Scheduler) Active() []Progress {
	var out []Progress
	for _, r := range s.order {
		for _, t := range s.queues[r] {
			out = append(out, s.describe(t, Progress{Tick: s.tick}))
		}
	}
	return out
}

// Tick runs one scheduling pass. Every queued build gets a full budget.
func (s *Scheduler) Tick(tick uint64) TickReport {
	s.tick = tick
	rep := TickReport{Tick: tick}

	for _, requester := range s.Requesters() {
		queue := append([]*template.Template(nil), s.queues[requester]...)
		for _, t := range queue {
			if m := s.meta[t]; m != nil {
				m.ticks++
			}
			p, err := s.step(t)
			p.Tick = tick
			if err != nil {
				p.Err = err.Error()
				s.log.Warn("build tick aborted",
					zap.String("build", t.ID),
					zap.String("structure", t.StructureID),
					zap.Error(err),
				)
				rep.Builds = append(rep.Builds, p)
				s.emitProgress(p)
				continue
			}
			if !s.done(t) {
				rep.Builds = append(rep.Builds, p)
				s.emitProgress(p)
				s.log.Debug("build progress",
					zap.String("build", t.ID),
					zap.Int("units", p.Units),
					zap.Int("pending_cells", p.PendingCells),
				)
				continue
			}

			c := s.finalize(t)
			p.Stage = StageComplete
			if !c.OK {
				p.Stage = StageFailed
				p.Err = c.Err
			}
			rep.Builds = append(rep.Builds, p)
			rep.Completed = append(rep.Completed, c)
			s.emitProgress(p)
			s.remove(requester, t)
			if s.opts.Sink != nil {
				s.opts.Sink.BuildCompleted(c)
			}
		}
	}
	return rep
}

func (s *Scheduler) done(t *template.Template) bool {
	return t.Cleared.Empty() && t.TiersEmpty()
}

func (s *Scheduler) emitProgress(p Progress) {
	if s.opts.Sink != nil {
		s.opts.Sink.BuildProgress(p)
	}
}

func (s *Scheduler) describe(t *template.Template, p Progress) Progress {
	p.BuildID = t.ID
	p.Requester = t.Requester
	p.StructureID = t.StructureID
	p.PendingClear = t.Cleared.Len()
	p.PendingCells = t.PendingCells()
	switch {
	case !t.Cleared.Empty():
		p.Stage = StageClearing
	case !t.TiersEmpty():
		p.Stage = StagePlacing
	default:
		p.Stage = StageComplete
	}
	return p
}

// remove drops t from its requester's queue, and the requester key with it
// once the queue is empty.
func (s *Scheduler) remove(requester string, t *template.Template) {
	q := s.queues[requester]
	for i, cur := range q {
		if cur == t {
			q = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	delete(s.meta, t)
	if len(q) > 0 {
		s.queues[requester] = q
		return
	}
	delete(s.queues, requester)
	for i, r := range s.order {
		if r == requester {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}
