package observer

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/observerproto"
	"voxelprefab.ai/internal/sim/structure/build"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/orient"
	"voxelprefab.ai/internal/sim/world"
)

type session struct {
	out        chan []byte
	requesters map[string]bool
	cells      bool
}

func (s *session) wantsBuild(requester string) bool {
	return len(s.requesters) == 0 || s.requesters[requester]
}

// Hub fans world changes and build reports out to observer sessions. Its
// callbacks run on the world loop goroutine and never block: a slow
// session loses its oldest queued message.
type Hub struct {
	log        *zap.Logger
	sendBuffer int

	mu       sync.Mutex
	sessions map[string]*session
}

var (
	_ world.Observer = (*Hub)(nil)
	_ build.Sink     = (*Hub)(nil)
)

func NewHub(sendBuffer int, log *zap.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, sendBuffer: sendBuffer, sessions: map[string]*session{}}
}

func (h *Hub) join(id string, sub observerproto.SubscribeMsg) chan []byte {
	out := make(chan []byte, h.sendBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[id] = newSession(out, sub)
	return out
}

func newSession(out chan []byte, sub observerproto.SubscribeMsg) *session {
	s := &session{out: out, cells: sub.Cells}
	if len(sub.Requesters) > 0 {
		s.requesters = map[string]bool{}
		for _, r := range sub.Requesters {
			s.requesters[r] = true
		}
	}
	return s
}

func (h *Hub) resubscribe(id string, sub observerproto.SubscribeMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur := h.sessions[id]; cur != nil {
		h.sessions[id] = newSession(cur.out, sub)
	}
}

func (h *Hub) leave(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

// Sessions is the number of connected observers.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) broadcast(v any, want func(*session) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sessions) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("observer message not encoded", zap.Error(err))
		return
	}
	for _, s := range h.sessions {
		if want(s) {
			sendLatest(s.out, b)
		}
	}
}

func all(*session) bool { return true }

func (h *Hub) TileEntityUpdated(tick uint64, te grid.TileEntity) {
	h.broadcast(observerproto.TileEntityUpdateMsg{
		Type:            observerproto.TypeTileEntityUpdate,
		ProtocolVersion: observerproto.Version,
		Tick:            tick,
		Pos:             te.Pos.Array(),
		EntityType:      te.Type,
		Data:            te.Data,
	}, all)
}

func (h *Hub) CellsChanged(tick uint64, cells []world.CellChange) {
	msg := observerproto.CellsChangedMsg{
		Type:            observerproto.TypeCellsChanged,
		ProtocolVersion: observerproto.Version,
		Tick:            tick,
		Cells:           make([]observerproto.CellChange, 0, len(cells)),
	}
	for _, c := range cells {
		cc := observerproto.CellChange{
			Pos:         c.Pos.Array(),
			Block:       c.State.Block,
			Waterlogged: c.State.Waterlogged,
		}
		if c.State.Facing.Horizontal() || c.State.Facing == orient.Up {
			cc.Facing = c.State.Facing.String()
		}
		msg.Cells = append(msg.Cells, cc)
	}
	h.broadcast(msg, func(s *session) bool { return s.cells })
}

func (h *Hub) BuildProgress(p build.Progress) {
	h.broadcast(observerproto.BuildProgressMsg{
		Type:            observerproto.TypeBuildProgress,
		ProtocolVersion: observerproto.Version,
		Build:           p,
	}, func(s *session) bool { return s.wantsBuild(p.Requester) })
}

func (h *Hub) BuildCompleted(c build.Completion) {
	h.broadcast(observerproto.BuildCompleteMsg{
		Type:            observerproto.TypeBuildComplete,
		ProtocolVersion: observerproto.Version,
		Build:           c,
	}, func(s *session) bool { return s.wantsBuild(c.Requester) })
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
