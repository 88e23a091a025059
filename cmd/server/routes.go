package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/persistence/indexdb"
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/grid"
	"voxelprefab.ai/internal/sim/structure/predefined"
	"voxelprefab.ai/internal/sim/structure/template"
	"voxelprefab.ai/internal/sim/world"
	"voxelprefab.ai/internal/transport/observer"
)

const requestTimeout = 5 * time.Second

type app struct {
	w   *world.World
	idx *indexdb.SQLiteIndex
	hub *observer.Hub
	obs *observer.Server

	enabled bool // observer routes
	pprof   bool

	log *zap.Logger
}

func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/v1/structures", a.handleStructures)
	mux.HandleFunc("/v1/builds", a.handleBuilds)
	mux.HandleFunc("/v1/builds/history", a.handleHistory)
	mux.HandleFunc("/admin/v1/snapshot", a.handleSnapshot)
	mux.HandleFunc("/admin/v1/state", a.handleState)
	if a.enabled && a.obs != nil {
		mux.HandleFunc("/v1/observer/bootstrap", a.obs.BootstrapHandler())
		mux.HandleFunc("/v1/observer/ws", a.obs.WSHandler())
	}
	if a.pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func (a *app) handleBuilds(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	switch r.Method {
	case http.MethodPost:
		var spec world.BuildSpec
		dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 64<<10))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		id, err := a.w.SubmitBuild(ctx, spec)
		if err != nil {
			writeJSON(rw, buildErrorStatus(err), map[string]any{"ok": false, "error": err.Error()})
			return
		}
		a.log.Debug("build queued", zap.String("build", id), zap.String("requester", spec.Requester), zap.String("structure", spec.Structure))
		writeJSON(rw, http.StatusAccepted, map[string]any{"ok": true, "build_id": id})
	case http.MethodGet:
		active, err := a.w.ActiveBuilds(ctx)
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if who := r.URL.Query().Get("requester"); who != "" {
			kept := active[:0]
			for _, p := range active {
				if p.Requester == who {
					kept = append(kept, p)
				}
			}
			active = kept
		}
		writeJSON(rw, http.StatusOK, map[string]any{"tick": a.w.CurrentTick(), "builds": active})
	default:
		rw.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func buildErrorStatus(err error) int {
	switch {
	case errors.Is(err, world.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, catalogs.ErrUnknownStructure):
		return http.StatusNotFound
	case errors.Is(err, predefined.ErrUnknownHooks):
		return http.StatusInternalServerError
	case errors.Is(err, template.ErrInvalidFacing), errors.Is(err, grid.ErrRegionUnloaded):
		return http.StatusBadRequest
	case errors.Is(err, world.ErrOutcomeUnknown):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func (a *app) handleHistory(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if a.idx == nil {
		http.Error(rw, "index disabled", http.StatusNotFound)
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(rw, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	rows, err := a.idx.Builds(r.Context(), r.URL.Query().Get("requester"), limit)
	if err != nil {
		writeJSON(rw, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"builds": rows})
}

func (a *app) handleStructures(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"structures": a.w.Structures(),
		"hooks":      a.w.HookNames(),
	})
}

func (a *app) handleSnapshot(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	cp, err := a.w.RequestSnapshot(ctx)
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": cp.Tick, "error": err.Error()})
		return
	}
	if len(cp.QueuedBuilds) > 0 {
		a.log.Warn("snapshot taken with builds in flight", zap.Uint64("tick", cp.Tick), zap.Strings("builds", cp.QueuedBuilds))
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "checkpoint": cp})
}

func (a *app) handleState(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	st, err := a.w.State(ctx)
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, st)
}

func (a *app) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	id := a.w.ID()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP voxelprefab_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE voxelprefab_world_tick gauge\n")
	fmt.Fprintf(rw, "voxelprefab_world_tick{world=%q} %d\n", id, a.w.CurrentTick())

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if active, err := a.w.ActiveBuilds(ctx); err == nil {
		fmt.Fprintf(rw, "# HELP voxelprefab_builds_active Builds waiting in the queue.\n")
		fmt.Fprintf(rw, "# TYPE voxelprefab_builds_active gauge\n")
		fmt.Fprintf(rw, "voxelprefab_builds_active{world=%q} %d\n", id, len(active))
	}

	if a.hub != nil {
		fmt.Fprintf(rw, "# HELP voxelprefab_observer_sessions Connected observer sessions.\n")
		fmt.Fprintf(rw, "# TYPE voxelprefab_observer_sessions gauge\n")
		fmt.Fprintf(rw, "voxelprefab_observer_sessions{world=%q} %d\n", id, a.hub.Sessions())
	}

	if a.idx != nil {
		st := a.idx.Stats()
		fmt.Fprintf(rw, "# HELP voxelprefab_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE voxelprefab_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "voxelprefab_index_queue_depth{world=%q} %d\n", id, st.QueueDepth)
		fmt.Fprintf(rw, "# HELP voxelprefab_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE voxelprefab_index_dropped_total counter\n")
		fmt.Fprintf(rw, "voxelprefab_index_dropped_total{world=%q,kind=%q} %d\n", id, "progress", st.DropProgressTotal)
		fmt.Fprintf(rw, "voxelprefab_index_dropped_total{world=%q,kind=%q} %d\n", id, "complete", st.DropCompleteTotal)
		fmt.Fprintf(rw, "voxelprefab_index_dropped_total{world=%q,kind=%q} %d\n", id, "snapshot", st.DropSnapshotTotal)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
