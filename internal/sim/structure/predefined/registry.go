// Package predefined holds the hooks of the built-in structure types.
package predefined

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voxelprefab.ai/internal/scripting"
	"voxelprefab.ai/internal/sim/catalogs"
	"voxelprefab.ai/internal/sim/structure/template"
)

var ErrUnknownHooks = errors.New("unknown structure hooks")

// scriptPrefix selects Lua hooks: "lua:<name>" binds hooks[name].
const scriptPrefix = "lua:"

// StarterLedger remembers which requesters already got a starter house.
type StarterLedger interface {
	Built(requester string) bool
	MarkBuilt(requester string)
}

// Env is shared by every hooks instance.
type Env struct {
	Blocks  *catalogs.BlockCatalog
	Scripts *scripting.Engine
	Ledger  StarterLedger
	Log     *zap.Logger
}

func (e Env) withDefaults() Env {
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	if e.Ledger == nil {
		e.Ledger = NewMemoryLedger()
	}
	return e
}

// Factory makes fresh hooks for one build. Hooks keep per-build state, so
// they are never shared between templates.
type Factory func(env Env) template.Hooks

type Registry struct {
	env       Env
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in structure types.
func NewRegistry(env Env) *Registry {
	r := &Registry{env: env.withDefaults(), factories: map[string]Factory{}}
	r.Register("moderate_house", func(env Env) template.Hooks { return NewModerateHouse(env) })
	r.Register("bulldozer", func(env Env) template.Hooks { return NewBulldozer(env) })
	return r
}

func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// Lookup returns fresh hooks for a structure's hooks name. The empty name
// means no hooks.
func (r *Registry) Lookup(name string) (template.Hooks, error) {
	if name == "" {
		return template.NopHooks{}, nil
	}
	if script, ok := strings.CutPrefix(name, scriptPrefix); ok {
		if r.env.Scripts == nil || !r.env.Scripts.Has(script) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHooks, name)
		}
		return NewScripted(r.env, script), nil
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHooks, name)
	}
	return f(r.env), nil
}

// Names lists registered and scripted hooks names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	if r.env.Scripts != nil {
		for _, s := range r.env.Scripts.Names() {
			out = append(out, scriptPrefix+s)
		}
	}
	sort.Strings(out)
	return out
}

// MemoryLedger is a StarterLedger kept in memory.
type MemoryLedger struct {
	mu    sync.Mutex
	built map[string]bool
}

func NewMemoryLedger() *MemoryLedger { return &MemoryLedger{built: map[string]bool{}} }

func (l *MemoryLedger) Built(requester string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.built[requester]
}

func (l *MemoryLedger) MarkBuilt(requester string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.built[requester] = true
}

// List returns every requester with a starter house, sorted.
func (l *MemoryLedger) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.built))
	for r := range l.built {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
