// Package agent wraps host creeps with per-tick action accounting, a
// resident task and cached pathing. Nothing here holds a live creep handle
// past the tick it was resolved in.
package agent

import (
	"io"
	"log"
	"sort"
	"strings"

	"tickcore.ai/internal/host"
	"tickcore.ai/internal/traffic"
)

type Options struct {
	// StuckThreshold is the number of consecutive unchanged positions after
	// which a cached path is dropped and recomputed around creeps.
	StuckThreshold int
	// StationaryPenalty is added to the cost of cells held by own creeps
	// running a stationary task.
	StationaryPenalty int
	MaxOps            int
}

func DefaultOptions() Options {
	return Options{StuckThreshold: 2, StationaryPenalty: 20, MaxOps: 2000}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StuckThreshold <= 0 {
		o.StuckThreshold = d.StuckThreshold
	}
	if o.StationaryPenalty < 0 {
		o.StationaryPenalty = 0
	}
	if o.MaxOps <= 0 {
		o.MaxOps = d.MaxOps
	}
	return o
}

// Registrar accepts movement intents.
type Registrar interface {
	Register(in traffic.Intent)
}

// Roster owns the wrappers of the current process lifetime. Wrappers are
// cheap and rebuilt on demand; everything that must survive a reset lives
// in the store.
type Roster struct {
	store   Store
	traffic Registrar
	opts    Options
	logger  *log.Logger

	world    host.World
	wrappers map[string]*Wrapper
}

func NewRoster(store Store, reg Registrar, opts Options, logger *log.Logger) *Roster {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Roster{
		store:    store,
		traffic:  reg,
		opts:     opts.withDefaults(),
		logger:   logger,
		wrappers: map[string]*Wrapper{},
	}
}

// Bind makes w the world all wrappers resolve against until Unbind.
func (r *Roster) Bind(w host.World) { r.world = w }

func (r *Roster) Unbind() { r.world = nil }

func (r *Roster) World() host.World { return r.world }

func (r *Roster) Options() Options { return r.opts }

// Get returns the wrapper for name, building it if needed.
func (r *Roster) Get(name string) *Wrapper {
	if w, ok := r.wrappers[name]; ok {
		return w
	}
	w := &Wrapper{name: name, roster: r}
	r.wrappers[name] = w
	return w
}

// Mine lists the names of own creeps in the bound world.
func (r *Roster) Mine() []string {
	if r.world == nil {
		return nil
	}
	var out []string
	for _, name := range r.world.CreepNames() {
		if c, ok := r.world.Creep(name); ok && c.My() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Idle lists own creeps without a task.
func (r *Roster) Idle() []string {
	var out []string
	for _, name := range r.Mine() {
		w := r.Get(name)
		if !w.Spawning() && w.Task() == nil {
			out = append(out, name)
		}
	}
	return out
}

// RunAll runs the wrapper of every own creep, in name order.
func (r *Roster) RunAll() int {
	names := r.Mine()
	for _, name := range names {
		r.Get(name).Run()
	}
	return len(names)
}

// Stationary reports whether the named creep is running a stationary task.
func (r *Roster) Stationary(name string) bool {
	return r.Get(name).Stationary()
}

// Collect drops the wrappers and persisted records of creeps that no
// longer exist. It returns the names it dropped.
func (r *Roster) Collect() []string {
	if r.world == nil {
		return nil
	}
	gone := map[string]bool{}
	for name := range r.wrappers {
		if _, ok := r.world.Creep(name); !ok {
			gone[name] = true
		}
	}
	for _, key := range r.store.Keys(KeyPrefix) {
		name := strings.TrimPrefix(key, KeyPrefix)
		if _, ok := r.world.Creep(name); !ok {
			gone[name] = true
		}
	}
	out := make([]string, 0, len(gone))
	for name := range gone {
		delete(r.wrappers, name)
		r.store.Delete(Key(name))
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reset forgets every wrapper, as a host restart would.
func (r *Roster) Reset() { r.wrappers = map[string]*Wrapper{} }

func (r *Roster) Len() int { return len(r.wrappers) }

func (r *Roster) costFunc(self string, avoidCreeps bool) host.CostFunc {
	world := r.world
	return func(p host.Pos) (int, bool) {
		cost, ok := TerrainCost(world, p)
		if !ok {
			return 0, false
		}
		if c, ok := world.CreepAt(p); ok && c.Name() != self {
			if avoidCreeps || !c.My() {
				return 0, false
			}
			if r.Stationary(c.Name()) {
				cost += r.opts.StationaryPenalty
			}
		}
		return cost, true
	}
}
