// Package processes contains the stock planner processes: they look at the
// world, decide what each idle agent should do next and hand it a task. The
// agents then carry the task out on their own across ticks.
package processes

import (
	"math"
	"strings"

	"tickcore.ai/internal/agent"
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/process"
)

const (
	TypeMining  = "mining"
	TypeWorks   = "works"
	TypeHauling = "hauling"
	TypeJanitor = "janitor"
)

// Roles are taken from the creep name prefix, e.g. "miner-3".
const (
	RoleMiner  = "miner"
	RoleWorker = "worker"
	RoleHauler = "hauler"
)

// Register installs every stock process type.
func Register(reg *process.Registry) error {
	for typ, f := range map[string]process.Factory{
		TypeMining:  NewMining,
		TypeWorks:   NewWorks,
		TypeHauling: NewHauling,
		TypeJanitor: NewJanitor,
	} {
		if err := reg.Register(typ, f); err != nil {
			return err
		}
	}
	return nil
}

// Role returns the role encoded in a creep name.
func Role(name string) string {
	if i := strings.IndexAny(name, "-_"); i >= 0 {
		return name[:i]
	}
	return name
}

// idle returns the idle wrappers of own creeps with the given role.
func idle(ctx *process.Context, role string) []*agent.Wrapper {
	var out []*agent.Wrapper
	for _, name := range ctx.Agents.Idle() {
		if Role(name) == role {
			out = append(out, ctx.Agents.Get(name))
		}
	}
	return out
}

// find returns the objects of type T for which keep returns true, in id order.
func find[T host.Object](w host.World, keep func(T) bool) []T {
	var out []T
	for _, id := range w.ObjectIDs() {
		o, ok := w.Object(id)
		if !ok {
			continue
		}
		t, ok := o.(T)
		if ok && (keep == nil || keep(t)) {
			out = append(out, t)
		}
	}
	return out
}

// nearest picks the object closest to from, ignoring other rooms. Ties go
// to the lower id.
func nearest[T host.Object](from host.Pos, objs []T) (T, bool) {
	var best T
	bestD, found := math.MaxInt32, false
	for _, o := range objs {
		if d := from.Range(o.Pos()); d < bestD {
			best, bestD, found = o, d, true
		}
	}
	return best, found
}

// sinks are own structures that accept energy, spawn and extensions first.
func sinks(w host.World) []host.Storable {
	var first, rest []host.Storable
	for _, s := range find(w, func(s host.Storable) bool { return s.Store().Free() > 0 }) {
		st, ok := s.(host.Structure)
		if !ok || !st.My() {
			continue
		}
		switch st.StructureType() {
		case host.StructureSpawn, host.StructureExtension:
			first = append(first, s)
		case host.StructureContainer, host.StructureStorage, host.StructureTower:
			rest = append(rest, s)
		}
	}
	if len(first) > 0 {
		return first
	}
	return rest
}

// stocks are storage structures holding energy.
func stocks(w host.World) []host.Storable {
	return find(w, func(s host.Storable) bool {
		st, ok := s.(host.Structure)
		if !ok {
			return false
		}
		t := st.StructureType()
		return (t == host.StructureContainer || t == host.StructureStorage) && s.Store().Get(host.Energy) > 0
	})
}
