package processes

import (
	"tickcore.ai/internal/host"
	"tickcore.ai/internal/process"
	"tickcore.ai/internal/tasks"
)

// Hauling moves energy from the ground and from containers into the
// spawn and extensions.
type Hauling struct {
	process.Base
	state struct {
		Moved int `json:"moved"`
	}
}

func NewHauling(d *process.Descriptor) (process.Process, error) {
	h := &Hauling{Base: process.NewBase(d, TypeHauling, process.Normal)}
	if err := h.Load(&h.state); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hauling) Run(ctx *process.Context) error {
	claimed := map[host.ObjectID]bool{}
	for _, name := range ctx.Agents.Mine() {
		if t := ctx.Agents.Get(name).Task(); t != nil && t.Kind() == tasks.KindPickup {
			claimed[t.TargetID()] = true
		}
	}

	for _, a := range idle(ctx, RoleHauler) {
		pos, ok := a.Pos()
		if !ok {
			continue
		}
		st := a.Store()
		if st.Get(host.Energy) > 0 {
			if dst, ok := nearest(pos, sinks(ctx.World)); ok {
				a.SetTask(tasks.NewTransfer(dst.ID(), host.Energy, 0))
				h.state.Moved += st.Get(host.Energy)
			}
			continue
		}
		piles := find(ctx.World, func(d host.Dropped) bool {
			return d.Resource() == host.Energy && !claimed[d.ID()]
		})
		if d, ok := nearest(pos, piles); ok {
			claimed[d.ID()] = true
			a.SetTask(tasks.NewPickup(d.ID()))
			continue
		}
		containers := find(ctx.World, func(s host.Storable) bool {
			st, ok := s.(host.Structure)
			return ok && st.StructureType() == host.StructureContainer && s.Store().Get(host.Energy) > 0
		})
		if c, ok := nearest(pos, containers); ok {
			a.SetTask(tasks.NewWithdraw(c.ID(), host.Energy, 0))
		}
	}
	return h.Store(&h.state)
}
